package repositories

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/modules/pipeline/models"
)

// RunRepo interface for pipeline run history
type RunRepo interface {
	Create(run *models.PipelineRun) error
	FindByID(id uuid.UUID) (*models.PipelineRun, error)
	FindRecent(limit int) ([]models.PipelineRun, error)
	FindRunning() ([]models.PipelineRun, error)
	Update(run *models.PipelineRun) error
}

type runRepo struct {
	db *gorm.DB
}

func NewRunRepo(db *gorm.DB) RunRepo {
	return &runRepo{db: db}
}

func (r *runRepo) Create(run *models.PipelineRun) error {
	return r.db.Create(run).Error
}

func (r *runRepo) FindByID(id uuid.UUID) (*models.PipelineRun, error) {
	var run models.PipelineRun
	err := r.db.Where("id = ?", id).First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *runRepo) FindRecent(limit int) ([]models.PipelineRun, error) {
	var runs []models.PipelineRun
	query := r.db.Order("started_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&runs).Error
	return runs, err
}

func (r *runRepo) FindRunning() ([]models.PipelineRun, error) {
	var runs []models.PipelineRun
	err := r.db.Where("status = ?", "running").Order("started_at DESC").Find(&runs).Error
	return runs, err
}

func (r *runRepo) Update(run *models.PipelineRun) error {
	return r.db.Save(run).Error
}
