package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PipelineRun is one execution of the FATURA pipeline
type PipelineRun struct {
	ID           uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	TriggeredBy  string         `json:"triggered_by" gorm:"type:varchar(20);not null"`                   // 'manual', 'scheduled', 'api'
	Status       string         `json:"status" gorm:"type:varchar(20);not null;default:'running';index"` // 'running', 'success', 'failed'
	Stages       datatypes.JSON `json:"stages"`
	Extraction   datatypes.JSON `json:"extraction,omitempty"`
	Validation   datatypes.JSON `json:"validation,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty" gorm:"type:text"`
	StartedAt    time.Time      `json:"started_at" gorm:"not null;index:,sort:desc"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	DurationMs   int64          `json:"duration_ms,omitempty"`
}

// TableName specifies the table name for PipelineRun
func (PipelineRun) TableName() string {
	return "pipeline_runs"
}

func (r *PipelineRun) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
