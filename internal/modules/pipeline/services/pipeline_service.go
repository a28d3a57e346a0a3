package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/cache"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/export"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/pipeline"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/quality"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/scheduler"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/modules/pipeline/models"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/modules/pipeline/repositories"
)

var (
	ErrRunInProgress  = errors.New("a pipeline run is already in progress")
	ErrRunNotFound    = errors.New("pipeline run not found")
	ErrNoResults      = errors.New("no OCR results yet")
	ErrReportNotFound = errors.New("report not generated yet")
)

const scheduledJobName = "fatura-pipeline"

// ResultItem is one row of the OCR result table
type ResultItem struct {
	FileName string `json:"file_name"`
	OCRText  string `json:"ocr_text"`
}

// ResultsPage is a window over the OCR result table, ordered by file name
type ResultsPage struct {
	Total  int          `json:"total"`
	Offset int          `json:"offset"`
	Limit  int          `json:"limit"`
	Items  []ResultItem `json:"items"`
}

// PipelineService runs the pipeline in the background and serves its outputs
type PipelineService struct {
	runner    *pipeline.Runner
	runRepo   repositories.RunRepo
	exporter  *export.Service
	scheduler *scheduler.Scheduler

	running atomic.Bool
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewPipelineService(runner *pipeline.Runner, runRepo repositories.RunRepo) *PipelineService {
	ctx, cancel := context.WithCancel(context.Background())
	return &PipelineService{
		runner:    runner,
		runRepo:   runRepo,
		exporter:  export.NewService(),
		scheduler: scheduler.NewScheduler(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Initialize marks runs left over from a previous process as failed and
// schedules the pipeline when schedule is set.
func (s *PipelineService) Initialize(schedule string) error {
	log.Info().Msg("🔧 Initializing Pipeline Service...")

	if err := s.failInterruptedRuns(); err != nil {
		return fmt.Errorf("failed to close interrupted runs: %w", err)
	}

	if schedule != "" {
		err := s.scheduler.AddJob(scheduledJobName, schedule, func() {
			if _, err := s.TriggerRun(pipeline.TriggerScheduled); err != nil {
				log.Warn().Err(err).Msg("⚠️ Scheduled pipeline run skipped")
			}
		})
		if err != nil {
			return err
		}
	}
	s.scheduler.Start()

	log.Info().Msg("✅ Pipeline Service initialized successfully")
	return nil
}

// Shutdown stops the scheduler, cancels a running pipeline and waits for it.
func (s *PipelineService) Shutdown() {
	log.Info().Msg("🛑 Shutting down Pipeline Service...")
	s.scheduler.Stop()
	s.cancel()
	s.wg.Wait()
	log.Info().Msg("✅ Pipeline Service stopped")
}

func (s *PipelineService) failInterruptedRuns() error {
	runs, err := s.runRepo.FindRunning()
	if err != nil {
		return err
	}
	for i := range runs {
		runs[i].Status = pipeline.StatusFailed
		runs[i].ErrorMessage = "interrupted: service restarted before the run finished"
		if err := s.runRepo.Update(&runs[i]); err != nil {
			return err
		}
		log.Warn().Str("run_id", runs[i].ID.String()).Msg("⚠️ Marked interrupted pipeline run as failed")
	}
	return nil
}

// IsRunning reports whether a run is in progress.
func (s *PipelineService) IsRunning() bool {
	return s.running.Load()
}

// TriggerRun starts a full pipeline run in the background and returns its
// ID. Only one run executes at a time.
func (s *PipelineService) TriggerRun(trigger string) (string, error) {
	if !s.running.CompareAndSwap(false, true) {
		return "", ErrRunInProgress
	}

	id := uuid.NewString()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)

		if _, err := s.runner.RunWithID(s.ctx, id, trigger); err != nil {
			log.Error().Err(err).Str("run_id", id).Msg("❌ Pipeline run failed")
		}
	}()

	log.Info().Str("run_id", id).Str("trigger", trigger).Msg("▶️ Pipeline run triggered")
	return id, nil
}

// Wait blocks until the in-flight run, if any, has finished.
func (s *PipelineService) Wait() {
	s.wg.Wait()
}

func (s *PipelineService) ListRuns(limit int) ([]models.PipelineRun, error) {
	return s.runRepo.FindRecent(limit)
}

func (s *PipelineService) GetRun(id uuid.UUID) (*models.PipelineRun, error) {
	run, err := s.runRepo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	return run, err
}

// ListResults pages the OCR result table. A missing table is an empty page.
func (s *PipelineService) ListResults(offset, limit int) (*ResultsPage, error) {
	texts, err := cache.Load(s.runner.Config().Extractor.OutputPath)
	if err != nil {
		return nil, err
	}
	rows := cache.FromMap(texts).Rows

	page := &ResultsPage{Total: len(rows), Offset: offset, Limit: limit, Items: []ResultItem{}}
	if offset >= len(rows) {
		return page, nil
	}
	end := min(offset+limit, len(rows))
	for _, row := range rows[offset:end] {
		page.Items = append(page.Items, ResultItem{FileName: row[0], OCRText: row[1]})
	}
	return page, nil
}

// ExportResults renders the OCR result table. It returns the file content,
// its content type and a file name.
func (s *PipelineService) ExportResults(format export.ExportFormat) ([]byte, string, string, error) {
	path := s.runner.Config().Extractor.OutputPath
	t, err := cache.ReadTable(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", "", ErrNoResults
	}
	if err != nil {
		return nil, "", "", err
	}

	doc := export.FromTable("FATURA OCR results", t)
	if format == export.FormatPDF {
		doc.Style.Orientation = "landscape"
	}
	data, contentType, err := s.exporter.Export(doc, format)
	if err != nil {
		return nil, "", "", err
	}
	return data, contentType, "fatura_ocr" + s.exporter.GetFileExtension(format), nil
}

// ValidationReport returns the summary written by the last validate stage.
func (s *PipelineService) ValidationReport() (*quality.ValidationSummary, error) {
	path := filepath.Join(s.runner.Config().ReportsDir, pipeline.ValidationReportName)
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}

	var summary quality.ValidationSummary
	if err := json.Unmarshal(b, &summary); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return &summary, nil
}
