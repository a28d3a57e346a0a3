package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/pipeline"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/modules/pipeline/models"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/modules/pipeline/repositories"
)

// RunRecorder stores pipeline runs through the run repository.
type RunRecorder struct {
	runRepo repositories.RunRepo
}

var _ pipeline.RunRecorder = (*RunRecorder)(nil)

func NewRunRecorder(runRepo repositories.RunRepo) *RunRecorder {
	return &RunRecorder{runRepo: runRepo}
}

func (r *RunRecorder) RunStarted(_ context.Context, run *pipeline.RunReport) error {
	m, err := toModel(run)
	if err != nil {
		return err
	}
	return r.runRepo.Create(m)
}

func (r *RunRecorder) RunFinished(_ context.Context, run *pipeline.RunReport) error {
	m, err := toModel(run)
	if err != nil {
		return err
	}
	return r.runRepo.Update(m)
}

func toModel(run *pipeline.RunReport) (*models.PipelineRun, error) {
	id, err := uuid.Parse(run.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", run.ID, err)
	}

	m := &models.PipelineRun{
		ID:           id,
		TriggeredBy:  run.Trigger,
		Status:       run.Status,
		ErrorMessage: run.Error,
		StartedAt:    run.StartedAt,
	}

	stages := run.Stages
	if stages == nil {
		stages = []pipeline.StageResult{}
	}
	if m.Stages, err = marshalJSON(stages); err != nil {
		return nil, fmt.Errorf("failed to marshal stages: %w", err)
	}
	if run.Extraction != nil {
		if m.Extraction, err = marshalJSON(run.Extraction); err != nil {
			return nil, fmt.Errorf("failed to marshal extraction summary: %w", err)
		}
	}
	if run.Validation != nil {
		if m.Validation, err = marshalJSON(run.Validation); err != nil {
			return nil, fmt.Errorf("failed to marshal validation summary: %w", err)
		}
	}

	if !run.FinishedAt.IsZero() {
		completed := run.FinishedAt
		m.CompletedAt = &completed
		m.DurationMs = run.FinishedAt.Sub(run.StartedAt).Milliseconds()
	}
	return m, nil
}

func marshalJSON(v any) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
