package pipeline

import (
	"context"
	"time"

	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/extractor"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/quality"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/report"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/storage"
)

// Stage names, in execution order.
const (
	StageAcquire  = "acquire"
	StageExtract  = "extract"
	StageSchema   = "schema"
	StageValidate = "validate"
	StageBias     = "bias"
	StageClean    = "clean"
	StageReport   = "report"
)

// Stages lists every stage in the order Run executes them.
var Stages = []string{StageAcquire, StageExtract, StageSchema, StageValidate, StageBias, StageClean, StageReport}

// Statuses of a run and of its stages.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Triggers recorded on a run.
const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
	TriggerAPI       = "api"
)

// Report file names inside Config.ReportsDir.
const (
	SchemaReportName     = "schema_check.txt"
	ValidationReportName = "validation_summary.json"
	BiasReportName       = "bias_check_summary.txt"
)

type Config struct {
	Extractor   extractor.Config
	CleanedPath string
	ReportsDir  string

	// SkipIfProcessed skips OCR when the result table already exists.
	SkipIfProcessed bool
	// CleanWorkers bounds concurrent invoice parsing; LLM parsers are slow.
	CleanWorkers int

	// Source, when set, is mirrored into the input directory by the acquire
	// stage. Only keys under RemotePrefix are pulled.
	Source       storage.Provider
	RemotePrefix string
}

// StageResult is one entry of a run's stage log.
type StageResult struct {
	Stage      string    `json:"stage"`
	Status     string    `json:"status"` // "success", "failed", "skipped"
	Message    string    `json:"message,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
}

// RunReport is everything a run produced. Stage outputs are nil when the
// stage did not run.
type RunReport struct {
	ID         string
	Trigger    string
	Status     string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
	Stages     []StageResult

	Acquisition *storage.SyncResult
	Extraction  *extractor.Summary
	Schema      *quality.SchemaResult
	Validation  *quality.ValidationSummary
	Bias        *quality.BiasSummary
	Cleaned     int
	Report      *report.Summary
}

// RunRecorder persists run history. Recorder failures are logged and never
// fail the run.
type RunRecorder interface {
	RunStarted(ctx context.Context, run *RunReport) error
	RunFinished(ctx context.Context, run *RunReport) error
}
