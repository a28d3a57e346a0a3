// Package pipeline sequences the FATURA stages: acquire, extract, schema,
// validate, bias, clean and report. The first failing stage stops the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/export"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/extractor"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/ocr"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/quality"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/report"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/storage"
)

// ErrUnknownStage is returned by RunStage for a name not in Stages.
var ErrUnknownStage = errors.New("unknown pipeline stage")

// errSkipped lets a stage report that it chose not to run.
type errSkipped struct{ reason string }

func (e errSkipped) Error() string { return e.reason }

type Runner struct {
	cfg       Config
	extractor *extractor.Extractor
	parser    ocr.InvoiceParser
	exporter  *export.Service
	recorder  RunRecorder
}

// NewRunner wires a runner. parser defaults to the regex parser and recorder
// may be nil.
func NewRunner(cfg Config, ex *extractor.Extractor, parser ocr.InvoiceParser, recorder RunRecorder) *Runner {
	if parser == nil {
		parser = ocr.RegexInvoiceParser{}
	}
	if cfg.CleanWorkers <= 0 {
		cfg.CleanWorkers = 4
	}
	if cfg.ReportsDir == "" {
		cfg.ReportsDir = "reports"
	}
	if cfg.CleanedPath == "" {
		cfg.CleanedPath = "data/processed/fatura_cleaned.csv"
	}
	cfg.Extractor = ex.Config()

	return &Runner{
		cfg:       cfg,
		extractor: ex,
		parser:    parser,
		exporter:  export.NewService(),
		recorder:  recorder,
	}
}

func (r *Runner) Config() Config {
	return r.cfg
}

// Run executes every stage in order and records the run.
func (r *Runner) Run(ctx context.Context, trigger string) (*RunReport, error) {
	return r.run(ctx, uuid.NewString(), trigger, Stages)
}

// RunWithID is Run under a caller-chosen run ID, for callers that hand the
// ID out before the run starts.
func (r *Runner) RunWithID(ctx context.Context, id, trigger string) (*RunReport, error) {
	return r.run(ctx, id, trigger, Stages)
}

// RunStage executes a single stage, recorded as a run of its own.
func (r *Runner) RunStage(ctx context.Context, stage, trigger string) (*RunReport, error) {
	if _, ok := r.stageFunc(stage); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStage, stage)
	}
	return r.run(ctx, uuid.NewString(), trigger, []string{stage})
}

func (r *Runner) run(ctx context.Context, id, trigger string, stages []string) (*RunReport, error) {
	run := &RunReport{
		ID:        id,
		Trigger:   trigger,
		Status:    StatusRunning,
		StartedAt: time.Now(),
	}
	log.Info().Str("run_id", run.ID).Str("trigger", trigger).Strs("stages", stages).Msg("🚀 Pipeline run started")
	r.record(ctx, run, true)

	var runErr error
	for _, name := range stages {
		fn, _ := r.stageFunc(name)
		res := StageResult{Stage: name, StartedAt: time.Now()}

		err := fn(ctx, run)
		res.DurationMs = time.Since(res.StartedAt).Milliseconds()

		var skip errSkipped
		switch {
		case errors.As(err, &skip):
			res.Status = StatusSkipped
			res.Message = skip.reason
			log.Info().Str("stage", name).Str("reason", skip.reason).Msg("⏭️ Stage skipped")
		case err != nil:
			res.Status = StatusFailed
			res.Error = err.Error()
			log.Error().Err(err).Str("stage", name).Msg("❌ Stage failed")
			runErr = fmt.Errorf("stage %s: %w", name, err)
		default:
			res.Status = StatusSuccess
			log.Info().Str("stage", name).Int64("duration_ms", res.DurationMs).Msg("✅ Stage completed")
		}
		run.Stages = append(run.Stages, res)

		if runErr != nil {
			break
		}
	}

	run.FinishedAt = time.Now()
	if runErr != nil {
		run.Status = StatusFailed
		run.Error = runErr.Error()
	} else {
		run.Status = StatusSuccess
	}
	// Record even when ctx was cancelled mid-run.
	r.record(context.WithoutCancel(ctx), run, false)

	log.Info().
		Str("run_id", run.ID).
		Str("status", run.Status).
		Dur("duration", run.FinishedAt.Sub(run.StartedAt)).
		Msg("🏁 Pipeline run finished")
	return run, runErr
}

func (r *Runner) record(ctx context.Context, run *RunReport, started bool) {
	if r.recorder == nil {
		return
	}
	var err error
	if started {
		err = r.recorder.RunStarted(ctx, run)
	} else {
		err = r.recorder.RunFinished(ctx, run)
	}
	if err != nil {
		log.Warn().Err(err).Str("run_id", run.ID).Msg("⚠️ Failed to record pipeline run")
	}
}

func (r *Runner) stageFunc(name string) (func(context.Context, *RunReport) error, bool) {
	switch name {
	case StageAcquire:
		return r.acquire, true
	case StageExtract:
		return r.extract, true
	case StageSchema:
		return r.schema, true
	case StageValidate:
		return r.validate, true
	case StageBias:
		return r.bias, true
	case StageClean:
		return r.clean, true
	case StageReport:
		return r.report, true
	}
	return nil, false
}

// acquire makes sure the raw image directory exists and, with a remote
// source configured, downloads the images it is missing. Individual download
// failures are logged; the extract stage works with what arrived.
func (r *Runner) acquire(ctx context.Context, run *RunReport) error {
	dir := r.cfg.Extractor.InputDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	log.Info().Str("dir", dir).Msg("✅ FATURA raw data directory ready")

	if r.cfg.Source == nil {
		return nil
	}
	res, err := storage.Pull(ctx, r.cfg.Source, dir, storage.SyncOptions{
		Prefix: r.cfg.RemotePrefix,
		Ext:    r.cfg.Extractor.ImageExt,
	})
	run.Acquisition = res
	if err != nil {
		return fmt.Errorf("pull from %s: %w", r.cfg.Source.GetProviderName(), err)
	}
	return nil
}

func (r *Runner) extract(ctx context.Context, run *RunReport) error {
	if r.cfg.SkipIfProcessed {
		if _, err := os.Stat(r.cfg.Extractor.OutputPath); err == nil {
			return errSkipped{reason: "OCR output already exists: " + r.cfg.Extractor.OutputPath}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	res, err := r.extractor.ExtractAll(ctx)
	if res != nil {
		run.Extraction = &res.Summary
	}
	return err
}

func (r *Runner) schema(_ context.Context, run *RunReport) error {
	res, err := quality.CheckSchema(r.cfg.Extractor.OutputPath, r.reportPath(SchemaReportName))
	run.Schema = res
	return err
}

func (r *Runner) validate(_ context.Context, run *RunReport) error {
	s, err := quality.Validate(r.cfg.Extractor.OutputPath, r.reportPath(ValidationReportName))
	run.Validation = s
	return err
}

func (r *Runner) bias(_ context.Context, run *RunReport) error {
	s, err := quality.CheckBias(r.cfg.Extractor.OutputPath, r.reportPath(BiasReportName))
	run.Bias = s
	return err
}

func (r *Runner) clean(ctx context.Context, run *RunReport) error {
	n, err := r.Clean(ctx)
	run.Cleaned = n
	return err
}

func (r *Runner) report(_ context.Context, run *RunReport) error {
	s, err := report.Generate(report.Options{
		CleanedPath: r.cfg.CleanedPath,
		OCRPath:     r.cfg.Extractor.OutputPath,
		ReportsDir:  r.cfg.ReportsDir,
	}, r.exporter)
	run.Report = s
	return err
}

func (r *Runner) reportPath(name string) string {
	return filepath.Join(r.cfg.ReportsDir, name)
}
