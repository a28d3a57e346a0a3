package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/extractor"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/pipeline"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/scheduler"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/storage"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/modules/pipeline/repositories"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/modules/pipeline/services"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/shared/config"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/shared/database"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/shared/utils"
)

func main() {
	var (
		command    string
		inputDir   string
		file       string
		record     bool
		migrations string
	)
	flag.StringVar(&command, "cmd", "extract", "Command (acquire, extract, pipeline, schema, validate, bias, clean, report, checksum, upload, schedule)")
	flag.StringVar(&inputDir, "input", "", "Input image directory (overrides FATURA_INPUT_DIR)")
	flag.StringVar(&file, "file", "", "File to hash for the checksum command")
	flag.BoolVar(&record, "record", true, "Record pipeline runs in DATABASE_URL")
	flag.StringVar(&migrations, "migrations", "file://migrations/pipeline", "Run history migrations source")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		utils.InitLogger("info")
		log.Fatal().Err(err).Msg("❌ Invalid configuration")
	}
	utils.InitLogger(cfg.LogLevel)
	if inputDir != "" {
		cfg.InputDir = inputDir
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case "checksum":
		if file == "" {
			log.Fatal().Msg("❌ -file is required for checksum")
		}
		sum, err := extractor.FileMD5(file)
		if err != nil {
			log.Fatal().Err(err).Msg("❌ Checksum failed")
		}
		fmt.Printf("%s  %s\n", sum, file)
		return

	case "upload":
		upload(ctx, cfg)

	case "pipeline":
		runner := newRunner(ctx, cfg, record, migrations)
		if _, err := runner.Run(ctx, pipeline.TriggerManual); err != nil {
			log.Fatal().Err(err).Msg("❌ Pipeline failed")
		}

	case "schedule":
		runSchedule(ctx, cfg, newRunner(ctx, cfg, record, migrations))

	case pipeline.StageAcquire, pipeline.StageExtract, pipeline.StageSchema, pipeline.StageValidate,
		pipeline.StageBias, pipeline.StageClean, pipeline.StageReport:
		runner := newRunner(ctx, cfg, false, migrations)
		run, err := runner.RunStage(ctx, command, pipeline.TriggerManual)
		if err != nil {
			log.Fatal().Err(err).Str("stage", command).Msg("❌ Stage failed")
		}
		printStage(run)

	default:
		log.Fatal().Str("cmd", command).Msg("❌ Unknown command (use: acquire, extract, pipeline, schema, validate, bias, clean, report, checksum, upload, schedule)")
	}
}

// newRunner builds the runner, recording runs in the database when asked.
func newRunner(ctx context.Context, cfg *config.Config, record bool, migrations string) *pipeline.Runner {
	var recorder pipeline.RunRecorder
	if record {
		if err := database.MigrateUp(migrations, cfg.DatabaseURL); err != nil {
			log.Fatal().Err(err).Msg("❌ Run history migration failed")
		}
		db := database.NewDB(cfg.DatabaseURL)
		recorder = services.NewRunRecorder(repositories.NewRunRepo(db.GORM))
	}

	runner, err := services.BuildRunner(ctx, cfg, recorder)
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Failed to build pipeline")
	}
	return runner
}

// upload mirrors the local image directory to the configured remote store.
func upload(ctx context.Context, cfg *config.Config) {
	store, err := services.NewStorage(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Failed to create dataset storage")
	}
	if store == nil {
		log.Fatal().Msg("❌ STORAGE_PROVIDER is required for the upload command")
	}

	res, err := storage.Push(ctx, store, cfg.InputDir, storage.SyncOptions{
		Prefix: cfg.RemotePrefix,
		Ext:    cfg.ImageExt,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Upload failed")
	}
	fmt.Printf("uploaded=%d skipped=%d failed=%d\n", res.Transferred, res.Skipped, res.Failed)
	for _, key := range res.FailedKeys {
		fmt.Printf("failed: %s\n", key)
	}
}

func runSchedule(ctx context.Context, cfg *config.Config, runner *pipeline.Runner) {
	if cfg.PipelineSchedule == "" {
		log.Fatal().Msg("❌ PIPELINE_SCHEDULE is required for the schedule command")
	}

	s := scheduler.NewScheduler()
	err := s.AddJob("fatura-pipeline", cfg.PipelineSchedule, func() {
		if _, err := runner.Run(ctx, pipeline.TriggerScheduled); err != nil {
			log.Error().Err(err).Msg("❌ Scheduled pipeline run failed")
		}
	})
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Invalid PIPELINE_SCHEDULE")
	}

	s.Start()
	<-ctx.Done()
	s.Stop()
}

func printStage(run *pipeline.RunReport) {
	switch {
	case run.Extraction != nil:
		e := run.Extraction
		fmt.Printf("scanned=%d cached=%d processed=%d failed=%d duration=%s\n",
			e.Scanned, e.Cached, e.Processed, e.Failed, e.Duration)
		for _, name := range e.FailedFiles {
			fmt.Printf("failed: %s\n", name)
		}
	case run.Schema != nil:
		if run.Schema.OK() {
			fmt.Println("✅ Schema validated: all expected columns present.")
		}
	case run.Validation != nil:
		v := run.Validation
		fmt.Printf("total=%d missing=%d empty=%d duplicates=%d valid=%d\n",
			v.TotalRecords, v.MissingText, v.EmptyText, v.DuplicateFiles, v.ValidRecords)
	case run.Bias != nil:
		fmt.Print(run.Bias.Report())
	case run.Report != nil:
		if run.Report.Found {
			fmt.Println(run.Report.Text())
		} else {
			fmt.Println("❌ No cleaned file found.")
		}
	case run.Acquisition != nil:
		a := run.Acquisition
		fmt.Printf("downloaded=%d skipped=%d failed=%d\n", a.Transferred, a.Skipped, a.Failed)
	case run.Stages[0].Stage == pipeline.StageClean:
		fmt.Printf("cleaned rows=%d\n", run.Cleaned)
	}
}
