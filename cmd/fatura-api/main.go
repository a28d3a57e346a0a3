package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/modules/pipeline/handlers"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/modules/pipeline/repositories"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/modules/pipeline/services"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/shared/config"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/shared/database"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/shared/utils"

	_ "github.com/MuhamadAgungGumelar/ledgerx-fatura/cmd/fatura-api/docs"
)

// @title LedgerX Fatura API
// @version 1.0
// @description Trigger and inspect FATURA OCR pipeline runs, page OCR results and download exports
// @contact.name LedgerX
// @license.name MIT
// @host localhost:8080
// @BasePath /
func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		utils.InitLogger("info")
		log.Fatal().Err(err).Msg("❌ Invalid configuration")
	}
	utils.InitLogger(cfg.LogLevel)
	log.Info().Str("env", cfg.Env).Str("port", cfg.Port).Msg("🚀 Starting fatura-api")

	// Run history schema
	if err := database.MigrateUp("file://migrations/pipeline", cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Str("database", database.MaskURL(cfg.DatabaseURL)).Msg("❌ Run history migration failed")
	}

	// Init database
	db := database.NewDB(cfg.DatabaseURL)
	defer db.Close()

	// Init repositories and services
	runRepo := repositories.NewRunRepo(db.GORM)
	runner, err := services.BuildRunner(context.Background(), cfg, services.NewRunRecorder(runRepo))
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Failed to build pipeline")
	}
	pipelineService := services.NewPipelineService(runner, runRepo)
	if err := pipelineService.Initialize(cfg.PipelineSchedule); err != nil {
		log.Fatal().Err(err).Msg("❌ Failed to initialize pipeline service")
	}

	// Init handlers
	healthHandler := handlers.NewHealthHandler(pipelineService)
	runHandler := handlers.NewRunHandler(pipelineService)
	resultHandler := handlers.NewResultHandler(pipelineService)

	// Init Fiber app
	app := fiber.New(fiber.Config{
		AppName: "LedgerX Fatura API",
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New())

	// Swagger
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Health check
	app.Get("/health", healthHandler.GetHealth)

	// Pipeline run routes
	app.Post("/runs", runHandler.TriggerRun)
	app.Get("/runs", runHandler.ListRuns)
	app.Get("/runs/:id", runHandler.GetRun)

	// Result routes
	app.Get("/results", resultHandler.ListResults)
	app.Get("/results/export", resultHandler.ExportResults)
	app.Get("/reports/validation", resultHandler.GetValidationReport)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info().Msg("🛑 Shutdown signal received")
		if err := app.Shutdown(); err != nil {
			log.Error().Err(err).Msg("❌ Server shutdown failed")
		}
	}()

	log.Info().Msgf("✅ fatura-api running at :%s", cfg.Port)
	log.Info().Msgf("📄 Swagger UI: http://localhost:%s/swagger/", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("❌ Server stopped")
	}
	pipelineService.Shutdown()
}
