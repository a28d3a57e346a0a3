package main

import (
	"errors"
	"flag"
	"fmt"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/shared/config"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/shared/database"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/shared/utils"
)

func main() {
	var module string
	var command string

	flag.StringVar(&module, "module", "pipeline", "Module to migrate")
	flag.StringVar(&command, "cmd", "up", "Migration command (up, down, version, force)")
	flag.Parse()

	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		utils.InitLogger("info")
		log.Fatal().Err(err).Msg("❌ Invalid configuration")
	}
	utils.InitLogger(cfg.LogLevel)

	// Migration path
	migrationPath := fmt.Sprintf("file://migrations/%s", module)

	log.Info().Msgf("🔄 Running migrations for module: %s", module)
	log.Info().Msgf("📂 Migration path: %s", migrationPath)
	log.Info().Msgf("💾 Database: %s", database.MaskURL(cfg.DatabaseURL))

	// Create migrate instance
	m, err := database.NewMigrator(migrationPath, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Failed to create migrate instance")
	}
	defer m.Close()

	// Execute command
	switch command {
	case "up":
		log.Info().Msg("⬆️  Running UP migrations...")
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal().Err(err).Msg("❌ Migration UP failed")
		}
		log.Info().Msg("✅ Migrations UP completed!")

	case "down":
		log.Info().Msg("⬇️  Running DOWN migrations...")
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal().Err(err).Msg("❌ Migration DOWN failed")
		}
		log.Info().Msg("✅ Migrations DOWN completed!")

	case "version":
		version, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			log.Fatal().Err(err).Msg("❌ Failed to get version")
		}
		log.Info().Msgf("📌 Current version: %d (dirty: %t)", version, dirty)

	case "force":
		if len(flag.Args()) < 1 {
			log.Fatal().Msg("❌ Please provide version number for force command")
		}
		forceVersion, err := strconv.Atoi(flag.Arg(0))
		if err != nil {
			log.Fatal().Err(err).Msg("❌ Invalid version number")
		}
		if err := m.Force(forceVersion); err != nil {
			log.Fatal().Err(err).Msg("❌ Force failed")
		}
		log.Info().Msgf("✅ Forced version to: %d", forceVersion)

	default:
		log.Fatal().Msgf("❌ Unknown command: %s (use: up, down, version, force)", command)
	}
}
