package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	_ "modernc.org/sqlite"
)

// DB wraps both GORM and sql.DB
type DB struct {
	*sql.DB
	GORM    *gorm.DB
	Dialect string
}

// Open connects to the run-history database. postgres:// and postgresql://
// URLs use the Postgres driver; sqlite://<path> (or a bare file path) uses the
// pure-Go SQLite driver. sqlite://:memory: opens a private in-memory database.
func Open(url string) (*DB, error) {
	if url == "" {
		return nil, fmt.Errorf("database url is empty")
	}

	var (
		dialector gorm.Dialector
		dialect   string
	)
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		dialector = postgres.Open(url)
		dialect = "postgres"
	default:
		path := strings.TrimPrefix(url, "sqlite://")
		if path != ":memory:" {
			if dir := filepath.Dir(path); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, fmt.Errorf("failed to create database directory: %w", err)
				}
			}
			path += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
		}
		dialector = sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: path})
		dialect = "sqlite"
	}

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if dialect == "sqlite" {
		// SQLite allows a single writer; an in-memory database also lives
		// only as long as its one connection.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: sqlDB, GORM: gormDB, Dialect: dialect}, nil
}

// NewDB is Open for binaries: it exits the process on failure.
func NewDB(url string) *DB {
	db, err := Open(url)
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Database connection failed")
	}
	log.Info().Str("dialect", db.Dialect).Msg("✅ Database connected (GORM)")
	return db
}

func (db *DB) Close() error {
	log.Debug().Msg("🔌 Closing database connection...")
	return db.DB.Close()
}
