// Package extractor runs OCR over a directory of invoice images. Results are
// keyed by file name and cached on disk, so each image is recognised once.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/cache"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/ocr"
)

var (
	// ErrInputDirNotFound is returned when the input directory does not exist.
	// It matches fs.ErrNotExist with errors.Is.
	ErrInputDirNotFound = fmt.Errorf("input directory not found: %w", fs.ErrNotExist)

	// ErrFailureRateExceeded is returned when more than MaxFailureRate of the
	// processed images failed. Nothing is persisted in that case.
	ErrFailureRateExceeded = errors.New("OCR failure rate exceeded")
)

// Config controls a single extraction run.
type Config struct {
	InputDir    string
	CachePath   string
	OutputPath  string
	ImageExt    string // matched case-insensitively
	WorkerCount int    // <= 0 uses the available parallelism
	Recognition ocr.Options

	// TaskTimeout bounds each OCR call. Zero disables the deadline.
	TaskTimeout time.Duration
	// MaxFailureRate in (0, 1] aborts the run when failed/processed exceeds it.
	// Zero keeps the best-effort behaviour.
	MaxFailureRate float64
}

func DefaultConfig() Config {
	return Config{
		InputDir:    "data/raw/FATURA",
		CachePath:   "data/processed/fatura_ocr_cache.csv",
		OutputPath:  "data/processed/fatura_ocr.csv",
		ImageExt:    ".jpg",
		Recognition: ocr.DefaultOptions(),
		TaskTimeout: 2 * time.Minute,
	}
}

// Summary describes what a run did.
type Summary struct {
	Scanned     int           `json:"scanned"`
	Cached      int           `json:"cached"`
	Processed   int           `json:"processed"`
	Failed      int           `json:"failed"`
	FailedFiles []string      `json:"failed_files,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// Result is the merged name→text mapping that was persisted, plus the summary.
type Result struct {
	Texts   map[string]string
	Summary Summary
}

// ProviderFactory builds the OCR provider. NewLazy calls it at most once.
type ProviderFactory func() (ocr.Provider, error)

type Extractor struct {
	cfg      Config
	provider func() (ocr.Provider, error)
}

// New returns an Extractor. Empty config fields take their DefaultConfig value,
// except TaskTimeout and MaxFailureRate where zero is meaningful.
func New(cfg Config, provider ocr.Provider) *Extractor {
	return NewLazy(cfg, func() (ocr.Provider, error) { return provider, nil })
}

// NewLazy is New with the provider built the first time an image actually
// needs recognising. A run where everything is cached never builds it.
func NewLazy(cfg Config, factory ProviderFactory) *Extractor {
	def := DefaultConfig()
	if cfg.InputDir == "" {
		cfg.InputDir = def.InputDir
	}
	if cfg.CachePath == "" {
		cfg.CachePath = def.CachePath
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = def.OutputPath
	}
	if cfg.ImageExt == "" {
		cfg.ImageExt = def.ImageExt
	}
	if cfg.Recognition == (ocr.Options{}) {
		cfg.Recognition = def.Recognition
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = defaultWorkers()
	}
	return &Extractor{cfg: cfg, provider: sync.OnceValues((func() (ocr.Provider, error))(factory))}
}

func defaultWorkers() int {
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 4
}

func (e *Extractor) Config() Config {
	return e.cfg
}

// LoadCache reads the persisted cache. A missing cache file is a cold start.
func (e *Extractor) LoadCache() (map[string]string, error) {
	return cache.Load(e.cfg.CachePath)
}

// ExtractAll scans the input directory, recognises every image that is not
// cached yet, and persists the merged cache and the result table.
//
// Per-image failures are stored as empty text and counted in the summary.
// If ctx is cancelled the run stops and nothing is written.
func (e *Extractor) ExtractAll(ctx context.Context) (*Result, error) {
	start := time.Now()
	log.Info().Str("dir", e.cfg.InputDir).Msg("🔍 Scanning input directory")

	images, err := ScanImages(e.cfg.InputDir, e.cfg.ImageExt)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		log.Warn().Str("dir", e.cfg.InputDir).Str("ext", e.cfg.ImageExt).Msg("⚠️ No image files found")
	}

	merged, err := e.LoadCache()
	if err != nil {
		return nil, fmt.Errorf("load cache: %w", err)
	}

	summary := Summary{Scanned: len(images)}
	var pending []Image
	for _, img := range images {
		if _, ok := merged[img.Name]; ok {
			summary.Cached++
			continue
		}
		pending = append(pending, img)
	}
	summary.Processed = len(pending)

	if len(pending) > 0 {
		log.Info().
			Int("images", len(images)).
			Int("cached", summary.Cached).
			Int("pending", len(pending)).
			Int("workers", e.cfg.WorkerCount).
			Msg("🧠 Starting OCR")
	} else if len(images) > 0 {
		log.Info().Int("cached", summary.Cached).Msg("⏭️ All images already cached, skipping OCR")
	}

	var provider ocr.Provider
	if len(pending) > 0 {
		if provider, err = e.provider(); err != nil {
			return nil, fmt.Errorf("create OCR provider: %w", err)
		}
	}

	for out := range e.dispatch(ctx, provider, pending) {
		merged[out.name] = out.text
		if out.err != nil {
			summary.Failed++
			summary.FailedFiles = append(summary.FailedFiles, out.name)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sort.Strings(summary.FailedFiles)
	summary.Duration = time.Since(start)

	if e.failureRateExceeded(summary) {
		return &Result{Summary: summary}, fmt.Errorf("%w: %d of %d images failed (limit %.0f%%)",
			ErrFailureRateExceeded, summary.Failed, summary.Processed, e.cfg.MaxFailureRate*100)
	}

	if err := cache.Save(e.cfg.CachePath, merged); err != nil {
		return nil, fmt.Errorf("save cache: %w", err)
	}
	if err := cache.Save(e.cfg.OutputPath, merged); err != nil {
		return nil, fmt.Errorf("save output: %w", err)
	}

	log.Info().
		Int("rows", len(merged)).
		Int("processed", summary.Processed).
		Int("failed", summary.Failed).
		Dur("duration", summary.Duration).
		Str("output", e.cfg.OutputPath).
		Msg("🚀 OCR completed")

	return &Result{Texts: merged, Summary: summary}, nil
}

func (e *Extractor) failureRateExceeded(s Summary) bool {
	if e.cfg.MaxFailureRate <= 0 || s.Processed == 0 {
		return false
	}
	return float64(s.Failed)/float64(s.Processed) > e.cfg.MaxFailureRate
}
