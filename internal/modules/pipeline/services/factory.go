package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/extractor"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/llm"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/ocr"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/pipeline"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/storage"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/shared/config"
)

// ExtractorConfig maps the environment configuration onto an extraction run.
func ExtractorConfig(cfg *config.Config) extractor.Config {
	return extractor.Config{
		InputDir:    cfg.InputDir,
		CachePath:   cfg.CachePath,
		OutputPath:  cfg.OutputPath,
		ImageExt:    cfg.ImageExt,
		WorkerCount: cfg.OCRWorkers,
		Recognition: ocr.Options{
			PageSegMode: cfg.OCRPageSegMode,
			EngineMode:  cfg.OCREngineMode,
			Language:    cfg.OCRLanguage,
		},
		TaskTimeout:    cfg.OCRTaskTimeout,
		MaxFailureRate: cfg.OCRMaxFailureRate,
	}
}

// NewInvoiceParser returns the regex parser, or the LLM parser when
// INVOICE_PARSER=llm.
func NewInvoiceParser(cfg *config.Config) (ocr.InvoiceParser, error) {
	switch cfg.InvoiceParser {
	case "", "regex":
		return ocr.RegexInvoiceParser{}, nil
	case "llm":
		provider, err := llm.NewProvider(llm.ProviderConfig{
			Type:        llm.ProviderType(cfg.LLMProvider),
			OpenAIKey:   cfg.OpenAIKey,
			GroqKey:     cfg.GroqKey,
			DeepSeekKey: cfg.DeepSeekKey,
			Model:       cfg.LLMModel,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM provider: %w", err)
		}
		return ocr.NewLLMInvoiceParser(provider), nil
	default:
		return nil, fmt.Errorf("unknown invoice parser: %s", cfg.InvoiceParser)
	}
}

// NewStorage returns the remote dataset store, or nil when STORAGE_PROVIDER
// is unset.
func NewStorage(ctx context.Context, cfg *config.Config) (storage.Provider, error) {
	return storage.NewProvider(ctx, storage.Config{
		Name:        cfg.StorageProvider,
		LocalPath:   cfg.StorageLocalPath,
		S3Bucket:    cfg.S3Bucket,
		S3Region:    cfg.S3Region,
		S3Endpoint:  cfg.S3Endpoint,
		S3AccessKey: cfg.S3AccessKey,
		S3SecretKey: cfg.S3SecretKey,
	})
}

// BuildRunner wires the OCR provider, invoice parser, extractor and remote
// dataset source from cfg. recorder may be nil. The OCR provider is only
// built once extraction has images to recognise.
func BuildRunner(ctx context.Context, cfg *config.Config, recorder pipeline.RunRecorder) (*pipeline.Runner, error) {
	ocrCfg := ocr.ProviderConfig{
		Name:               cfg.OCRProvider,
		TesseractPath:      cfg.TesseractPath,
		OCRSpaceAPIKey:     cfg.OCRSpaceAPIKey,
		GoogleVisionAPIKey: cfg.GoogleVisionAPIKey,
	}
	if err := ocrCfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to create OCR provider: %w", err)
	}
	// Built on first use: stages that only read tables must not need the
	// OCR engine installed.
	newProvider := func() (ocr.Provider, error) {
		provider, err := ocr.NewProvider(ocrCfg)
		if err != nil {
			return nil, err
		}
		log.Info().Str("ocr_provider", provider.GetProviderName()).Msg("🔧 OCR provider ready")
		return provider, nil
	}

	parser, err := NewInvoiceParser(cfg)
	if err != nil {
		return nil, err
	}

	source, err := NewStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create dataset storage: %w", err)
	}

	log.Info().
		Str("ocr_provider", ocrCfg.Name).
		Str("invoice_parser", parser.GetParserName()).
		Msg("🔧 Pipeline components ready")

	return pipeline.NewRunner(pipeline.Config{
		CleanedPath:     cfg.CleanedPath,
		ReportsDir:      cfg.ReportsDir,
		SkipIfProcessed: cfg.SkipIfProcessed,
		Source:          source,
		RemotePrefix:    cfg.RemotePrefix,
	}, extractor.NewLazy(ExtractorConfig(cfg), newProvider), parser, recorder), nil
}
