package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// Paths
	InputDir    string
	CachePath   string
	OutputPath  string
	CleanedPath string
	ReportsDir  string
	ImageExt    string

	// OCR
	OCRProvider        string // tesseract, gosseract, ocrspace, google_vision
	TesseractPath      string
	OCRWorkers         int
	OCRPageSegMode     int
	OCREngineMode      int
	OCRLanguage        string
	OCRTaskTimeout     time.Duration
	OCRMaxFailureRate  float64
	OCRSpaceAPIKey     string
	GoogleVisionAPIKey string

	// Invoice field parsing
	InvoiceParser string // regex or llm
	LLMProvider   string
	LLMModel      string
	OpenAIKey     string
	GroqKey       string
	DeepSeekKey   string

	// Remote dataset storage
	StorageProvider  string // "" (disabled), local, s3
	StorageLocalPath string
	S3Bucket         string
	S3Region         string
	S3Endpoint       string
	S3AccessKey      string
	S3SecretKey      string
	RemotePrefix     string

	// Pipeline
	DatabaseURL      string
	PipelineSchedule string
	SkipIfProcessed  bool

	Port     string
	Env      string
	LogLevel string
}

// LoadConfig reads .env (when present) and the process environment. Every
// value has a default matching the original pipeline layout, so an empty
// environment yields a runnable configuration.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, using system environment variables")
	}

	cfg := &Config{
		InputDir:    getenv("FATURA_INPUT_DIR", "data/raw/FATURA"),
		CachePath:   getenv("FATURA_CACHE_PATH", "data/processed/fatura_ocr_cache.csv"),
		OutputPath:  getenv("FATURA_OUTPUT_PATH", "data/processed/fatura_ocr.csv"),
		CleanedPath: getenv("FATURA_CLEANED_PATH", "data/processed/fatura_cleaned.csv"),
		ReportsDir:  getenv("REPORTS_DIR", "reports"),
		ImageExt:    getenv("FATURA_IMAGE_EXT", ".jpg"),

		OCRProvider:        getenv("OCR_PROVIDER", "tesseract"),
		TesseractPath:      getenv("TESSERACT_PATH", "tesseract"),
		OCRLanguage:        getenv("OCR_LANGUAGE", "eng"),
		OCRSpaceAPIKey:     os.Getenv("OCRSPACE_API_KEY"),
		GoogleVisionAPIKey: os.Getenv("GOOGLE_VISION_API_KEY"),

		InvoiceParser: getenv("INVOICE_PARSER", "regex"),
		LLMProvider:   getenv("LLM_PROVIDER", "openai"),
		LLMModel:      os.Getenv("LLM_MODEL"),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		GroqKey:       os.Getenv("GROQ_API_KEY"),
		DeepSeekKey:   os.Getenv("DEEPSEEK_API_KEY"),

		StorageProvider:  os.Getenv("STORAGE_PROVIDER"),
		StorageLocalPath: os.Getenv("STORAGE_LOCAL_PATH"),
		S3Bucket:         os.Getenv("S3_BUCKET"),
		S3Region:         getenv("S3_REGION", "us-east-1"),
		S3Endpoint:       os.Getenv("S3_ENDPOINT"),
		S3AccessKey:      os.Getenv("AWS_ACCESS_KEY_ID"),
		S3SecretKey:      os.Getenv("AWS_SECRET_ACCESS_KEY"),
		RemotePrefix:     getenv("FATURA_REMOTE_PREFIX", "FATURA/"),

		DatabaseURL:      getenv("DATABASE_URL", "sqlite://data/ledgerx.db"),
		PipelineSchedule: os.Getenv("PIPELINE_SCHEDULE"),

		Port:     getenv("PORT", "8080"),
		Env:      getenv("ENV", "development"),
		LogLevel: getenv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.OCRWorkers, err = getenvInt("OCR_WORKERS", 0); err != nil {
		return nil, err
	}
	if cfg.OCRPageSegMode, err = getenvInt("OCR_PSM", 6); err != nil {
		return nil, err
	}
	if cfg.OCREngineMode, err = getenvInt("OCR_OEM", 3); err != nil {
		return nil, err
	}
	if cfg.OCRTaskTimeout, err = getenvDuration("OCR_TASK_TIMEOUT", 2*time.Minute); err != nil {
		return nil, err
	}
	if cfg.OCRMaxFailureRate, err = getenvFloat("OCR_MAX_FAILURE_RATE", 0); err != nil {
		return nil, err
	}
	if cfg.SkipIfProcessed, err = getenvBool("SKIP_IF_PROCESSED", false); err != nil {
		return nil, err
	}

	if cfg.OCRWorkers < 0 {
		return nil, fmt.Errorf("OCR_WORKERS must not be negative, got %d", cfg.OCRWorkers)
	}
	if cfg.OCRMaxFailureRate < 0 || cfg.OCRMaxFailureRate > 1 {
		return nil, fmt.Errorf("OCR_MAX_FAILURE_RATE must be within [0, 1], got %v", cfg.OCRMaxFailureRate)
	}
	if !strings.HasPrefix(cfg.ImageExt, ".") {
		cfg.ImageExt = "." + cfg.ImageExt
	}

	return cfg, nil
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", k, v, err)
	}
	return n, nil
}

func getenvFloat(k string, def float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", k, v, err)
	}
	return f, nil
}

func getenvBool(k string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", k, v, err)
	}
	return b, nil
}

func getenvDuration(k string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", k, v, err)
	}
	return d, nil
}
