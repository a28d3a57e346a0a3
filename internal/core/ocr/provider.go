package ocr

import (
	"context"
	"errors"
	"fmt"
)

// ErrGosseractNotEnabled is returned by NewGosseractProvider in binaries built
// without the "gosseract" build tag.
var ErrGosseractNotEnabled = errors.New("gosseract provider not compiled in (build with -tags gosseract)")

// Options is the recognition configuration passed with every call.
type Options struct {
	PageSegMode int    // tesseract --psm; 6 = single uniform block of text
	EngineMode  int    // tesseract --oem; 3 = default (LSTM when available)
	Language    string // tesseract language code(s), e.g. "eng" or "eng+deu"
}

// DefaultOptions returns the settings the FATURA pipeline has always used:
// uniform text block, default LSTM engine, English.
func DefaultOptions() Options {
	return Options{PageSegMode: 6, EngineMode: 3, Language: "eng"}
}

// Provider interface for OCR services
type Provider interface {
	// ExtractText extracts text from image bytes
	ExtractText(ctx context.Context, imageData []byte, opts Options) (*OCRResult, error)

	// GetProviderName returns the provider name
	GetProviderName() string
}

// OCRResult contains the extracted text and metadata
type OCRResult struct {
	Text       string  `json:"text"`       // Raw extracted text
	Confidence float64 `json:"confidence"` // OCR confidence score (0-1)
}

// ProviderConfig selects and configures a Provider.
type ProviderConfig struct {
	Name               string // tesseract (default), gosseract, ocrspace, google_vision
	TesseractPath      string
	OCRSpaceAPIKey     string
	GoogleVisionAPIKey string
}

// Validate checks the provider name and its required keys without touching
// the host, so stages that never run OCR can start without the engine.
func (cfg ProviderConfig) Validate() error {
	switch cfg.Name {
	case "", "tesseract", "gosseract":
		return nil
	case "ocrspace":
		if cfg.OCRSpaceAPIKey == "" {
			return fmt.Errorf("OCRSPACE_API_KEY is required")
		}
		return nil
	case "google_vision":
		if cfg.GoogleVisionAPIKey == "" {
			return fmt.Errorf("GOOGLE_VISION_API_KEY is required")
		}
		return nil
	default:
		return fmt.Errorf("unknown OCR provider: %s", cfg.Name)
	}
}

// NewProvider builds the configured provider. The tesseract binary path is
// resolved here, once, rather than per call.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Name {
	case "gosseract":
		return NewGosseractProvider()
	case "ocrspace":
		return NewOCRSpaceProvider(cfg.OCRSpaceAPIKey), nil
	case "google_vision":
		return NewGoogleVisionProvider(cfg.GoogleVisionAPIKey), nil
	default:
		return NewTesseractProvider(cfg.TesseractPath)
	}
}
