//go:build !gosseract

package ocr

import "context"

// GosseractProvider is unavailable without the "gosseract" build tag.
type GosseractProvider struct{}

func NewGosseractProvider() (*GosseractProvider, error) {
	return nil, ErrGosseractNotEnabled
}

func (p *GosseractProvider) ExtractText(ctx context.Context, imageData []byte, opts Options) (*OCRResult, error) {
	return nil, ErrGosseractNotEnabled
}

func (p *GosseractProvider) GetProviderName() string {
	return "Tesseract (gosseract, disabled)"
}
