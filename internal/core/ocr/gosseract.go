//go:build gosseract

package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// GosseractProvider runs Tesseract in-process through libtesseract. It needs
// cgo and the tesseract/leptonica development headers at build time.
//
// gosseract does not expose the engine mode, so Options.EngineMode is left to
// libtesseract's default.
type GosseractProvider struct {
	clientFactory func() *gosseract.Client
}

func NewGosseractProvider() (*GosseractProvider, error) {
	return &GosseractProvider{clientFactory: gosseract.NewClient}, nil
}

// ExtractText creates a client per call; gosseract clients are not safe for
// concurrent use.
func (p *GosseractProvider) ExtractText(ctx context.Context, imageData []byte, opts Options) (*OCRResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := p.clientFactory()
	defer c.Close()

	if opts.Language != "" {
		if err := c.SetLanguage(opts.Language); err != nil {
			return nil, fmt.Errorf("set language: %w", err)
		}
	}
	if opts.PageSegMode >= 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(opts.PageSegMode)); err != nil {
			return nil, fmt.Errorf("set page segmentation mode: %w", err)
		}
	}
	if err := c.SetImageFromBytes(imageData); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	text, err := c.Text()
	if err != nil {
		return nil, fmt.Errorf("recognize text: %w", err)
	}

	return &OCRResult{Text: text, Confidence: averageConfidence(c)}, nil
}

func (p *GosseractProvider) GetProviderName() string {
	return "Tesseract (gosseract)"
}

func averageConfidence(c *gosseract.Client) float64 {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence / 100.0
	}
	return sum / float64(len(boxes))
}
