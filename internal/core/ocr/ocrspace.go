package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

const ocrSpaceEndpoint = "https://api.ocr.space/parse/image"

// OCRSpaceProvider implements OCR using OCR.space API
type OCRSpaceProvider struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewOCRSpaceProvider creates a new OCR.space provider
func NewOCRSpaceProvider(apiKey string) *OCRSpaceProvider {
	return &OCRSpaceProvider{
		apiKey:   apiKey,
		endpoint: ocrSpaceEndpoint,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// GetProviderName returns the provider name
func (p *OCRSpaceProvider) GetProviderName() string {
	return "OCR.space"
}

type ocrSpaceResponse struct {
	ParsedResults []struct {
		ParsedText        string `json:"ParsedText"`
		FileParseExitCode int    `json:"FileParseExitCode"`
	} `json:"ParsedResults"`
	OCRExitCode           int      `json:"OCRExitCode"`
	IsErroredOnProcessing bool     `json:"IsErroredOnProcessing"`
	ErrorMessage          []string `json:"ErrorMessage,omitempty"`
}

// ExtractText uploads the image to OCR.space. Only opts.Language applies;
// the service picks its own segmentation.
func (p *OCRSpaceProvider) ExtractText(ctx context.Context, imageData []byte, opts Options) (*OCRResult, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "invoice.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	language := opts.Language
	if language == "" {
		language = "eng"
	}
	fields := map[string]string{
		"apikey":   p.apiKey,
		"language": language,
		"scale":    "true",
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", k, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ocrspace request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ocrspace error (status: %d): %s", resp.StatusCode, string(body))
	}

	var ocrResp ocrSpaceResponse
	if err := json.Unmarshal(body, &ocrResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if ocrResp.IsErroredOnProcessing {
		errMsg := "unknown error"
		if len(ocrResp.ErrorMessage) > 0 {
			errMsg = ocrResp.ErrorMessage[0]
		}
		return nil, fmt.Errorf("ocrspace processing error: %s", errMsg)
	}
	if ocrResp.OCRExitCode != 1 {
		return nil, fmt.Errorf("ocrspace exit code: %d", ocrResp.OCRExitCode)
	}
	if len(ocrResp.ParsedResults) == 0 {
		return &OCRResult{}, nil
	}

	// OCR.space doesn't provide confidence score, use default
	return &OCRResult{
		Text:       ocrResp.ParsedResults[0].ParsedText,
		Confidence: 0.85,
	}, nil
}
