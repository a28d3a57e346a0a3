package ocr

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTesseractArgs(t *testing.T) {
	p := &TesseractProvider{}
	assert.Equal(t,
		[]string{"stdin", "stdout", "--psm", "6", "--oem", "3", "-l", "eng"},
		p.Args(DefaultOptions()))
	assert.Equal(t,
		[]string{"stdin", "stdout"},
		p.Args(Options{PageSegMode: -1, EngineMode: -1}))
}

func TestNewTesseractProviderMissingBinary(t *testing.T) {
	_, err := NewTesseractProvider(filepath.Join(t.TempDir(), "no-such-tesseract"))
	assert.Error(t, err)
}

// fakeTesseract writes a shell script standing in for the tesseract binary.
func fakeTesseract(t *testing.T, body string) *TesseractProvider {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in needs a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "tesseract")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	p, err := NewTesseractProvider(path)
	require.NoError(t, err)
	return p
}

func TestTesseractExtractTextStreamsThroughStdio(t *testing.T) {
	p := fakeTesseract(t, "cat")

	res, err := p.ExtractText(context.Background(), []byte("INVOICE 42"), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "INVOICE 42", res.Text)
}

func TestTesseractExtractTextReportsStderr(t *testing.T) {
	p := fakeTesseract(t, "echo 'Error in pixReadMem' >&2; exit 1")

	_, err := p.ExtractText(context.Background(), []byte("not an image"), DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pixReadMem")
}

func TestTesseractExtractTextRejectsEmptyImage(t *testing.T) {
	p := &TesseractProvider{tesseractPath: "tesseract"}
	_, err := p.ExtractText(context.Background(), nil, DefaultOptions())
	assert.Error(t, err)
}

func TestOCRSpaceExtractText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "secret", r.FormValue("apikey"))
		assert.Equal(t, "eng", r.FormValue("language"))
		_, _, err := r.FormFile("file")
		assert.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ParsedResults":[{"ParsedText":"Total 10","FileParseExitCode":1}],"OCRExitCode":1,"IsErroredOnProcessing":false}`))
	}))
	defer srv.Close()

	p := NewOCRSpaceProvider("secret")
	p.endpoint = srv.URL

	res, err := p.ExtractText(context.Background(), []byte("img"), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "Total 10", res.Text)
}

func TestOCRSpaceProcessingError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"OCRExitCode":3,"IsErroredOnProcessing":true,"ErrorMessage":["bad image"]}`))
	}))
	defer srv.Close()

	p := NewOCRSpaceProvider("secret")
	p.endpoint = srv.URL

	_, err := p.ExtractText(context.Background(), []byte("img"), DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad image")
}

func TestGoogleVisionExtractText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k&1", r.URL.Query().Get("key"))

		var req visionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Requests, 1)
		item := req.Requests[0]
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("img")), item.Image.Content)
		assert.Equal(t, "DOCUMENT_TEXT_DETECTION", item.Features[0].Type)
		require.NotNil(t, item.ImageContext)
		assert.Equal(t, []string{"en", "de"}, item.ImageContext.LanguageHints)

		_, _ = w.Write([]byte(`{"responses":[{"fullTextAnnotation":{"text":"INV 1"}}]}`))
	}))
	defer srv.Close()

	p := NewGoogleVisionProvider("k&1")
	p.endpoint = srv.URL

	res, err := p.ExtractText(context.Background(), []byte("img"), Options{Language: "eng+deu"})
	require.NoError(t, err)
	assert.Equal(t, "INV 1", res.Text)
}

func TestGoogleVisionAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"responses":[{"error":{"code":3,"message":"Bad image data."}}]}`))
	}))
	defer srv.Close()

	p := NewGoogleVisionProvider("k")
	p.endpoint = srv.URL

	_, err := p.ExtractText(context.Background(), []byte("img"), DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bad image data.")
}

func TestNewProvider(t *testing.T) {
	_, err := NewProvider(ProviderConfig{Name: "abbyy"})
	assert.Error(t, err)

	_, err = NewProvider(ProviderConfig{Name: "ocrspace"})
	assert.Error(t, err)

	_, err = NewProvider(ProviderConfig{Name: "google_vision"})
	assert.Error(t, err)

	p, err := NewProvider(ProviderConfig{Name: "ocrspace", OCRSpaceAPIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "OCR.space", p.GetProviderName())
}

func TestProviderConfigValidateDoesNotNeedEngine(t *testing.T) {
	cfg := ProviderConfig{Name: "tesseract", TesseractPath: "/nonexistent/tesseract"}
	assert.NoError(t, cfg.Validate())

	_, err := NewProvider(cfg)
	assert.ErrorContains(t, err, "not found")

	assert.ErrorContains(t, ProviderConfig{Name: "abbyy"}.Validate(), "unknown OCR provider")
	assert.ErrorContains(t, ProviderConfig{Name: "ocrspace"}.Validate(), "OCRSPACE_API_KEY")
}
