package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviderRequiresKey(t *testing.T) {
	for _, typ := range []ProviderType{ProviderOpenAI, ProviderGroq, ProviderDeepSeek} {
		_, err := NewProvider(ProviderConfig{Type: typ})
		assert.Error(t, err, typ)
	}

	_, err := NewProvider(ProviderConfig{Type: "claude", OpenAIKey: "k"})
	assert.Error(t, err)
}

func TestNewProviderNames(t *testing.T) {
	p, err := NewProvider(ProviderConfig{Type: ProviderGroq, GroqKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "Groq", p.GetProviderName())

	p, err = NewProvider(ProviderConfig{Type: ProviderDeepSeek, DeepSeekKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "DeepSeek", p.GetProviderName())
}

func TestOpenAIProviderGenerateResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tiny-model", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "parse this", req.Messages[1].Content)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cmpl-1","object":"chat.completion","created":1,"model":"tiny-model",
			"choices":[{"index":0,"message":{"role":"assistant","content":"{\"invoice_number\":\"A1\"}"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	p, err := NewProvider(ProviderConfig{
		Type:      ProviderOpenAI,
		OpenAIKey: "test-key",
		BaseURL:   srv.URL,
		Model:     "tiny-model",
	})
	require.NoError(t, err)

	out, err := p.GenerateResponse(context.Background(), "you parse invoices", "parse this")
	require.NoError(t, err)
	assert.Equal(t, `{"invoice_number":"A1"}`, out)
}

func TestOpenAIProviderNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cmpl-1","object":"chat.completion","choices":[]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := p.GenerateResponse(context.Background(), "s", "u")
	assert.Error(t, err)
}
