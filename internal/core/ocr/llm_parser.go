package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/llm"
)

// LLMInvoiceParser asks an LLM for the invoice fields and falls back to the
// regex parser when the call fails or the answer is not usable JSON.
type LLMInvoiceParser struct {
	provider llm.LLMProvider
	fallback RegexInvoiceParser
}

func NewLLMInvoiceParser(provider llm.LLMProvider) *LLMInvoiceParser {
	return &LLMInvoiceParser{provider: provider}
}

func (p *LLMInvoiceParser) GetParserName() string {
	return "llm:" + p.provider.GetProviderName()
}

func (p *LLMInvoiceParser) ParseInvoice(ctx context.Context, text string) (*InvoiceData, error) {
	if strings.TrimSpace(text) == "" {
		return &InvoiceData{}, nil
	}

	userPrompt := fmt.Sprintf("Parse this invoice OCR text:\n\n%s", text)
	response, err := p.provider.GenerateResponse(ctx, invoiceParserPrompt, userPrompt)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn().Err(err).Str("provider", p.provider.GetProviderName()).Msg("LLM invoice parsing failed, falling back to regex")
		return p.fallback.ParseInvoice(ctx, text)
	}

	inv, err := decodeInvoiceJSON(response)
	if err != nil {
		log.Warn().Err(err).Msg("LLM returned unusable JSON, falling back to regex")
		return p.fallback.ParseInvoice(ctx, text)
	}
	return inv, nil
}

// decodeInvoiceJSON strips markdown fences and normalises the fields.
func decodeInvoiceJSON(response string) (*InvoiceData, error) {
	cleaned := strings.TrimSpace(response)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var inv InvoiceData
	if err := json.Unmarshal([]byte(cleaned), &inv); err != nil {
		return nil, err
	}

	inv.InvoiceNumber = strings.TrimSpace(inv.InvoiceNumber)
	inv.VendorName = strings.TrimSpace(inv.VendorName)
	inv.Currency = strings.ToUpper(strings.TrimSpace(inv.Currency))
	if inv.InvoiceDate != "" {
		// Accept anything the regex date rules understand; drop the rest.
		inv.InvoiceDate = parseDateInLine(inv.InvoiceDate)
	}
	return &inv, nil
}

const invoiceParserPrompt = `You are an invoice parser. Extract structured fields from OCR text of a commercial invoice.

Return ONLY a valid JSON object with this exact structure:

{
  "invoice_number": "INV-0001",
  "invoice_date": "2020-03-12",
  "total_amount": 1234.56,
  "vendor_name": "Seller company name",
  "currency": "USD"
}

RULES:
1. No markdown, no explanation, no code blocks
2. total_amount is a number: the grand total, never a subtotal or tax line
3. invoice_date uses YYYY-MM-DD
4. currency is an ISO 4217 code inferred from symbols ($ -> USD, € -> EUR, £ -> GBP)
5. Use "" for text fields and null for total_amount when a value is not present. Never guess.`
