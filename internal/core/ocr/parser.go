package ocr

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// InvoiceData holds the fields the cleaning stage extracts from OCR text.
// Empty strings and a nil TotalAmount mean "not found".
type InvoiceData struct {
	InvoiceNumber string   `json:"invoice_number"`
	InvoiceDate   string   `json:"invoice_date"` // YYYY-MM-DD
	TotalAmount   *float64 `json:"total_amount"`
	VendorName    string   `json:"vendor_name"`
	Currency      string   `json:"currency"` // ISO 4217 code
}

// InvoiceParser turns raw OCR text into InvoiceData.
type InvoiceParser interface {
	ParseInvoice(ctx context.Context, text string) (*InvoiceData, error)
	GetParserName() string
}

// RegexInvoiceParser is the rule-based parser. It never fails; unrecognised
// fields are left empty.
type RegexInvoiceParser struct{}

func (RegexInvoiceParser) ParseInvoice(_ context.Context, text string) (*InvoiceData, error) {
	return ParseInvoice(text), nil
}

func (RegexInvoiceParser) GetParserName() string { return "regex" }

var (
	invoiceNumberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)invoice\s*(?:no\.?|number|num|#|id)\s*[:#.]?\s*([A-Z0-9][A-Z0-9\-/]{1,})`),
		regexp.MustCompile(`(?i)\b(?:inv|bill)\s*(?:no\.?|#)\s*[:#.]?\s*([A-Z0-9][A-Z0-9\-/]{1,})`),
	}

	// Tried in order: ISO, numeric day-first, "12 Mar 2020", "March 12, 2020".
	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d{4})[/.-](\d{1,2})[/.-](\d{1,2})`),
		regexp.MustCompile(`(\d{1,2})[/.-](\d{1,2})[/.-](\d{2,4})`),
		regexp.MustCompile(`(?i)(\d{1,2})[\s-]+(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?[\s,-]+(\d{2,4})`),
		regexp.MustCompile(`(?i)(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+(\d{1,2}),?\s+(\d{4})`),
	}

	// Spaces are only accepted as thousands separators, so "100 20%" reads as 100.
	totalPattern = regexp.MustCompile(`(?i)\btotal\b[^0-9]*(\d{1,3}(?:[ .,]\d{3})+(?:[.,]\d+)?|\d+(?:[.,]\d+)?)`)

	vendorLabelPattern = regexp.MustCompile(`(?i)^\s*(?:seller|vendor|supplier|from|bill\s*from|sold\s*by|company)\s*[:\-]\s*(.*)$`)

	currencyCodePattern = regexp.MustCompile(`\b(USD|EUR|GBP|INR|JPY|CAD|AUD|CHF|TRY|IDR|CNY|SGD)\b`)
	currencySymbols     = []struct{ symbol, code string }{
		{"€", "EUR"}, {"£", "GBP"}, {"₹", "INR"}, {"¥", "JPY"}, {"₺", "TRY"}, {"Rp", "IDR"}, {"$", "USD"},
	}

	monthIndex = map[string]time.Month{
		"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
		"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
		"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
	}
)

// ParseInvoice attempts to parse invoice text into structured data.
func ParseInvoice(text string) *InvoiceData {
	lines := strings.Split(strings.ReplaceAll(text, "\r", ""), "\n")

	inv := &InvoiceData{
		InvoiceNumber: extractInvoiceNumber(text),
		InvoiceDate:   extractInvoiceDate(lines),
		VendorName:    extractVendorName(lines),
	}

	var totalLine string
	inv.TotalAmount, totalLine = extractTotal(lines)

	// The currency printed next to the total wins over any other mention.
	inv.Currency = detectCurrency(totalLine)
	if inv.Currency == "" {
		inv.Currency = detectCurrency(text)
	}
	return inv
}

func extractInvoiceNumber(text string) string {
	for _, p := range invoiceNumberPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			// "Invoice Date" would otherwise match as number "Date"
			if hasDigit(m[1]) {
				return strings.TrimRight(m[1], "-/")
			}
		}
	}
	return ""
}

// extractInvoiceDate prefers a date on a line mentioning "date", then any date.
func extractInvoiceDate(lines []string) string {
	var fallback string
	for _, line := range lines {
		d := parseDateInLine(line)
		if d == "" {
			continue
		}
		if strings.Contains(strings.ToLower(line), "date") {
			return d
		}
		if fallback == "" {
			fallback = d
		}
	}
	return fallback
}

func parseDateInLine(line string) string {
	for i, p := range datePatterns {
		m := p.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		var (
			y, d  int
			month time.Month
		)
		switch i {
		case 0:
			y, _ = strconv.Atoi(m[1])
			mo, _ := strconv.Atoi(m[2])
			month = time.Month(mo)
			d, _ = strconv.Atoi(m[3])
		case 1: // day first, as on most FATURA templates
			d, _ = strconv.Atoi(m[1])
			mo, _ := strconv.Atoi(m[2])
			month = time.Month(mo)
			y, _ = strconv.Atoi(m[3])
		case 2:
			d, _ = strconv.Atoi(m[1])
			month = monthIndex[strings.ToLower(m[2])]
			y, _ = strconv.Atoi(m[3])
		case 3:
			month = monthIndex[strings.ToLower(m[1])]
			d, _ = strconv.Atoi(m[2])
			y, _ = strconv.Atoi(m[3])
		}
		if y < 100 {
			y += 2000
		}
		if t, ok := validDate(y, month, d); ok {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

func validDate(y int, m time.Month, d int) (time.Time, bool) {
	if m < time.January || m > time.December || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	// time.Date normalises 31 Feb into March; reject that.
	if t.Day() != d || t.Month() != m {
		return time.Time{}, false
	}
	return t, true
}

// extractTotal returns the amount on the last "total" line that is not a
// subtotal, along with that line.
func extractTotal(lines []string) (*float64, string) {
	var (
		amount *float64
		found  string
	)
	for _, line := range lines {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "subtotal") || strings.Contains(lower, "sub total") || strings.Contains(lower, "sub-total") {
			continue
		}
		m := totalPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if v, ok := ParseAmount(m[1]); ok {
			amount = &v
			found = line
		}
	}
	return amount, found
}

// ParseAmount parses "1,234.56", "1.234,56", "1 234", "1200" and similar.
// When only one kind of separator is present it is a thousands separator if
// it repeats or is followed by exactly three digits, otherwise a decimal point.
func ParseAmount(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if s == "" {
		return 0, false
	}

	lastDot, lastComma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastDot > lastComma {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		}
	case lastDot >= 0 || lastComma >= 0:
		sep, idx := ".", lastDot
		if lastComma >= 0 {
			sep, idx = ",", lastComma
		}
		if strings.Count(s, sep) > 1 || len(s)-idx-1 == 3 {
			s = strings.ReplaceAll(s, sep, "")
		} else {
			s = strings.Replace(s, sep, ".", 1)
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// extractVendorName looks for a labelled seller line, else the first line in
// the header block that reads like a name.
func extractVendorName(lines []string) string {
	for i, line := range lines {
		m := vendorLabelPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if v := strings.TrimSpace(m[1]); v != "" {
			return v
		}
		for _, next := range lines[i+1:] {
			if v := strings.TrimSpace(next); v != "" {
				return v
			}
		}
	}

	for i := 0; i < len(lines) && i < 5; i++ {
		line := strings.TrimSpace(lines[i])
		lower := strings.ToLower(line)
		if len(line) < 3 ||
			strings.Contains(lower, "invoice") ||
			strings.Contains(lower, "date") ||
			parseDateInLine(line) != "" ||
			!hasLetter(line) {
			continue
		}
		return line
	}
	return ""
}

func detectCurrency(s string) string {
	if m := currencyCodePattern.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	for _, cs := range currencySymbols {
		if strings.Contains(s, cs.symbol) {
			return cs.code
		}
	}
	return ""
}

func hasDigit(s string) bool {
	return strings.ContainsAny(s, "0123456789")
}

func hasLetter(s string) bool {
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}
