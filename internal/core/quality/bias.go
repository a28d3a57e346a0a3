package quality

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/cache"
)

const (
	// ShortTextLength splits invoices into the short (< 100 characters) and
	// long slices.
	ShortTextLength = 100
	// BiasThreshold is the gap between slice means that counts as bias.
	BiasThreshold = 50.0
)

// BiasSummary compares mean OCR text length of short and long invoices.
// When either slice is empty its mean is zero and no bias is reported.
type BiasSummary struct {
	ShortCount   int     `json:"short_count"`
	LongCount    int     `json:"long_count"`
	ShortMean    float64 `json:"short_mean"`
	LongMean     float64 `json:"long_mean"`
	Difference   float64 `json:"difference"`
	BiasDetected bool    `json:"bias_detected"`
}

// SliceByLength computes the bias summary over texts. Length is counted in
// characters, not bytes.
func SliceByLength(texts []string) BiasSummary {
	var (
		s      BiasSummary
		shortN int
		longN  int
	)
	for _, text := range texts {
		n := utf8.RuneCountInString(text)
		if n < ShortTextLength {
			s.ShortCount++
			shortN += n
		} else {
			s.LongCount++
			longN += n
		}
	}

	if s.ShortCount > 0 {
		s.ShortMean = float64(shortN) / float64(s.ShortCount)
	}
	if s.LongCount > 0 {
		s.LongMean = float64(longN) / float64(s.LongCount)
	}
	if s.ShortCount > 0 && s.LongCount > 0 {
		s.Difference = math.Abs(s.ShortMean - s.LongMean)
		s.BiasDetected = s.Difference > BiasThreshold
	}
	return s
}

// Report renders the summary in the text report format.
func (s BiasSummary) Report() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Short text avg: %s\n", formatMean(s.ShortMean, s.ShortCount))
	fmt.Fprintf(&b, "Long text avg: %s\n", formatMean(s.LongMean, s.LongCount))
	fmt.Fprintf(&b, "Bias detected: %t\n", s.BiasDetected)
	return b.String()
}

func formatMean(v float64, n int) string {
	if n == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}

// CheckBias runs SliceByLength over the ocr_text column of the table at
// tablePath and writes the text report to reportPath.
func CheckBias(tablePath, reportPath string) (*BiasSummary, error) {
	t, err := cache.ReadTable(tablePath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", tablePath, err)
	}
	if err := requireColumns(t, tablePath, cache.ColumnOCRText); err != nil {
		return nil, err
	}

	col := t.Column(cache.ColumnOCRText)
	texts := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		texts[i] = row[col]
	}

	s := SliceByLength(texts)
	if err := writeReport(reportPath, []byte(s.Report())); err != nil {
		return nil, err
	}

	log.Info().
		Float64("difference", s.Difference).
		Bool("bias", s.BiasDetected).
		Msg("Bias check complete")
	return &s, nil
}
