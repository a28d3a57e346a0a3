// Package report builds the end-of-pipeline summary from the cleaned invoice
// table: a text report, the same content as PDF, and an xlsx copy of the OCR
// result table.
package report

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/cache"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/export"
)

// CriticalColumns are the cleaned table columns that must be mostly populated.
var CriticalColumns = []string{"invoice_number", "invoice_date", "total_amount", "vendor_name", "currency"}

// MissingRatioThreshold is the share of empty cells in a critical column
// above which an anomaly is raised.
const MissingRatioThreshold = 0.20

const (
	TextReportName  = "summary_report.txt"
	PDFReportName   = "summary_report.pdf"
	ExcelExportName = "fatura_ocr.xlsx"
)

type Options struct {
	CleanedPath string
	OCRPath     string // optional; exported to xlsx when present
	ReportsDir  string
}

type Summary struct {
	Found         bool               `json:"found"`
	Rows          int                `json:"rows"`
	Vendors       int                `json:"vendors"`
	TotalAmount   float64            `json:"total_amount"`
	MissingRatios map[string]float64 `json:"missing_ratios,omitempty"`
	Anomalies     []string           `json:"anomalies,omitempty"`
	GeneratedAt   time.Time          `json:"generated_at"`
}

// Summarize computes row, vendor and amount totals plus missing-value
// anomalies for a cleaned table. Empty cells count as missing.
func Summarize(t *cache.Table) Summary {
	s := Summary{
		Found:         true,
		Rows:          len(t.Rows),
		MissingRatios: make(map[string]float64, len(CriticalColumns)),
		GeneratedAt:   time.Now(),
	}

	vendors := map[string]struct{}{}
	vendorCol, amountCol := t.Column("vendor_name"), t.Column("total_amount")
	for _, row := range t.Rows {
		if vendorCol >= 0 && row[vendorCol] != "" {
			vendors[row[vendorCol]] = struct{}{}
		}
		if amountCol >= 0 {
			if v, err := strconv.ParseFloat(row[amountCol], 64); err == nil {
				s.TotalAmount += v
			}
		}
	}
	s.Vendors = len(vendors)

	for _, col := range CriticalColumns {
		idx := t.Column(col)
		if s.Rows == 0 {
			continue
		}
		missing := s.Rows
		if idx >= 0 {
			missing = 0
			for _, row := range t.Rows {
				if strings.TrimSpace(row[idx]) == "" {
					missing++
				}
			}
		}
		ratio := float64(missing) / float64(s.Rows)
		s.MissingRatios[col] = ratio
		if ratio > MissingRatioThreshold {
			s.Anomalies = append(s.Anomalies,
				fmt.Sprintf("ALERT: Column '%s' has %.1f%% missing values", col, ratio*100))
		}
	}
	return s
}

// Text renders the summary the way the text report file stores it.
func (s Summary) Text() string {
	lines := []string{
		"=== LedgerX Fatura Summary Report ===",
		fmt.Sprintf("Rows: %d", s.Rows),
		fmt.Sprintf("Vendors: %d", s.Vendors),
		fmt.Sprintf("Total Amount Sum: %.2f", s.TotalAmount),
		"=====================================",
		"",
	}
	if len(s.Anomalies) > 0 {
		lines = append(lines, "=== ⚠️ Anomaly Detection ===")
		for _, a := range s.Anomalies {
			lines = append(lines, "⚠️ "+a)
		}
	} else {
		lines = append(lines, "No anomalies detected.")
	}
	return strings.Join(lines, "\n")
}

// Generate writes the reports into opts.ReportsDir. A missing cleaned table
// is not an error: the text report says so and Summary.Found is false.
func Generate(opts Options, exporter *export.Service) (*Summary, error) {
	if err := os.MkdirAll(opts.ReportsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create reports directory: %w", err)
	}
	textPath := filepath.Join(opts.ReportsDir, TextReportName)

	t, err := cache.ReadTable(opts.CleanedPath)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("path", opts.CleanedPath).Msg("⚠️ No cleaned file found, writing empty report")
		if err := os.WriteFile(textPath, []byte("❌ No cleaned file found."), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", textPath, err)
		}
		return &Summary{GeneratedAt: time.Now()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", opts.CleanedPath, err)
	}

	s := Summarize(t)
	if err := os.WriteFile(textPath, []byte(s.Text()), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", textPath, err)
	}

	doc := export.FromTable("LedgerX Fatura Summary Report", t)
	doc.CreatedAt = s.GeneratedAt
	doc.Style.Orientation = "landscape"
	doc.Summary = []export.SummaryLine{
		{Label: "Rows", Value: strconv.Itoa(s.Rows)},
		{Label: "Vendors", Value: strconv.Itoa(s.Vendors)},
		{Label: "Total Amount Sum", Value: fmt.Sprintf("%.2f", s.TotalAmount)},
	}
	doc.Alerts = s.Anomalies
	if len(doc.Alerts) == 0 {
		doc.Subtitle = "No anomalies detected."
	}
	if err := exporter.WriteFile(filepath.Join(opts.ReportsDir, PDFReportName), doc, export.FormatPDF); err != nil {
		return nil, fmt.Errorf("failed to write PDF report: %w", err)
	}

	if err := exportOCRTable(opts, exporter, doc.Summary); err != nil {
		return nil, err
	}

	log.Info().
		Int("rows", s.Rows).
		Int("vendors", s.Vendors).
		Int("anomalies", len(s.Anomalies)).
		Str("dir", opts.ReportsDir).
		Msg("✅ Summary report generated")
	return &s, nil
}

func exportOCRTable(opts Options, exporter *export.Service, summary []export.SummaryLine) error {
	if opts.OCRPath == "" {
		return nil
	}
	t, err := cache.ReadTable(opts.OCRPath)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("path", opts.OCRPath).Msg("⚠️ OCR table not found, skipping xlsx export")
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", opts.OCRPath, err)
	}

	doc := export.FromTable("FATURA OCR results", t)
	doc.Summary = summary
	if err := exporter.WriteFile(filepath.Join(opts.ReportsDir, ExcelExportName), doc, export.FormatExcel); err != nil {
		return fmt.Errorf("failed to write xlsx export: %w", err)
	}
	return nil
}
