package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/cache"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/export"
)

var cleanedHeader = []string{"file_name", "invoice_number", "invoice_date", "total_amount", "vendor_name", "currency"}

func TestSummarizeNoAnomalies(t *testing.T) {
	s := Summarize(&cache.Table{
		Header: cleanedHeader,
		Rows: [][]string{
			{"1.jpg", "INV-1", "2020-01-02", "100.50", "Acme", "USD"},
			{"2.jpg", "INV-2", "2020-01-03", "20", "Acme", "USD"},
			{"3.jpg", "INV-3", "2020-01-04", "9.5", "Bolt", "EUR"},
		},
	})

	assert.Equal(t, 3, s.Rows)
	assert.Equal(t, 2, s.Vendors)
	assert.InDelta(t, 130.0, s.TotalAmount, 0.0001)
	assert.Empty(t, s.Anomalies)
	assert.Equal(t, "=== LedgerX Fatura Summary Report ===\nRows: 3\nVendors: 2\nTotal Amount Sum: 130.00\n"+
		"=====================================\n\nNo anomalies detected.", s.Text())
}

func TestSummarizeFlagsMissingColumns(t *testing.T) {
	s := Summarize(&cache.Table{
		Header: cleanedHeader,
		Rows: [][]string{
			{"1.jpg", "INV-1", "", "10", "", "USD"},
			{"2.jpg", "INV-2", "", "", "Acme", "USD"},
			{"3.jpg", "INV-3", "2020-01-04", "5", "Acme", "USD"},
			{"4.jpg", "INV-4", "2020-01-05", "5", "Acme", "USD"},
			{"5.jpg", "INV-5", "2020-01-06", "5", "Acme", "USD"},
		},
	})

	// 2/5 dates missing (40%) alerts; 1/5 vendors and amounts (20%) do not.
	assert.Equal(t, []string{"ALERT: Column 'invoice_date' has 40.0% missing values"}, s.Anomalies)
	assert.InDelta(t, 0.2, s.MissingRatios["vendor_name"], 0.0001)
	assert.Contains(t, s.Text(), "=== ⚠️ Anomaly Detection ===\n⚠️ ALERT: Column 'invoice_date'")
}

func TestSummarizeAbsentColumnCountsAsMissing(t *testing.T) {
	s := Summarize(&cache.Table{
		Header: []string{"file_name", "invoice_number"},
		Rows:   [][]string{{"1.jpg", "INV-1"}},
	})
	assert.Len(t, s.Anomalies, 4)
}

func TestGenerateWithoutCleanedFile(t *testing.T) {
	dir := t.TempDir()
	s, err := Generate(Options{
		CleanedPath: filepath.Join(dir, "missing.csv"),
		ReportsDir:  filepath.Join(dir, "reports"),
	}, export.NewService())
	require.NoError(t, err)
	assert.False(t, s.Found)

	b, err := os.ReadFile(filepath.Join(dir, "reports", TextReportName))
	require.NoError(t, err)
	assert.Equal(t, "❌ No cleaned file found.", string(b))
}

func TestGenerateWritesAllReports(t *testing.T) {
	dir := t.TempDir()
	cleaned := filepath.Join(dir, "fatura_cleaned.csv")
	ocr := filepath.Join(dir, "fatura_ocr.csv")
	require.NoError(t, cache.WriteTable(cleaned, &cache.Table{
		Header: cleanedHeader,
		Rows:   [][]string{{"1.jpg", "INV-1", "2020-01-02", "100", "Acme", "EUR"}},
	}))
	require.NoError(t, cache.Save(ocr, map[string]string{"1.jpg": "INVOICE INV-1"}))

	reports := filepath.Join(dir, "reports")
	s, err := Generate(Options{CleanedPath: cleaned, OCRPath: ocr, ReportsDir: reports}, export.NewService())
	require.NoError(t, err)
	assert.True(t, s.Found)
	assert.Equal(t, 1, s.Rows)

	for _, name := range []string{TextReportName, PDFReportName, ExcelExportName} {
		info, err := os.Stat(filepath.Join(reports, name))
		require.NoError(t, err, name)
		assert.Positive(t, info.Size(), name)
	}
}
