package export

import (
	"io"
	"time"

	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/cache"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatPDF   ExportFormat = "pdf"
	FormatExcel ExportFormat = "excel"
	FormatCSV   ExportFormat = "csv"
)

// ParseFormat accepts the format names used by the API and CLI.
func ParseFormat(s string) (ExportFormat, bool) {
	switch s {
	case "pdf":
		return FormatPDF, true
	case "excel", "xlsx":
		return FormatExcel, true
	case "csv":
		return FormatCSV, true
	}
	return "", false
}

// Exporter is the interface for all export formats
type Exporter interface {
	Export(doc *Document, writer io.Writer) error
	GetContentType() string
	GetFileExtension() string
}

// Document is what every exporter renders: an optional block of summary
// lines and alerts followed by a table.
type Document struct {
	Title     string
	Subtitle  string
	CreatedAt time.Time

	Summary []SummaryLine
	Alerts  []string

	Headers []string
	Rows    [][]string

	Style Style
}

// SummaryLine is a "label: value" pair shown above the table.
type SummaryLine struct {
	Label string
	Value string
}

// Style defines styling options shared by the exporters.
type Style struct {
	// PDF specific
	Orientation string // "portrait" or "landscape"
	PageSize    string // "A4", "Letter", etc.
	// MaxCellChars truncates long cells in the PDF table; OCR text can run to
	// several thousand characters. 0 means no limit.
	MaxCellChars int

	HeaderBgColor string // Hex color
	AlternateRows bool
	RowBgColor1   string // Hex color for odd rows
	RowBgColor2   string // Hex color for even rows
	FontSize      float64

	// Excel specific
	FreezeHeader bool
	AutoFilter   bool
	WrapColumns  map[int]bool    // columns rendered with wrapped text
	ColumnWidths map[int]float64 // Column index -> width
}

// DefaultStyle returns default export styling
func DefaultStyle() Style {
	return Style{
		Orientation:   "portrait",
		PageSize:      "A4",
		MaxCellChars:  80,
		HeaderBgColor: "#4472C4",
		AlternateRows: true,
		RowBgColor1:   "#FFFFFF",
		RowBgColor2:   "#F2F2F2",
		FontSize:      9,
		FreezeHeader:  true,
		AutoFilter:    true,
		WrapColumns:   map[int]bool{},
		ColumnWidths:  map[int]float64{},
	}
}

// FromTable wraps a CSV table in a Document. OCR result tables get a wide,
// wrapped text column.
func FromTable(title string, t *cache.Table) *Document {
	doc := &Document{
		Title:     title,
		CreatedAt: time.Now(),
		Headers:   t.Header,
		Rows:      t.Rows,
		Style:     DefaultStyle(),
	}
	if i := t.Column(cache.ColumnFileName); i >= 0 {
		doc.Style.ColumnWidths[i] = 24
	}
	if i := t.Column(cache.ColumnOCRText); i >= 0 {
		doc.Style.ColumnWidths[i] = 100
		doc.Style.WrapColumns[i] = true
	}
	return doc
}
