package export

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter implements PDF export using gofpdf
type PDFExporter struct {
	orientation string
	pageSize    string
}

// NewPDFExporter creates a new PDF exporter
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{
		orientation: "P", // Portrait
		pageSize:    "A4",
	}
}

// Export renders the title, summary lines, alerts and then the table.
// Table cells are flattened to one line and cut to fit their column.
func (p *PDFExporter) Export(doc *Document, writer io.Writer) error {
	orientation := p.orientation
	if doc.Style.Orientation == "landscape" {
		orientation = "L"
	}
	pageSize := doc.Style.PageSize
	if pageSize == "" {
		pageSize = p.pageSize
	}
	fontSize := doc.Style.FontSize
	if fontSize == 0 {
		fontSize = 9
	}

	pdf := gofpdf.New(orientation, "mm", pageSize, "")
	// Core fonts are cp1252; translate so "€" and accented vendor names survive.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	if doc.Title != "" {
		pdf.SetFont("Arial", "B", 16)
		pdf.Cell(0, 10, tr(doc.Title))
		pdf.Ln(12)
	}
	if doc.Subtitle != "" {
		pdf.SetFont("Arial", "", fontSize+1)
		pdf.MultiCell(0, 5, tr(doc.Subtitle), "", "", false)
		pdf.Ln(4)
	}
	if !doc.CreatedAt.IsZero() {
		pdf.SetFont("Arial", "I", 8)
		pdf.Cell(0, 5, fmt.Sprintf("Generated: %s", doc.CreatedAt.Format("2006-01-02 15:04:05")))
		pdf.Ln(8)
	}

	if len(doc.Summary) > 0 {
		for _, line := range doc.Summary {
			pdf.SetFont("Arial", "B", fontSize+1)
			pdf.CellFormat(60, 6, tr(line.Label), "", 0, "L", false, 0, "")
			pdf.SetFont("Arial", "", fontSize+1)
			pdf.CellFormat(0, 6, tr(line.Value), "", 1, "L", false, 0, "")
		}
		pdf.Ln(4)
	}

	if len(doc.Alerts) > 0 {
		pdf.SetTextColor(192, 0, 0)
		pdf.SetFont("Arial", "B", fontSize+1)
		for _, alert := range doc.Alerts {
			pdf.MultiCell(0, 6, tr(alert), "", "L", false)
		}
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(4)
	}

	if len(doc.Headers) > 0 {
		p.drawTable(pdf, doc, fontSize, tr)
	}

	if err := pdf.Output(writer); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}

func (p *PDFExporter) drawTable(pdf *gofpdf.Fpdf, doc *Document, fontSize float64, tr func(string) string) {
	pageWidth, pageHeight := pdf.GetPageSize()
	leftMargin, _, rightMargin, bottomMargin := pdf.GetMargins()
	widths := columnWidths(doc, pageWidth-leftMargin-rightMargin)

	drawHeader := func() {
		pdf.SetFont("Arial", "B", fontSize)
		if doc.Style.HeaderBgColor != "" {
			r, g, b := hexToRGB(doc.Style.HeaderBgColor)
			pdf.SetFillColor(r, g, b)
			pdf.SetTextColor(255, 255, 255)
		}
		for i, header := range doc.Headers {
			pdf.CellFormat(widths[i], 7, tr(header), "1", 0, "C", doc.Style.HeaderBgColor != "", 0, "")
		}
		pdf.Ln(-1)
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont("Arial", "", fontSize)
	}
	drawHeader()

	for rowIdx, row := range doc.Rows {
		if pdf.GetY()+6 > pageHeight-bottomMargin-5 {
			pdf.AddPage()
			drawHeader()
		}

		fill := false
		if doc.Style.AlternateRows {
			color := doc.Style.RowBgColor1
			if rowIdx%2 == 1 {
				color = doc.Style.RowBgColor2
			}
			r, g, b := hexToRGB(color)
			pdf.SetFillColor(r, g, b)
			fill = true
		}

		for colIdx := range doc.Headers {
			var value string
			if colIdx < len(row) {
				value = flatten(row[colIdx], doc.Style.MaxCellChars)
			}
			value = fitWidth(pdf, tr(value), widths[colIdx]-2)
			pdf.CellFormat(widths[colIdx], 6, value, "1", 0, "L", fill, 0, "")
		}
		pdf.Ln(-1)
	}
}

// columnWidths distributes usable page width in proportion to the Excel
// column widths, defaulting to equal shares.
func columnWidths(doc *Document, usable float64) []float64 {
	weights := make([]float64, len(doc.Headers))
	var total float64
	for i := range weights {
		weights[i] = 20
		if w, ok := doc.Style.ColumnWidths[i]; ok && w > 0 {
			weights[i] = w
		}
		total += weights[i]
	}
	for i := range weights {
		weights[i] = usable * weights[i] / total
	}
	return weights
}

// flatten collapses whitespace runs (OCR text is multi-line) and truncates to
// limit characters.
func flatten(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	return truncate(s, limit)
}

// truncate cuts s to at most limit characters, marking the cut with "...".
// limit <= 0 means no limit.
func truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

func fitWidth(pdf *gofpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	for len(s) > 0 && pdf.GetStringWidth(s+"...") > width {
		s = s[:len(s)-1]
	}
	return s + "..."
}

// GetContentType returns the MIME type for PDF files
func (p *PDFExporter) GetContentType() string {
	return "application/pdf"
}

// GetFileExtension returns the file extension for PDF files
func (p *PDFExporter) GetFileExtension() string {
	return ".pdf"
}

// hexToRGB converts hex color to RGB values
func hexToRGB(hex string) (int, int, int) {
	hex = strings.TrimPrefix(hex, "#")

	// Default to white if invalid
	if len(hex) != 6 {
		return 255, 255, 255
	}

	var r, g, b int
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		return 255, 255, 255
	}
	return r, g, b
}
