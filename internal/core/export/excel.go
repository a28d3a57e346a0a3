package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// excelMaxCellChars is the hard limit of a single xlsx cell.
const excelMaxCellChars = 32767

// ExcelExporter implements Excel export using excelize. The table goes to the
// data sheet; summary lines and alerts, when present, to a second sheet.
type ExcelExporter struct {
	sheetName   string
	summaryName string
}

// NewExcelExporter creates a new Excel exporter
func NewExcelExporter() *ExcelExporter {
	return &ExcelExporter{
		sheetName:   "OCR Results",
		summaryName: "Summary",
	}
}

// Export exports data to Excel format
func (e *ExcelExporter) Export(doc *Document, writer io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", e.sheetName); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if err := e.writeTable(f, doc); err != nil {
		return err
	}
	if len(doc.Summary) > 0 || len(doc.Alerts) > 0 {
		if err := e.writeSummary(f, doc); err != nil {
			return err
		}
	}

	if err := f.Write(writer); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}
	return nil
}

func (e *ExcelExporter) writeTable(f *excelize.File, doc *Document) error {
	headerStyle, err := e.createHeaderStyle(f, doc.Style)
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	header := make([]interface{}, len(doc.Headers))
	for i, h := range doc.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(e.sheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if len(doc.Headers) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(doc.Headers), 1)
		if err := f.SetCellStyle(e.sheetName, "A1", last, headerStyle); err != nil {
			return fmt.Errorf("failed to style header: %w", err)
		}
	}

	for colIdx := range doc.Headers {
		if width, ok := doc.Style.ColumnWidths[colIdx]; ok {
			col, _ := excelize.ColumnNumberToName(colIdx + 1)
			if err := f.SetColWidth(e.sheetName, col, col, width); err != nil {
				return fmt.Errorf("failed to set width of column %s: %w", col, err)
			}
		}
	}

	// Two styles per parity: plain and wrapped.
	styles := make(map[[2]bool]int, 4)
	for _, even := range []bool{false, true} {
		for _, wrap := range []bool{false, true} {
			bg := doc.Style.RowBgColor1
			if even && doc.Style.AlternateRows {
				bg = doc.Style.RowBgColor2
			}
			id, err := e.createRowStyle(f, doc.Style, bg, wrap)
			if err != nil {
				return fmt.Errorf("failed to create row style: %w", err)
			}
			styles[[2]bool{even, wrap}] = id
		}
	}

	for rowIdx, row := range doc.Rows {
		excelRow := rowIdx + 2
		for colIdx, value := range row {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, excelRow)
			if err := f.SetCellStr(e.sheetName, cell, truncate(value, excelMaxCellChars)); err != nil {
				return fmt.Errorf("failed to write %s: %w", cell, err)
			}
			style := styles[[2]bool{rowIdx%2 == 1, doc.Style.WrapColumns[colIdx]}]
			if err := f.SetCellStyle(e.sheetName, cell, cell, style); err != nil {
				return fmt.Errorf("failed to style %s: %w", cell, err)
			}
		}
	}

	if doc.Style.FreezeHeader {
		if err := f.SetPanes(e.sheetName, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return fmt.Errorf("failed to freeze header: %w", err)
		}
	}

	if doc.Style.AutoFilter && len(doc.Headers) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(doc.Headers), len(doc.Rows)+1)
		if err := f.AutoFilter(e.sheetName, "A1:"+last, nil); err != nil {
			return fmt.Errorf("failed to add auto filter: %w", err)
		}
	}
	return nil
}

func (e *ExcelExporter) writeSummary(f *excelize.File, doc *Document) error {
	if _, err := f.NewSheet(e.summaryName); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return fmt.Errorf("failed to create title style: %w", err)
	}

	row := 1
	if doc.Title != "" {
		_ = f.SetCellStr(e.summaryName, "A1", doc.Title)
		_ = f.SetCellStyle(e.summaryName, "A1", "A1", titleStyle)
		row += 2
	}
	for _, line := range doc.Summary {
		values := []interface{}{line.Label, line.Value}
		if err := f.SetSheetRow(e.summaryName, fmt.Sprintf("A%d", row), &values); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
		row++
	}
	if len(doc.Alerts) > 0 {
		row++
		for _, alert := range doc.Alerts {
			_ = f.SetCellStr(e.summaryName, fmt.Sprintf("A%d", row), alert)
			row++
		}
	}
	return f.SetColWidth(e.summaryName, "A", "A", 32)
}

// GetContentType returns the MIME type for Excel files
func (e *ExcelExporter) GetContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// GetFileExtension returns the file extension for Excel files
func (e *ExcelExporter) GetFileExtension() string {
	return ".xlsx"
}

// createHeaderStyle creates the header style
func (e *ExcelExporter) createHeaderStyle(f *excelize.File, style Style) (int, error) {
	headerStyle := &excelize.Style{
		Font: &excelize.Font{
			Bold:  true,
			Size:  style.FontSize,
			Color: "FFFFFF",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{stripHashFromColor(style.HeaderBgColor)},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	}

	return f.NewStyle(headerStyle)
}

// createRowStyle creates a row style with background color
func (e *ExcelExporter) createRowStyle(f *excelize.File, style Style, bgColor string, wrap bool) (int, error) {
	rowStyle := &excelize.Style{
		Font: &excelize.Font{
			Size: style.FontSize,
		},
		Alignment: &excelize.Alignment{
			Vertical: "top",
			WrapText: wrap,
		},
	}

	// Only add fill if bgColor is not white
	if bgColor != "" && bgColor != "#FFFFFF" {
		rowStyle.Fill = excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{stripHashFromColor(bgColor)},
		}
	}

	return f.NewStyle(rowStyle)
}

// stripHashFromColor removes # from hex color codes
func stripHashFromColor(color string) string {
	if len(color) > 0 && color[0] == '#' {
		return color[1:]
	}
	return color
}
