package export

import (
	"encoding/csv"
	"fmt"
	"io"
)

// CSVExporter writes the table only; summary lines and alerts are dropped.
type CSVExporter struct{}

func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

func (c *CSVExporter) Export(doc *Document, writer io.Writer) error {
	w := csv.NewWriter(writer)
	if err := w.Write(doc.Headers); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := w.WriteAll(doc.Rows); err != nil {
		return fmt.Errorf("failed to write CSV rows: %w", err)
	}
	return nil
}

func (c *CSVExporter) GetContentType() string {
	return "text/csv; charset=utf-8"
}

func (c *CSVExporter) GetFileExtension() string {
	return ".csv"
}
