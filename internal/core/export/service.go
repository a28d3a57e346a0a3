package export

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Service picks the exporter for a format.
type Service struct {
	exporters map[ExportFormat]Exporter
}

// NewService creates a new export service
func NewService() *Service {
	return &Service{
		exporters: map[ExportFormat]Exporter{
			FormatPDF:   NewPDFExporter(),
			FormatExcel: NewExcelExporter(),
			FormatCSV:   NewCSVExporter(),
		},
	}
}

func (s *Service) exporter(format ExportFormat) (Exporter, error) {
	e, ok := s.exporters[format]
	if !ok {
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
	return e, nil
}

// Export renders doc and returns the bytes and their content type.
func (s *Service) Export(doc *Document, format ExportFormat) ([]byte, string, error) {
	exporter, err := s.exporter(format)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	if err := exporter.Export(doc, &buf); err != nil {
		return nil, "", fmt.Errorf("%s export failed: %w", format, err)
	}
	return buf.Bytes(), exporter.GetContentType(), nil
}

// ExportToWriter exports data to a writer
func (s *Service) ExportToWriter(doc *Document, format ExportFormat, writer io.Writer) error {
	exporter, err := s.exporter(format)
	if err != nil {
		return err
	}
	return exporter.Export(doc, writer)
}

// WriteFile renders doc into path, creating the parent directory.
func (s *Service) WriteFile(path string, doc *Document, format ExportFormat) error {
	b, _, err := s.Export(doc, format)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	return os.WriteFile(path, b, 0o644)
}

// GetFileExtension returns the file extension for the given format
func (s *Service) GetFileExtension(format ExportFormat) string {
	if e, err := s.exporter(format); err == nil {
		return e.GetFileExtension()
	}
	return ".bin"
}
