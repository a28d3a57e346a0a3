package cache

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Column names shared by the cache file and the result table. Downstream
// stages (schema, validation, bias, cleaning) rely on these exact names.
const (
	ColumnFileName = "file_name"
	ColumnOCRText  = "ocr_text"
)

// ErrMalformed is returned when a table file exists but cannot be parsed.
var ErrMalformed = errors.New("malformed table")

// Table is a generic CSV table: a header plus string rows.
type Table struct {
	Header []string
	Rows   [][]string
}

// Column returns the index of name in the header, or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// ReadTable parses a CSV file with a header row. Every row must have the
// same number of fields as the header.
func ReadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s has no header row", ErrMalformed, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	t := &Table{Header: header}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// WriteTable writes t to path atomically: the table is written to a temp file
// in the same directory and renamed over path, so readers never observe a
// partially written file.
func WriteTable(path string, t *Table) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	w := csv.NewWriter(tmp)
	if err := w.Write(t.Header); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write rows: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// FromMap reshapes a name->text mapping into the two-column result table,
// sorted by file name.
func FromMap(m map[string]string) *Table {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	t := &Table{
		Header: []string{ColumnFileName, ColumnOCRText},
		Rows:   make([][]string, 0, len(names)),
	}
	for _, name := range names {
		t.Rows = append(t.Rows, []string{name, m[name]})
	}
	return t
}
