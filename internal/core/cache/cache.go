// Package cache persists the file name -> OCR text mapping between runs.
//
// The cache file and the result table share one CSV shape: a header row
// "file_name,ocr_text" followed by one row per image. Both are always fully
// rewritten; nothing is ever appended.
package cache

import (
	"errors"
	"fmt"
	"io/fs"
)

// Load reads the cache at path. A missing file is a cold start and yields an
// empty map with no error. A file that exists but lacks the expected columns
// or contains duplicate names fails with ErrMalformed.
func Load(path string) (map[string]string, error) {
	t, err := ReadTable(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	return ToMap(t, path)
}

// ToMap converts a result table to a mapping. source names the file in errors.
func ToMap(t *Table, source string) (map[string]string, error) {
	nameCol, textCol := t.Column(ColumnFileName), t.Column(ColumnOCRText)
	if nameCol < 0 || textCol < 0 {
		return nil, fmt.Errorf("%w: %s needs columns %q and %q, got %v",
			ErrMalformed, source, ColumnFileName, ColumnOCRText, t.Header)
	}

	m := make(map[string]string, len(t.Rows))
	for i, row := range t.Rows {
		name := row[nameCol]
		if name == "" {
			return nil, fmt.Errorf("%w: %s row %d has an empty %s", ErrMalformed, source, i+2, ColumnFileName)
		}
		if _, dup := m[name]; dup {
			return nil, fmt.Errorf("%w: %s lists %q more than once", ErrMalformed, source, name)
		}
		m[name] = row[textCol]
	}
	return m, nil
}

// Save overwrites path with m as a result table.
func Save(path string, m map[string]string) error {
	return WriteTable(path, FromMap(m))
}
