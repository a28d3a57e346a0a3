// Package quality holds the data checks run on the OCR result table before
// it is handed to downstream consumers: schema, validation counts and a
// text-length bias slice. Each check writes a small report file.
package quality

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/cache"
)

// ErrMissingColumns means the result table lacks a required column.
var ErrMissingColumns = errors.New("missing required columns")

// RequiredColumns is the contract downstream consumers rely on.
var RequiredColumns = []string{cache.ColumnFileName, cache.ColumnOCRText}

type SchemaResult struct {
	Columns []string `json:"columns"`
	Missing []string `json:"missing,omitempty"`
}

func (r *SchemaResult) OK() bool { return len(r.Missing) == 0 }

// CheckSchema verifies the header of the table at tablePath and writes the
// verdict to reportPath. Missing columns are reported and returned as
// ErrMissingColumns.
func CheckSchema(tablePath, reportPath string) (*SchemaResult, error) {
	t, err := cache.ReadTable(tablePath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", tablePath, err)
	}

	res := &SchemaResult{Columns: t.Header, Missing: missingColumns(t, RequiredColumns...)}

	var report string
	if res.OK() {
		report = "✅ Schema validated: all expected columns present.\n"
	} else {
		report = fmt.Sprintf("❌ Missing columns: %s\n", strings.Join(res.Missing, ", "))
	}
	if err := writeReport(reportPath, []byte(report)); err != nil {
		return nil, err
	}

	if !res.OK() {
		log.Error().Strs("missing", res.Missing).Str("table", tablePath).Msg("❌ Schema check failed")
		return res, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(res.Missing, ", "))
	}
	log.Info().Str("table", tablePath).Msg("✅ Schema validated")
	return res, nil
}

func missingColumns(t *cache.Table, cols ...string) []string {
	var missing []string
	for _, c := range cols {
		if t.Column(c) < 0 {
			missing = append(missing, c)
		}
	}
	return missing
}

// requireColumns is the guard used by the checks that read column values.
func requireColumns(t *cache.Table, source string, cols ...string) error {
	if missing := missingColumns(t, cols...); len(missing) > 0 {
		return fmt.Errorf("%w: %s lacks %s", ErrMissingColumns, source, strings.Join(missing, ", "))
	}
	return nil
}

func writeReport(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}
