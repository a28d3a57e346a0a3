package quality

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/cache"
)

// ValidationSummary counts data quality issues in the result table.
//
// MissingText counts empty cells. EmptyText counts cells that are present but
// only whitespace. The two never overlap.
type ValidationSummary struct {
	TotalRecords   int `json:"total_records"`
	MissingText    int `json:"missing_text"`
	EmptyText      int `json:"empty_text"`
	DuplicateFiles int `json:"duplicate_files"`
	ValidRecords   int `json:"valid_records"`
}

func (s ValidationSummary) HasIssues() bool {
	return s.MissingText > 0 || s.EmptyText > 0 || s.DuplicateFiles > 0
}

// Summarize computes the validation counts for t.
func Summarize(t *cache.Table) (ValidationSummary, error) {
	if err := requireColumns(t, "table", RequiredColumns...); err != nil {
		return ValidationSummary{}, err
	}
	nameCol, textCol := t.Column(cache.ColumnFileName), t.Column(cache.ColumnOCRText)

	s := ValidationSummary{TotalRecords: len(t.Rows)}
	seen := make(map[string]struct{}, len(t.Rows))
	for _, row := range t.Rows {
		switch text := row[textCol]; {
		case text == "":
			s.MissingText++
		case strings.TrimSpace(text) == "":
			s.EmptyText++
		}

		// Every occurrence after the first counts as a duplicate.
		if _, dup := seen[row[nameCol]]; dup {
			s.DuplicateFiles++
		}
		seen[row[nameCol]] = struct{}{}
	}
	s.ValidRecords = s.TotalRecords - (s.MissingText + s.EmptyText)
	return s, nil
}

// Validate summarises the table at tablePath and writes the summary as
// indented JSON to reportPath. Quality issues are logged, not returned.
func Validate(tablePath, reportPath string) (*ValidationSummary, error) {
	log.Info().Str("table", tablePath).Msg("Loading OCR output for validation")

	t, err := cache.ReadTable(tablePath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", tablePath, err)
	}
	s, err := Summarize(t)
	if err != nil {
		return nil, err
	}

	b, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal validation summary: %w", err)
	}
	if err := writeReport(reportPath, b); err != nil {
		return nil, err
	}

	ev := log.Info()
	msg := "✅ All records validated successfully"
	if s.HasIssues() {
		ev = log.Warn()
		msg = "⚠️ Some data quality issues found"
	}
	ev.Int("total", s.TotalRecords).
		Int("missing_text", s.MissingText).
		Int("empty_text", s.EmptyText).
		Int("duplicate_files", s.DuplicateFiles).
		Int("valid", s.ValidRecords).
		Msg(msg)

	return &s, nil
}
