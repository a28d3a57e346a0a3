package pipeline

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/cache"
	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/ocr"
)

// CleanedHeader is the column layout of the cleaned invoice table.
var CleanedHeader = []string{
	cache.ColumnFileName,
	"invoice_number",
	"invoice_date",
	"total_amount",
	"vendor_name",
	"currency",
}

// Clean parses every OCR text into invoice fields and writes the cleaned
// table. It returns the number of rows written.
func (r *Runner) Clean(ctx context.Context) (int, error) {
	t, err := cache.ReadTable(r.cfg.Extractor.OutputPath)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", r.cfg.Extractor.OutputPath, err)
	}
	texts, err := cache.ToMap(t, r.cfg.Extractor.OutputPath)
	if err != nil {
		return 0, err
	}

	src := cache.FromMap(texts) // sorted by file name
	rows := make([][]string, len(src.Rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.CleanWorkers)
	for i, row := range src.Rows {
		g.Go(func() error {
			inv, err := r.parser.ParseInvoice(gctx, row[1])
			if err != nil {
				return fmt.Errorf("parse %s: %w", row[0], err)
			}
			rows[i] = cleanedRow(row[0], inv)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	if err := cache.WriteTable(r.cfg.CleanedPath, &cache.Table{Header: CleanedHeader, Rows: rows}); err != nil {
		return 0, fmt.Errorf("write cleaned table: %w", err)
	}
	log.Info().
		Int("rows", len(rows)).
		Str("parser", r.parser.GetParserName()).
		Str("output", r.cfg.CleanedPath).
		Msg("✅ Invoice fields extracted")
	return len(rows), nil
}

func cleanedRow(name string, inv *ocr.InvoiceData) []string {
	var amount string
	if inv.TotalAmount != nil {
		amount = strconv.FormatFloat(*inv.TotalAmount, 'f', 2, 64)
	}
	return []string{name, inv.InvoiceNumber, inv.InvoiceDate, amount, inv.VendorName, inv.Currency}
}
