package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-ledger/internal/ledger"
	"github.com/insightdelivered/statement-ledger/internal/models"
)

// CSVWriter writes one block per account: optional metadata rows, then the
// credit, debit and other rows, then totals and the control value.
type CSVWriter struct {
	IncludeHeader bool
}

// WriteToFile writes the document to a CSV file at the given path.
func (w *CSVWriter) WriteToFile(path string, doc ledger.Document) error {
	return writeFile(path, doc, w)
}

// Write writes the document in CSV format to the given writer.
func (w *CSVWriter) Write(out io.Writer, doc ledger.Document) error {
	cw := csv.NewWriter(out)

	for _, r := range doc.Reports {
		if err := w.writeReport(cw, r); err != nil {
			return err
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

func (w *CSVWriter) writeReport(cw *csv.Writer, r ledger.Report) error {
	// Write metadata as comments (CSV header rows)
	if w.IncludeHeader {
		meta := [][]string{{"# Account", r.AccountID}}
		if r.Product != "" {
			meta = append(meta, []string{"# Product", r.Product})
		}
		meta = append(meta,
			[]string{"# Currency", string(r.Currency)},
			[]string{"# Opening Balance", formatAmount(r.Opening)},
			[]string{"# Closing Balance", formatAmount(r.Closing)},
			[]string{"# State", string(r.State)},
		)
		if err := cw.WriteAll(meta); err != nil {
			return fmt.Errorf("failed to write CSV metadata: %w", err)
		}
	}

	header := []string{"Account", "Type", "Date", "Description", "Amount", "Flags"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	write := func(kind string, rows []ledger.Row) error {
		for _, row := range rows {
			rec := []string{r.AccountID, kind, row.Date, row.Description, formatAmount(row.Amount), joinFlags(row.Flags)}
			if err := cw.Write(rec); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
		}
		return nil
	}
	if err := write("CREDIT", r.Credits); err != nil {
		return err
	}
	if err := write("DEBIT", r.Debits); err != nil {
		return err
	}
	if err := write("UNRESOLVED", r.Unresolved); err != nil {
		return err
	}
	if r.Adjustment != nil {
		if err := write("ADJUSTMENT", []ledger.Row{*r.Adjustment}); err != nil {
			return err
		}
	}
	if err := write("EXCLUDED", r.Excluded); err != nil {
		return err
	}

	if w.IncludeHeader {
		totals := [][]string{
			{"# Total Credits", formatAmount(r.TotalCredits)},
			{"# Total Debits", formatAmount(r.TotalDebits)},
			{"# Control", formatAmount(r.Control)},
			{"# Correction", r.Correction},
		}
		if err := cw.WriteAll(totals); err != nil {
			return fmt.Errorf("failed to write CSV totals: %w", err)
		}
	}
	return nil
}

func formatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

func joinFlags(flags []models.Flag) string {
	parts := make([]string, len(flags))
	for i, f := range flags {
		parts[i] = string(f)
	}
	return strings.Join(parts, ";")
}

type docWriter interface {
	Write(io.Writer, ledger.Document) error
}

func writeFile(path string, doc ledger.Document, w docWriter) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	if err := w.Write(f, doc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
