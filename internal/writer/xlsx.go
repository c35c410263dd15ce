package writer

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/insightdelivered/statement-ledger/internal/ledger"
	"github.com/insightdelivered/statement-ledger/internal/models"
)

const (
	summarySheet = "Summary"
	firstDataRow = 8
	maxSheetName = 31
)

// XLSXWriter writes a workbook with a summary sheet and one sheet per
// account. Credits occupy columns A-C and debits E-G, with a control formula
// that must evaluate to zero for a reconciled account.
type XLSXWriter struct {
	// LocalPrefix and ForeignPrefix start each account sheet name.
	LocalPrefix   string
	ForeignPrefix string
}

// WriteToFile writes the workbook to path.
func (w *XLSXWriter) WriteToFile(path string, doc ledger.Document) error {
	return writeFile(path, doc, w)
}

// Write builds the workbook and streams it to out.
func (w *XLSXWriter) Write(out io.Writer, doc ledger.Document) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if err := writeSummary(f, doc); err != nil {
		return err
	}

	used := map[string]bool{strings.ToLower(summarySheet): true}
	for _, r := range doc.Reports {
		name := uniqueSheetName(w.sheetName(r), used)
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %q: %w", name, err)
		}
		if err := writeAccountSheet(f, name, r); err != nil {
			return err
		}
	}

	if err := f.Write(out); err != nil {
		return fmt.Errorf("failed to write XLSX: %w", err)
	}
	return nil
}

func (w *XLSXWriter) sheetName(r ledger.Report) string {
	prefix := w.LocalPrefix
	if prefix == "" {
		prefix = "ARS"
	}
	if r.Currency == models.CurrencyForeign {
		prefix = w.ForeignPrefix
		if prefix == "" {
			prefix = "USD"
		}
	}
	return prefix + " " + r.AccountID
}

func uniqueSheetName(name string, used map[string]bool) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '-'
		}
		return r
	}, name)
	name = truncateRunes(name, maxSheetName)
	candidate := name
	for i := 2; used[strings.ToLower(candidate)]; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		candidate = truncateRunes(name, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

// truncateRunes caps s at n characters; Excel counts sheet name length in
// characters, not bytes.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// note is a labelled group written below the credit and debit columns.
type note struct {
	label string
	rows  []ledger.Row
}

type cell struct {
	ref   string
	value interface{}
}

func setCells(f *excelize.File, sheet string, cells []cell) error {
	for _, c := range cells {
		if err := f.SetCellValue(sheet, c.ref, c.value); err != nil {
			return fmt.Errorf("failed to set %s!%s: %w", sheet, c.ref, err)
		}
	}
	return nil
}

func writeSummary(f *excelize.File, doc ledger.Document) error {
	d := doc.Diagnostics
	cells := []cell{
		{"A1", "Run"}, {"B1", doc.RunID},
		{"A2", "Profile"}, {"B2", doc.Profile},
		{"A3", "Accounts found"}, {"B3", d.AccountsFound},
		{"A4", "Reconciled"}, {"B4", d.AccountsReconciledCleanly},
		{"A5", "Corrected"}, {"B5", d.AccountsCorrected},
		{"A6", "Flagged"}, {"B6", d.AccountsFlagged},
		{"A7", "Unverified"}, {"B7", d.AccountsUnverified},
		{"A8", "Rows"}, {"B8", d.Rows},
	}
	for i, warning := range d.Warnings {
		cells = append(cells, cell{fmt.Sprintf("A%d", 10+i), "Warning"}, cell{fmt.Sprintf("B%d", 10+i), warning})
	}
	return setCells(f, summarySheet, cells)
}

func writeAccountSheet(f *excelize.File, sheet string, r ledger.Report) error {
	title := "Account " + r.AccountID
	if r.Product != "" {
		title += " (" + r.Product + ")"
	}
	cells := []cell{
		{"A1", title},
		{"A3", "Opening balance"}, {"B3", r.Opening.InexactFloat64()},
		{"A4", "Closing balance"}, {"B4", r.Closing.InexactFloat64()},
		{"A5", "Control (must be 0)"},
		{"D3", "State"}, {"E3", string(r.State)},
		{"D4", "Correction"}, {"E4", r.Correction},
		{"D5", "Drift"}, {"E5", r.Drift.InexactFloat64()},
		{"A6", "CREDITS"}, {"E6", "DEBITS"},
		{"A7", "Date"}, {"B7", "Description"}, {"C7", "Amount"},
		{"E7", "Date"}, {"F7", "Description"}, {"G7", "Amount"},
	}
	for i, row := range r.Credits {
		n := firstDataRow + i
		cells = append(cells,
			cell{fmt.Sprintf("A%d", n), row.Date},
			cell{fmt.Sprintf("B%d", n), row.Description},
			cell{fmt.Sprintf("C%d", n), row.Amount.InexactFloat64()},
		)
	}
	for i, row := range r.Debits {
		n := firstDataRow + i
		cells = append(cells,
			cell{fmt.Sprintf("E%d", n), row.Date},
			cell{fmt.Sprintf("F%d", n), row.Description},
			cell{fmt.Sprintf("G%d", n), row.Amount.InexactFloat64()},
		)
	}

	last := firstDataRow + max(len(r.Credits), len(r.Debits), 1) - 1
	next := last + 2
	notes := []note{
		{"UNRESOLVED", r.Unresolved},
		{"EXCLUDED", r.Excluded},
	}
	if r.Adjustment != nil {
		notes = append(notes, note{"ADJUSTMENT", []ledger.Row{*r.Adjustment}})
	}
	for _, group := range notes {
		for _, row := range group.rows {
			cells = append(cells,
				cell{fmt.Sprintf("A%d", next), group.label},
				cell{fmt.Sprintf("B%d", next), row.Date + " " + row.Description},
				cell{fmt.Sprintf("C%d", next), row.Amount.InexactFloat64()},
			)
			next++
		}
	}
	if err := setCells(f, sheet, cells); err != nil {
		return err
	}

	formula := fmt.Sprintf("ROUND(B3+SUM(C%d:C%d)-SUM(G%d:G%d)-B4,2)", firstDataRow, last, firstDataRow, last)
	if err := f.SetCellFormula(sheet, "B5", formula); err != nil {
		return fmt.Errorf("failed to set control formula: %w", err)
	}
	if err := f.SetColWidth(sheet, "B", "B", 45); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "F", "F", 45)
}
