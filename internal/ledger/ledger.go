// Package ledger is the boundary between the engine and report writers. It
// splits each reconciled account into credit and debit rows and computes the
// control value a report shows next to them.
package ledger

import (
	"io"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-ledger/internal/models"
)

// Row is one report line. Amount is a positive magnitude inside the credit
// and debit groups and signed everywhere else.
type Row struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Flags       []models.Flag   `json:"flags,omitempty"`
}

// Report is what a writer receives for one account.
type Report struct {
	AccountID    string          `json:"accountId"`
	Product      string          `json:"product,omitempty"`
	Currency     models.Currency `json:"currency"`
	Opening      decimal.Decimal `json:"opening"`
	Closing      decimal.Decimal `json:"closing"`
	Credits      []Row           `json:"credits"`
	Debits       []Row           `json:"debits"`
	Unresolved   []Row           `json:"unresolved,omitempty"`
	Adjustment   *Row            `json:"adjustment,omitempty"`
	Excluded     []Row           `json:"excluded,omitempty"`
	TotalCredits decimal.Decimal `json:"totalCredits"`
	TotalDebits  decimal.Decimal `json:"totalDebits"`
	// Control is Opening + TotalCredits - TotalDebits - Closing: zero once
	// reconciled or corrected, the drift when flagged.
	Control    decimal.Decimal `json:"control"`
	Drift      decimal.Decimal `json:"drift"`
	State      models.State    `json:"state"`
	Correction string          `json:"correction"`
	Flags      []models.Flag   `json:"flags,omitempty"`
	Unclaimed  int             `json:"unclaimedRows"`
}

// Build partitions one result. Transactions without an amount go to
// Unresolved; the synthetic adjustment is reported on its own.
func Build(res models.ReconciliationResult) Report {
	r := Report{
		AccountID:    res.Account.AccountID,
		Product:      res.Account.Product,
		Currency:     res.Account.Currency,
		Opening:      res.Account.Opening(),
		Closing:      res.DeclaredClosingBalance,
		Credits:      []Row{},
		Debits:       []Row{},
		TotalCredits: decimal.Zero,
		TotalDebits:  decimal.Zero,
		Drift:        res.Drift,
		State:        res.State,
		Correction:   res.Correction.String(),
		Flags:        res.Flags,
		Unclaimed:    res.UnclaimedRows,
	}
	if res.State == models.StateUnverified {
		r.Closing = res.ComputedClosingBalance
	}

	for _, tx := range res.Transactions {
		switch {
		case tx.Synthetic:
			row := signedRow(tx)
			r.Adjustment = &row
		case !tx.Amount.Valid:
			r.Unresolved = append(r.Unresolved, signedRow(tx))
		case tx.IsCredit():
			r.Credits = append(r.Credits, magnitudeRow(tx))
			r.TotalCredits = r.TotalCredits.Add(tx.Amount.Decimal)
		default:
			r.Debits = append(r.Debits, magnitudeRow(tx))
			r.TotalDebits = r.TotalDebits.Add(tx.Amount.Decimal.Abs())
		}
	}
	for _, tx := range res.Excluded {
		r.Excluded = append(r.Excluded, signedRow(tx))
	}

	r.Control = r.Opening.Add(r.TotalCredits).Sub(r.TotalDebits).Sub(r.Closing).Round(2)
	return r
}

func magnitudeRow(tx models.Transaction) Row {
	return Row{Date: tx.Date, Description: tx.Description, Amount: tx.Amount.Decimal.Abs(), Flags: tx.Flags}
}

func signedRow(tx models.Transaction) Row {
	return Row{Date: tx.Date, Description: tx.Description, Amount: tx.Amount.Decimal, Flags: tx.Flags}
}

// Document is a whole run, ready for a writer.
type Document struct {
	RunID       string             `json:"runId"`
	Profile     string             `json:"profile"`
	Reports     []Report           `json:"reports"`
	Diagnostics models.Diagnostics `json:"diagnostics"`
}

// NewDocument builds one report per account, in account order.
func NewDocument(run *models.RunResult) Document {
	doc := Document{
		RunID:       run.RunID,
		Profile:     run.Profile,
		Reports:     make([]Report, 0, len(run.Accounts)),
		Diagnostics: run.Diagnostics,
	}
	for _, res := range run.Accounts {
		doc.Reports = append(doc.Reports, Build(res))
	}
	return doc
}

// Writer is the report-writing collaborator.
type Writer interface {
	Write(w io.Writer, doc Document) error
}

// Emit builds the document for run and hands it to wr.
func Emit(w io.Writer, run *models.RunResult, wr Writer) error {
	return wr.Write(w, NewDocument(run))
}
