package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// State is the reconciliation state of one account.
type State string

const (
	StateAccumulating State = "accumulating"
	StateReconciled   State = "reconciled"
	StateCorrected    State = "corrected"
	StateFlagged      State = "flagged"
	// StateUnverified means the statement declared no closing balance and printed
	// no running balance, so there is nothing to reconcile against.
	StateUnverified State = "unverified"
)

// CorrectionKind names the correction the drift corrector applied.
type CorrectionKind string

const (
	CorrectionNone               CorrectionKind = "none"
	CorrectionPrefixRemoved      CorrectionKind = "prefixRemoved"
	CorrectionAdjustmentInserted CorrectionKind = "adjustmentInserted"
)

// Correction describes what the drift corrector did to an account's ledger.
type Correction struct {
	Kind    CorrectionKind `json:"kind"`
	Removed int            `json:"removed,omitempty"`
}

func (c Correction) String() string {
	switch c.Kind {
	case CorrectionPrefixRemoved:
		return fmt.Sprintf("prefixRemoved(%d)", c.Removed)
	case "":
		return string(CorrectionNone)
	default:
		return string(c.Kind)
	}
}

// ReconciliationResult is the terminal artifact for one account.
type ReconciliationResult struct {
	Account                AccountSection  `json:"account"`
	Transactions           []Transaction   `json:"transactions"`
	Excluded               []Transaction   `json:"excluded,omitempty"`
	ComputedClosingBalance decimal.Decimal `json:"computedClosingBalance"`
	DeclaredClosingBalance decimal.Decimal `json:"declaredClosingBalance"`
	Drift                  decimal.Decimal `json:"drift"`
	State                  State           `json:"state"`
	Correction             Correction      `json:"correction"`
	Flags                  []Flag          `json:"flags,omitempty"`
	UnclaimedRows          int             `json:"unclaimedRows"`
}

// HasFlag reports whether f is set on the account result.
func (r ReconciliationResult) HasFlag(f Flag) bool {
	return hasFlag(r.Flags, f)
}

// Diagnostics summarises a whole document run.
type Diagnostics struct {
	AccountsFound             int      `json:"accountsFound"`
	AccountsReconciledCleanly int      `json:"accountsReconciledCleanly"`
	AccountsCorrected         int      `json:"accountsCorrected"`
	AccountsFlagged           int      `json:"accountsFlagged"`
	AccountsUnverified        int      `json:"accountsUnverified"`
	Rows                      int      `json:"rows"`
	Warnings                  []string `json:"warnings,omitempty"`
}

// RunResult is everything one engine run produced for one document.
type RunResult struct {
	RunID       string                 `json:"runId"`
	Profile     string                 `json:"profile"`
	Accounts    []ReconciliationResult `json:"accounts"`
	Diagnostics Diagnostics            `json:"diagnostics"`
}
