package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Flag annotates a transaction or an account with a recoverable issue.
type Flag string

const (
	// Assembly ambiguity.
	FlagAmountMissing  Flag = "amount_missing"
	FlagBalanceMissing Flag = "balance_missing"
	FlagExtraAmounts   Flag = "extra_amounts"

	// Polarity uncertainty.
	FlagLowConfidence   Flag = "low_confidence"
	FlagBalanceMismatch Flag = "balance_mismatch"

	// Account level.
	FlagOpeningMissing  Flag = "opening_missing"
	FlagClosingInferred Flag = "closing_inferred"
	FlagClosingMissing  Flag = "closing_missing"
	FlagDrift           Flag = "reconciliation_drift"
	FlagAdjustment      Flag = "synthetic_adjustment"
)

// PolarityMethod records which rule decided the sign of a transaction.
type PolarityMethod string

const (
	MethodExplicitSign PolarityMethod = "explicit_sign"
	MethodBalanceDiff  PolarityMethod = "balance_diff"
	MethodKeyword      PolarityMethod = "keyword"
	MethodDefault      PolarityMethod = "default_debit"
	MethodNone         PolarityMethod = "none"
	MethodSynthetic    PolarityMethod = "synthetic"
)

// TransactionCandidate accumulates the pieces of one transaction during assembly.
type TransactionCandidate struct {
	Date                 string   `json:"date"`
	AnchorRow            int      `json:"anchorRow"`
	DescriptionFragments []string `json:"descriptionFragments"`
	AmountCandidates     []Amount `json:"amountCandidates"`
	ConsumedRowIndices   []int    `json:"consumedRowIndices"`
	Flags                []Flag   `json:"flags,omitempty"`
}

// Description joins the fragments into a single trimmed description.
func (c TransactionCandidate) Description() string {
	return strings.Join(strings.Fields(strings.Join(c.DescriptionFragments, " ")), " ")
}

// Transaction is a finalized ledger entry. Positive amounts are credits.
type Transaction struct {
	Date           string              `json:"date"`
	Description    string              `json:"description"`
	Amount         decimal.NullDecimal `json:"amount"`
	RunningBalance decimal.NullDecimal `json:"runningBalance"`
	BalancePrinted bool                `json:"balancePrinted,omitempty"` // RunningBalance was read from the statement
	Method         PolarityMethod      `json:"method"`
	Rows           []int               `json:"rows,omitempty"`
	Flags          []Flag              `json:"flags,omitempty"`
	Synthetic      bool                `json:"synthetic,omitempty"`
}

// IsCredit reports whether the transaction adds money to the account.
func (t Transaction) IsCredit() bool {
	return t.Amount.Valid && t.Amount.Decimal.IsPositive()
}

// IsDebit reports whether the transaction takes money out of the account.
func (t Transaction) IsDebit() bool {
	return t.Amount.Valid && t.Amount.Decimal.IsNegative()
}

// HasFlag reports whether f is set on the transaction.
func (t Transaction) HasFlag(f Flag) bool {
	return hasFlag(t.Flags, f)
}

func hasFlag(flags []Flag, f Flag) bool {
	for _, x := range flags {
		if x == f {
			return true
		}
	}
	return false
}
