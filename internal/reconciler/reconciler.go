// Package reconciler folds an account's signed transactions into a computed
// closing balance, compares it with the declared one and corrects drift.
//
// Each account moves through a small state machine:
//
//	accumulating -> reconciled
//	accumulating -> corrected (prefix removed)
//	accumulating -> flagged   (adjustment inserted)
//	accumulating -> unverified (nothing to compare against)
//
// The terminal result is never changed afterwards.
package reconciler

import (
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-ledger/internal/models"
)

// AdjustmentDescription labels the synthetic entry appended to flagged accounts.
const AdjustmentDescription = "unreconciled balance adjustment"

// Options bounds the drift corrector.
type Options struct {
	Tolerance       decimal.Decimal
	PrefixLookahead int
}

// DefaultOptions are 0.01 currency units and the first five transactions.
func DefaultOptions() Options {
	return Options{Tolerance: decimal.New(1, -2), PrefixLookahead: 5}
}

// Reconcile runs the state machine for one account.
func Reconcile(account models.AccountSection, txs []models.Transaction, opts Options) models.ReconciliationResult {
	if !opts.Tolerance.IsPositive() {
		opts.Tolerance = DefaultOptions().Tolerance
	}
	m := &machine{
		opts: opts,
		res: models.ReconciliationResult{
			Account:      account,
			Transactions: txs,
			State:        models.StateAccumulating,
			Correction:   models.Correction{Kind: models.CorrectionNone},
		},
	}
	m.seedOpening()
	m.accumulate()
	m.settle()
	return m.res
}

type machine struct {
	opts Options
	res  models.ReconciliationResult
}

func (m *machine) flag(f models.Flag) {
	if !m.res.HasFlag(f) {
		m.res.Flags = append(m.res.Flags, f)
	}
}

// seedOpening backs an undeclared opening balance out of the first printed
// running balance, or starts from zero.
func (m *machine) seedOpening() {
	acct := &m.res.Account
	if acct.OpeningBalance.Valid {
		return
	}
	m.flag(models.FlagOpeningMissing)
	for _, tx := range m.res.Transactions {
		if !tx.Amount.Valid {
			continue
		}
		if tx.BalancePrinted {
			acct.OpeningBalance = decimal.NewNullDecimal(tx.RunningBalance.Decimal.Sub(tx.Amount.Decimal))
			return
		}
		break
	}
	acct.OpeningBalance = decimal.NewNullDecimal(decimal.Zero)
}

func (m *machine) accumulate() {
	m.res.ComputedClosingBalance = fold(m.res.Account.Opening(), m.res.Transactions)
}

func (m *machine) settle() {
	declared, ok := m.declaredClosing()
	if !ok {
		m.res.State = models.StateUnverified
		m.flag(models.FlagClosingMissing)
		return
	}
	m.res.DeclaredClosingBalance = declared

	drift := m.res.ComputedClosingBalance.Sub(declared)
	if drift.Abs().LessThan(m.opts.Tolerance) {
		m.res.State = models.StateReconciled
		return
	}
	m.res.Drift = drift
	m.flag(models.FlagDrift)

	if k, ok := m.matchPrefix(drift); ok {
		m.res.Excluded = append([]models.Transaction(nil), m.res.Transactions[:k]...)
		m.res.Transactions = append([]models.Transaction(nil), m.res.Transactions[k:]...)
		m.res.ComputedClosingBalance = fold(m.res.Account.Opening(), m.res.Transactions)
		m.res.State = models.StateCorrected
		m.res.Correction = models.Correction{Kind: models.CorrectionPrefixRemoved, Removed: k}
		return
	}

	m.res.Transactions = append(append([]models.Transaction(nil), m.res.Transactions...), m.adjustment(drift, declared))
	m.res.State = models.StateFlagged
	m.res.Correction = models.Correction{Kind: models.CorrectionAdjustmentInserted}
	m.flag(models.FlagAdjustment)
}

// declaredClosing prefers the statement's declared figure and falls back to
// the last running balance printed on it.
func (m *machine) declaredClosing() (decimal.Decimal, bool) {
	if c := m.res.Account.ClosingBalance; c.Valid {
		return c.Decimal, true
	}
	txs := m.res.Transactions
	for i := len(txs) - 1; i >= 0; i-- {
		if txs[i].BalancePrinted {
			m.flag(models.FlagClosingInferred)
			return txs[i].RunningBalance.Decimal, true
		}
	}
	return decimal.Zero, false
}

// matchPrefix looks for the shortest leading run whose amounts sum to drift.
func (m *machine) matchPrefix(drift decimal.Decimal) (int, bool) {
	txs := m.res.Transactions
	limit := min(m.opts.PrefixLookahead, len(txs))
	sum := decimal.Zero
	for k := 1; k <= limit; k++ {
		if a := txs[k-1].Amount; a.Valid {
			sum = sum.Add(a.Decimal)
		}
		if sum.Sub(drift).Abs().LessThan(m.opts.Tolerance) {
			return k, true
		}
	}
	return 0, false
}

func (m *machine) adjustment(drift, declared decimal.Decimal) models.Transaction {
	date := ""
	if n := len(m.res.Transactions); n > 0 {
		date = m.res.Transactions[n-1].Date
	}
	return models.Transaction{
		Date:           date,
		Description:    AdjustmentDescription,
		Amount:         decimal.NewNullDecimal(drift.Neg()),
		RunningBalance: decimal.NewNullDecimal(declared),
		Method:         models.MethodSynthetic,
		Flags:          []models.Flag{models.FlagAdjustment},
		Synthetic:      true,
	}
}

// fold adds every known, non-synthetic amount to the opening balance.
func fold(opening decimal.Decimal, txs []models.Transaction) decimal.Decimal {
	bal := opening
	for _, tx := range txs {
		if tx.Amount.Valid && !tx.Synthetic {
			bal = bal.Add(tx.Amount.Decimal)
		}
	}
	return bal
}
