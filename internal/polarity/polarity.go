// Package polarity decides whether each assembled transaction is a debit or a
// credit, threading the running balance through an account in anchor order.
package polarity

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-ledger/internal/models"
	"github.com/insightdelivered/statement-ledger/internal/profile"
)

// DefaultTolerance absorbs rounding and period-boundary noise in balance diffs.
var DefaultTolerance = decimal.NewFromInt(1)

// Resolver turns candidates into signed transactions. Precedence is fixed:
// explicit sign (or a profile whose amount column is signed), then balance
// difference, then keywords, then debit.
type Resolver struct {
	Profile   *profile.Profile
	Tolerance decimal.Decimal
	Log       zerolog.Logger
}

// New returns a resolver; a non-positive tolerance means DefaultTolerance.
func New(p *profile.Profile, tolerance decimal.Decimal, log zerolog.Logger) *Resolver {
	if !tolerance.IsPositive() {
		tolerance = DefaultTolerance
	}
	return &Resolver{Profile: p, Tolerance: tolerance, Log: log}
}

// ResolveAll resolves candidates in order starting from the opening balance,
// which may be unknown.
func (r *Resolver) ResolveAll(cands []models.TransactionCandidate, opening decimal.NullDecimal) []models.Transaction {
	txs := make([]models.Transaction, 0, len(cands))
	balance := opening
	for _, c := range cands {
		var tx models.Transaction
		tx, balance = r.Resolve(c, balance)
		txs = append(txs, tx)
	}
	return txs
}

// Resolve signs one candidate given the balance before it, and returns the
// balance after it. A printed balance token always resynchronises the chain.
func (r *Resolver) Resolve(c models.TransactionCandidate, before decimal.NullDecimal) (models.Transaction, decimal.NullDecimal) {
	tx := models.Transaction{
		Date:        c.Date,
		Description: c.Description(),
		Rows:        c.ConsumedRowIndices,
		Flags:       append([]models.Flag(nil), c.Flags...),
		Method:      models.MethodNone,
	}

	amounts := c.AmountCandidates
	if len(amounts) == 0 {
		tx.RunningBalance = before
		return tx, before
	}

	amount := amounts[0]
	var printed *models.Amount
	if len(amounts) >= 2 {
		amount = amounts[len(amounts)-2]
		printed = &amounts[len(amounts)-1]
	}

	magnitude := amount.Abs()
	var signed decimal.Decimal
	switch {
	case amount.Signed || r.Profile.SignedAmounts:
		signed = amount.Value
		tx.Method = models.MethodExplicitSign
	case printed != nil && before.Valid:
		var ok bool
		signed, ok = r.byBalance(magnitude, before.Decimal, printed.Value)
		if ok {
			tx.Method = models.MethodBalanceDiff
			break
		}
		tx.Flags = append(tx.Flags, models.FlagBalanceMismatch)
		signed = r.byKeyword(magnitude, &tx)
	default:
		signed = r.byKeyword(magnitude, &tx)
	}
	tx.Amount = decimal.NewNullDecimal(signed)

	after := decimal.NullDecimal{}
	switch {
	case printed != nil:
		after = decimal.NewNullDecimal(printed.Value)
		tx.BalancePrinted = true
	case before.Valid:
		after = decimal.NewNullDecimal(before.Decimal.Add(signed))
	}
	tx.RunningBalance = after

	if tx.HasFlag(models.FlagLowConfidence) || tx.HasFlag(models.FlagBalanceMismatch) {
		r.Log.Debug().Str("date", tx.Date).Str("description", tx.Description).
			Str("amount", signed.String()).Str("method", string(tx.Method)).Msg("uncertain polarity")
	}
	return tx, after
}

// byBalance compares both hypotheses against the printed balance. Ties inside
// the tolerance go to debit.
func (r *Resolver) byBalance(magnitude, before, printed decimal.Decimal) (decimal.Decimal, bool) {
	diffDebit := before.Sub(magnitude).Sub(printed).Abs()
	diffCredit := before.Add(magnitude).Sub(printed).Abs()
	switch {
	case diffCredit.LessThan(diffDebit) && diffCredit.LessThan(r.Tolerance):
		return magnitude, true
	case diffDebit.LessThanOrEqual(diffCredit) && diffDebit.LessThan(r.Tolerance):
		return magnitude.Neg(), true
	}
	return decimal.Zero, false
}

// byKeyword scans credit phrases first, then debit phrases; with no match the
// movement is assumed to be an outflow.
func (r *Resolver) byKeyword(magnitude decimal.Decimal, tx *models.Transaction) decimal.Decimal {
	folded := profile.Fold(tx.Description)
	if _, ok := r.Profile.Credit.MatchFolded(folded); ok {
		tx.Method = models.MethodKeyword
		return magnitude
	}
	if _, ok := r.Profile.Debit.MatchFolded(folded); ok {
		tx.Method = models.MethodKeyword
		return magnitude.Neg()
	}
	tx.Method = models.MethodDefault
	tx.Flags = append(tx.Flags, models.FlagLowConfidence)
	return magnitude.Neg()
}
