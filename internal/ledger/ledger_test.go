package ledger

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/statement-ledger/internal/models"
	"github.com/insightdelivered/statement-ledger/internal/reconciler"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func tx(desc, amount string) models.Transaction {
	return models.Transaction{Date: "01/02/24", Description: desc, Amount: decimal.NewNullDecimal(d(amount))}
}

func account(opening, closing string) models.AccountSection {
	return models.AccountSection{
		AccountID:      "1234",
		Currency:       models.CurrencyLocal,
		OpeningBalance: decimal.NewNullDecimal(d(opening)),
		ClosingBalance: decimal.NewNullDecimal(d(closing)),
	}
}

func TestBuild_Reconciled(t *testing.T) {
	res := reconciler.Reconcile(account("1000", "1335"), []models.Transaction{
		tx("TRANSFER", "500"),
		tx("SERVICE FEE", "-120"),
		tx("TAX WITHHOLDING", "-45"),
		{Date: "05/02/24", Description: "UNKNOWN", Flags: []models.Flag{models.FlagAmountMissing}},
	}, reconciler.DefaultOptions())

	r := Build(res)
	require.Len(t, r.Credits, 1)
	require.Len(t, r.Debits, 2)
	require.Len(t, r.Unresolved, 1)
	assert.Nil(t, r.Adjustment)

	assert.True(t, r.Debits[0].Amount.Equal(d("120")), "debits carry magnitudes")
	assert.True(t, r.TotalCredits.Equal(d("500")))
	assert.True(t, r.TotalDebits.Equal(d("165")))
	assert.True(t, r.Control.IsZero())
	assert.Equal(t, models.StateReconciled, r.State)
	assert.Equal(t, "none", r.Correction)
}

func TestBuild_Corrected(t *testing.T) {
	res := reconciler.Reconcile(account("0", "380"), []models.Transaction{
		tx("CARRIED IN", "1000"),
		tx("TRANSFER", "500"),
		tx("SERVICE FEE", "-120"),
	}, reconciler.DefaultOptions())

	r := Build(res)
	assert.Equal(t, "prefixRemoved(1)", r.Correction)
	require.Len(t, r.Excluded, 1)
	assert.True(t, r.Excluded[0].Amount.Equal(d("1000")))
	assert.True(t, r.Control.IsZero())
	assert.True(t, r.Drift.Equal(d("1000")))
}

func TestBuild_FlaggedControlShowsDrift(t *testing.T) {
	res := reconciler.Reconcile(account("1000", "1366.63"), []models.Transaction{
		tx("TRANSFER", "500"),
		tx("SERVICE FEE", "-120"),
	}, reconciler.DefaultOptions())

	r := Build(res)
	require.NotNil(t, r.Adjustment)
	assert.True(t, r.Adjustment.Amount.Equal(d("-13.37")))
	assert.Len(t, r.Credits, 1)
	assert.Len(t, r.Debits, 1)
	assert.True(t, r.Control.Equal(d("13.37")), "control got %s", r.Control)
	assert.True(t, r.Control.Equal(r.Drift))
}

func TestBuild_ZeroAmountIsDebit(t *testing.T) {
	r := Build(reconciler.Reconcile(account("10", "10"), []models.Transaction{tx("NOTHING", "0")}, reconciler.DefaultOptions()))
	require.Len(t, r.Debits, 1)
	require.Empty(t, r.Credits)
}

func TestBuild_NoMovements(t *testing.T) {
	r := Build(reconciler.Reconcile(account("10", "10"), nil, reconciler.DefaultOptions()))
	require.NotNil(t, r.Credits)
	require.NotNil(t, r.Debits)
	require.Empty(t, r.Credits)
	require.True(t, r.Control.IsZero())
}

type recordingWriter struct {
	got Document
	err error
}

func (w *recordingWriter) Write(out io.Writer, doc Document) error {
	w.got = doc
	_, _ = out.Write([]byte(doc.RunID))
	return w.err
}

func TestEmit(t *testing.T) {
	run := &models.RunResult{
		RunID:   "run-1",
		Profile: "generic",
		Accounts: []models.ReconciliationResult{
			reconciler.Reconcile(account("0", "5"), []models.Transaction{tx("A", "5")}, reconciler.DefaultOptions()),
			reconciler.Reconcile(account("0", "0"), nil, reconciler.DefaultOptions()),
		},
		Diagnostics: models.Diagnostics{AccountsFound: 2},
	}

	var buf bytes.Buffer
	w := &recordingWriter{}
	require.NoError(t, Emit(&buf, run, w))
	assert.Equal(t, "run-1", buf.String())
	assert.Len(t, w.got.Reports, 2)
	assert.Equal(t, 2, w.got.Diagnostics.AccountsFound)

	boom := errors.New("disk full")
	require.ErrorIs(t, Emit(&buf, run, &recordingWriter{err: boom}), boom)
}
