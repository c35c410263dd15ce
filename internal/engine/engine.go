// Package engine runs the whole reconstruction and reconciliation pipeline
// for one document: normalize, segment, then per account assemble, resolve
// polarity and reconcile.
package engine

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/insightdelivered/statement-ledger/internal/assembler"
	"github.com/insightdelivered/statement-ledger/internal/config"
	"github.com/insightdelivered/statement-ledger/internal/logger"
	"github.com/insightdelivered/statement-ledger/internal/models"
	"github.com/insightdelivered/statement-ledger/internal/normalizer"
	"github.com/insightdelivered/statement-ledger/internal/polarity"
	"github.com/insightdelivered/statement-ledger/internal/profile"
	"github.com/insightdelivered/statement-ledger/internal/reconciler"
	"github.com/insightdelivered/statement-ledger/internal/segmenter"
)

// Options tunes a run.
type Options struct {
	BalanceTolerance   decimal.Decimal
	ReconcileTolerance decimal.Decimal
	PrefixLookahead    int
	RowTolerance       float64
	// MaxParallel bounds how many accounts are processed at once.
	MaxParallel int
}

// DefaultOptions matches the configuration defaults.
func DefaultOptions() Options {
	return Options{
		BalanceTolerance:   polarity.DefaultTolerance,
		ReconcileTolerance: reconciler.DefaultOptions().Tolerance,
		PrefixLookahead:    reconciler.DefaultOptions().PrefixLookahead,
		RowTolerance:       normalizer.DefaultRowTolerance,
		MaxParallel:        4,
	}
}

// OptionsFromConfig converts the engine section of the application config.
func OptionsFromConfig(c config.EngineConfig) Options {
	return Options{
		BalanceTolerance:   decimal.NewFromFloat(c.BalanceTolerance),
		ReconcileTolerance: decimal.NewFromFloat(c.ReconcileTolerance),
		PrefixLookahead:    c.PrefixLookahead,
		RowTolerance:       c.RowTolerance,
		MaxParallel:        c.MaxParallel,
	}
}

// Engine is safe for concurrent use; it holds no per-run state.
type Engine struct {
	registry *profile.Registry
	opts     Options
}

// New returns an engine resolving profiles from reg.
func New(reg *profile.Registry, opts Options) *Engine {
	if opts.MaxParallel < 1 {
		opts.MaxParallel = 1
	}
	return &Engine{registry: reg, opts: opts}
}

// Run processes one document. An empty profileName auto-detects the
// institution from the text. Only a document without text, an unknown
// profile or cancellation return an error; everything else travels as flags
// and warnings in the result.
func (e *Engine) Run(ctx context.Context, pages []normalizer.Page, profileName string) (*models.RunResult, error) {
	runID := uuid.NewString()
	log := logger.FromContext(ctx).With().Str("run_id", runID).Logger()

	rows := normalizer.Normalize(pages, normalizer.Options{RowTolerance: e.opts.RowTolerance})
	if len(rows) == 0 {
		return nil, &models.StructuralError{Reason: fmt.Sprintf("%d page(s) yielded no text", len(pages))}
	}

	p, err := e.resolveProfile(rows, profileName)
	if err != nil {
		return nil, err
	}
	log = log.With().Str("profile", p.Name).Logger()

	seg := segmenter.Segment(rows, p)
	results := make([]models.ReconciliationResult, len(seg.Sections))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.MaxParallel)
	for i, sec := range seg.Sections {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.account(log, p, sec)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	run := &models.RunResult{
		RunID:       runID,
		Profile:     p.Name,
		Accounts:    results,
		Diagnostics: diagnose(rows, seg.Warnings, results),
	}
	d := run.Diagnostics
	log.Info().
		Int("rows", d.Rows).
		Int("accounts", d.AccountsFound).
		Int("reconciled", d.AccountsReconciledCleanly).
		Int("corrected", d.AccountsCorrected).
		Int("flagged", d.AccountsFlagged).
		Int("unverified", d.AccountsUnverified).
		Msg("run complete")
	return run, nil
}

func (e *Engine) resolveProfile(rows []models.RawRow, name string) (*profile.Profile, error) {
	if strings.TrimSpace(name) != "" {
		return e.registry.Get(name)
	}
	texts := make([]string, len(rows))
	for i, r := range rows {
		texts[i] = r.Text
	}
	return e.registry.Detect(strings.Join(texts, "\n"))
}

// account runs the sequential per-account chain. Nothing here is shared with
// other accounts.
func (e *Engine) account(log zerolog.Logger, p *profile.Profile, sec models.AccountSection) models.ReconciliationResult {
	log = log.With().Str("account", sec.AccountID).Logger()

	asm := assembler.New(p, log).Assemble(sec.Rows)
	cands := asm.Candidates
	if p.NewestFirst {
		slices.Reverse(cands)
	}

	txs := polarity.New(p, e.opts.BalanceTolerance, log).ResolveAll(cands, sec.OpeningBalance)
	res := reconciler.Reconcile(sec, txs, reconciler.Options{
		Tolerance:       e.opts.ReconcileTolerance,
		PrefixLookahead: e.opts.PrefixLookahead,
	})
	res.UnclaimedRows = len(asm.Unclaimed)

	ev := log.Info()
	if res.State == models.StateFlagged {
		ev = log.Warn()
	}
	ev.Str("state", string(res.State)).
		Str("correction", res.Correction.String()).
		Str("drift", res.Drift.String()).
		Int("transactions", len(res.Transactions)).
		Int("unclaimed_rows", res.UnclaimedRows).
		Msg("account reconciled")
	return res
}

func diagnose(rows []models.RawRow, warnings []string, results []models.ReconciliationResult) models.Diagnostics {
	d := models.Diagnostics{
		AccountsFound: len(results),
		Rows:          len(rows),
		Warnings:      append([]string(nil), warnings...),
	}
	for _, r := range results {
		id := r.Account.AccountID
		switch r.State {
		case models.StateReconciled:
			d.AccountsReconciledCleanly++
		case models.StateCorrected:
			d.AccountsCorrected++
			d.Warnings = append(d.Warnings, fmt.Sprintf("account %s: drift %s corrected by %s", id, r.Drift, r.Correction))
		case models.StateFlagged:
			d.AccountsFlagged++
			d.Warnings = append(d.Warnings, fmt.Sprintf("account %s: unexplained drift %s, adjustment inserted", id, r.Drift))
		case models.StateUnverified:
			d.AccountsUnverified++
			d.Warnings = append(d.Warnings, fmt.Sprintf("account %s: no closing balance to reconcile against", id))
		}
		if r.UnclaimedRows > 0 {
			d.Warnings = append(d.Warnings, fmt.Sprintf("account %s: %d row(s) not assigned to any transaction", id, r.UnclaimedRows))
		}
	}
	return d
}
