package assembler

import (
	"strings"

	"github.com/insightdelivered/statement-ledger/internal/models"
	"github.com/insightdelivered/statement-ledger/internal/profile"
)

// The row predicates below are evaluated in this order by the scan loop:
// noise, balance line, transaction opening, continuation.

// isNoise matches page headers, footers, boilerplate and column titles.
func isNoise(p *profile.Profile, row models.RawRow) bool {
	return p.Noise.Contains(row.Text)
}

// isBalanceLine matches declared-balance rows the segmenter left behind,
// typically markers printed without a figure.
func isBalanceLine(p *profile.Profile, row models.RawRow) bool {
	return p.OpeningMarkers.Contains(row.Text) || p.ClosingMarkers.Contains(row.Text)
}

// isOpening reports the transaction-opening keyword a row starts a
// description with, if any.
func isOpening(p *profile.Profile, row models.RawRow) (string, bool) {
	return p.Opening.Match(row.Text)
}

// isContinuation matches a plain description row: nothing to skip, no
// opening keyword and no numeric literal.
func isContinuation(p *profile.Profile, row models.RawRow) bool {
	if isNoise(p, row) || isBalanceLine(p, row) {
		return false
	}
	if _, ok := isOpening(p, row); ok {
		return false
	}
	amounts, _ := p.AmountTokens(row.Text, row.Index)
	return len(amounts) == 0
}

// skippable rows never join a transaction.
func skippable(p *profile.Profile, row models.RawRow) bool {
	return isNoise(p, row) || isBalanceLine(p, row)
}

// ownsKeyword reports whether kw already appears in the anchor's description,
// in which case a following row repeating it is not the next transaction.
func ownsKeyword(description, kw string) bool {
	return strings.Contains(profile.Fold(description), profile.Fold(kw))
}
