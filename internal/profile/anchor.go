package profile

import (
	"strings"

	"github.com/insightdelivered/statement-ledger/internal/models"
)

// Anchor is the date-bearing head of a transaction row.
type Anchor struct {
	Date string
	// Rest is the row text after the date token.
	Rest string
}

// IsAnchor reports whether a row starts a transaction: its date must begin no
// further than DateMaxOffset characters into the trimmed row text.
func (p *Profile) IsAnchor(row models.RawRow) (Anchor, bool) {
	text := strings.TrimSpace(row.Text)
	loc := p.Date.FindStringSubmatchIndex(text)
	if loc == nil || loc[0] > p.DateMaxOffset {
		return Anchor{}, false
	}
	date := text[loc[0]:loc[1]]
	if len(loc) >= 4 && loc[2] >= 0 {
		date = text[loc[2]:loc[3]]
	}
	return Anchor{Date: date, Rest: strings.TrimSpace(text[loc[1]:])}, true
}

// AmountTokens splits a line into numeric literals and the remaining words.
// Bare currency symbols and secondary dates (value dates) are dropped.
func (p *Profile) AmountTokens(text string, row int) (amounts []models.Amount, words []string) {
	for _, field := range strings.Fields(text) {
		if a, ok := p.ParseAmount(field); ok {
			a.Row = row
			amounts = append(amounts, a)
			continue
		}
		if p.IsCurrencySymbol(field) || p.isDateToken(field) {
			continue
		}
		words = append(words, field)
	}
	return amounts, words
}

func (p *Profile) isDateToken(field string) bool {
	loc := p.Date.FindStringIndex(field)
	return loc != nil && loc[0] == 0 && loc[1] == len(field)
}
