package profile

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-ledger/internal/models"
)

// ParseAmount converts a single token such as "1.234,56", "$-45,00" or
// "63.670,58-" into an Amount. ok is false when the token is not a numeric
// literal in this profile's format.
func (p *Profile) ParseAmount(token string) (amt models.Amount, ok bool) {
	raw := token
	s := p.stripCurrency(strings.TrimSpace(token))
	s = strings.ReplaceAll(s, " ", "")
	if s == "" || !p.Amount.MatchString(s) {
		return models.Amount{}, false
	}

	negative := false
	signed := false
	switch {
	case strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")"):
		negative, signed = true, true
		s = s[1 : len(s)-1]
	case strings.HasSuffix(s, "-"):
		negative, signed = true, true
		s = strings.TrimSuffix(s, "-")
	}
	switch {
	case strings.HasPrefix(s, "-"):
		negative, signed = true, true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		signed = true
		s = s[1:]
	}

	s = strings.ReplaceAll(s, p.ThousandsSep, "")
	if p.DecimalSep != "." {
		s = strings.ReplaceAll(s, p.DecimalSep, ".")
	}

	v, err := decimal.NewFromString(s)
	if err != nil {
		return models.Amount{}, false
	}
	if negative {
		v = v.Neg()
	}
	return models.Amount{Value: v, Signed: signed, Raw: raw}, true
}

// IsCurrencySymbol reports whether a token is nothing but a currency marker.
func (p *Profile) IsCurrencySymbol(token string) bool {
	t := strings.TrimSpace(token)
	if t == "" {
		return false
	}
	return p.stripCurrency(t) == ""
}

// LastAmount returns the right-most numeric literal in a line of text.
func (p *Profile) LastAmount(text string) (models.Amount, bool) {
	fields := strings.Fields(text)
	for i := len(fields) - 1; i >= 0; i-- {
		if a, ok := p.ParseAmount(fields[i]); ok {
			return a, true
		}
	}
	return models.Amount{}, false
}

func (p *Profile) stripCurrency(s string) string {
	for _, sym := range p.CurrencySymbols {
		s = strings.ReplaceAll(s, sym, "")
	}
	return strings.TrimSpace(s)
}
