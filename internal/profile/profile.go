// Package profile holds the per-institution configuration data the engine runs on:
// date and amount patterns, account header and balance markers, and the keyword
// lists used for noise filtering, transaction openings and polarity.
//
// Profiles are declared in TOML and compiled once; a compiled *Profile is
// read-only and safe to share between goroutines.
package profile

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

// File is the on-disk shape of a profile.
type File struct {
	Name        string       `toml:"name"`
	Institution string       `toml:"institution"`
	Detect      []string     `toml:"detect"`
	Numbers     NumbersSpec  `toml:"numbers"`
	Patterns    PatternsSpec `toml:"patterns"`
	Markers     MarkersSpec  `toml:"markers"`
	Keywords    KeywordsSpec `toml:"keywords"`
	Layout      LayoutSpec   `toml:"layout"`
}

type NumbersSpec struct {
	Decimal         string   `toml:"decimal"`
	Thousands       string   `toml:"thousands"`
	CurrencySymbols []string `toml:"currency_symbols"`
}

type PatternsSpec struct {
	Date          string `toml:"date"`
	DateMaxOffset int    `toml:"date_max_offset"`
	Amount        string `toml:"amount"`
	AccountHeader string `toml:"account_header"`
}

type MarkersSpec struct {
	OpeningBalance  []string `toml:"opening_balance"`
	ClosingBalance  []string `toml:"closing_balance"`
	SectionEnd      []string `toml:"section_end"`
	ForeignCurrency []string `toml:"foreign_currency"`
}

type KeywordsSpec struct {
	TransactionOpening []string `toml:"transaction_opening"`
	Noise              []string `toml:"noise"`
	Credit             []string `toml:"credit"`
	Debit              []string `toml:"debit"`
}

type LayoutSpec struct {
	AmountsPerAnchor int  `toml:"amounts_per_anchor"`
	NewestFirst      bool `toml:"newest_first"`
	SignedAmounts    bool `toml:"signed_amounts"`
}

// Profile is a compiled, immutable institution profile.
type Profile struct {
	Name        string
	Institution string
	Detect      []string

	DecimalSep      string
	ThousandsSep    string
	CurrencySymbols []string

	Date          *regexp.Regexp
	DateMaxOffset int
	Amount        *regexp.Regexp
	// AccountHeader is nil when the whole document is a single account.
	AccountHeader *regexp.Regexp

	OpeningMarkers Keywords
	ClosingMarkers Keywords
	SectionEnd     Keywords
	ForeignMarkers Keywords

	Opening Keywords
	Noise   Keywords
	Credit  Keywords
	Debit   Keywords

	AmountsPerAnchor int
	NewestFirst      bool
	// SignedAmounts means the amount column carries its own sign: a bare
	// figure is a credit.
	SignedAmounts bool
}

const (
	defaultDatePattern   = `(\d{1,2}/\d{1,2}/\d{2,4})`
	defaultDateOffset    = 2
	defaultAmountsNeeded = 2
)

// Parse decodes and compiles one TOML profile.
func Parse(r io.Reader) (*Profile, error) {
	var f File
	if _, err := toml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return Compile(f)
}

// Compile validates a profile file and builds its matchers.
func Compile(f File) (*Profile, error) {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return nil, fmt.Errorf("profile has no name")
	}

	p := &Profile{
		Name:             name,
		Institution:      f.Institution,
		Detect:           f.Detect,
		DecimalSep:       f.Numbers.Decimal,
		ThousandsSep:     f.Numbers.Thousands,
		CurrencySymbols:  sortByLength(f.Numbers.CurrencySymbols),
		DateMaxOffset:    f.Patterns.DateMaxOffset,
		OpeningMarkers:   NewKeywords(f.Markers.OpeningBalance),
		ClosingMarkers:   NewKeywords(f.Markers.ClosingBalance),
		SectionEnd:       NewKeywords(f.Markers.SectionEnd),
		ForeignMarkers:   NewKeywords(f.Markers.ForeignCurrency),
		Opening:          NewKeywords(f.Keywords.TransactionOpening),
		Noise:            NewKeywords(f.Keywords.Noise),
		Credit:           NewKeywords(f.Keywords.Credit),
		Debit:            NewKeywords(f.Keywords.Debit),
		AmountsPerAnchor: f.Layout.AmountsPerAnchor,
		NewestFirst:      f.Layout.NewestFirst,
		SignedAmounts:    f.Layout.SignedAmounts,
	}

	if p.DecimalSep == "" {
		p.DecimalSep = ","
	}
	if p.ThousandsSep == "" {
		p.ThousandsSep = "."
		if p.DecimalSep == "." {
			p.ThousandsSep = ","
		}
	}
	if p.DecimalSep == p.ThousandsSep {
		return nil, fmt.Errorf("profile %s: decimal and thousands separators are both %q", name, p.DecimalSep)
	}
	if p.DateMaxOffset <= 0 {
		p.DateMaxOffset = defaultDateOffset
	}
	if p.AmountsPerAnchor <= 0 {
		p.AmountsPerAnchor = defaultAmountsNeeded
	}

	datePattern := f.Patterns.Date
	if datePattern == "" {
		datePattern = defaultDatePattern
	}
	var err error
	if p.Date, err = regexp.Compile(datePattern); err != nil {
		return nil, fmt.Errorf("profile %s: date pattern: %w", name, err)
	}

	amountPattern := f.Patterns.Amount
	if amountPattern == "" {
		amountPattern = defaultAmountPattern(p.DecimalSep, p.ThousandsSep)
	}
	if p.Amount, err = regexp.Compile(`^(?:` + amountPattern + `)$`); err != nil {
		return nil, fmt.Errorf("profile %s: amount pattern: %w", name, err)
	}

	if f.Patterns.AccountHeader != "" {
		if p.AccountHeader, err = regexp.Compile(f.Patterns.AccountHeader); err != nil {
			return nil, fmt.Errorf("profile %s: account header pattern: %w", name, err)
		}
	}

	return p, nil
}

// defaultAmountPattern matches "1.234,56", "-45,00", "63.670,58-" and "(12,00)"
// for the given separators. Exactly two decimals are required so that years,
// reference numbers and account ids never read as money.
func defaultAmountPattern(dec, thou string) string {
	d, t := regexp.QuoteMeta(dec), regexp.QuoteMeta(thou)
	body := `(?:\d{1,3}(?:` + t + `\d{3})+|\d+)` + d + `\d{2}`
	return `[-+]?` + body + `-?|\(` + body + `\)`
}

func sortByLength(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	// longest first so "U$S" is stripped before "$"
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && len(out[j]) > len(out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
