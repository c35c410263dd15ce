// Package segmenter slices a statement's rows into account sections and picks
// up each section's declared opening and closing balances.
package segmenter

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-ledger/internal/models"
	"github.com/insightdelivered/statement-ledger/internal/profile"
)

// ImplicitAccountID names the single section of a profile without account headers.
const ImplicitAccountID = "default"

// Result is the outcome of one segmentation pass.
type Result struct {
	Sections []models.AccountSection
	Warnings []string
}

// Segment scans rows once with a current-section cursor. Header rows open (or
// reopen) a section, balance rows record declared balances, section-end rows
// close the cursor. Rows outside any section are dropped.
func Segment(rows []models.RawRow, p *profile.Profile) Result {
	s := &scan{profile: p, byID: make(map[string]int), cur: -1}
	if p.AccountHeader == nil {
		s.openImplicit(rows)
	}
	for _, row := range rows {
		s.feed(row)
	}

	res := Result{Sections: s.sections}
	if len(res.Sections) == 0 {
		res.Warnings = append(res.Warnings, models.WarningNoAccounts)
	}
	return res
}

type scan struct {
	profile  *profile.Profile
	sections []models.AccountSection
	byID     map[string]int
	cur      int // index into sections, -1 when closed
}

func (s *scan) feed(row models.RawRow) {
	p := s.profile
	if p.AccountHeader != nil {
		if m := p.AccountHeader.FindStringSubmatch(row.Text); m != nil {
			s.openHeader(row, m)
			return
		}
	}
	if s.cur < 0 {
		return
	}
	sec := &s.sections[s.cur]

	if p.OpeningMarkers.Contains(row.Text) {
		if amt, ok := p.LastAmount(row.Text); ok && !sec.OpeningBalance.Valid {
			sec.OpeningBalance = decimal.NewNullDecimal(amt.Value)
		}
		return
	}
	if p.ClosingMarkers.Contains(row.Text) {
		// repeated closing lines (per page subtotals) keep the last one
		if amt, ok := p.LastAmount(row.Text); ok {
			sec.ClosingBalance = decimal.NewNullDecimal(amt.Value)
		}
		return
	}
	if p.SectionEnd.Contains(row.Text) {
		s.cur = -1
		return
	}
	sec.Rows = append(sec.Rows, row)
}

func (s *scan) openHeader(row models.RawRow, m []string) {
	re := s.profile.AccountHeader
	var id, product string
	for i, name := range re.SubexpNames() {
		switch name {
		case "id":
			id = strings.TrimSpace(m[i])
		case "product":
			product = strings.TrimSpace(m[i])
		}
	}
	if id == "" {
		id = product
	}
	if id == "" {
		id = strings.TrimSpace(m[0])
	}

	if idx, ok := s.byID[id]; ok {
		s.cur = idx
		return
	}

	currency := models.CurrencyLocal
	if s.profile.ForeignMarkers.Contains(row.Text) {
		currency = models.CurrencyForeign
	}
	s.byID[id] = len(s.sections)
	s.cur = len(s.sections)
	s.sections = append(s.sections, models.AccountSection{
		AccountID: id,
		Product:   product,
		Currency:  currency,
	})
}

// openImplicit opens the one section of a header-less profile. Its currency
// comes from the rows printed before the first transaction.
func (s *scan) openImplicit(rows []models.RawRow) {
	currency := models.CurrencyLocal
	for _, row := range rows {
		if _, ok := s.profile.IsAnchor(row); ok {
			break
		}
		if s.profile.ForeignMarkers.Contains(row.Text) {
			currency = models.CurrencyForeign
			break
		}
	}
	s.sections = append(s.sections, models.AccountSection{
		AccountID: ImplicitAccountID,
		Currency:  currency,
	})
	s.byID[ImplicitAccountID] = 0
	s.cur = 0
}
