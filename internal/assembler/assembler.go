// Package assembler regroups an account's rows into transaction candidates,
// one per date-bearing anchor row, pulling in amounts and description
// fragments that the page layout pushed onto neighbouring rows.
package assembler

import (
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/insightdelivered/statement-ledger/internal/models"
	"github.com/insightdelivered/statement-ledger/internal/profile"
)

// Result holds the candidates in anchor order and the rows nobody claimed.
type Result struct {
	Candidates []models.TransactionCandidate
	// Unclaimed lists document indices of non-noise rows left unconsumed.
	Unclaimed []int
}

// Assembler builds candidates for one profile.
type Assembler struct {
	Profile *profile.Profile
	Log     zerolog.Logger
}

// New returns an assembler that logs orphan resolution to log.
func New(p *profile.Profile, log zerolog.Logger) *Assembler {
	return &Assembler{Profile: p, Log: log}
}

// Assemble is a convenience wrapper with logging disabled.
func Assemble(rows []models.RawRow, p *profile.Profile) Result {
	return New(p, zerolog.Nop()).Assemble(rows)
}

// Assemble scans rows in order. Each row ends up in at most one candidate.
func (a *Assembler) Assemble(rows []models.RawRow) Result {
	s := &scan{
		p:        a.Profile,
		log:      a.Log,
		rows:     rows,
		consumed: make([]bool, len(rows)),
		heads:    make(map[int]profile.Anchor),
	}
	for i, row := range rows {
		if isBalanceLine(s.p, row) {
			continue
		}
		if head, ok := s.p.IsAnchor(row); ok {
			s.anchors = append(s.anchors, i)
			s.heads[i] = head
		}
	}

	var res Result
	for i := range s.anchors {
		res.Candidates = append(res.Candidates, s.build(i))
	}
	for i, row := range rows {
		if !s.consumed[i] && !skippable(s.p, row) {
			res.Unclaimed = append(res.Unclaimed, row.Index)
		}
	}
	return res
}

// scan is the accumulator threaded through one assembly pass.
type scan struct {
	p        *profile.Profile
	log      zerolog.Logger
	rows     []models.RawRow
	anchors  []int
	heads    map[int]profile.Anchor
	consumed []bool
}

func (s *scan) isAnchor(i int) bool {
	_, ok := s.heads[i]
	return ok
}

func (s *scan) free(i int) bool {
	return i >= 0 && i < len(s.rows) && !s.consumed[i] && !s.isAnchor(i)
}

func (s *scan) build(n int) models.TransactionCandidate {
	at := s.anchors[n]
	next := len(s.rows)
	if n+1 < len(s.anchors) {
		next = s.anchors[n+1]
	}
	need := s.p.AmountsPerAnchor
	head := s.heads[at]
	anchor := s.rows[at]

	c := models.TransactionCandidate{Date: head.Date, AnchorRow: anchor.Index}
	amounts, inline := s.p.AmountTokens(head.Rest, anchor.Index)
	s.consumed[at] = true
	used := []int{at}

	// prefix rows and the backward orphan-amount row
	prefix := s.prefix(at)
	if len(amounts) < need && s.free(at-1) && !skippable(s.p, s.rows[at-1]) {
		back := s.rows[at-1]
		if amts, _ := s.p.AmountTokens(back.Text, back.Index); len(amts) > 0 {
			amounts = append(amts, amounts...)
			prefix = append(prefix, at-1)
			s.log.Debug().Str("date", c.Date).Int("row", back.Index).Msg("orphan amount above anchor")
		}
	}
	var fragments []string
	for _, r := range prefix {
		_, words := s.p.AmountTokens(s.rows[r].Text, s.rows[r].Index)
		fragments = append(fragments, words...)
		s.consumed[r] = true
		used = append(used, r)
	}
	fragments = append(fragments, inline...)

	// suffix rows, which may also carry orphan amounts
	own := strings.Join(fragments, " ")
	for r := at + 1; r < next; r++ {
		row := s.rows[r]
		if s.consumed[r] || skippable(s.p, row) {
			continue
		}
		if kw, ok := isOpening(s.p, row); ok && !ownsKeyword(own, kw) {
			break
		}
		amts, words := s.p.AmountTokens(row.Text, row.Index)
		if len(amts) > 0 {
			if len(amounts) >= need {
				break
			}
			amounts = append(amounts, amts...)
			s.log.Debug().Str("date", c.Date).Int("row", row.Index).Msg("orphan amount below anchor")
		}
		fragments = append(fragments, words...)
		s.consumed[r] = true
		used = append(used, r)
	}

	c.DescriptionFragments = fragments
	c.AmountCandidates = amounts
	c.ConsumedRowIndices = documentIndices(s.rows, used)

	switch {
	case len(amounts) == 0:
		c.Flags = append(c.Flags, models.FlagAmountMissing)
	case len(amounts) < need:
		c.Flags = append(c.Flags, models.FlagBalanceMissing)
	case len(amounts) > need:
		c.Flags = append(c.Flags, models.FlagExtraAmounts)
	}
	if len(c.Flags) > 0 {
		s.log.Debug().Str("date", c.Date).Int("anchor", c.AnchorRow).Interface("flags", c.Flags).Msg("ambiguous transaction")
	}
	return c
}

// prefix returns the description rows above an anchor: the run from the
// nearest row opening a transaction down to the anchor, or else just the row
// immediately above. Only free, amount-less rows qualify.
func (s *scan) prefix(at int) []int {
	var run []int // descending
	for r := at - 1; s.free(r); r-- {
		row := s.rows[r]
		if skippable(s.p, row) {
			continue
		}
		if amts, _ := s.p.AmountTokens(row.Text, row.Index); len(amts) > 0 {
			break
		}
		run = append(run, r)
		if _, ok := isOpening(s.p, row); ok {
			slices.Reverse(run)
			return run
		}
	}
	if len(run) > 0 && run[0] == at-1 && isContinuation(s.p, s.rows[at-1]) {
		return []int{at - 1}
	}
	return nil
}

func documentIndices(rows []models.RawRow, local []int) []int {
	out := make([]int, len(local))
	for i, r := range local {
		out[i] = rows[r].Index
	}
	slices.Sort(out)
	return out
}
