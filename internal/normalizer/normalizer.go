// Package normalizer turns extracted page text, and word geometry where the
// source has it, into one ordered sequence of rows for the whole document.
package normalizer

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/insightdelivered/statement-ledger/internal/models"
)

// Word is one positioned word reported by a text extractor. YTop grows
// downwards from the top of the page.
type Word struct {
	Text   string
	XStart float64
	XEnd   float64
	YTop   float64
}

// Page is the minimum a text extractor must supply for one page.
type Page interface {
	ExtractText() string
}

// WordPage is implemented by pages that also know where each word sits.
type WordPage interface {
	Page
	ExtractWords() []Word
}

// DefaultRowTolerance is the vertical distance, in page units, within which
// words are considered to sit on the same visual line.
const DefaultRowTolerance = 2.0

// Options tunes normalization.
type Options struct {
	RowTolerance float64
}

// Normalize produces the document's rows in top-to-bottom, page-to-page order.
// Pages that yield no text contribute no rows.
func Normalize(pages []Page, opts Options) []models.RawRow {
	tol := opts.RowTolerance
	if tol <= 0 {
		tol = DefaultRowTolerance
	}

	var rows []models.RawRow
	for pageNum, page := range pages {
		var pageRows []models.RawRow
		if wp, ok := page.(WordPage); ok {
			if words := wp.ExtractWords(); len(words) > 0 {
				pageRows = rowsFromWords(words, tol)
			}
		}
		if pageRows == nil {
			pageRows = rowsFromText(page.ExtractText())
		}
		for _, r := range pageRows {
			r.Index = len(rows)
			r.Page = pageNum + 1
			rows = append(rows, r)
		}
	}
	return rows
}

func rowsFromText(text string) []models.RawRow {
	var rows []models.RawRow
	text = strings.ReplaceAll(text, "\r\n", "\n")
	for i, line := range strings.Split(text, "\n") {
		tokens := Tokenize(line)
		if len(tokens) == 0 {
			continue
		}
		rows = append(rows, models.RawRow{
			Y:      float64(i),
			Text:   joinTokens(tokens),
			Tokens: tokens,
		})
	}
	return rows
}

func rowsFromWords(words []Word, tol float64) []models.RawRow {
	ws := make([]Word, 0, len(words))
	for _, w := range words {
		if strings.TrimSpace(w.Text) != "" {
			ws = append(ws, w)
		}
	}
	if len(ws) == 0 {
		return nil
	}
	sort.SliceStable(ws, func(i, j int) bool {
		if ws[i].YTop != ws[j].YTop {
			return ws[i].YTop < ws[j].YTop
		}
		return ws[i].XStart < ws[j].XStart
	})

	var rows []models.RawRow
	start := 0
	for i := 1; i <= len(ws); i++ {
		if i < len(ws) && ws[i].YTop-ws[start].YTop <= tol {
			continue
		}
		rows = append(rows, buildRow(ws[start:i]))
		start = i
	}
	return rows
}

func buildRow(line []Word) models.RawRow {
	sorted := append([]Word(nil), line...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].XStart < sorted[j].XStart })

	tokens := make([]models.Token, 0, len(sorted))
	for _, w := range sorted {
		tokens = append(tokens, models.Token{
			Text:   strings.TrimSpace(w.Text),
			XStart: w.XStart,
			XEnd:   w.XEnd,
		})
	}
	return models.RawRow{
		Y:      line[0].YTop,
		Text:   joinTokens(tokens),
		Tokens: tokens,
	}
}

// Tokenize splits a text line into whitespace-separated tokens whose X extent
// is their character column.
func Tokenize(line string) []models.Token {
	var tokens []models.Token
	col, start := 0, -1
	var b strings.Builder
	flush := func() {
		if start >= 0 {
			tokens = append(tokens, models.Token{Text: b.String(), XStart: float64(start), XEnd: float64(col)})
			b.Reset()
			start = -1
		}
	}
	for len(line) > 0 {
		r, size := utf8.DecodeRuneInString(line)
		line = line[size:]
		if r == ' ' || r == '\t' || r == '\u00a0' || r == '\f' || r == '\v' {
			flush()
		} else {
			if start < 0 {
				start = col
			}
			b.WriteRune(r)
		}
		col++
	}
	flush()
	return tokens
}

func joinTokens(tokens []models.Token) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = t.Text
	}
	return strings.Join(parts, " ")
}
