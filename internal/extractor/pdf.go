package extractor

import (
	"fmt"
	"math"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"

	"github.com/insightdelivered/statement-ledger/internal/models"
	"github.com/insightdelivered/statement-ledger/internal/normalizer"
)

// PDFPage is one decoded PDF page: its text by rows plus positioned words.
type PDFPage struct {
	Number int
	text   string
	words  []normalizer.Word
}

// ExtractText returns the page text, one visual row per line.
func (p *PDFPage) ExtractText() string { return p.text }

// ExtractWords returns the positioned words of the page, if any were decoded.
func (p *PDFPage) ExtractWords() []normalizer.Word { return p.words }

// OpenPDF decodes a statement PDF into pages. The structured library is tried
// first since it also yields word geometry; when it fails or returns garbage
// the external pdftotext command (poppler-utils) is used for plain text.
// A document with no readable text is a *models.StructuralError.
func OpenPDF(filePath string) ([]normalizer.Page, error) {
	pages, libErr := extractWithLibrary(filePath)
	if libErr == nil && isReadableText(pageTexts(pages)) {
		return pages, nil
	}

	popplerPages, popplerErr := extractWithPdftotext(filePath)
	if popplerErr == nil && isReadableText(popplerPages) {
		return TextPages(popplerPages), nil
	}

	if libErr != nil {
		return nil, &models.StructuralError{Reason: "PDF text extraction failed; the PDF may be image-based or use undecodable fonts", Err: libErr}
	}
	return nil, &models.StructuralError{Reason: "no readable text could be extracted from PDF", Err: popplerErr}
}

// extractWithLibrary uses the ledongthuc/pdf library.
func extractWithLibrary(filePath string) (pages []normalizer.Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PDF library crashed: %v", r)
		}
	}()

	f, r, openErr := pdf.Open(filePath)
	if openErr != nil {
		return nil, openErr
	}
	defer f.Close()

	numPages := r.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pages = append(pages, &PDFPage{
			Number: i,
			text:   pageTextByRow(page),
			words:  pageWords(page),
		})
	}
	return pages, nil
}

// pageTextByRow uses GetTextByRow, which keeps the best layout for
// well-structured PDFs.
func pageTextByRow(page pdf.Page) string {
	rows, err := page.GetTextByRow()
	if err != nil {
		return ""
	}
	var lines []string
	for _, row := range rows {
		var parts []string
		for _, word := range row.Content {
			parts = append(parts, word.S)
		}
		line := strings.TrimSpace(strings.Join(parts, " "))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// pageWords returns the positioned words of a page.
func pageWords(page pdf.Page) []normalizer.Word {
	content := page.Content()
	if len(content.Text) == 0 {
		return nil
	}
	return mergeGlyphs(content.Text, pageTop(page, content.Text))
}

// mergeGlyphs joins glyph runs on the same baseline into words until a space
// glyph or a horizontal gap wider than a quarter of the font size. YTop is
// measured down from top.
func mergeGlyphs(runs []pdf.Text, top float64) []normalizer.Word {
	glyphs := append([]pdf.Text(nil), runs...)
	sort.SliceStable(glyphs, func(a, b int) bool {
		if math.Abs(glyphs[a].Y-glyphs[b].Y) > 0.5 {
			return glyphs[a].Y > glyphs[b].Y // PDF Y grows upwards
		}
		return glyphs[a].X < glyphs[b].X
	})

	var words []normalizer.Word
	var cur *normalizer.Word
	var prev pdf.Text
	flush := func() {
		if cur != nil && strings.TrimSpace(cur.Text) != "" {
			words = append(words, *cur)
		}
		cur = nil
	}
	for _, g := range glyphs {
		if strings.TrimSpace(g.S) == "" {
			flush()
			prev = g
			continue
		}
		gap := g.X - (prev.X + prev.W)
		sameLine := cur != nil && math.Abs(g.Y-prev.Y) <= 0.5
		if !sameLine || gap > math.Max(1, g.FontSize/4) {
			flush()
		}
		if cur == nil {
			cur = &normalizer.Word{XStart: g.X, YTop: top - g.Y}
		}
		cur.Text += g.S
		cur.XEnd = g.X + g.W
		prev = g
	}
	flush()
	return words
}

// pageTop is the page height from its MediaBox, or just above the highest
// glyph when the box is missing.
func pageTop(page pdf.Page, glyphs []pdf.Text) float64 {
	if box := page.V.Key("MediaBox"); box.Len() == 4 {
		if h := box.Index(3).Float64(); h > 0 {
			return h
		}
	}
	top := 0.0
	for _, g := range glyphs {
		top = math.Max(top, g.Y)
	}
	return top + 1
}

// extractWithPdftotext uses the external pdftotext command from poppler-utils
// as a fallback for PDFs that the Go library cannot handle.
func extractWithPdftotext(filePath string) ([]string, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return nil, fmt.Errorf("pdftotext not available: %v", err)
	}

	numPages := 1
	if out, err := exec.Command("pdfinfo", filePath).Output(); err == nil {
		for _, line := range strings.Split(string(out), "\n") {
			if strings.HasPrefix(line, "Pages:") {
				n, parseErr := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Pages:")))
				if parseErr == nil && n > 0 {
					numPages = n
				}
			}
		}
	}

	// one call per page keeps page boundaries
	var pages []string
	for i := 1; i <= numPages; i++ {
		pageStr := strconv.Itoa(i)
		out, err := exec.Command("pdftotext", "-layout", "-f", pageStr, "-l", pageStr, filePath, "-").Output()
		if err != nil {
			continue
		}
		if text := strings.TrimSpace(string(out)); text != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("pdftotext produced no output")
	}
	return pages, nil
}

func pageTexts(pages []normalizer.Page) []string {
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = p.ExtractText()
	}
	return out
}

// textQuality returns the ratio of readable characters to total characters.
// Latin letters with diacritics count as readable since the supported
// statements are Spanish as well as English.
func textQuality(pages []string) float64 {
	total := 0
	readable := 0
	for _, page := range pages {
		for _, r := range page {
			total++
			if r < unicode.MaxLatin1 && (unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)) {
				readable++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(readable) / float64(total)
}

// commonWords appear in virtually every bank statement. Text containing none
// of them is most likely font-encoding garbage.
var commonWords = []string{
	"bank", "account", "balance", "date", "payment", "statement",
	"total", "amount", "credit", "debit", "transaction", "money",
	"opening", "closing", "transfer", "page", "period",
	"banco", "cuenta", "saldo", "fecha", "movimientos", "extracto",
	"debito", "credito", "importe", "resumen",
}

func containsCommonWords(pages []string) bool {
	combined := strings.ToLower(strings.Join(pages, " "))
	for _, word := range commonWords {
		if strings.Contains(combined, word) {
			return true
		}
	}
	return false
}

// isReadableText requires more than 50 characters, over 60% of them readable,
// and at least one recognisable statement word.
func isReadableText(pages []string) bool {
	if totalTextLen(pages) <= 50 {
		return false
	}
	if textQuality(pages) <= 0.6 {
		return false
	}
	return containsCommonWords(pages)
}

func totalTextLen(pages []string) int {
	n := 0
	for _, p := range pages {
		n += len(strings.TrimSpace(p))
	}
	return n
}
