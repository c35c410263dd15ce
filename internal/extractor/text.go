package extractor

import (
	"os"
	"strings"

	"github.com/insightdelivered/statement-ledger/internal/models"
	"github.com/insightdelivered/statement-ledger/internal/normalizer"
)

// PageBreak separates pages in text pasted or extracted client-side.
const PageBreak = "\n---PAGE_BREAK---\n"

// TextPage is a page that only has plain text.
type TextPage string

// ExtractText returns the page text.
func (t TextPage) ExtractText() string { return string(t) }

// TextPages wraps already-extracted page strings.
func TextPages(texts []string) []normalizer.Page {
	pages := make([]normalizer.Page, 0, len(texts))
	for _, t := range texts {
		pages = append(pages, TextPage(t))
	}
	return pages
}

// SplitPages splits a text blob on sep, dropping empty pages.
func SplitPages(text, sep string) []normalizer.Page {
	var texts []string
	for _, page := range strings.Split(text, sep) {
		if strings.TrimSpace(page) != "" {
			texts = append(texts, page)
		}
	}
	return TextPages(texts)
}

// OpenText reads a plain-text statement; form feeds separate pages.
func OpenText(filePath string) ([]normalizer.Page, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	pages := SplitPages(string(data), "\f")
	if len(pages) == 0 {
		return nil, &models.StructuralError{Reason: "text file " + filePath + " is empty"}
	}
	return pages, nil
}

// Open picks the decoder from the file extension.
func Open(filePath string) ([]normalizer.Page, error) {
	if strings.HasSuffix(strings.ToLower(filePath), ".pdf") {
		return OpenPDF(filePath)
	}
	return OpenText(filePath)
}
