package profile

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Keywords is a case- and accent-insensitive phrase list.
type Keywords struct {
	words  []string
	folded []string
}

// NewKeywords builds a keyword list, dropping blank entries.
func NewKeywords(list []string) Keywords {
	var k Keywords
	for _, w := range list {
		f := Fold(w)
		if strings.TrimSpace(f) == "" {
			continue
		}
		k.words = append(k.words, w)
		k.folded = append(k.folded, f)
	}
	return k
}

// Len returns the number of phrases.
func (k Keywords) Len() int { return len(k.words) }

// Words returns the phrases as configured.
func (k Keywords) Words() []string { return append([]string(nil), k.words...) }

// Match returns the first configured phrase found in text. A phrase must start
// at a word boundary, so "IVA" does not match inside "DERIVADO" while "CRED"
// still matches "CREDITO".
func (k Keywords) Match(text string) (string, bool) {
	if len(k.folded) == 0 {
		return "", false
	}
	return k.MatchFolded(Fold(text))
}

// MatchFolded is Match for text that has already been through Fold.
func (k Keywords) MatchFolded(folded string) (string, bool) {
	for i, kw := range k.folded {
		if containsAtWordStart(folded, kw) {
			return k.words[i], true
		}
	}
	return "", false
}

// Contains reports whether any phrase occurs in text.
func (k Keywords) Contains(text string) bool {
	_, ok := k.Match(text)
	return ok
}

func containsAtWordStart(s, kw string) bool {
	for from := 0; from <= len(s)-len(kw); {
		i := strings.Index(s[from:], kw)
		if i < 0 {
			return false
		}
		i += from
		if i == 0 || !isWordByte(s[i-1]) || !isWordByte(kw[0]) {
			return true
		}
		from = i + 1
	}
	return false
}

func isWordByte(b byte) bool {
	return b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 0x80
}

// Fold upper-cases s and strips diacritics: "Débito" becomes "DEBITO".
func Fold(s string) string {
	// transform chains carry state, so each call builds its own
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToUpper(out)
}
