package normalizer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type textPage string

func (p textPage) ExtractText() string { return string(p) }

type wordPage struct {
	text  string
	words []Word
}

func (p wordPage) ExtractText() string  { return p.text }
func (p wordPage) ExtractWords() []Word { return p.words }

func TestNormalize_PlainText(t *testing.T) {
	pages := []Page{
		textPage("01/02/24 OPENING BALANCE 1.000,00\n\n02/02/24   TRANSFER   500,00 1.500,00\r\n"),
		textPage(""),
		textPage("03/02/24 SERVICE FEE\n   120,00   1.380,00"),
	}

	rows := Normalize(pages, Options{})
	require.Len(t, rows, 4)

	tests := []struct {
		text string
		page int
	}{
		{"01/02/24 OPENING BALANCE 1.000,00", 1},
		{"02/02/24 TRANSFER 500,00 1.500,00", 1},
		{"03/02/24 SERVICE FEE", 3},
		{"120,00 1.380,00", 3},
	}
	for i, tt := range tests {
		if rows[i].Text != tt.text {
			t.Errorf("row %d: got %q, want %q", i, rows[i].Text, tt.text)
		}
		if rows[i].Page != tt.page {
			t.Errorf("row %d: got page %d, want %d", i, rows[i].Page, tt.page)
		}
		if rows[i].Index != i {
			t.Errorf("row %d: got index %d", i, rows[i].Index)
		}
	}

	// column offsets survive for plain text
	require.Equal(t, 3.0, rows[3].Tokens[0].XStart)
	require.Len(t, rows[3].Tokens, 2)
}

func TestNormalize_WordGeometry(t *testing.T) {
	page := wordPage{
		text: "ignored when words are present",
		words: []Word{
			{Text: "1.380,00", XStart: 400, XEnd: 440, YTop: 120.8},
			{Text: "FEE", XStart: 110, XEnd: 130, YTop: 100.5},
			{Text: "03/02/24", XStart: 20, XEnd: 60, YTop: 100},
			{Text: "SERVICE", XStart: 70, XEnd: 105, YTop: 101.2},
			{Text: "120,00", XStart: 300, XEnd: 330, YTop: 121},
			{Text: "  ", XStart: 5, XEnd: 6, YTop: 50},
		},
	}

	rows := Normalize([]Page{page}, Options{RowTolerance: 2})
	require.Len(t, rows, 2)
	require.Equal(t, "03/02/24 SERVICE FEE", rows[0].Text)
	require.Equal(t, "120,00 1.380,00", rows[1].Text)
	require.True(t, rows[0].HasGeometry())
	require.Equal(t, 300.0, rows[1].Tokens[0].XStart)
	require.Less(t, rows[0].Y, rows[1].Y)
}

func TestNormalize_WordPageWithoutWordsFallsBackToText(t *testing.T) {
	rows := Normalize([]Page{wordPage{text: "a b\nc"}}, Options{})
	require.Len(t, rows, 2)
	require.Equal(t, "a b", rows[0].Text)
}

func TestNormalize_NoText(t *testing.T) {
	rows := Normalize([]Page{textPage("   \n\t\n")}, Options{})
	require.Empty(t, rows)
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"a  b", []string{"a", "b"}},
		{"\tDébito IVA ", []string{"Débito", "IVA"}},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			tokens := Tokenize(tt.line)
			var got []string
			for _, tok := range tokens {
				got = append(got, tok.Text)
			}
			require.Equal(t, tt.want, got)
		})
	}

	tokens := Tokenize("ab  cd")
	require.Equal(t, 4.0, tokens[1].XStart)
	require.Equal(t, 6.0, tokens[1].XEnd)
}
