package extractor

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"

	"github.com/insightdelivered/statement-ledger/internal/models"
	"github.com/insightdelivered/statement-ledger/internal/normalizer"
)

func glyph(s string, x, y float64) pdf.Text {
	return pdf.Text{Font: "Helvetica", FontSize: 10, X: x, Y: y, W: 5, S: s}
}

func TestMergeGlyphs(t *testing.T) {
	tests := []struct {
		name string
		runs []pdf.Text
		want []normalizer.Word
	}{
		{
			name: "space glyph splits words",
			runs: []pdf.Text{
				glyph("0", 10, 700), glyph("1", 15, 700), glyph(" ", 20, 700),
				glyph("F", 25, 700), glyph("E", 30, 700), glyph("E", 35, 700),
			},
			want: []normalizer.Word{
				{Text: "01", XStart: 10, XEnd: 20, YTop: 100},
				{Text: "FEE", XStart: 25, XEnd: 40, YTop: 100},
			},
		},
		{
			name: "wide gap splits words",
			runs: []pdf.Text{glyph("1", 10, 700), glyph("2", 15, 700), glyph("3", 30, 700)},
			want: []normalizer.Word{
				{Text: "12", XStart: 10, XEnd: 20, YTop: 100},
				{Text: "3", XStart: 30, XEnd: 35, YTop: 100},
			},
		},
		{
			name: "baseline change splits words",
			runs: []pdf.Text{glyph("A", 10, 700), glyph("B", 15, 690)},
			want: []normalizer.Word{
				{Text: "A", XStart: 10, XEnd: 15, YTop: 100},
				{Text: "B", XStart: 15, XEnd: 20, YTop: 110},
			},
		},
		{
			name: "Y flipped and sorted top to bottom, left to right",
			runs: []pdf.Text{
				glyph("Z", 10, 650),
				glyph("T", 15, 700.3), glyph("S", 10, 700),
			},
			want: []normalizer.Word{
				{Text: "ST", XStart: 10, XEnd: 20, YTop: 100},
				{Text: "Z", XStart: 10, XEnd: 15, YTop: 150},
			},
		},
		{
			name: "only blanks",
			runs: []pdf.Text{glyph(" ", 10, 700), glyph("\t", 15, 700)},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mergeGlyphs(tt.runs, 800))
		})
	}
}

func TestPageTop_WithoutMediaBox(t *testing.T) {
	glyphs := []pdf.Text{glyph("A", 10, 700), glyph("B", 10, 742)}
	assert.Equal(t, 743.0, pageTop(pdf.Page{}, glyphs))
	assert.Equal(t, 1.0, pageTop(pdf.Page{}, nil))
}

func TestIsReadableText(t *testing.T) {
	tests := []struct {
		name  string
		pages []string
		want  bool
	}{
		{
			name:  "english statement",
			pages: []string{"Statement of account\n01/02/2024 Opening balance 1,000.00\n02/02/2024 Card payment 12.50"},
			want:  true,
		},
		{
			name:  "spanish statement",
			pages: []string{"Resumen de cuenta\n01/02/24 SALDO ANTERIOR 1.000,00\n02/02/24 Débito automático 12,50"},
			want:  true,
		},
		{
			name:  "too short",
			pages: []string{"Balance 10.00"},
			want:  false,
		},
		{
			name:  "no statement words",
			pages: []string{strings.Repeat("lorem ipsum dolor sit amet ", 4)},
			want:  false,
		},
		{
			name:  "font garbage",
			pages: []string{strings.Repeat("กขฃคฅฆงจ balance ", 10)},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isReadableText(tt.pages))
		})
	}
}

func TestTextQuality(t *testing.T) {
	assert.Equal(t, 0.0, textQuality(nil))
	assert.Equal(t, 1.0, textQuality([]string{"Saldo 1.000,00"}))
	assert.InDelta(t, 0.5, textQuality([]string{"abกข"}), 1e-9)
}

func TestOpenPDF_MissingFile(t *testing.T) {
	_, err := OpenPDF(filepath.Join(t.TempDir(), "missing.pdf"))
	var structural *models.StructuralError
	assert.True(t, errors.As(err, &structural))
}
