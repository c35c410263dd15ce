package models

// Token is one word of a row with its horizontal extent on the page.
// Plain-text sources use character offsets for XStart/XEnd.
type Token struct {
	Text   string  `json:"text"`
	XStart float64 `json:"xStart"`
	XEnd   float64 `json:"xEnd"`
}

// RawRow is one logical line of statement text.
type RawRow struct {
	Index  int     `json:"index"` // position in the normalized document
	Page   int     `json:"page"`
	Y      float64 `json:"y"` // vertical position within the page, top to bottom
	Text   string  `json:"text"`
	Tokens []Token `json:"tokens,omitempty"`
}

// HasGeometry reports whether the row tokens carry real page coordinates.
func (r RawRow) HasGeometry() bool {
	return len(r.Tokens) > 0 && r.Tokens[len(r.Tokens)-1].XEnd > 0
}
