package models

import "github.com/shopspring/decimal"

// Amount is a numeric literal lifted from a statement row.
type Amount struct {
	Value  decimal.Decimal `json:"value"`  // signed as printed
	Signed bool            `json:"signed"` // leading or trailing sign marker present
	Raw    string          `json:"raw"`
	Row    int             `json:"row"`
}

// Abs returns the magnitude of the literal.
func (a Amount) Abs() decimal.Decimal {
	return a.Value.Abs()
}
