package models

import "github.com/shopspring/decimal"

// Currency distinguishes local-currency accounts from foreign-currency ones.
type Currency string

const (
	CurrencyLocal   Currency = "local"
	CurrencyForeign Currency = "foreign"
)

// AccountSection is one account found in a statement, with the rows that belong to it.
type AccountSection struct {
	AccountID      string              `json:"accountId"`
	Product        string              `json:"product,omitempty"`
	Currency       Currency            `json:"currency"`
	OpeningBalance decimal.NullDecimal `json:"openingBalance"`
	ClosingBalance decimal.NullDecimal `json:"closingBalance"`
	Rows           []RawRow            `json:"-"`
}

// Opening returns the declared opening balance, or zero when none was declared.
func (a AccountSection) Opening() decimal.Decimal {
	if a.OpeningBalance.Valid {
		return a.OpeningBalance.Decimal
	}
	return decimal.Zero
}
