// Package core provides money parsing and handling utilities.
//
// Amounts are kept in minor units (paisa, cents) and travel as plain decimal
// numbers on the wire, e.g. 15000 or 1250.5.
package core

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when formatting amounts without an explicit currency.
const DefaultCurrency = money.PKR

var amountCleaner = strings.NewReplacer(",", "", "_", "", " ", "")

type Money struct {
	Cents int64
}

// ParseAmount converts a user supplied decimal string to Money.
//
// Thousands separators ("," "_" and spaces) are ignored and values are rounded
// half away from zero to two decimals. Negative values are rejected.
//
// Examples:
//
//	ParseAmount("15,000")   -> 1500000 cents
//	ParseAmount("1250.505") -> 125051 cents
func ParseAmount(s string) (Money, error) {
	s = amountCleaner.Replace(strings.TrimSpace(s))
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return Money{}, fmt.Errorf("%w: negative amount", ErrInvalidAmount)
	}
	return MoneyFromDecimal(d), nil
}

// MoneyFromDecimal rounds d to two decimals.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Shift(2).Round(0).IntPart()}
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

func (m Money) Add(n Money) Money { return Money{Cents: m.Cents + n.Cents} }
func (m Money) Sub(n Money) Money { return Money{Cents: m.Cents - n.Cents} }
func (m Money) IsZero() bool      { return m.Cents == 0 }
func (m Money) IsPositive() bool  { return m.Cents > 0 }
func (m Money) IsNegative() bool  { return m.Cents < 0 }

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Format renders the amount with the currency's symbol and grouping,
// e.g. "₨15,000.00".
func (m Money) Format(currency string) string {
	if currency == "" {
		currency = DefaultCurrency
	}
	return money.New(m.Cents, currency).Display()
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().String()), nil
}

// UnmarshalJSON accepts numbers and numeric strings, which may carry
// thousands separators.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		*m = Money{}
		return nil
	}
	s := amountCleaner.Replace(string(bytes.Trim(data, `"`)))
	if s == "" {
		*m = Money{}
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, data)
	}
	*m = MoneyFromDecimal(d)
	return nil
}
