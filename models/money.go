// Package models contains domain entities and business models for the pricing and credit system
package models

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// MinorUnitPlaces is the number of decimal places of the currency's minor unit.
const MinorUnitPlaces = 2

// Money is a fixed-point monetary amount. All pricing and ledger arithmetic goes
// through this type; binary floating point is never used for money.
type Money struct {
	dec decimal.Decimal
}

// Zero is the zero monetary amount.
var Zero = Money{}

// NewMoney parses a decimal string like "532.00" into a Money.
func NewMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid money amount %q: %w", s, err)
	}
	return Money{dec: d}, nil
}

// MustMoney parses a decimal string and panics on failure. For constants and tests.
func MustMoney(s string) Money {
	m, err := NewMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// MoneyFromInt builds a Money from a whole number of currency units.
func MoneyFromInt(v int64) Money {
	return Money{dec: decimal.NewFromInt(v)}
}

// MoneyFromDecimal wraps a raw decimal as a Money.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{dec: d}
}

// Decimal returns the underlying decimal value.
func (m Money) Decimal() decimal.Decimal {
	return m.dec
}

func (m Money) Add(o Money) Money {
	return Money{dec: m.dec.Add(o.dec)}
}

func (m Money) Sub(o Money) Money {
	return Money{dec: m.dec.Sub(o.dec)}
}

func (m Money) Neg() Money {
	return Money{dec: m.dec.Neg()}
}

// MulInt multiplies by a whole count (e.g. number of adults, nights).
func (m Money) MulInt(n int64) Money {
	return Money{dec: m.dec.Mul(decimal.NewFromInt(n))}
}

// MulRate multiplies by a decimal rate without rounding. Rounding happens exactly
// once, via RoundMinor, when a sub-total is finalized.
func (m Money) MulRate(rate decimal.Decimal) Money {
	return Money{dec: m.dec.Mul(rate)}
}

// RoundMinor rounds half-up to the currency's minor unit.
func (m Money) RoundMinor() Money {
	return Money{dec: m.dec.Round(MinorUnitPlaces)}
}

func (m Money) Cmp(o Money) int {
	return m.dec.Cmp(o.dec)
}

func (m Money) Equal(o Money) bool {
	return m.dec.Equal(o.dec)
}

func (m Money) IsZero() bool {
	return m.dec.IsZero()
}

func (m Money) IsNegative() bool {
	return m.dec.IsNegative()
}

func (m Money) IsPositive() bool {
	return m.dec.IsPositive()
}

// String renders the amount with exactly two decimal places.
func (m Money) String() string {
	return m.dec.StringFixed(MinorUnitPlaces)
}

// Value implements driver.Valuer so Money maps to a numeric column.
func (m Money) Value() (driver.Value, error) {
	return m.dec.Value()
}

// Scan implements sql.Scanner.
func (m *Money) Scan(src any) error {
	return m.dec.Scan(src)
}

// MarshalJSON renders the amount as a JSON string to avoid float coercion.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts both quoted and bare decimal representations.
func (m *Money) UnmarshalJSON(data []byte) error {
	return m.dec.UnmarshalJSON(data)
}
