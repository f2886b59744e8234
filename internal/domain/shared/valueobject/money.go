// Package valueobject holds small immutable values shared by the business modules.
package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Money is an amount in Brazilian reais. All operations return new values.
type Money struct {
	amount decimal.Decimal
}

var brPrinter = message.NewPrinter(language.BrazilianPortuguese)

// NewMoney wraps a decimal amount
func NewMoney(amount decimal.Decimal) Money {
	return Money{amount: amount}
}

// NewMoneyFromString parses a decimal string such as "19.90"
func NewMoneyFromString(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Money{amount: d}, nil
}

// NewMoneyFromCents builds an amount from an integer number of cents
func NewMoneyFromCents(cents int64) Money {
	return Money{amount: decimal.New(cents, -2)}
}

// ZeroMoney is R$ 0,00
func ZeroMoney() Money {
	return Money{amount: decimal.Zero}
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) IsZero() bool            { return m.amount.IsZero() }
func (m Money) IsNegative() bool        { return m.amount.IsNegative() }
func (m Money) IsPositive() bool        { return m.amount.IsPositive() }

func (m Money) Add(o Money) Money { return Money{amount: m.amount.Add(o.amount)} }
func (m Money) Sub(o Money) Money { return Money{amount: m.amount.Sub(o.amount)} }

// Mul multiplies by a factor such as a quantity or a rate
func (m Money) Mul(factor decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(factor)}
}

// MulInt multiplies by an integer quantity
func (m Money) MulInt(n int64) Money {
	return m.Mul(decimal.NewFromInt(n))
}

// Round rounds half away from zero to cents
func (m Money) Round() Money {
	return Money{amount: m.amount.Round(2)}
}

// Max returns the larger of m and o
func (m Money) Max(o Money) Money {
	if m.amount.GreaterThanOrEqual(o.amount) {
		return m
	}
	return o
}

func (m Money) GreaterThan(o Money) bool        { return m.amount.GreaterThan(o.amount) }
func (m Money) GreaterThanOrEqual(o Money) bool { return m.amount.GreaterThanOrEqual(o.amount) }
func (m Money) LessThan(o Money) bool           { return m.amount.LessThan(o.amount) }
func (m Money) Equal(o Money) bool              { return m.amount.Equal(o.amount) }

// Ratio returns m/o rounded to 4 places, or zero when o is zero
func (m Money) Ratio(o Money) decimal.Decimal {
	if o.amount.IsZero() {
		return decimal.Zero
	}
	return m.amount.Div(o.amount).Round(4)
}

// String returns the plain decimal representation with two places
func (m Money) String() string {
	return m.amount.StringFixed(2)
}

// Format renders the amount for customers, e.g. "R$ 1.234,50"
func (m Money) Format() string {
	f, _ := m.amount.Round(2).Float64()
	return "R$ " + brPrinter.Sprintf("%.2f", f)
}

// MarshalJSON encodes the amount as a decimal string
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.amount.StringFixed(2))
}

// UnmarshalJSON accepts a decimal string or number
func (m *Money) UnmarshalJSON(data []byte) error {
	return m.amount.UnmarshalJSON(data)
}

// Value implements driver.Valuer
func (m Money) Value() (driver.Value, error) {
	return m.amount.Value()
}

// Scan implements sql.Scanner
func (m *Money) Scan(value any) error {
	if value == nil {
		return errors.New("money: cannot scan NULL")
	}
	return m.amount.Scan(value)
}

// SumMoney adds up a list of amounts
func SumMoney(values ...Money) Money {
	total := ZeroMoney()
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
