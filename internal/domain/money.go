package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a currency-less amount in kronor. The zero value is 0.
type Money struct {
	d decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{}

// NewMoney wraps a decimal value.
func NewMoney(d decimal.Decimal) Money {
	return Money{d: d}
}

// MoneyFromInt returns a whole-krona amount.
func MoneyFromInt(v int64) Money {
	return Money{d: decimal.NewFromInt(v)}
}

// MoneyFromFloat converts a float64, as received from JSON numbers.
func MoneyFromFloat(v float64) Money {
	return Money{d: decimal.NewFromFloat(v)}
}

// ParseMoney parses a decimal string. Both "1234.50" and "1234,50" are accepted,
// spaces used as thousands separators are ignored.
func ParseMoney(s string) (Money, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	s = strings.TrimSuffix(s, "kr")
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("ParseMoney: %q: %w", s, err)
	}
	return Money{d: d}, nil
}

// MoneyFromRat converts a BigQuery NUMERIC value. A nil value is zero.
func MoneyFromRat(r *big.Rat) Money {
	if r == nil {
		return Money{}
	}
	d, err := decimal.NewFromString(r.FloatString(9))
	if err != nil {
		return Money{}
	}
	return Money{d: d}
}

func (m Money) Decimal() decimal.Decimal { return m.d }

// Rat returns the amount as *big.Rat for BigQuery NUMERIC columns.
func (m Money) Rat() *big.Rat { return m.d.Rat() }

func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }
func (m Money) Sub(o Money) Money { return Money{d: m.d.Sub(o.d)} }
func (m Money) Neg() Money        { return Money{d: m.d.Neg()} }
func (m Money) Abs() Money        { return Money{d: m.d.Abs()} }

func (m Money) IsZero() bool     { return m.d.IsZero() }
func (m Money) IsNegative() bool { return m.d.IsNegative() }
func (m Money) IsPositive() bool { return m.d.IsPositive() }

// Equal compares by value, so 1.50 equals 1.5.
func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }

func (m Money) Cmp(o Money) int { return m.d.Cmp(o.d) }

// Float64 is used where a float is required (spreadsheet cells, Notion numbers).
func (m Money) Float64() float64 {
	f, _ := m.d.Float64()
	return f
}

// String renders the amount with two decimals.
func (m Money) String() string { return m.d.StringFixed(2) }

// Display renders the amount the way the dashboard shows it, e.g. "500.00kr".
func (m Money) Display() string { return m.String() + "kr" }

// Sum adds all amounts; an empty list sums to zero.
func Sum(amounts ...Money) Money {
	total := Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// MarshalJSON writes the amount as a JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.d.String()), nil
}

// UnmarshalJSON accepts a JSON number, a numeric string or null (zero).
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*m = Money{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*m = Money{}
			return nil
		}
		parsed, err := ParseMoney(s)
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	}
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return fmt.Errorf("Money.UnmarshalJSON: %w", err)
	}
	*m = Money{d: d}
	return nil
}
