// Package numeric parses the decimal strings exchanges use for prices and
// volumes.
package numeric

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrEmpty is returned for blank input.
var ErrEmpty = errors.New("empty value")

// Decimal parses s as an exact decimal.
func Decimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrEmpty
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return d, nil
}

// Float parses s and converts it to float64.
func Float(s string) (float64, error) {
	d, err := Decimal(s)
	if err != nil {
		return 0, err
	}
	f, _ := d.Float64()
	return f, nil
}

// ChangePercent returns (last-open)/open*100, or false when open is zero.
func ChangePercent(open, last decimal.Decimal) (float64, bool) {
	if open.IsZero() {
		return 0, false
	}
	f, _ := last.Sub(open).Div(open).Mul(decimal.NewFromInt(100)).Float64()
	return f, true
}
