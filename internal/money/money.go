// Package money holds the fixed-point helpers shared by pricing, payment and
// storage code. All amounts are shopspring decimals rounded to cents.
package money

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Places is the number of decimal places kept for currency values.
const Places = 2

// ErrInvalidAmount is returned by Parse for malformed amounts.
var ErrInvalidAmount = errors.New("invalid amount")

// Bounds of a user-entered amount.
const (
	maxAmountDigits = 12
	maxAmountScale  = 6
)

// Round rounds d to cents, half away from zero. For the non-negative
// amounts the storefront prices this is round-half-up.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Mul multiplies a and b and rounds the product to cents.
func Mul(a, b decimal.Decimal) decimal.Decimal {
	return Round(a.Mul(b))
}

// Sum adds the given amounts and rounds the result to cents.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return Round(total)
}

// Parse reads a user-entered amount such as "12.50" or "$12.50". It rejects
// negative values and more than two decimal places.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.ContainsAny(s, "eE") {
		return decimal.Zero, errors.Wrap(ErrInvalidAmount, "exponent notation")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Wrap(ErrInvalidAmount, err.Error())
	}
	if !Within(d, maxAmountDigits, maxAmountScale) {
		return decimal.Zero, errors.Wrap(ErrInvalidAmount, "out of range")
	}
	if d.IsNegative() {
		return decimal.Zero, errors.Wrap(ErrInvalidAmount, "negative")
	}
	if d.Exponent() < -Places && !d.Equal(Round(d)) {
		return decimal.Zero, errors.Wrap(ErrInvalidAmount, "more than two decimal places")
	}
	return Round(d), nil
}

// Within reports whether d has at most intDigits digits before the decimal
// point and at most scale digits after it. It reads the coefficient and
// exponent only, so huge exponents are never expanded.
func Within(d decimal.Decimal, intDigits, scale int) bool {
	exp := int(d.Exponent())
	if exp < -scale {
		return false
	}
	return d.NumDigits()+exp <= intDigits
}

// Format renders d with exactly two decimal places.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Places)
}
