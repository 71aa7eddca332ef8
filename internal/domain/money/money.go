// Package money holds the small set of decimal helpers shared by the
// matching packages. All amounts are shopspring decimals; floats never
// cross a package boundary.
package money

import "github.com/shopspring/decimal"

// DefaultTolerance is one cent.
var DefaultTolerance = decimal.New(1, -2)

// WithinTolerance reports whether |a - b| <= tol.
func WithinTolerance(a, b, tol decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tol)
}

// IsZero reports whether amount is within tol of zero.
func IsZero(amount, tol decimal.Decimal) bool {
	return amount.Abs().LessThanOrEqual(tol)
}

// Min returns the smaller of a and b.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Canonical renders an amount with exactly two decimal places so that
// "12000", "12000.0" and "12000.00" hash identically.
func Canonical(d decimal.Decimal) string {
	return d.StringFixed(2)
}
