// Package money renders and parses the monetary values shown to users.
// Amounts are computed as float64 and rounded to cents only for display,
// half away from zero.
package money

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Symbol prefixes every formatted currency value.
const Symbol = "$"

// Round returns v rounded to cents.
func Round(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// Amount formats v with exactly two decimals, e.g. "1234.50".
func Amount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0.00"
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}

// Currency formats v as "$1234.50", or "-$5.00" for negative values.
func Currency(v float64) string {
	s := Amount(v)
	if strings.HasPrefix(s, "-") {
		return "-" + Symbol + s[1:]
	}
	return Symbol + s
}

// Parse reads a user-typed number. It accepts a leading currency symbol and
// thousands separators ("$1,250.75"). ok is false when nothing numeric remains.
func Parse(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = strings.TrimSpace(strings.TrimPrefix(s, "-"))
	}
	s = strings.TrimPrefix(s, Symbol)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	if neg {
		d = d.Neg()
	}
	f, _ := d.Float64()
	return f, true
}
