package estimate

import (
	"math"

	"github.com/Simplici0/costestimator/internal/money"
)

// Coerce maps anything that is not a finite, non-negative number to 0.
func Coerce(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// ParseAmount reads a raw form value. Blank, non-numeric and negative input
// all become 0.
func ParseAmount(raw string) float64 {
	v, ok := money.Parse(raw)
	if !ok {
		return 0
	}
	return Coerce(v)
}
