package util

import (
	"math"
	"strconv"
)

// SafeDiv divides n by d, returning 0 when d is (close to) zero.
func SafeDiv(n, d float64) float64 {
	const eps = 1e-12
	if d > eps || d < -eps {
		return n / d
	}
	return 0
}

// Finite reports whether x is neither NaN nor ±Inf.
func Finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// FmtFloat formats x with the shortest representation that round-trips.
func FmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

// InRange reports whether v lies in the closed interval [lo, hi].
func InRange(v, lo, hi int) bool {
	return v >= lo && v <= hi
}
