package safe

import (
	"math"
)

// DivOr returns a/b, or fallback when b is zero or the result would not be
// finite. Indicator math defines a sentinel for every zero-denominator case,
// so division never propagates NaN/Inf into the hotpath.
func DivOr(a, b, fallback float64) float64 {
	if b == 0 {
		return fallback
	}
	q := a / b
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return fallback
	}
	return q
}

// Clamp bounds v to the closed interval [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Mean returns the arithmetic mean of vs, or 0 for an empty slice.
func Mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

// StdDev returns the population standard deviation of vs.
// Returns 0 for fewer than one sample.
func StdDev(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	mean := Mean(vs)
	var ss float64
	for _, v := range vs {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(vs)))
}

// Finite reports whether v is a usable number (not NaN, not Inf).
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
