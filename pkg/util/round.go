package util

import "math"

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Round2 applies the metric-value rounding policy (2 decimal places).
func Round2(v float64) float64 { return Round(v, 2) }

// Round1 applies the percentage/score rounding policy (1 decimal place).
func Round1(v float64) float64 { return Round(v, 1) }

// Round2Ptr rounds a nullable metric, preserving nil.
func Round2Ptr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := Round2(*v)
	return &r
}

// Round1Ptr rounds a nullable percentage, preserving nil.
func Round1Ptr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := Round1(*v)
	return &r
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 { return &v }
