package utils

import "math"

// Max returns the maximum of two integers
func Max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// ClampFloat64 clamps a float64 value between min and max
func ClampFloat64(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// ClampVector clamps each component of v into [bounds[i][0], bounds[i][1]] in place.
func ClampVector(v []float64, bounds [][2]float64) {
	for i := range v {
		v[i] = ClampFloat64(v[i], bounds[i][0], bounds[i][1])
	}
}

// Lerp maps t in [0, 1] onto [lo, hi].
func Lerp(lo, hi, t float64) float64 {
	return lo + t*(hi-lo)
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
