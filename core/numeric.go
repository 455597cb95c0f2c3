package core

import "math"

// WidthFloor is the minimum value any width-like parameter (sigma, gamma,
// tau) may take. Widths are clamped to this floor before every model
// evaluation to avoid division by zero.
const WidthFloor = 1e-10

// Clamp limits v to the inclusive range [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}

// ClampInt limits v to the inclusive range [lo, hi].
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}

// PositiveWidth returns w clamped to at least WidthFloor.
func PositiveWidth(w float64) float64 {
	if w < WidthFloor {
		return WidthFloor
	}

	return w
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// AllFinite reports whether every element of data is finite.
func AllFinite(data []float64) bool {
	for _, v := range data {
		if !IsFinite(v) {
			return false
		}
	}

	return true
}
