//go:build !fastmath

package shape

import "math"

// modelExp computes e^x using the standard library.
func modelExp(x float64) float64 {
	return math.Exp(x)
}
