//go:build fastmath

package shape

import (
	"github.com/meko-christian/algo-approx"
)

// modelExp computes e^x using a fast polynomial approximation. The model
// evaluation loop is the hottest path of every fit; the approximation error
// stays well below typical fit tolerances.
func modelExp(x float64) float64 {
	return approx.FastExp(x)
}
