// Package curve provides the sampled-trace and peak records shared by the
// detection, overlap-resolution, and fitting packages, together with
// single-pass trace statistics and deterministic synthetic-trace generation.
package curve

import (
	"github.com/cwbudde/algo-peaks/core"
)

// Curve is an ordered pair of equal-length coordinate/intensity sequences.
// A Curve is immutable by convention: processing stages that need a
// modified trace work on a copy (see Clone).
type Curve struct {
	X []float64
	Y []float64

	XLabel string
	YLabel string
	XUnit  string
	YUnit  string
}

// New validates and wraps coordinate/intensity samples as a Curve.
// X must be strictly increasing; X and Y must have equal, non-zero length.
func New(x, y []float64) (*Curve, error) {
	if len(x) == 0 || len(y) == 0 {
		return nil, core.DataErrorf("empty curve")
	}

	if len(x) != len(y) {
		return nil, core.DataErrorf("curve length mismatch: %d x vs %d y", len(x), len(y))
	}

	for i := 1; i < len(x); i++ {
		if x[i] <= x[i-1] {
			return nil, core.DataErrorf("x not strictly increasing at index %d", i)
		}
	}

	if !core.AllFinite(x) || !core.AllFinite(y) {
		return nil, core.DataErrorf("curve contains non-finite samples")
	}

	return &Curve{X: x, Y: y}, nil
}

// Len returns the number of samples.
func (c *Curve) Len() int {
	return len(c.X)
}

// Span returns the coordinate extent (last x minus first x).
func (c *Curve) Span() float64 {
	if len(c.X) < 2 {
		return 0
	}

	return c.X[len(c.X)-1] - c.X[0]
}

// Clone returns a deep copy with the same labels.
func (c *Curve) Clone() *Curve {
	out := &Curve{
		X:      make([]float64, len(c.X)),
		Y:      make([]float64, len(c.Y)),
		XLabel: c.XLabel,
		YLabel: c.YLabel,
		XUnit:  c.XUnit,
		YUnit:  c.YUnit,
	}

	copy(out.X, c.X)
	copy(out.Y, c.Y)

	return out
}

// Window returns the sub-curve with x in [lo, hi]. The returned slices
// alias the receiver's backing arrays.
func (c *Curve) Window(lo, hi float64) *Curve {
	start := 0
	for start < len(c.X) && c.X[start] < lo {
		start++
	}

	end := len(c.X)
	for end > start && c.X[end-1] > hi {
		end--
	}

	return &Curve{
		X:      c.X[start:end],
		Y:      c.Y[start:end],
		XLabel: c.XLabel,
		YLabel: c.YLabel,
		XUnit:  c.XUnit,
		YUnit:  c.YUnit,
	}
}

// IndexOf returns the index of the sample closest to x.
func (c *Curve) IndexOf(x float64) int {
	if len(c.X) == 0 {
		return -1
	}

	lo, hi := 0, len(c.X)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if c.X[mid] < x {
			lo = mid + 1
		} else {
			hi = mid
		}
	}

	if lo > 0 && x-c.X[lo-1] < c.X[lo]-x {
		return lo - 1
	}

	return lo
}
