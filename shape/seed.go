package shape

import (
	"github.com/cwbudde/algo-peaks/core"
)

// Extent describes the data region a fit runs over, used to derive
// parameter bounds.
type Extent struct {
	XMin float64
	XMax float64
	YMax float64
}

// Seed builds an initial parameter vector and bounds for one shape from a
// candidate peak's amplitude, center, and width estimate. The bounds keep
// the center inside the data extent, the amplitude within twice the data
// maximum, and every width between the positive floor and the data span.
func Seed(k Kind, amplitude, center, width float64, ext Extent) Params {
	width = core.PositiveWidth(width)

	span := ext.XMax - ext.XMin
	if span <= 0 {
		span = width * 10
	}

	ampHi := 2 * ext.YMax
	if ampHi <= 0 {
		ampHi = 2 * amplitude
	}

	ampBound := Bound{Lo: 0, Hi: ampHi}
	centerBound := Bound{Lo: ext.XMin, Hi: ext.XMax}
	widthBound := Bound{Lo: core.WidthFloor, Hi: span}

	p := Params{Kind: k}

	switch k {
	case Gaussian, Lorentzian:
		p.Values = []float64{amplitude, center, width}
		p.Bounds = []Bound{ampBound, centerBound, widthBound}
	case PseudoVoigt:
		p.Values = []float64{amplitude, center, width * gaussianFWHMFactor, 0.5}
		p.Bounds = []Bound{ampBound, centerBound, widthBound, {Lo: 0, Hi: 1}}
	case EMG:
		p.Values = []float64{amplitude, center, width, width / 2}
		p.Bounds = []Bound{ampBound, centerBound, widthBound, widthBound}
	case BiGaussian:
		p.Values = []float64{amplitude, center, width, width}
		p.Bounds = []Bound{ampBound, centerBound, widthBound, widthBound}
	case VoigtTail:
		p.Values = []float64{amplitude, center, width, width / 2, 0, width}
		p.Bounds = []Bound{
			ampBound, centerBound, widthBound, widthBound,
			{Lo: 0, Hi: ampHi}, widthBound,
		}
	case PearsonIV:
		p.Values = []float64{amplitude, center, width, 1.5, 0}
		p.Bounds = []Bound{
			ampBound, centerBound, widthBound,
			{Lo: 0.51, Hi: 20}, {Lo: -10, Hi: 10},
		}
	case NonLinearCurve:
		p.Values = []float64{amplitude, center, width, 0, 0}
		p.Bounds = []Bound{
			ampBound, centerBound, widthBound,
			{Lo: -1, Hi: 1}, {Lo: -0.5, Hi: 0.5},
		}
	case GaussianMixture:
		p.Components = 1
		p.Values = []float64{amplitude, center, width}
		p.Bounds = []Bound{ampBound, centerBound, widthBound}
	}

	return p
}
