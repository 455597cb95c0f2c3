// Package shape defines the parametric peak model families: their named
// parameters with inclusive bounds, evaluation, partial derivatives for
// Jacobian construction, and closed-form area and width relations.
//
// All shapes are dispatched through a single tagged Params value; there is
// no per-shape interface hierarchy. Width-like parameters are clamped to a
// strictly positive floor before every evaluation.
package shape

import (
	"math"

	"github.com/cwbudde/algo-peaks/core"
)

// Kind identifies one peak model family.
type Kind int

// Supported model families.
const (
	Gaussian Kind = iota + 1
	Lorentzian
	PseudoVoigt
	EMG
	BiGaussian
	VoigtTail
	PearsonIV
	NonLinearCurve
	GaussianMixture
)

// String returns the canonical lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case Gaussian:
		return "gaussian"
	case Lorentzian:
		return "lorentzian"
	case PseudoVoigt:
		return "pseudo-voigt"
	case EMG:
		return "emg"
	case BiGaussian:
		return "bi-gaussian"
	case VoigtTail:
		return "voigt-tail"
	case PearsonIV:
		return "pearson-iv"
	case NonLinearCurve:
		return "non-linear-curve"
	case GaussianMixture:
		return "gaussian-mixture-bayesian"
	default:
		return "unknown"
	}
}

// KindByName resolves a canonical shape name. Returns a config error for
// unknown names.
func KindByName(name string) (Kind, error) {
	for k := Gaussian; k <= GaussianMixture; k++ {
		if k.String() == name {
			return k, nil
		}
	}

	return 0, core.ConfigErrorf("unknown shape %q", name)
}

// Bound is one parameter's inclusive range.
type Bound struct {
	Lo float64
	Hi float64
}

// Params is a tagged parameter vector of one shape instance.
//
// Components is only meaningful for GaussianMixture, where the parameter
// vector holds Components consecutive (weight, mean, sigma) triples.
type Params struct {
	Kind       Kind
	Values     []float64
	Bounds     []Bound
	Components int
}

// ParamCount returns the parameter vector length for the kind. components
// is ignored except for GaussianMixture.
func ParamCount(k Kind, components int) int {
	switch k {
	case Gaussian, Lorentzian:
		return 3
	case PseudoVoigt, EMG, BiGaussian:
		return 4
	case PearsonIV, NonLinearCurve:
		return 5
	case VoigtTail:
		return 6
	case GaussianMixture:
		if components < 1 {
			components = 1
		}

		return 3 * components
	default:
		return 0
	}
}

// Names returns the parameter names in vector order.
func (p Params) Names() []string {
	switch p.Kind {
	case Gaussian:
		return []string{"amplitude", "center", "sigma"}
	case Lorentzian:
		return []string{"amplitude", "center", "gamma"}
	case PseudoVoigt:
		return []string{"amplitude", "center", "fwhm", "eta"}
	case EMG:
		return []string{"amplitude", "center", "sigma", "tau"}
	case BiGaussian:
		return []string{"amplitude", "center", "sigma_left", "sigma_right"}
	case VoigtTail:
		return []string{"amplitude", "center", "sigma", "gamma", "tail_height", "tail_decay"}
	case PearsonIV:
		return []string{"amplitude", "center", "width", "shape_m", "skew_nu"}
	case NonLinearCurve:
		return []string{"amplitude", "center", "sigma", "poly_c1", "poly_c2"}
	case GaussianMixture:
		n := ParamCount(p.Kind, p.Components)
		names := make([]string, n)

		for i := 0; i < n/3; i++ {
			names[3*i] = "weight"
			names[3*i+1] = "mean"
			names[3*i+2] = "sigma"
		}

		return names
	default:
		return nil
	}
}

// Clone returns a deep copy of the params.
func (p Params) Clone() Params {
	out := p

	out.Values = make([]float64, len(p.Values))
	copy(out.Values, p.Values)

	if p.Bounds != nil {
		out.Bounds = make([]Bound, len(p.Bounds))
		copy(out.Bounds, p.Bounds)
	}

	return out
}

// Validate checks that the vector length matches the declared kind and the
// bounds, when present, are ordered and cover the values.
func (p Params) Validate() error {
	want := ParamCount(p.Kind, p.Components)
	if want == 0 {
		return core.ConfigErrorf("invalid shape kind %d", p.Kind)
	}

	if len(p.Values) != want {
		return core.ConfigErrorf("%s expects %d parameters, got %d", p.Kind, want, len(p.Values))
	}

	if p.Bounds != nil && len(p.Bounds) != want {
		return core.ConfigErrorf("%s expects %d bounds, got %d", p.Kind, want, len(p.Bounds))
	}

	for i, b := range p.Bounds {
		if b.Lo > b.Hi {
			return core.ConfigErrorf("bound %d inverted: [%g, %g]", i, b.Lo, b.Hi)
		}
	}

	return nil
}

// ClampInPlace limits every value to its bound and enforces the structural
// floors of the kind (non-negative amplitude, strictly positive widths).
// Optimizers call this before every evaluation.
func (p Params) ClampInPlace() {
	for i := range p.Values {
		if i < len(p.Bounds) {
			p.Values[i] = core.Clamp(p.Values[i], p.Bounds[i].Lo, p.Bounds[i].Hi)
		}
	}

	names := p.Names()
	for i, name := range names {
		switch name {
		case "amplitude", "weight", "tail_height":
			if p.Values[i] < 0 {
				p.Values[i] = 0
			}
		case "sigma", "gamma", "tau", "fwhm", "width",
			"sigma_left", "sigma_right", "tail_decay":
			p.Values[i] = core.PositiveWidth(p.Values[i])
		case "eta":
			p.Values[i] = core.Clamp(p.Values[i], 0, 1)
		case "shape_m":
			// Pearson-IV needs m > 1/2 for an integrable peak.
			if p.Values[i] < 0.51 {
				p.Values[i] = 0.51
			}
		}
	}
}

// Eval returns the model intensity at coordinate x.
func Eval(p Params, x float64) float64 {
	switch p.Kind {
	case Gaussian:
		return evalGaussian(p.Values, x)
	case Lorentzian:
		return evalLorentzian(p.Values, x)
	case PseudoVoigt:
		return evalPseudoVoigt(p.Values, x)
	case EMG:
		return evalEMG(p.Values, x)
	case BiGaussian:
		return evalBiGaussian(p.Values, x)
	case VoigtTail:
		return evalVoigtTail(p.Values, x)
	case PearsonIV:
		return evalPearsonIV(p.Values, x)
	case NonLinearCurve:
		return evalNonLinearCurve(p.Values, x)
	case GaussianMixture:
		return evalMixture(p.Values, x)
	default:
		return 0
	}
}

// Derivative returns the partial derivative of the model at x with respect
// to parameter index i. Shapes with cheap analytic gradients use them;
// the rest fall back to a central finite difference.
func Derivative(p Params, x float64, i int) float64 {
	if i < 0 || i >= len(p.Values) {
		return 0
	}

	switch p.Kind {
	case Gaussian:
		return derivGaussian(p.Values, x, i)
	case Lorentzian:
		return derivLorentzian(p.Values, x, i)
	case BiGaussian:
		return derivBiGaussian(p.Values, x, i)
	case EMG:
		return derivEMG(p.Values, x, i)
	default:
		return numericDerivative(p, x, i)
	}
}

// numericDerivative is a central finite difference over parameter i.
func numericDerivative(p Params, x float64, i int) float64 {
	h := 1e-6 * math.Abs(p.Values[i])
	if h < 1e-8 {
		h = 1e-8
	}

	orig := p.Values[i]

	p.Values[i] = orig + h
	hi := Eval(p, x)

	p.Values[i] = orig - h
	lo := Eval(p, x)

	p.Values[i] = orig

	return (hi - lo) / (2 * h)
}

// Area returns the closed-form (or documented approximation of the)
// area under the model.
func Area(p Params) float64 {
	switch p.Kind {
	case Gaussian:
		return areaGaussian(p.Values)
	case Lorentzian:
		return areaLorentzian(p.Values)
	case PseudoVoigt:
		return areaPseudoVoigt(p.Values)
	case EMG:
		return areaEMG(p.Values)
	case BiGaussian:
		return areaBiGaussian(p.Values)
	case VoigtTail:
		return areaVoigtTail(p.Values)
	case PearsonIV:
		return areaPearsonIV(p.Values)
	case NonLinearCurve:
		return areaNonLinearCurve(p.Values)
	case GaussianMixture:
		return areaMixture(p.Values)
	default:
		return 0
	}
}

// FWHM returns the full width at half maximum. Shapes without a closed
// form (EMG, VoigtTail, PearsonIV, NonLinearCurve, GaussianMixture) are
// measured numerically around the mode.
func FWHM(p Params) float64 {
	switch p.Kind {
	case Gaussian:
		return gaussianFWHMFactor * core.PositiveWidth(p.Values[2])
	case Lorentzian:
		return 2 * core.PositiveWidth(p.Values[2])
	case PseudoVoigt:
		return core.PositiveWidth(p.Values[2])
	case BiGaussian:
		return 0.5 * gaussianFWHMFactor *
			(core.PositiveWidth(p.Values[2]) + core.PositiveWidth(p.Values[3]))
	default:
		return numericFWHM(p)
	}
}

// Mode returns the coordinate of the model maximum. For asymmetric shapes
// this is located numerically near the center parameter.
func Mode(p Params) float64 {
	center := p.Center()

	switch p.Kind {
	case Gaussian, Lorentzian, PseudoVoigt, BiGaussian:
		return center
	default:
		return numericMode(p, center)
	}
}

// Center returns the center (location) parameter of the shape. For
// mixtures it returns the weighted mean of component means.
func (p Params) Center() float64 {
	if p.Kind == GaussianMixture {
		wSum, cSum := 0.0, 0.0

		for i := 0; i+2 < len(p.Values); i += 3 {
			wSum += p.Values[i]
			cSum += p.Values[i] * p.Values[i+1]
		}

		if wSum == 0 {
			return 0
		}

		return cSum / wSum
	}

	if len(p.Values) < 2 {
		return 0
	}

	return p.Values[1]
}

// numericMode hill-climbs from the center over a small coordinate grid.
func numericMode(p Params, center float64) float64 {
	w := numericWidthScale(p)

	best, bestVal := center, Eval(p, center)

	const steps = 400

	for i := -steps; i <= steps; i++ {
		x := center + float64(i)*w/100
		if v := Eval(p, x); v > bestVal {
			best, bestVal = x, v
		}
	}

	return best
}

// numericFWHM bisects the half-maximum crossings on both sides of the mode.
func numericFWHM(p Params) float64 {
	mode := Mode(p)

	peak := Eval(p, mode)
	if peak <= 0 {
		return 0
	}

	half := peak / 2
	w := numericWidthScale(p)

	left := crossingSearch(p, mode, -w/50, half)
	right := crossingSearch(p, mode, w/50, half)

	return right - left
}

// crossingSearch walks from the mode in the given step direction until the
// model drops below target, then bisects the bracketing interval.
func crossingSearch(p Params, from, step, target float64) float64 {
	x := from

	for i := 0; i < 10000; i++ {
		next := x + step
		if Eval(p, next) < target {
			lo, hi := x, next
			for j := 0; j < 60; j++ {
				mid := 0.5 * (lo + hi)
				if Eval(p, mid) >= target {
					lo = mid
				} else {
					hi = mid
				}
			}

			return 0.5 * (lo + hi)
		}

		x = next
	}

	return x
}

// numericWidthScale returns a characteristic width for grid sizing.
func numericWidthScale(p Params) float64 {
	names := p.Names()

	w := 0.0
	for i, name := range names {
		switch name {
		case "sigma", "gamma", "tau", "fwhm", "width", "sigma_left", "sigma_right":
			if p.Values[i] > w {
				w = p.Values[i]
			}
		}
	}

	return core.PositiveWidth(w) * 10
}

// gaussianFWHMFactor is 2*sqrt(2*ln 2).
const gaussianFWHMFactor = 2.3548200450309493
