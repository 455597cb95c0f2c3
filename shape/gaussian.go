package shape

import (
	"math"

	"github.com/cwbudde/algo-peaks/core"
)

// sqrt2Pi is sqrt(2*pi).
const sqrt2Pi = 2.5066282746310002

// evalGaussian evaluates A * exp(-(x-mu)^2 / (2 sigma^2)).
func evalGaussian(v []float64, x float64) float64 {
	amp, mu := v[0], v[1]
	sigma := core.PositiveWidth(v[2])

	d := (x - mu) / sigma

	return amp * modelExp(-0.5*d*d)
}

func derivGaussian(v []float64, x float64, i int) float64 {
	amp, mu := v[0], v[1]
	sigma := core.PositiveWidth(v[2])

	d := (x - mu) / sigma
	e := modelExp(-0.5 * d * d)

	switch i {
	case 0:
		return e
	case 1:
		return amp * e * d / sigma
	case 2:
		return amp * e * d * d / sigma
	default:
		return 0
	}
}

// areaGaussian is A * sigma * sqrt(2*pi).
func areaGaussian(v []float64) float64 {
	return v[0] * core.PositiveWidth(v[2]) * sqrt2Pi
}

// evalLorentzian evaluates A * gamma^2 / ((x-mu)^2 + gamma^2), where gamma
// is the half width at half maximum.
func evalLorentzian(v []float64, x float64) float64 {
	amp, mu := v[0], v[1]
	gamma := core.PositiveWidth(v[2])

	d := x - mu

	return amp * gamma * gamma / (d*d + gamma*gamma)
}

func derivLorentzian(v []float64, x float64, i int) float64 {
	amp, mu := v[0], v[1]
	gamma := core.PositiveWidth(v[2])

	d := x - mu
	den := d*d + gamma*gamma

	switch i {
	case 0:
		return gamma * gamma / den
	case 1:
		return amp * 2 * gamma * gamma * d / (den * den)
	case 2:
		return amp * 2 * gamma * d * d / (den * den)
	default:
		return 0
	}
}

// areaLorentzian is A * pi * gamma.
func areaLorentzian(v []float64) float64 {
	return v[0] * math.Pi * core.PositiveWidth(v[2])
}

// ln2 is the natural logarithm of 2.
const ln2 = 0.6931471805599453

// evalPseudoVoigt evaluates the linear mix
// A * [(1-eta) * G(x) + eta * L(x)] where both component profiles share the
// same full width at half maximum.
func evalPseudoVoigt(v []float64, x float64) float64 {
	amp, mu := v[0], v[1]
	fwhm := core.PositiveWidth(v[2])
	eta := core.Clamp(v[3], 0, 1)

	d := x - mu

	g := modelExp(-4 * ln2 * d * d / (fwhm * fwhm))
	l := 1 / (1 + 4*d*d/(fwhm*fwhm))

	return amp * ((1-eta)*g + eta*l)
}

// areaPseudoVoigt mixes the closed-form Gaussian and Lorentzian areas for a
// shared FWHM: A*w*[(1-eta)/2 * sqrt(pi/ln2) + eta*pi/2].
func areaPseudoVoigt(v []float64) float64 {
	amp := v[0]
	fwhm := core.PositiveWidth(v[2])
	eta := core.Clamp(v[3], 0, 1)

	gaussPart := 0.5 * math.Sqrt(math.Pi/ln2)
	lorentzPart := math.Pi / 2

	return amp * fwhm * ((1-eta)*gaussPart + eta*lorentzPart)
}

// evalBiGaussian evaluates a Gaussian with distinct left/right sigma.
func evalBiGaussian(v []float64, x float64) float64 {
	amp, mu := v[0], v[1]

	sigma := core.PositiveWidth(v[2])
	if x >= mu {
		sigma = core.PositiveWidth(v[3])
	}

	d := (x - mu) / sigma

	return amp * modelExp(-0.5*d*d)
}

func derivBiGaussian(v []float64, x float64, i int) float64 {
	amp, mu := v[0], v[1]

	left := x < mu

	sigma := core.PositiveWidth(v[3])
	if left {
		sigma = core.PositiveWidth(v[2])
	}

	d := (x - mu) / sigma
	e := modelExp(-0.5 * d * d)

	switch i {
	case 0:
		return e
	case 1:
		return amp * e * d / sigma
	case 2:
		if !left {
			return 0
		}

		return amp * e * d * d / sigma
	case 3:
		if left {
			return 0
		}

		return amp * e * d * d / sigma
	default:
		return 0
	}
}

// areaBiGaussian is A * sqrt(pi/2) * (sigmaL + sigmaR).
func areaBiGaussian(v []float64) float64 {
	return v[0] * math.Sqrt(math.Pi/2) *
		(core.PositiveWidth(v[2]) + core.PositiveWidth(v[3]))
}
