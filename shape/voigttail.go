package shape

import (
	"math"

	"github.com/cwbudde/algo-peaks/core"
)

// voigtEta computes the pseudo-Voigt mixing fraction and combined FWHM from
// the Gaussian sigma and Lorentzian gamma using the Thompson-Cox-Hastings
// approximation.
func voigtEta(sigma, gamma float64) (eta, fwhm float64) {
	fg := gaussianFWHMFactor * sigma
	fl := 2 * gamma

	f5 := math.Pow(fg, 5) +
		2.69269*math.Pow(fg, 4)*fl +
		2.42843*math.Pow(fg, 3)*fl*fl +
		4.47163*fg*fg*math.Pow(fl, 3) +
		0.07842*fg*math.Pow(fl, 4) +
		math.Pow(fl, 5)

	fwhm = math.Pow(f5, 0.2)
	if fwhm <= 0 {
		return 0, core.WidthFloor
	}

	r := fl / fwhm
	eta = 1.36603*r - 0.47719*r*r + 0.11116*r*r*r

	return core.Clamp(eta, 0, 1), fwhm
}

// evalVoigtTail evaluates a pseudo-Voigt approximation of the Voigt profile
// plus an additive one-sided exponential tail on the trailing edge.
func evalVoigtTail(v []float64, x float64) float64 {
	amp, mu := v[0], v[1]
	sigma := core.PositiveWidth(v[2])
	gamma := core.PositiveWidth(v[3])
	tailH := v[4]
	tailD := core.PositiveWidth(v[5])

	eta, fwhm := voigtEta(sigma, gamma)

	d := x - mu

	g := modelExp(-4 * ln2 * d * d / (fwhm * fwhm))
	l := 1 / (1 + 4*d*d/(fwhm*fwhm))

	y := amp * ((1-eta)*g + eta*l)

	if d > 0 && tailH > 0 {
		y += tailH * modelExp(-d/tailD)
	}

	return y
}

// areaVoigtTail combines the pseudo-Voigt mixture area with the one-sided
// exponential tail area tailH * tailDecay.
func areaVoigtTail(v []float64) float64 {
	amp := v[0]
	sigma := core.PositiveWidth(v[2])
	gamma := core.PositiveWidth(v[3])
	tailH := v[4]
	tailD := core.PositiveWidth(v[5])

	eta, fwhm := voigtEta(sigma, gamma)

	gaussPart := 0.5 * math.Sqrt(math.Pi/ln2)
	lorentzPart := math.Pi / 2

	area := amp * fwhm * ((1-eta)*gaussPart + eta*lorentzPart)

	if tailH > 0 {
		area += tailH * tailD
	}

	return area
}

// evalPearsonIV evaluates A * [1 + z^2]^(-m) * exp(-nu * atan(z)) with
// z = (x-mu)/w. m controls kurtosis, nu controls skew.
func evalPearsonIV(v []float64, x float64) float64 {
	amp, mu := v[0], v[1]
	w := core.PositiveWidth(v[2])
	m := v[3]
	nu := v[4]

	if m < 0.51 {
		m = 0.51
	}

	z := (x - mu) / w

	return amp * math.Pow(1+z*z, -m) * modelExp(-nu*math.Atan(z))
}

// areaPearsonIV uses the symmetric (nu = 0) closed form
// A * w * sqrt(pi) * Gamma(m - 1/2) / Gamma(m), a documented approximation
// whose skew correction is negligible for the moderate nu seen in practice.
func areaPearsonIV(v []float64) float64 {
	amp := v[0]
	w := core.PositiveWidth(v[2])

	m := v[3]
	if m < 0.51 {
		m = 0.51
	}

	return amp * w * math.SqrtPi * math.Gamma(m-0.5) / math.Gamma(m)
}

// evalNonLinearCurve evaluates a Gaussian with a multiplicative polynomial
// correction: A * exp(-z^2/2) * (1 + c1 z + c2 z^2), z = (x-mu)/sigma.
// The correction is floored at zero so the model never goes negative.
func evalNonLinearCurve(v []float64, x float64) float64 {
	amp, mu := v[0], v[1]
	sigma := core.PositiveWidth(v[2])
	c1, c2 := v[3], v[4]

	z := (x - mu) / sigma

	poly := 1 + c1*z + c2*z*z
	if poly < 0 {
		poly = 0
	}

	return amp * modelExp(-0.5*z*z) * poly
}

// areaNonLinearCurve follows from the Gaussian moments: the z term
// integrates to zero and the z^2 term carries unit variance, giving
// A * sigma * sqrt(2 pi) * (1 + c2).
func areaNonLinearCurve(v []float64) float64 {
	amp := v[0]
	sigma := core.PositiveWidth(v[2])
	c2 := v[4]

	area := amp * sigma * sqrt2Pi * (1 + c2)
	if area < 0 {
		return 0
	}

	return area
}

// evalMixture evaluates a weighted sum of Gaussian components stored as
// consecutive (weight, mean, sigma) triples.
func evalMixture(v []float64, x float64) float64 {
	sum := 0.0

	for i := 0; i+2 < len(v); i += 3 {
		w := v[i]
		if w <= 0 {
			continue
		}

		sigma := core.PositiveWidth(v[i+2])
		d := (x - v[i+1]) / sigma

		sum += w * modelExp(-0.5*d*d)
	}

	return sum
}

// areaMixture sums the component Gaussian areas.
func areaMixture(v []float64) float64 {
	sum := 0.0

	for i := 0; i+2 < len(v); i += 3 {
		if v[i] > 0 {
			sum += v[i] * core.PositiveWidth(v[i+2]) * sqrt2Pi
		}
	}

	return sum
}
