package shape

import (
	"math"

	"github.com/cwbudde/algo-peaks/core"
)

// The EMG model uses the amplitude-stable parameterization
//
//	f(x) = A * (sigma/tau) * sqrt(2*pi) * exp(u) * erfc(v)/2
//	u = (sigma/tau)^2/2 - d/tau
//	v = (sigma/tau - d/sigma) / sqrt(2)
//	d = x - mu
//
// where A is the amplitude of the underlying Gaussian before convolution
// with the one-sided exponential tail. As tau -> 0 the model degrades
// gracefully to A*exp(-d^2/(2 sigma^2)) instead of vanishing, which keeps
// amplitude seeds and bounds meaningful for near-symmetric peaks.
//
// The identity u - v^2 = -d^2/(2 sigma^2) holds exactly and is used
// wherever exp(u)*erfc(v) degenerates numerically: computing u - v^2 in
// floating point would cancel catastrophically for small tau.

// emgTerms returns the shared intermediate quantities of the EMG model.
func emgTerms(vals []float64, x float64) (amp, u, v, z, sigma, tau float64) {
	amp = vals[0]
	d := x - vals[1]
	sigma = core.PositiveWidth(vals[2])
	tau = core.PositiveWidth(vals[3])

	r := sigma / tau
	z = d / sigma
	u = 0.5*r*r - d/tau
	v = (r - z) / math.Sqrt2

	return amp, u, v, z, sigma, tau
}

// evalEMG evaluates the exponentially modified Gaussian.
func evalEMG(vals []float64, x float64) float64 {
	amp, u, v, z, sigma, tau := emgTerms(vals, x)

	return amp * (sigma / tau) * sqrt2Pi * expErfcHalf(u, v, z)
}

// expErfcHalf computes exp(u)*erfc(v)/2 using the asymptotic erfc
// expansion when v is large, with the exact exponent u - v^2 = -z^2/2.
func expErfcHalf(u, v, z float64) float64 {
	if v > 6 {
		e := -0.5 * z * z
		if e < -700 {
			return 0
		}

		return math.Exp(e) / (2 * v * math.SqrtPi) * (1 - 1/(2*v*v))
	}

	if u > 700 {
		return math.Inf(1)
	}

	return 0.5 * math.Exp(u) * math.Erfc(v)
}

// expGaussTerm computes exp(u)*exp(-v^2)/sqrt(pi) = exp(-z^2/2)/sqrt(pi).
func expGaussTerm(z float64) float64 {
	e := -0.5 * z * z
	if e < -700 {
		return 0
	}

	return math.Exp(e) / math.SqrtPi
}

// derivEMG returns the analytic partial derivatives used by the joint
// EMG nonlinear least-squares resolver.
func derivEMG(vals []float64, x float64, i int) float64 {
	amp, u, v, z, sigma, tau := emgTerms(vals, x)

	c := (sigma / tau) * sqrt2Pi
	e := expErfcHalf(u, v, z)

	if i == 0 {
		return c * e
	}

	g := expGaussTerm(z)
	d := x - vals[1]

	var du, dv float64

	switch i {
	case 1: // center
		du = 1 / tau
		dv = 1 / (sigma * math.Sqrt2)

		return amp * c * (du*e - dv*g)
	case 2: // sigma
		du = sigma / (tau * tau)
		dv = (1/tau + d/(sigma*sigma)) / math.Sqrt2

		// The prefactor also carries sigma.
		return amp*c*(du*e-dv*g) + amp*(sqrt2Pi/tau)*e
	case 3: // tau
		du = -sigma*sigma/(tau*tau*tau) + d/(tau*tau)
		dv = -sigma / (tau * tau * math.Sqrt2)

		return amp*c*(du*e-dv*g) - amp*(sigma*sqrt2Pi/(tau*tau))*e
	default:
		return 0
	}
}

// areaEMG is A * sigma * sqrt(2*pi): convolution with the normalized
// exponential tail preserves the underlying Gaussian's area, and in this
// parameterization A stays that Gaussian's amplitude for every tau.
func areaEMG(v []float64) float64 {
	return v[0] * core.PositiveWidth(v[2]) * sqrt2Pi
}
