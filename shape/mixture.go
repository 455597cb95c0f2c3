package shape

import (
	"math"

	"github.com/cwbudde/algo-peaks/core"
)

// MixtureConfig holds the variational EM settings for fitting a Gaussian
// mixture to an intensity trace.
type MixtureConfig struct {
	Components    int
	MaxIterations int
	Tolerance     float64

	// PriorMass is the pseudo-count added to every component's
	// responsibility mass. It keeps weak components from collapsing and is
	// the variational counterpart of a symmetric Dirichlet weight prior.
	PriorMass float64

	// MinSigma floors component widths during the M-step.
	MinSigma float64
}

func normalizeMixtureConfig(cfg MixtureConfig) MixtureConfig {
	if cfg.Components < 1 {
		cfg.Components = 1
	}

	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 200
	}

	if cfg.Tolerance <= 0 {
		cfg.Tolerance = 1e-6
	}

	if cfg.PriorMass <= 0 {
		cfg.PriorMass = 1e-3
	}

	if cfg.MinSigma <= 0 {
		cfg.MinSigma = core.WidthFloor
	}

	return cfg
}

// FitMixture fits a K-component Gaussian mixture to the intensity trace by
// variational expectation-maximization, treating each sample's intensity as
// observation mass at its coordinate. Initial components are spread evenly
// over the coordinate range.
//
// The returned params hold (weight, mean, sigma) triples where weight is
// the component's peak amplitude.
func FitMixture(x, y []float64, cfg MixtureConfig) (Params, error) {
	cfg = normalizeMixtureConfig(cfg)
	k := cfg.Components

	if len(x) != len(y) {
		return Params{}, core.DataErrorf("mixture input length mismatch: %d vs %d", len(x), len(y))
	}

	if len(x) < 3*k {
		return Params{}, core.DataErrorf("mixture needs at least %d samples for %d components, got %d",
			3*k, k, len(x))
	}

	totalMass := 0.0
	for _, v := range y {
		if v > 0 {
			totalMass += v
		}
	}

	if totalMass <= 0 {
		return Params{}, core.DataErrorf("mixture input has no positive intensity")
	}

	span := x[len(x)-1] - x[0]
	if span <= 0 {
		return Params{}, core.DataErrorf("mixture coordinates are degenerate")
	}

	// Even spread initialization.
	weight := make([]float64, k) // mass fraction per component
	mean := make([]float64, k)
	sigma := make([]float64, k)

	for j := 0; j < k; j++ {
		weight[j] = 1 / float64(k)
		mean[j] = x[0] + span*(float64(j)+0.5)/float64(k)
		sigma[j] = span / float64(4*k)
	}

	resp := make([]float64, k)
	massK := make([]float64, k)
	sumX := make([]float64, k)
	sumXX := make([]float64, k)

	for iter := 0; iter < cfg.MaxIterations; iter++ {
		core.Zero(massK)
		core.Zero(sumX)
		core.Zero(sumXX)

		// E-step folded into mass accumulation: each positive sample
		// distributes its intensity over components by normalized density.
		for i, xi := range x {
			m := y[i]
			if m <= 0 {
				continue
			}

			total := 0.0

			for j := 0; j < k; j++ {
				d := (xi - mean[j]) / sigma[j]
				r := weight[j] * math.Exp(-0.5*d*d) / sigma[j]
				resp[j] = r
				total += r
			}

			if total <= 0 {
				continue
			}

			for j := 0; j < k; j++ {
				rm := m * resp[j] / total
				massK[j] += rm
				sumX[j] += rm * xi
				sumXX[j] += rm * xi * xi
			}
		}

		// M-step with the variational pseudo-mass keeping components alive.
		maxDelta := 0.0

		for j := 0; j < k; j++ {
			mk := massK[j] + cfg.PriorMass

			newWeight := mk / (totalMass + float64(k)*cfg.PriorMass)
			newMean := (sumX[j] + cfg.PriorMass*mean[j]) / mk

			variance := (sumXX[j]+cfg.PriorMass*(sigma[j]*sigma[j]+mean[j]*mean[j]))/mk - newMean*newMean
			if variance < cfg.MinSigma*cfg.MinSigma {
				variance = cfg.MinSigma * cfg.MinSigma
			}

			newSigma := math.Sqrt(variance)

			maxDelta = math.Max(maxDelta, math.Abs(newWeight-weight[j]))
			maxDelta = math.Max(maxDelta, math.Abs(newMean-mean[j])/span)
			maxDelta = math.Max(maxDelta, math.Abs(newSigma-sigma[j])/span)

			weight[j] = newWeight
			mean[j] = newMean
			sigma[j] = newSigma
		}

		if maxDelta < cfg.Tolerance {
			break
		}
	}

	// Convert mass fractions to peak amplitudes.
	values := make([]float64, 0, 3*k)
	bounds := make([]Bound, 0, 3*k)

	for j := 0; j < k; j++ {
		mass := weight[j] * totalMass

		// Sample spacing scales mass (a sum) into area (an integral).
		dx := span / float64(len(x)-1)
		amp := mass * dx / (sigma[j] * sqrt2Pi)

		values = append(values, amp, mean[j], sigma[j])
		bounds = append(bounds,
			Bound{Lo: 0, Hi: math.Inf(1)},
			Bound{Lo: x[0], Hi: x[len(x)-1]},
			Bound{Lo: cfg.MinSigma, Hi: span},
		)
	}

	return Params{
		Kind:       GaussianMixture,
		Values:     values,
		Bounds:     bounds,
		Components: k,
	}, nil
}
