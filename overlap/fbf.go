package overlap

import (
	"math"

	"github.com/cwbudde/algo-peaks/core"
	"github.com/cwbudde/algo-peaks/curve"
)

// resolveFBF separates overlapping candidates by expectation-maximization
// over a Gaussian mixture, one mixture per connected overlap group.
// Non-overlapping candidates pass through unchanged.
func resolveFBF(peaks []*curve.Peak, c *curve.Curve, cfg Config) ([]*curve.Peak, error) {
	var out []*curve.Peak

	for _, group := range Groups(peaks) {
		if len(group) < 2 {
			out = append(out, clonePeaks(group)...)
			continue
		}

		refined, err := emSeparate(group, c, cfg)
		if err != nil {
			return nil, err
		}

		out = append(out, refined...)
	}

	return out, nil
}

// emSeparate runs the weighted EM loop for one overlap group.
//
// E-step: each sample's intensity is split among the group's components by
// normalized Gaussian density (the responsibilities). M-step: every
// component's weight, mean, and variance are re-estimated from its
// responsibility-weighted moments. The loop stops when all three stabilize
// within the tolerance.
func emSeparate(group []*curve.Peak, c *curve.Curve, cfg Config) ([]*curve.Peak, error) {
	lo, hi := groupRegion(group, c)

	region := c.Window(lo, hi)
	if region.Len() < 3*len(group) {
		return nil, core.DataErrorf("overlap group region has %d samples for %d components",
			region.Len(), len(group))
	}

	k := len(group)

	weight := make([]float64, k)
	mean := make([]float64, k)
	sigma := make([]float64, k)

	totalMass := 0.0
	for _, v := range region.Y {
		if v > 0 {
			totalMass += v
		}
	}

	if totalMass <= 0 {
		return nil, core.DataErrorf("overlap group has no positive intensity")
	}

	for i, p := range group {
		weight[i] = 1 / float64(k)
		mean[i] = p.Center
		sigma[i] = fwhmToSigma(p.FWHM)
	}

	resp := make([]float64, k)
	massK := make([]float64, k)
	sumX := make([]float64, k)
	sumXX := make([]float64, k)
	span := hi - lo

	for iter := 0; iter < cfg.MaxIterations; iter++ {
		core.Zero(massK)
		core.Zero(sumX)
		core.Zero(sumXX)

		for i, xi := range region.X {
			m := region.Y[i]
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

		maxDelta := 0.0

		for j := 0; j < k; j++ {
			if massK[j] <= 0 {
				continue
			}

			newWeight := massK[j] / totalMass
			newMean := sumX[j] / massK[j]

			variance := sumXX[j]/massK[j] - newMean*newMean
			if variance < core.WidthFloor*core.WidthFloor {
				variance = core.WidthFloor * core.WidthFloor
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

	dx := span / float64(region.Len()-1)

	out := make([]*curve.Peak, k)

	for j, p := range group {
		refined := p.Clone()

		refined.Center = mean[j]
		refined.Sigma = sigma[j]
		refined.FWHM = sigmaToFWHM(sigma[j])
		refined.HWHM = refined.FWHM / 2

		// Component mass (a sum over samples) scaled by spacing gives the
		// component area; the Gaussian relation then gives the amplitude.
		mass := weight[j] * totalMass * dx
		refined.Area = mass
		refined.Amplitude = mass / (sigma[j] * math.Sqrt(2*math.Pi))

		refined.LeftBound = math.Min(mean[j]-2*sigma[j], refined.Center)
		refined.RightBound = math.Max(mean[j]+2*sigma[j], refined.Center)
		refined.LeftHalf = mean[j] - refined.HWHM
		refined.RightHalf = mean[j] + refined.HWHM
		refined.Asymmetry = 1

		refined.SetMeta("is_resolved", true)
		refined.SetMeta("overlap_method", MethodFBF.String())

		out[j] = refined
	}

	return out, nil
}

// groupRegion returns the curve region covered by the group, padded by one
// FWHM on each side and clamped to the data range.
func groupRegion(group []*curve.Peak, c *curve.Curve) (lo, hi float64) {
	lo = math.Inf(1)
	hi = math.Inf(-1)

	for _, p := range group {
		l := p.Center - p.FWHM
		if p.LeftBound < l {
			l = p.LeftBound
		}

		r := p.Center + p.FWHM
		if p.RightBound > r {
			r = p.RightBound
		}

		lo = math.Min(lo, l)
		hi = math.Max(hi, r)
	}

	lo = math.Max(lo, c.X[0])
	hi = math.Min(hi, c.X[c.Len()-1])

	return lo, hi
}

// fwhmToSigma converts a full width at half maximum to a Gaussian sigma.
func fwhmToSigma(fwhm float64) float64 {
	return core.PositiveWidth(fwhm / 2.3548200450309493)
}

// sigmaToFWHM converts a Gaussian sigma to a full width at half maximum.
func sigmaToFWHM(sigma float64) float64 {
	return 2.3548200450309493 * core.PositiveWidth(sigma)
}
