package curve

import (
	"math"
	"sort"
)

// Stats holds derived scalar statistics of a curve's intensity sequence.
type Stats struct {
	Length   int
	Min      float64
	MinPos   int
	Max      float64
	MaxPos   int
	Mean     float64
	StdDev   float64
	Variance float64

	// Baseline is a robust low-intensity estimate (mean of the lowest
	// decile of samples).
	Baseline float64

	// Noise is a robust estimate of the intensity noise floor, computed
	// from second differences so peaks do not inflate it, scaled to be
	// consistent with a Gaussian sigma.
	Noise float64

	// SNR is (Max - Baseline) / Noise.
	SNR float64

	// DynamicRange is (Max - Min) / Noise.
	DynamicRange float64
}

// madScale converts a median absolute deviation into a Gaussian-consistent
// standard deviation (1 / Phi^-1(3/4)).
const madScale = 1.4826

// Analyze computes all intensity statistics of the curve in two passes:
// a single Welford pass for the moments and a sorted pass for the robust
// baseline and noise estimates.
func Analyze(c *Curve) Stats {
	n := c.Len()
	if n == 0 {
		return Stats{}
	}

	var (
		mean float64
		m2   float64
	)

	maxVal, minVal := c.Y[0], c.Y[0]
	maxPos, minPos := 0, 0

	for i, v := range c.Y {
		delta := v - mean
		mean += delta / float64(i+1)
		m2 += delta * (v - mean)

		if v > maxVal {
			maxVal = v
			maxPos = i
		}

		if v < minVal {
			minVal = v
			minPos = i
		}
	}

	variance := 0.0
	if n > 1 {
		variance = m2 / float64(n-1)
	}

	sorted := make([]float64, n)
	copy(sorted, c.Y)
	sort.Float64s(sorted)

	baseline := lowDecileMean(sorted)
	noise := diffNoise(c.Y)

	snr := math.Inf(1)
	dynRange := math.Inf(1)

	if noise > 0 {
		snr = (maxVal - baseline) / noise
		dynRange = (maxVal - minVal) / noise
	}

	return Stats{
		Length:       n,
		Min:          minVal,
		MinPos:       minPos,
		Max:          maxVal,
		MaxPos:       maxPos,
		Mean:         mean,
		StdDev:       math.Sqrt(variance),
		Variance:     variance,
		Baseline:     baseline,
		Noise:        noise,
		SNR:          snr,
		DynamicRange: dynRange,
	}
}

// lowDecileMean averages the lowest tenth of the sorted samples.
func lowDecileMean(sorted []float64) float64 {
	k := len(sorted) / 10
	if k < 1 {
		k = 1
	}

	sum := 0.0
	for _, v := range sorted[:k] {
		sum += v
	}

	return sum / float64(k)
}

// diffNoise estimates the noise floor from the second differences of the
// intensity sequence. Differencing cancels the smooth signal component, so
// peaks do not inflate the estimate the way a whole-distribution MAD
// would. A second difference of white noise has variance 6 sigma^2, hence
// the sqrt(6) rescale.
func diffNoise(y []float64) float64 {
	if len(y) < 3 {
		return 0
	}

	d := make([]float64, len(y)-2)
	for i := range d {
		d[i] = math.Abs(y[i+2] - 2*y[i+1] + y[i])
	}

	sort.Float64s(d)

	return madScale * median(d) / math.Sqrt(6)
}

// median assumes sorted input.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}

	if n%2 == 1 {
		return sorted[n/2]
	}

	return 0.5 * (sorted[n/2-1] + sorted[n/2])
}

// Smooth returns a copy of the curve with a centered moving average of the
// given half-width applied to the intensities. halfWidth <= 0 returns an
// unmodified clone.
func Smooth(c *Curve, halfWidth int) *Curve {
	out := c.Clone()
	if halfWidth <= 0 {
		return out
	}

	n := c.Len()
	for i := 0; i < n; i++ {
		lo := i - halfWidth
		if lo < 0 {
			lo = 0
		}

		hi := i + halfWidth
		if hi >= n {
			hi = n - 1
		}

		sum := 0.0
		for j := lo; j <= hi; j++ {
			sum += c.Y[j]
		}

		out.Y[i] = sum / float64(hi-lo+1)
	}

	return out
}
