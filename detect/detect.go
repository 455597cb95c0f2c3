// Package detect finds local-maximum peak candidates in a curve and fits
// them, jointly when several candidates share a window, so that no peak is
// fitted while ignoring the presence of its neighbors.
package detect

import (
	"math"
	"sort"

	"github.com/cwbudde/algo-peaks/core"
	"github.com/cwbudde/algo-peaks/curve"
	"github.com/cwbudde/algo-peaks/optimize"
	"github.com/cwbudde/algo-peaks/shape"
)

// DetectorName tags peaks produced by the local-maximum detector.
const DetectorName = "local-maximum"

// gaussianFWHMFactor converts a Gaussian sigma into its FWHM.
const gaussianFWHMFactor = 2.3548200450309493

// Config holds detection and fitting settings. Zero values select the
// documented defaults.
type Config struct {
	// Threshold is the minimum absolute intensity a candidate apex must
	// reach. When zero, the threshold is derived from the curve as
	// baseline + NoiseFactor * noise.
	Threshold float64

	// NoiseFactor scales the noise estimate into the derived threshold.
	NoiseFactor float64

	// MinSeparation is the smallest coordinate distance between two
	// accepted candidates; the weaker of a closer pair is discarded.
	// When zero, three sample steps are used.
	MinSeparation float64

	// MaxPeaks caps the number of candidates, keeping the strongest.
	// Zero means unlimited.
	MaxPeaks int

	// SmoothHalfWidth is the moving-average half-width (in samples)
	// applied before the local-maximum scan, so single noisy samples on
	// a flank do not register as apexes. Zero selects the default of 2;
	// negative disables smoothing.
	SmoothHalfWidth int

	// Shape selects the model fitted to the candidates.
	Shape shape.Kind

	// Optimizer configures the parameter optimization.
	Optimizer optimize.Config
}

func normalizeConfig(cfg Config) Config {
	if cfg.NoiseFactor <= 0 {
		cfg.NoiseFactor = 3
	}

	if cfg.Shape == 0 {
		cfg.Shape = shape.Gaussian
	}

	if cfg.SmoothHalfWidth == 0 {
		cfg.SmoothHalfWidth = 2
	}

	return cfg
}

// Detector finds and fits peaks with a fixed configuration.
type Detector struct {
	cfg Config
}

// NewDetector validates the configuration and returns a ready detector.
func NewDetector(cfg Config) (*Detector, error) {
	cfg = normalizeConfig(cfg)

	if cfg.Shape == shape.GaussianMixture {
		return nil, core.ConfigErrorf("mixture models are fitted by shape.FitMixture, not the detector")
	}

	if shape.ParamCount(cfg.Shape, 0) == 0 {
		return nil, core.ConfigErrorf("invalid shape kind %d", cfg.Shape)
	}

	if cfg.Threshold < 0 {
		return nil, core.ConfigErrorf("threshold must be >= 0: %g", cfg.Threshold)
	}

	if cfg.MinSeparation < 0 {
		return nil, core.ConfigErrorf("min separation must be >= 0: %g", cfg.MinSeparation)
	}

	return &Detector{cfg: cfg}, nil
}

// Candidates scans the curve for local maxima above the threshold,
// enforces the minimum separation (stronger candidate wins), and estimates
// each candidate's width and support from the raw samples.
func (d *Detector) Candidates(c *curve.Curve) ([]*curve.Peak, error) {
	if c == nil || c.Len() < 3 {
		return nil, core.DataErrorf("candidate detection needs at least 3 samples")
	}

	work := curve.Smooth(c, d.cfg.SmoothHalfWidth)

	// Noise and baseline come from the raw samples; smoothing suppresses
	// exactly the fluctuations the threshold has to account for.
	stats := curve.Analyze(c)

	threshold := d.cfg.Threshold
	if threshold <= 0 {
		threshold = stats.Baseline + d.cfg.NoiseFactor*stats.Noise
	}

	dx := c.Span() / float64(c.Len()-1)

	minSep := d.cfg.MinSeparation
	if minSep <= 0 {
		minSep = math.Max(3*dx, c.Span()/50)
	}

	// A candidate apex must dominate its whole separation neighborhood,
	// not only its immediate neighbors.
	window := int(math.Round(minSep / dx))
	if window < 1 {
		window = 1
	}

	var apexes []int

	for i := 1; i < work.Len()-1; i++ {
		if work.Y[i] <= work.Y[i-1] || work.Y[i] < work.Y[i+1] || work.Y[i] < threshold {
			continue
		}

		if windowMax(work, i, window) {
			apexes = append(apexes, i)
		}
	}

	// Strongest first, so separation conflicts discard the weaker apex.
	sort.Slice(apexes, func(a, b int) bool {
		return work.Y[apexes[a]] > work.Y[apexes[b]]
	})

	var kept []int

	for _, i := range apexes {
		ok := true

		for _, j := range kept {
			if math.Abs(work.X[i]-work.X[j]) < minSep {
				ok = false
				break
			}
		}

		if ok {
			kept = append(kept, i)
		}
	}

	if d.cfg.MaxPeaks > 0 && len(kept) > d.cfg.MaxPeaks {
		kept = kept[:d.cfg.MaxPeaks]
	}

	sort.Ints(kept)

	peaks := make([]*curve.Peak, 0, len(kept))
	for _, i := range kept {
		peaks = append(peaks, candidatePeak(work, i, stats))
	}

	return peaks, nil
}

// windowMax reports whether sample i is the maximum of its neighborhood.
func windowMax(c *curve.Curve, i, window int) bool {
	lo := i - window
	if lo < 0 {
		lo = 0
	}

	hi := i + window
	if hi >= c.Len() {
		hi = c.Len() - 1
	}

	for j := lo; j <= hi; j++ {
		if c.Y[j] > c.Y[i] {
			return false
		}
	}

	return true
}

// candidatePeak estimates a candidate's geometry directly from the samples
// around the apex: half-maximum crossings for the width, the enclosing
// valleys for the support.
func candidatePeak(c *curve.Curve, apex int, stats curve.Stats) *curve.Peak {
	amp := c.Y[apex] - stats.Baseline
	half := stats.Baseline + amp/2

	left := sampleCrossing(c, apex, -1, half)
	right := sampleCrossing(c, apex, 1, half)

	fwhm := right - left
	if fwhm <= 0 {
		fwhm = core.WidthFloor
	}

	p := &curve.Peak{
		Center:     c.X[apex],
		Amplitude:  amp,
		FWHM:       fwhm,
		HWHM:       fwhm / 2,
		Sigma:      fwhm / gaussianFWHMFactor,
		LeftHalf:   left,
		RightHalf:  right,
		LeftBound:  c.X[valley(c, apex, -1)],
		RightBound: c.X[valley(c, apex, 1)],
		Detector:   DetectorName,
	}

	p.SetMeta("baseline", stats.Baseline)
	p.SetMeta("apex_index", float64(apex))

	return p
}

// sampleCrossing walks from the apex until the intensity drops below the
// level and interpolates the crossing coordinate. Falls back to the curve
// edge when the level is never crossed.
func sampleCrossing(c *curve.Curve, apex, direction int, level float64) float64 {
	i := apex

	for {
		next := i + direction
		if next < 0 || next >= c.Len() {
			return c.X[i]
		}

		if c.Y[next] < level {
			// Linear interpolation between i and next.
			span := c.Y[i] - c.Y[next]
			if span <= 0 {
				return c.X[next]
			}

			t := (c.Y[i] - level) / span

			return c.X[i] + t*(c.X[next]-c.X[i])
		}

		i = next
	}
}

// valley walks from the apex to the nearest local minimum (or curve edge)
// in the given direction.
func valley(c *curve.Curve, apex, direction int) int {
	i := apex

	for {
		next := i + direction
		if next < 0 || next >= c.Len() {
			return i
		}

		if c.Y[next] > c.Y[i] {
			return i
		}

		i = next
	}
}

// Detect runs candidate detection and fitting in one call.
func Detect(c *curve.Curve, cfg Config) ([]*curve.Peak, error) {
	d, err := NewDetector(cfg)
	if err != nil {
		return nil, err
	}

	return d.Fit(c)
}
