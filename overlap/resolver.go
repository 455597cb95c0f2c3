package overlap

import (
	"github.com/cwbudde/algo-peaks/core"
	"github.com/cwbudde/algo-peaks/curve"
)

// Method selects the overlap-resolution strategy.
type Method int

// Supported resolution methods, in escalation order.
const (
	MethodNone Method = iota
	MethodFBF
	MethodSharpenCWT
	MethodEMGNLLS
	MethodExtreme
)

// String returns the canonical method name.
func (m Method) String() string {
	switch m {
	case MethodNone:
		return "none"
	case MethodFBF:
		return "fbf"
	case MethodSharpenCWT:
		return "sharpen-cwt"
	case MethodEMGNLLS:
		return "emg-nlls"
	case MethodExtreme:
		return "extreme"
	default:
		return "unknown"
	}
}

// MethodByName resolves a canonical method name.
func MethodByName(name string) (Method, error) {
	for m := MethodNone; m <= MethodExtreme; m++ {
		if m.String() == name {
			return m, nil
		}
	}

	return 0, core.ConfigErrorf("unknown overlap method %q", name)
}

// Config holds resolver settings shared by all methods. Zero values select
// the documented defaults.
type Config struct {
	// EM settings for the FBF separation.
	MaxIterations int
	Tolerance     float64

	// CWT settings.
	MinScale  float64
	MaxScale  float64
	NumScales int

	// NoiseFactor scales the MAD noise estimate into the minimum wavelet
	// response accepted for candidate enhancement.
	NoiseFactor float64

	// SharpenStrength scales the Laplacian sharpening kernel.
	SharpenStrength float64

	// BoundaryFraction is the relative intensity at which peak boundaries
	// are placed after enhancement.
	BoundaryFraction float64

	// Escalation thresholds used by Select.
	ModerateOverlap float64
	HighOverlap     float64
	LowSNR          float64

	// Hidden-component detection thresholds: a candidate is split in two
	// when its single-Gaussian residual RMS exceeds HiddenRMSFactor times
	// the noise floor and the residual lag-1 autocorrelation exceeds
	// HiddenAutocorr (white noise stays near zero, an unresolved shoulder
	// leaves a smooth, strongly correlated residual).
	HiddenRMSFactor float64
	HiddenAutocorr  float64

	// Seed makes stochastic refinement paths deterministic.
	Seed int64
}

func normalizeConfig(cfg Config) Config {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 100
	}

	if cfg.Tolerance <= 0 {
		cfg.Tolerance = 1e-6
	}

	if cfg.NumScales <= 0 {
		cfg.NumScales = 16
	}

	if cfg.NoiseFactor <= 0 {
		cfg.NoiseFactor = 3
	}

	if cfg.SharpenStrength <= 0 {
		cfg.SharpenStrength = 0.5
	}

	if cfg.BoundaryFraction <= 0 || cfg.BoundaryFraction >= 1 {
		cfg.BoundaryFraction = 0.05
	}

	if cfg.ModerateOverlap <= 0 {
		cfg.ModerateOverlap = groupDegree
	}

	if cfg.HighOverlap <= 0 {
		cfg.HighOverlap = 0.5
	}

	if cfg.LowSNR <= 0 {
		cfg.LowSNR = 10
	}

	if cfg.HiddenRMSFactor <= 0 {
		cfg.HiddenRMSFactor = 1.15
	}

	if cfg.HiddenAutocorr <= 0 {
		cfg.HiddenAutocorr = 0.3
	}

	if cfg.Seed == 0 {
		cfg.Seed = 1
	}

	return cfg
}

// Select maps the measured overlap degree and signal-to-noise ratio to a
// resolution method: low overlap needs no resolution, moderate overlap the
// weighted EM separation, high overlap the sharpen-and-wavelet path, and
// high overlap combined with low SNR the full extreme pipeline.
func Select(degree, snr float64, cfg Config) Method {
	cfg = normalizeConfig(cfg)

	switch {
	case degree < cfg.ModerateOverlap:
		return MethodNone
	case degree < cfg.HighOverlap:
		return MethodFBF
	case snr < cfg.LowSNR:
		return MethodExtreme
	default:
		return MethodSharpenCWT
	}
}

// Resolve applies the method to the candidate peaks. It is a no-op for
// fewer than two candidates. The returned peaks are refined copies; the
// input slice is not modified.
func Resolve(m Method, peaks []*curve.Peak, c *curve.Curve, cfg Config) ([]*curve.Peak, error) {
	if len(peaks) < 2 || m == MethodNone {
		return clonePeaks(peaks), nil
	}

	if c == nil || c.Len() == 0 {
		return nil, core.DataErrorf("overlap resolver needs a curve")
	}

	cfg = normalizeConfig(cfg)

	switch m {
	case MethodFBF:
		return resolveFBF(peaks, c, cfg)
	case MethodSharpenCWT:
		return resolveSharpenCWT(peaks, c, cfg)
	case MethodEMGNLLS:
		return resolveEMGNLLS(peaks, c, cfg)
	case MethodExtreme:
		return resolveExtreme(peaks, c, cfg)
	default:
		return nil, core.ConfigErrorf("invalid overlap method %d", m)
	}
}

func clonePeaks(peaks []*curve.Peak) []*curve.Peak {
	out := make([]*curve.Peak, len(peaks))
	for i, p := range peaks {
		out[i] = p.Clone()
	}

	return out
}
