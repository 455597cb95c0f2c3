// Package strategy derives scalar features from a curve and its candidate
// peaks and maps them, through composable scoring rules, to a named
// processing strategy: which detector, overlap method, shape, and
// optimizer the workflow should run, plus their configuration.
package strategy

import (
	"github.com/cwbudde/algo-peaks/core"
)

// Component slot names used for field-level overrides.
const (
	SlotDetector  = "detector"
	SlotOverlap   = "overlap"
	SlotShape     = "shape"
	SlotOptimizer = "optimizer"
	SlotAdvanced  = "advanced"
	SlotPost      = "post"
)

// Strategy is a named bundle of component choices. Treat values as
// immutable: derive changed copies with WithSlot or Clone instead of
// assigning to a shared instance.
type Strategy struct {
	Name      string
	Detector  string
	Overlap   string
	Shape     string
	Optimizer string

	// Advanced names an optional pre-conditioning algorithm, Post an
	// optional post-processing step. Empty means none.
	Advanced string
	Post     string

	Config map[string]float64
}

// ConfigNum returns a configuration value, falling back to def when the
// key is absent.
func (s Strategy) ConfigNum(key string, def float64) float64 {
	if s.Config == nil {
		return def
	}

	if v, ok := s.Config[key]; ok {
		return v
	}

	return def
}

// Clone returns a deep copy of the strategy.
func (s Strategy) Clone() Strategy {
	out := s

	if s.Config != nil {
		out.Config = make(map[string]float64, len(s.Config))
		for k, v := range s.Config {
			out.Config[k] = v
		}
	}

	return out
}

// WithSlot returns a copy with one component slot replaced.
func (s Strategy) WithSlot(slot, name string) (Strategy, error) {
	out := s.Clone()

	switch slot {
	case SlotDetector:
		out.Detector = name
	case SlotOverlap:
		out.Overlap = name
	case SlotShape:
		out.Shape = name
	case SlotOptimizer:
		out.Optimizer = name
	case SlotAdvanced:
		out.Advanced = name
	case SlotPost:
		out.Post = name
	default:
		return Strategy{}, core.ConfigErrorf("unknown strategy slot %q", slot)
	}

	return out, nil
}

// Validate checks that the mandatory component slots are filled.
func (s Strategy) Validate() error {
	if s.Name == "" {
		return core.ConfigErrorf("strategy has no name")
	}

	if s.Detector == "" || s.Overlap == "" || s.Shape == "" || s.Optimizer == "" {
		return core.ConfigErrorf("strategy %q leaves a mandatory component slot empty", s.Name)
	}

	return nil
}

// SimplePeaks is the default strategy for well-separated peaks: plain
// detection, no overlap resolution, Gaussian fits.
func SimplePeaks() Strategy {
	return Strategy{
		Name:      "simple-peaks",
		Detector:  "local-maximum",
		Overlap:   "none",
		Shape:     "gaussian",
		Optimizer: "levenberg-marquardt",
		Config: map[string]float64{
			"max_iterations": 200,
			"noise_factor":   3,
		},
	}
}

// OverlappingPeaks handles moderate overlap with the weighted EM
// separation before fitting.
func OverlappingPeaks() Strategy {
	return Strategy{
		Name:      "overlapping-peaks",
		Detector:  "local-maximum",
		Overlap:   "fbf",
		Shape:     "gaussian",
		Optimizer: "levenberg-marquardt",
		Config: map[string]float64{
			"max_iterations": 300,
			"noise_factor":   3,
		},
	}
}

// ComplexPeaks handles heavy overlap: the overlap slot is expected to be
// escalated (sharpen-cwt or extreme) at selection time, and fitting uses
// the asymmetric EMG shape.
func ComplexPeaks() Strategy {
	return Strategy{
		Name:      "complex-peaks",
		Detector:  "local-maximum",
		Overlap:   "sharpen-cwt",
		Shape:     "emg",
		Optimizer: "levenberg-marquardt",
		Config: map[string]float64{
			"max_iterations": 500,
			"noise_factor":   2.5,
		},
	}
}

// HighPrecision is unlocked by high-SNR data: sharpen-and-wavelet
// pre-conditioning plus Bi-Gaussian shape refinement.
func HighPrecision() Strategy {
	return Strategy{
		Name:      "high-precision",
		Detector:  "local-maximum",
		Overlap:   "sharpen-cwt",
		Shape:     "bi-gaussian",
		Optimizer: "levenberg-marquardt",
		Advanced:  "sharpen-cwt",
		Config: map[string]float64{
			"max_iterations": 800,
			"tolerance":      1e-12,
			"noise_factor":   4,
		},
	}
}
