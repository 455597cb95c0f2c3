package strategy

import (
	"math"

	"github.com/cwbudde/algo-peaks/overlap"
)

// Rule scores how well one strategy suits the measured context. A score
// of zero means the rule has nothing to say about this curve.
type Rule struct {
	Name  string
	Score func(Context) (float64, Strategy)
}

// DefaultRules returns the built-in rule set evaluated in Automatic mode.
// The overlap rule dominates when overlap is high, so that low SNR can
// force the simplest strategy only for curves that do not need overlap
// resolution in the first place.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "overlap-ratio", Score: overlapRule},
		{Name: "snr", Score: snrRule},
		{Name: "shape-complexity", Score: complexityRule},
		{Name: "data-quality", Score: qualityRule},
	}
}

func overlapRule(ctx Context) (float64, Strategy) {
	r := ctx.OverlapRatio

	switch {
	case ctx.PeakCount < 2 || r < 0.2:
		return 0.6 + 0.2*(1-math.Min(r/0.2, 1)), SimplePeaks()
	case r < 0.5:
		return 0.7, OverlappingPeaks()
	default:
		// Heavy overlap: pick the concrete resolver now, from the same
		// escalation table the resolver package uses, so the choice is
		// fixed for the rest of the run.
		s := ComplexPeaks()
		s.Overlap = overlap.Select(r, ctx.SNR, overlap.Config{}).String()

		return 0.8 + 0.2*math.Min((r-0.5)/0.5, 1), s
	}
}

func snrRule(ctx Context) (float64, Strategy) {
	switch {
	case ctx.SNR < 10:
		return 0.75, SimplePeaks()
	case ctx.SNR >= 50:
		// Capped below the simple strategy's zero-overlap score, so
		// pristine well-separated data stays on the simple path and
		// high-precision wins only when mild overlap lowers that score.
		return 0.55 + 0.23*math.Min(ctx.SNR/200, 1), HighPrecision()
	default:
		return 0, Strategy{}
	}
}

func complexityRule(ctx Context) (float64, Strategy) {
	if ctx.ShapeComplexity <= 0.5 {
		return 0, Strategy{}
	}

	s := ComplexPeaks()
	s.Overlap = "emg-nlls"

	return 0.5 + 0.4*math.Min(ctx.ShapeComplexity, 1), s
}

func qualityRule(ctx Context) (float64, Strategy) {
	if ctx.DataQuality >= 0.3 {
		return 0, Strategy{}
	}

	// Poor dynamic range: every refinement would fit noise.
	return 0.65, SimplePeaks()
}
