package overlap

import (
	"math"

	"github.com/cwbudde/algo-peaks/curve"
	"github.com/cwbudde/algo-peaks/optimize"
	"github.com/cwbudde/algo-peaks/shape"
)

// SplitHidden inspects every candidate for an unresolved shoulder: two
// components merged so tightly that the detector sees a single apex. The
// test fits one Gaussian to the candidate's region and examines the
// residual; pure noise leaves an uncorrelated residual near the noise
// floor, a hidden component leaves a smooth, correlated one. A flagged
// candidate is replaced by two sub-candidates straddling the fitted
// center, for the resolvers to refine jointly.
func SplitHidden(peaks []*curve.Peak, c *curve.Curve, cfg Config) ([]*curve.Peak, error) {
	cfg = normalizeConfig(cfg)

	noise := curve.Analyze(c).Noise

	out := make([]*curve.Peak, 0, len(peaks))

	for _, p := range peaks {
		left, right, ok := hiddenSplit(p, c, noise, cfg)
		if !ok {
			out = append(out, p)
			continue
		}

		out = append(out, left, right)
	}

	return out, nil
}

func hiddenSplit(p *curve.Peak, c *curve.Curve, noise float64, cfg Config) (left, right *curve.Peak, ok bool) {
	lo, hi := groupRegion([]*curve.Peak{p}, c)

	region := c.Window(lo, hi)
	if region.Len() < 12 {
		return nil, nil, false
	}

	ext := shape.Extent{XMin: region.X[0], XMax: region.X[region.Len()-1]}
	for _, v := range region.Y {
		if v > ext.YMax {
			ext.YMax = v
		}
	}

	seed := shape.Seed(shape.Gaussian, p.Amplitude, p.Center, fwhmToSigma(p.FWHM), ext)

	problem := optimize.Problem{
		Model: func(params []float64, x float64) float64 {
			return shape.Eval(shape.Params{Kind: shape.Gaussian, Values: params}, x)
		},
		Jacobian: func(params []float64, x float64, i int) float64 {
			return shape.Derivative(shape.Params{Kind: shape.Gaussian, Values: params}, x, i)
		},
		X:      region.X,
		Y:      region.Y,
		Bounds: seed.Bounds,
	}

	res, err := optimize.Run(problem, seed.Values, optimize.Config{
		MaxIterations: cfg.MaxIterations,
		Tolerance:     cfg.Tolerance,
	})
	if err != nil {
		return nil, nil, false
	}

	rms, autocorr := residualDiagnostics(region, res.Params)

	if rms <= cfg.HiddenRMSFactor*noise || autocorr <= cfg.HiddenAutocorr {
		return nil, nil, false
	}

	amp := res.Params[0]
	center := res.Params[1]
	sigma := res.Params[2]

	// Straddle the fitted center; the sub-candidates get disjoint supports
	// so a later relocation cannot collapse them onto one apex.
	offset := sigma / 2

	left = splitCandidate(p, center-offset, amp, sigma, lo, center)
	right = splitCandidate(p, center+offset, amp, sigma, center, hi)

	return left, right, true
}

func splitCandidate(src *curve.Peak, center, amp, sigma, lo, hi float64) *curve.Peak {
	p := src.Clone()

	p.Center = center
	p.Amplitude = 0.6 * amp
	p.Sigma = 0.8 * sigma
	p.FWHM = sigmaToFWHM(p.Sigma)
	p.HWHM = p.FWHM / 2
	p.LeftHalf = center - p.HWHM
	p.RightHalf = center + p.HWHM
	p.LeftBound = math.Min(lo, center)
	p.RightBound = math.Max(hi, center)

	p.SetMeta("hidden_split", true)

	return p
}

// residualDiagnostics returns the RMS and lag-1 autocorrelation of the
// single-Gaussian fit residual over the region.
func residualDiagnostics(region *curve.Curve, params []float64) (rms, autocorr float64) {
	n := region.Len()

	resid := make([]float64, n)
	mean := 0.0

	for i, x := range region.X {
		resid[i] = region.Y[i] - shape.Eval(shape.Params{Kind: shape.Gaussian, Values: params}, x)
		mean += resid[i]
	}

	mean /= float64(n)

	ss := 0.0
	cross := 0.0

	for i := range resid {
		d := resid[i] - mean
		ss += d * d

		if i > 0 {
			cross += d * (resid[i-1] - mean)
		}
	}

	if ss <= 0 {
		return 0, 0
	}

	return math.Sqrt(ss / float64(n)), cross / ss
}
