package workflow

import (
	"math"
	"sort"

	"github.com/cwbudde/algo-peaks/core"
	"github.com/cwbudde/algo-peaks/curve"
	"github.com/cwbudde/algo-peaks/detect"
	"github.com/cwbudde/algo-peaks/optimize"
	"github.com/cwbudde/algo-peaks/overlap"
	"github.com/cwbudde/algo-peaks/shape"
	"github.com/cwbudde/algo-peaks/strategy"
)

// DefaultRegistry returns a registry with every built-in component
// registered: the local-maximum detector, all overlap methods, a fitter
// per shape, an optimizer per algorithm, and the default analysis,
// post-processing, and validation steps.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.MustRegister(CapDetector, detect.DetectorName, detectorFactory)
	r.MustRegister(CapAnalysis, "default", analysisFactory)

	for m := overlap.MethodNone; m <= overlap.MethodExtreme; m++ {
		r.MustRegister(CapOverlap, m.String(), overlapFactory(m))
	}

	r.MustRegister(CapShapeCheck, "default", shapeCheckFactory)

	for k := shape.Gaussian; k <= shape.NonLinearCurve; k++ {
		r.MustRegister(CapFitter, k.String(), fitterFactory(k))
	}

	r.MustRegister(CapFitter, shape.GaussianMixture.String(), mixtureFitterFactory)

	for m := optimize.MethodLevenbergMarquardt; m <= optimize.MethodAnneal; m++ {
		r.MustRegister(CapOptimizer, m.String(), optimizerFactory(m))
	}

	r.MustRegister(CapPost, "default", postFactory)
	r.MustRegister(CapValidation, "default", validationFactory)

	return r
}

// detectorFactory builds the candidate-detection stage. A pre-populated
// candidate list passes through untouched.
func detectorFactory(p Params) (Component, error) {
	cfg := detect.Config{
		Threshold:     p.GetNum("threshold", 0),
		NoiseFactor:   p.GetNum("noise_factor", 0),
		MinSeparation: p.GetNum("min_separation", 0),
		MaxPeaks:      int(p.GetNum("max_peaks", 0)),
	}

	d, err := detect.NewDetector(cfg)
	if err != nil {
		return nil, err
	}

	return ComponentFunc(func(data *Data) (*Data, error) {
		if len(data.Peaks) > 0 {
			return data, nil
		}

		peaks, err := d.Candidates(data.Curve)
		if err != nil {
			return nil, err
		}

		data.Peaks = peaks

		return data, nil
	}), nil
}

// analysisFactory builds the overlap-analysis stage: hidden-shoulder
// splitting followed by the context measurement the strategy controller
// consumes.
func analysisFactory(p Params) (Component, error) {
	cfg := overlapConfig(p)

	return ComponentFunc(func(data *Data) (*Data, error) {
		peaks, err := overlap.SplitHidden(data.Peaks, data.Curve, cfg)
		if err != nil {
			return nil, err
		}

		data.Peaks = peaks

		ctx, err := strategy.BuildContext(data.Curve, peaks)
		if err != nil {
			return nil, err
		}

		data.Context = ctx

		return data, nil
	}), nil
}

func overlapFactory(m overlap.Method) Factory {
	return func(p Params) (Component, error) {
		cfg := overlapConfig(p)

		return ComponentFunc(func(data *Data) (*Data, error) {
			peaks, err := overlap.Resolve(m, data.Peaks, data.Curve, cfg)
			if err != nil {
				return nil, err
			}

			data.Peaks = peaks

			return data, nil
		}), nil
	}
}

func overlapConfig(p Params) overlap.Config {
	return overlap.Config{
		MaxIterations:   int(p.GetNum("max_iterations", 0)),
		Tolerance:       p.GetNum("tolerance", 0),
		NumScales:       int(p.GetNum("num_scales", 0)),
		NoiseFactor:     p.GetNum("noise_factor", 0),
		SharpenStrength: p.GetNum("sharpen_strength", 0),
		Seed:            int64(p.GetNum("seed", 0)),
	}
}

// shapeCheckFactory builds the shape-analysis stage: it annotates every
// peak with the shape its geometry suggests, without overriding the
// strategy's choice.
func shapeCheckFactory(p Params) (Component, error) {
	return ComponentFunc(func(data *Data) (*Data, error) {
		for _, pk := range data.Peaks {
			pk.SetMeta("shape_suggested", suggestShape(pk).String())
		}

		return data, nil
	}), nil
}

// suggestShape maps a peak's asymmetry onto a model family: symmetric
// peaks are Gaussian, mildly skewed ones Bi-Gaussian, strongly tailing
// ones EMG.
func suggestShape(p *curve.Peak) shape.Kind {
	asym := p.Asymmetry
	if asym <= 0 {
		asym = 1
	}

	if asym < 1 {
		asym = 1 / asym
	}

	switch {
	case asym < 1.2:
		return shape.Gaussian
	case asym < 1.8:
		return shape.BiGaussian
	default:
		return shape.EMG
	}
}

func fitterFactory(k shape.Kind) Factory {
	return func(p Params) (Component, error) {
		d, err := detect.NewDetector(detect.Config{
			Shape: k,
			Optimizer: optimize.Config{
				MaxIterations: int(p.GetNum("max_iterations", 0)),
				Tolerance:     p.GetNum("tolerance", 0),
			},
		})
		if err != nil {
			return nil, err
		}

		return ComponentFunc(func(data *Data) (*Data, error) {
			if len(data.Peaks) == 0 {
				return data, nil
			}

			peaks, err := d.FitCandidates(data.Curve, data.Peaks)
			if err != nil {
				return nil, err
			}

			data.Peaks = peaks

			return data, nil
		}), nil
	}
}

// mixtureFitterFactory builds the fitter for the Bayesian Gaussian
// mixture: one variational EM fit over the whole trace with as many
// components as candidates, instead of a shape fit per candidate.
func mixtureFitterFactory(p Params) (Component, error) {
	maxIter := int(p.GetNum("max_iterations", 0))
	tol := p.GetNum("tolerance", 0)

	return ComponentFunc(func(data *Data) (*Data, error) {
		if len(data.Peaks) == 0 {
			return data, nil
		}

		fitted, err := shape.FitMixture(data.Curve.X, data.Curve.Y, shape.MixtureConfig{
			Components:    len(data.Peaks),
			MaxIterations: maxIter,
			Tolerance:     tol,
		})
		if err != nil {
			return nil, err
		}

		data.Peaks = mixturePeaks(fitted, data.Peaks, data.Curve)

		return data, nil
	}), nil
}

// mixturePeaks converts fitted (amplitude, mean, sigma) triples into peak
// records. Components are matched to candidates by position after sorting
// both by center; every component shares the mixture-wide fit quality.
func mixturePeaks(fitted shape.Params, candidates []*curve.Peak, c *curve.Curve) []*curve.Peak {
	r2 := mixtureR2(fitted, c)

	idx := make([]int, fitted.Components)
	for j := range idx {
		idx[j] = j
	}

	sort.Slice(idx, func(a, b int) bool {
		return fitted.Values[3*idx[a]+1] < fitted.Values[3*idx[b]+1]
	})

	out := make([]*curve.Peak, 0, fitted.Components)

	for rank, j := range idx {
		amp := fitted.Values[3*j]
		mean := fitted.Values[3*j+1]
		sigma := fitted.Values[3*j+2]

		var pk *curve.Peak
		if rank < len(candidates) {
			pk = candidates[rank].Clone()
		} else {
			pk = &curve.Peak{}
		}

		gauss := shape.Params{Kind: shape.Gaussian, Values: []float64{amp, mean, sigma}}

		pk.Center = mean
		pk.Amplitude = amp
		pk.Sigma = sigma
		pk.FWHM = shape.FWHM(gauss)
		pk.HWHM = pk.FWHM / 2
		pk.LeftHalf = mean - pk.HWHM
		pk.RightHalf = mean + pk.HWHM
		pk.LeftBound = math.Max(mean-2*sigma, c.X[0])
		pk.RightBound = math.Min(mean+2*sigma, c.X[c.Len()-1])
		pk.Area = shape.Area(gauss)
		pk.Asymmetry = 1
		pk.R2 = r2
		pk.Shape = shape.GaussianMixture.String()
		pk.FitParams = []float64{amp, mean, sigma}

		out = append(out, pk)
	}

	return out
}

// mixtureR2 is the coefficient of determination of the full mixture model
// over the trace.
func mixtureR2(fitted shape.Params, c *curve.Curve) float64 {
	meanY := 0.0
	for _, v := range c.Y {
		meanY += v
	}

	meanY /= float64(c.Len())

	ss := 0.0
	rss := 0.0

	for i, x := range c.X {
		d := c.Y[i] - meanY
		ss += d * d

		r := c.Y[i] - shape.Eval(fitted, x)
		rss += r * r
	}

	if ss <= 0 {
		return 0
	}

	return 1 - rss/ss
}

// optimizerFactory builds the parameter-optimization stage: a joint
// refit with the strategy's configured algorithm, seeded from the fitted
// peaks of the previous stage.
func optimizerFactory(m optimize.Method) Factory {
	return func(p Params) (Component, error) {
		cfg := optimize.Config{
			Method:        m,
			MaxIterations: int(p.GetNum("max_iterations", 0)),
			Tolerance:     p.GetNum("tolerance", 0),
			GridPoints:    int(p.GetNum("grid_points", 5)),
			Seed:          int64(p.GetNum("seed", 0)),
		}

		return ComponentFunc(func(data *Data) (*Data, error) {
			if len(data.Peaks) == 0 {
				return data, nil
			}

			kind, err := shape.KindByName(data.Strategy.Shape)
			if err != nil {
				return nil, err
			}

			if kind == shape.GaussianMixture {
				// The mixture fitter already optimizes all components
				// jointly; there is no per-peak refit to run.
				return data, nil
			}

			d, err := detect.NewDetector(detect.Config{Shape: kind, Optimizer: cfg})
			if err != nil {
				return nil, err
			}

			peaks, err := d.FitCandidates(data.Curve, data.Peaks)
			if err != nil {
				return nil, err
			}

			data.Peaks = peaks

			return data, nil
		}), nil
	}
}

// postFactory builds the post-processing stage: quality grades and
// neighbor-separation diagnostics on the final peak list.
func postFactory(p Params) (Component, error) {
	return ComponentFunc(func(data *Data) (*Data, error) {
		for i, pk := range data.Peaks {
			pk.SetMeta("quality_grade", qualityGrade(pk.R2))

			if i > 0 {
				sep := pk.Center - data.Peaks[i-1].Center

				pk.SetMeta("min_separation", math.Min(
					pk.MetaNum("min_separation", math.Inf(1)), sep))
				data.Peaks[i-1].SetMeta("min_separation", math.Min(
					data.Peaks[i-1].MetaNum("min_separation", math.Inf(1)), sep))
			}
		}

		return data, nil
	}), nil
}

// qualityGrade maps a coefficient of determination onto a letter grade.
func qualityGrade(r2 float64) string {
	switch {
	case r2 >= 0.98:
		return "A"
	case r2 >= 0.9:
		return "B"
	case r2 >= 0.7:
		return "C"
	default:
		return "D"
	}
}

// validationFactory builds the terminal stage: it enforces the boundary
// invariants on every peak and computes the overall quality score the
// controller compares against its threshold.
func validationFactory(p Params) (Component, error) {
	return ComponentFunc(func(data *Data) (*Data, error) {
		for i, pk := range data.Peaks {
			if err := pk.Validate(); err != nil {
				return nil, core.ProcessErrorf("peak %d fails validation: %v", i, err)
			}
		}

		data.Quality = overallQuality(data.Peaks)

		return data, nil
	}), nil
}

// overallQuality is the amplitude-weighted mean fit quality of the peak
// list; an empty list scores zero.
func overallQuality(peaks []*curve.Peak) float64 {
	if len(peaks) == 0 {
		return 0
	}

	sumW := 0.0
	sum := 0.0

	for _, p := range peaks {
		w := p.Amplitude
		if w <= 0 {
			w = 1
		}

		sum += w * core.Clamp(p.R2, 0, 1)
		sumW += w
	}

	return sum / sumW
}
