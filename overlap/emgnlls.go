package overlap

import (
	"math"

	"github.com/cwbudde/algo-peaks/core"
	"github.com/cwbudde/algo-peaks/curve"
	"github.com/cwbudde/algo-peaks/optimize"
	"github.com/cwbudde/algo-peaks/shape"
)

// emgParamCount is the per-component parameter count of the EMG model.
const emgParamCount = 4

// resolveEMGNLLS treats every peak of the cluster as an EMG component and
// jointly fits the whole cluster to the extracted overlap-region samples by
// Levenberg-Marquardt, with residuals and Jacobian computed from the
// analytic EMG gradient. It is the resolver of choice for asymmetric,
// tailing peaks.
func resolveEMGNLLS(peaks []*curve.Peak, c *curve.Curve, cfg Config) ([]*curve.Peak, error) {
	lo, hi := groupRegion(peaks, c)

	region := c.Window(lo, hi)

	k := len(peaks)
	if region.Len() < emgParamCount*k {
		return nil, core.DataErrorf("overlap region has %d samples for %d EMG components",
			region.Len(), emgParamCount*k)
	}

	ext := shape.Extent{XMin: region.X[0], XMax: region.X[region.Len()-1]}
	for _, v := range region.Y {
		if v > ext.YMax {
			ext.YMax = v
		}
	}

	initial := make([]float64, 0, emgParamCount*k)
	bounds := make([]shape.Bound, 0, emgParamCount*k)

	for _, p := range peaks {
		seed := shape.Seed(shape.EMG, p.Amplitude, p.Center, fwhmToSigma(p.FWHM), ext)

		initial = append(initial, seed.Values...)
		bounds = append(bounds, seed.Bounds...)
	}

	problem := optimize.Problem{
		Model:    jointEMGModel,
		Jacobian: jointEMGJacobian,
		X:        region.X,
		Y:        region.Y,
		Bounds:   bounds,
	}

	res, err := optimize.Run(problem, initial, optimize.Config{
		Method:        optimize.MethodLevenbergMarquardt,
		MaxIterations: cfg.MaxIterations * 3,
		Tolerance:     cfg.Tolerance,
	})
	if err != nil {
		return nil, err
	}

	r2 := rSquared(region, res.Params)

	out := make([]*curve.Peak, k)

	for i, p := range peaks {
		sub := res.Params[i*emgParamCount : (i+1)*emgParamCount]

		refined := p.Clone()
		fillEMGPeak(refined, sub, region, r2, res)

		if i*emgParamCount < len(res.ParamErrors) {
			refined.ParamErrors = append([]float64(nil),
				res.ParamErrors[i*emgParamCount:(i+1)*emgParamCount]...)
		}

		refined.SetMeta("is_resolved", true)
		refined.SetMeta("overlap_method", MethodEMGNLLS.String())

		out[i] = refined
	}

	return out, nil
}

// jointEMGModel sums the EMG contributions of every component at x.
func jointEMGModel(params []float64, x float64) float64 {
	sum := 0.0

	for i := 0; i+emgParamCount <= len(params); i += emgParamCount {
		sum += shape.Eval(shape.Params{
			Kind:   shape.EMG,
			Values: params[i : i+emgParamCount],
		}, x)
	}

	return sum
}

// jointEMGJacobian maps the combined parameter index to the owning
// component's analytic EMG derivative.
func jointEMGJacobian(params []float64, x float64, i int) float64 {
	comp := i / emgParamCount
	local := i % emgParamCount

	start := comp * emgParamCount
	if start+emgParamCount > len(params) {
		return 0
	}

	return shape.Derivative(shape.Params{
		Kind:   shape.EMG,
		Values: params[start : start+emgParamCount],
	}, x, local)
}

// rSquared computes the coefficient of determination of the joint model
// over the region.
func rSquared(region *curve.Curve, params []float64) float64 {
	mean := 0.0
	for _, v := range region.Y {
		mean += v
	}

	mean /= float64(region.Len())

	ssTot := 0.0
	ssRes := 0.0

	for i, x := range region.X {
		r := region.Y[i] - jointEMGModel(params, x)
		ssRes += r * r

		d := region.Y[i] - mean
		ssTot += d * d
	}

	if ssTot <= 0 {
		return 0
	}

	return 1 - ssRes/ssTot
}

// fillEMGPeak writes the fitted EMG sub-vector into the peak record,
// recomputing the derived widths, area, and quality from the model.
func fillEMGPeak(p *curve.Peak, sub []float64, region *curve.Curve, r2 float64, res optimize.Result) {
	params := shape.Params{Kind: shape.EMG, Values: append([]float64(nil), sub...)}

	p.Amplitude = sub[0]
	p.Center = sub[1]
	p.Sigma = sub[2]
	p.Tau = sub[3]

	p.FWHM = shape.FWHM(params)
	p.HWHM = p.FWHM / 2
	p.Area = shape.Area(params)

	mode := shape.Mode(params)
	half := shape.Eval(params, mode) / 2

	// The exponential tail shifts the apex right of the location
	// parameter; the peak record reports the apex position.
	p.Center = mode

	p.LeftHalf = emgHalfCrossing(params, mode, -1, half)
	p.RightHalf = emgHalfCrossing(params, mode, 1, half)

	// The exponential tail pulls mass to the right of the mode.
	leftWidth := mode - p.LeftHalf
	if leftWidth > 0 {
		p.Asymmetry = (p.RightHalf - mode) / leftWidth
	} else {
		p.Asymmetry = 1
	}

	p.LeftBound = math.Min(p.Center-2*p.Sigma, p.LeftHalf)
	p.RightBound = math.Max(p.Center+2*p.Sigma+3*p.Tau, p.RightHalf)

	if p.LeftBound > p.Center {
		p.LeftBound = p.Center
	}

	if p.RightBound < p.Center {
		p.RightBound = p.Center
	}

	p.LeftBound = math.Max(p.LeftBound, region.X[0])
	p.RightBound = math.Min(p.RightBound, region.X[region.Len()-1])

	// Boundaries must still enclose the center after clamping to the region.
	if p.LeftBound > p.Center {
		p.LeftBound = p.Center
	}

	if p.RightBound < p.Center {
		p.RightBound = p.Center
	}

	p.R2 = r2
	p.RSS = res.FinalError
	p.StdErr = math.Sqrt(res.FinalError / float64(region.Len()))
	p.Shape = shape.EMG.String()
	p.FitParams = params.Values
}

// emgHalfCrossing finds the half-maximum crossing on one side of the mode.
func emgHalfCrossing(params shape.Params, mode, direction, half float64) float64 {
	sigma := core.PositiveWidth(params.Values[2])

	step := direction * sigma / 50

	x := mode
	for i := 0; i < 100000; i++ {
		next := x + step
		if shape.Eval(params, next) < half {
			lo, hi := x, next
			for j := 0; j < 50; j++ {
				mid := 0.5 * (lo + hi)
				if shape.Eval(params, mid) >= half {
					lo = mid
				} else {
					hi = mid
				}
			}

			return 0.5 * (lo + hi)
		}

		x = next
	}

	return x
}
