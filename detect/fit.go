package detect

import (
	"math"

	"github.com/cwbudde/algo-peaks/core"
	"github.com/cwbudde/algo-peaks/curve"
	"github.com/cwbudde/algo-peaks/optimize"
	"github.com/cwbudde/algo-peaks/shape"
)

// Fit detects candidates and fits the configured shape to them. A single
// candidate takes the plain optimizer path; several candidates are fitted
// jointly, every component's parameters concatenated into one vector and
// the objective summing all contributions at every sample. A component
// whose fitted parameters come out implausible is excluded rather than
// failing the whole curve.
func (d *Detector) Fit(c *curve.Curve) ([]*curve.Peak, error) {
	cands, err := d.Candidates(c)
	if err != nil {
		return nil, err
	}

	switch len(cands) {
	case 0:
		return nil, nil
	case 1:
		p, err := d.fitSingle(c, cands[0])
		if err != nil {
			return nil, err
		}

		return []*curve.Peak{p}, nil
	default:
		return d.fitJoint(c, cands)
	}
}

// FitCandidates fits externally supplied candidates, bypassing detection.
// Overlap resolvers and the workflow pipeline use this to re-fit peaks
// after pre-conditioning.
func (d *Detector) FitCandidates(c *curve.Curve, cands []*curve.Peak) ([]*curve.Peak, error) {
	switch len(cands) {
	case 0:
		return nil, nil
	case 1:
		p, err := d.fitSingle(c, cands[0])
		if err != nil {
			return nil, err
		}

		return []*curve.Peak{p}, nil
	default:
		return d.fitJoint(c, cands)
	}
}

func (d *Detector) fitSingle(c *curve.Curve, cand *curve.Peak) (*curve.Peak, error) {
	region, baseline := fitRegion(c, []*curve.Peak{cand})

	pc := shape.ParamCount(d.cfg.Shape, 0)
	if region.Len() < pc {
		return nil, core.DataErrorf("fit window has %d samples for %d parameters",
			region.Len(), pc)
	}

	seed := seedFor(d.cfg.Shape, cand, region)

	problem := optimize.Problem{
		Model:    modelFunc(d.cfg.Shape),
		Jacobian: jacobianFunc(d.cfg.Shape),
		X:        region.X,
		Y:        region.Y,
		Bounds:   seed.Bounds,
	}

	res, err := runOptimizer(problem, seed.Values, d.cfg.Optimizer)
	if err != nil {
		return nil, err
	}

	r2 := fitRSquared(region, d.cfg.Shape, res.Params)

	p := cand.Clone()
	paramsIntoPeak(p, d.cfg.Shape, res.Params, region, r2, res)
	p.ParamErrors = append([]float64(nil), res.ParamErrors...)
	p.SetMeta("baseline", baseline)

	return p, nil
}

func (d *Detector) fitJoint(c *curve.Curve, cands []*curve.Peak) ([]*curve.Peak, error) {
	region, baseline := fitRegion(c, cands)

	kind := d.cfg.Shape
	pc := shape.ParamCount(kind, 0)
	k := len(cands)

	if region.Len() < pc*k {
		return nil, core.DataErrorf("fit window has %d samples for %d joint parameters",
			region.Len(), pc*k)
	}

	initial := make([]float64, 0, pc*k)
	bounds := make([]shape.Bound, 0, pc*k)

	ext := regionExtent(region)

	for _, cand := range cands {
		seed := shape.Seed(kind, cand.Amplitude, cand.Center, cand.Sigma, ext)

		initial = append(initial, seed.Values...)
		bounds = append(bounds, seed.Bounds...)
	}

	problem := optimize.Problem{
		Model:    jointModelFunc(kind, pc),
		Jacobian: jointJacobianFunc(kind, pc),
		X:        region.X,
		Y:        region.Y,
		Bounds:   bounds,
	}

	res, err := runOptimizer(problem, initial, d.cfg.Optimizer)
	if err != nil {
		// The joint solve can go singular when components collapse onto
		// each other. Degrade to independent single fits and keep what
		// survives.
		return d.fitFallback(c, cands, err)
	}

	r2 := jointRSquared(region, kind, pc, res.Params)

	out := make([]*curve.Peak, 0, k)

	for i, cand := range cands {
		sub := res.Params[i*pc : (i+1)*pc]

		p := cand.Clone()
		paramsIntoPeak(p, kind, sub, region, r2, res)
		p.SetMeta("baseline", baseline)

		if i*pc < len(res.ParamErrors) {
			p.ParamErrors = append([]float64(nil), res.ParamErrors[i*pc:(i+1)*pc]...)
		}

		if componentOK(p, region) {
			out = append(out, p)
		}
	}

	if len(out) == 0 {
		return nil, core.ProcessErrorf("joint fit produced no plausible component out of %d", k)
	}

	return out, nil
}

// fitFallback fits every candidate on its own window and drops the ones
// that fail, surfacing the joint error only if nothing survives.
func (d *Detector) fitFallback(c *curve.Curve, cands []*curve.Peak, jointErr error) ([]*curve.Peak, error) {
	out := make([]*curve.Peak, 0, len(cands))

	for _, cand := range cands {
		p, err := d.fitSingle(c, cand)
		if err != nil {
			continue
		}

		region, _ := fitRegion(c, []*curve.Peak{cand})
		if componentOK(p, region) {
			out = append(out, p)
		}
	}

	if len(out) == 0 {
		return nil, core.ProcessErrorf("joint fit failed (%v) and no candidate fits singly", jointErr)
	}

	return out, nil
}

// fitRegion extracts the window enclosing all candidate supports and
// subtracts the constant baseline so the shape models, which have no
// offset term, see intensities relative to zero.
func fitRegion(c *curve.Curve, cands []*curve.Peak) (*curve.Curve, float64) {
	lo := cands[0].LeftBound
	hi := cands[0].RightBound
	baseline := 0.0

	for _, p := range cands {
		lo = math.Min(lo, p.LeftBound)
		hi = math.Max(hi, p.RightBound)
		baseline += p.MetaNum("baseline", 0)
	}

	baseline /= float64(len(cands))

	// Window aliases the parent curve; clone before shifting intensities.
	region := c.Window(lo, hi).Clone()
	for i := range region.Y {
		region.Y[i] -= baseline
	}

	return region, baseline
}

func regionExtent(region *curve.Curve) shape.Extent {
	ext := shape.Extent{
		XMin: region.X[0],
		XMax: region.X[region.Len()-1],
	}

	for _, v := range region.Y {
		if v > ext.YMax {
			ext.YMax = v
		}
	}

	return ext
}

// seedFor builds the initial parameter vector for one candidate, using the
// candidate's own width estimate where the detector produced one.
func seedFor(k shape.Kind, cand *curve.Peak, region *curve.Curve) shape.Params {
	width := cand.Sigma
	if width <= 0 {
		width = cand.FWHM / gaussianFWHMFactor
	}

	return shape.Seed(k, cand.Amplitude, cand.Center, width, regionExtent(region))
}

// runOptimizer dispatches a fit to the configured algorithm. Grid search
// goes through the grid-seeded polish path so the coarse grid spacing does
// not cap the fit accuracy.
func runOptimizer(p optimize.Problem, initial []float64, cfg optimize.Config) (optimize.Result, error) {
	if cfg.Method == optimize.MethodGridSearch {
		return optimize.RefineGrid(p, initial, cfg)
	}

	return optimize.Run(p, initial, cfg)
}

func modelFunc(k shape.Kind) optimize.Model {
	return func(params []float64, x float64) float64 {
		return shape.Eval(shape.Params{Kind: k, Values: params}, x)
	}
}

func jacobianFunc(k shape.Kind) optimize.Jacobian {
	return func(params []float64, x float64, i int) float64 {
		return shape.Derivative(shape.Params{Kind: k, Values: params}, x, i)
	}
}

func jointModelFunc(k shape.Kind, pc int) optimize.Model {
	return func(params []float64, x float64) float64 {
		sum := 0.0

		for i := 0; i+pc <= len(params); i += pc {
			sum += shape.Eval(shape.Params{Kind: k, Values: params[i : i+pc]}, x)
		}

		return sum
	}
}

func jointJacobianFunc(k shape.Kind, pc int) optimize.Jacobian {
	return func(params []float64, x float64, i int) float64 {
		start := (i / pc) * pc
		if start+pc > len(params) {
			return 0
		}

		return shape.Derivative(shape.Params{Kind: k, Values: params[start : start+pc]}, x, i%pc)
	}
}

func fitRSquared(region *curve.Curve, k shape.Kind, params []float64) float64 {
	return jointRSquared(region, k, len(params), params)
}

func jointRSquared(region *curve.Curve, k shape.Kind, pc int, params []float64) float64 {
	model := jointModelFunc(k, pc)

	mean := 0.0
	for _, v := range region.Y {
		mean += v
	}

	mean /= float64(region.Len())

	ssRes := 0.0
	ssTot := 0.0

	for i, x := range region.X {
		r := region.Y[i] - model(params, x)
		ssRes += r * r

		d := region.Y[i] - mean
		ssTot += d * d
	}

	if ssTot <= 0 {
		return 0
	}

	return 1 - ssRes/ssTot
}

// paramsIntoPeak writes a fitted sub-vector back into the peak record,
// recomputing the derived widths, area, and quality from the shape's
// closed-form relations.
func paramsIntoPeak(p *curve.Peak, k shape.Kind, sub []float64, region *curve.Curve, r2 float64, res optimize.Result) {
	params := shape.Params{Kind: k, Values: append([]float64(nil), sub...)}

	p.Amplitude = sub[0]
	p.Center = sub[1]

	switch k {
	case shape.Gaussian, shape.NonLinearCurve:
		p.Sigma = sub[2]
	case shape.Lorentzian:
		p.Gamma = sub[2]
	case shape.PseudoVoigt:
		p.Sigma = sub[2] / gaussianFWHMFactor
	case shape.EMG:
		p.Sigma = sub[2]
		p.Tau = sub[3]
	case shape.BiGaussian:
		p.Sigma = 0.5 * (sub[2] + sub[3])
	case shape.VoigtTail:
		p.Sigma = sub[2]
		p.Gamma = sub[3]
	case shape.PearsonIV:
		p.Sigma = sub[2]
	}

	p.FWHM = shape.FWHM(params)
	p.HWHM = p.FWHM / 2
	p.Area = shape.Area(params)

	mode := shape.Mode(params)
	half := shape.Eval(params, mode) / 2

	// For skewed shapes the location parameter sits left of the apex;
	// the peak record reports the apex position.
	p.Center = mode

	p.LeftHalf = modelHalfCrossing(params, mode, -1, half)
	p.RightHalf = modelHalfCrossing(params, mode, 1, half)

	leftWidth := mode - p.LeftHalf
	if leftWidth > 0 {
		p.Asymmetry = (p.RightHalf - mode) / leftWidth
	} else {
		p.Asymmetry = 1
	}

	p.LeftBound = math.Max(p.LeftHalf-p.FWHM, region.X[0])
	p.RightBound = math.Min(p.RightHalf+p.FWHM, region.X[region.Len()-1])

	if p.LeftBound > p.Center {
		p.LeftBound = p.Center
	}

	if p.RightBound < p.Center {
		p.RightBound = p.Center
	}

	p.R2 = r2
	p.RSS = res.FinalError
	p.StdErr = math.Sqrt(res.FinalError / float64(region.Len()))
	p.Shape = k.String()
	p.FitParams = params.Values
}

// modelHalfCrossing finds the half-maximum crossing on one side of the
// mode by a coarse march followed by bisection.
func modelHalfCrossing(params shape.Params, mode, direction, half float64) float64 {
	width := core.PositiveWidth(params.Values[2])

	step := direction * width / 50

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

	return mode + direction*width
}

// componentOK gates a fitted component: it must be a finite, positive peak
// whose center lies inside the fitted region and whose width is not wider
// than the region itself.
func componentOK(p *curve.Peak, region *curve.Curve) bool {
	if p.Validate() != nil {
		return false
	}

	if p.Amplitude <= 0 || p.FWHM <= 0 {
		return false
	}

	if p.Center < region.X[0] || p.Center > region.X[region.Len()-1] {
		return false
	}

	return p.FWHM <= region.Span()
}
