package curve

import (
	"github.com/cwbudde/algo-peaks/core"
)

// Peak is one detected or fitted feature of a curve.
//
// Width descriptors are filled as applicable to the fitted shape: FWHM is
// always set after fitting; Sigma, Gamma, and Tau only for shapes that
// define them. LeftHalf/RightHalf are the coordinates where the intensity
// crosses half the amplitude.
type Peak struct {
	Center    float64
	Amplitude float64

	FWHM  float64
	HWHM  float64
	Sigma float64
	Gamma float64
	Tau   float64

	LeftBound  float64
	RightBound float64
	LeftHalf   float64
	RightHalf  float64

	// Asymmetry is the right/left half-width ratio; 1 for symmetric peaks.
	Asymmetry float64

	Area   float64
	R2     float64
	RSS    float64
	StdErr float64

	// Shape names the fitted model, Detector the algorithm that found
	// the candidate.
	Shape    string
	Detector string

	// FitParams is the raw parameter vector of the fitted shape, with
	// per-parameter error estimates in ParamErrors.
	FitParams   []float64
	ParamErrors []float64

	// Metadata is a diagnostic-only annotation bag. Components must not
	// branch on values written by any stage other than their immediate
	// predecessor.
	Metadata map[string]any
}

// SetMeta stores a diagnostic annotation, allocating the bag on first use.
func (p *Peak) SetMeta(key string, value any) {
	if p.Metadata == nil {
		p.Metadata = make(map[string]any)
	}

	p.Metadata[key] = value
}

// MetaNum extracts a numeric annotation, returning def if missing or of
// another type.
func (p *Peak) MetaNum(key string, def float64) float64 {
	if p.Metadata == nil {
		return def
	}

	v, ok := p.Metadata[key].(float64)
	if !ok {
		return def
	}

	return v
}

// MetaStr extracts a string annotation, returning def if missing or of
// another type.
func (p *Peak) MetaStr(key, def string) string {
	if p.Metadata == nil {
		return def
	}

	v, ok := p.Metadata[key].(string)
	if !ok {
		return def
	}

	return v
}

// MetaBool extracts a boolean annotation, returning def if missing or of
// another type.
func (p *Peak) MetaBool(key string, def bool) bool {
	if p.Metadata == nil {
		return def
	}

	v, ok := p.Metadata[key].(bool)
	if !ok {
		return def
	}

	return v
}

// Clone returns a deep copy of the peak.
func (p *Peak) Clone() *Peak {
	out := *p

	if p.FitParams != nil {
		out.FitParams = make([]float64, len(p.FitParams))
		copy(out.FitParams, p.FitParams)
	}

	if p.ParamErrors != nil {
		out.ParamErrors = make([]float64, len(p.ParamErrors))
		copy(out.ParamErrors, p.ParamErrors)
	}

	if p.Metadata != nil {
		out.Metadata = make(map[string]any, len(p.Metadata))
		for k, v := range p.Metadata {
			out.Metadata[k] = v
		}
	}

	return &out
}

// Validate checks the peak's structural invariants: non-negative amplitude,
// strictly positive width descriptors where set, ordered boundaries
// enclosing the center, and finite numeric fields.
func (p *Peak) Validate() error {
	if p.Amplitude < 0 {
		return core.DataErrorf("peak amplitude %g is negative", p.Amplitude)
	}

	for _, w := range []struct {
		name  string
		value float64
	}{
		{"fwhm", p.FWHM},
		{"sigma", p.Sigma},
		{"gamma", p.Gamma},
		{"tau", p.Tau},
	} {
		if w.value < 0 {
			return core.DataErrorf("peak %s %g is negative", w.name, w.value)
		}
	}

	if p.LeftBound > p.Center || p.Center > p.RightBound {
		return core.DataErrorf("peak boundaries [%g, %g] do not enclose center %g",
			p.LeftBound, p.RightBound, p.Center)
	}

	for _, v := range []float64{
		p.Center, p.Amplitude, p.FWHM, p.Area, p.LeftBound, p.RightBound,
	} {
		if !core.IsFinite(v) {
			return core.DataErrorf("peak contains non-finite field")
		}
	}

	if !core.AllFinite(p.FitParams) {
		return core.DataErrorf("peak fit parameters contain non-finite values")
	}

	return nil
}
