// Package workflow executes the staged peak-analysis pipeline: a
// component registry keyed by capability and name, and a controller that
// runs the eight fixed stages from detection to validation with
// configurable error handling.
package workflow

import (
	"math"

	"github.com/cwbudde/algo-peaks/curve"
	"github.com/cwbudde/algo-peaks/strategy"
)

// Params holds the parsed configuration for one component instance.
type Params struct {
	Name string
	Num  map[string]float64
	Str  map[string]string
}

// GetNum safely extracts a numeric parameter, returning def if missing or
// invalid.
func (p Params) GetNum(key string, def float64) float64 {
	if p.Num == nil {
		return def
	}

	v, ok := p.Num[key]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}

	return v
}

// GetStr safely extracts a string parameter, returning def if missing.
func (p Params) GetStr(key, def string) string {
	if p.Str == nil {
		return def
	}

	if v, ok := p.Str[key]; ok {
		return v
	}

	return def
}

// Data is the bundle whose ownership transfers from stage to stage. No
// two stages hold it at once, so components never need locking.
type Data struct {
	Curve *curve.Curve
	Peaks []*curve.Peak

	// Context holds the measured curve features once the analysis stage
	// has run; Strategy the selected component bundle.
	Context  strategy.Context
	Strategy strategy.Strategy

	// Quality and Diagnostic are written by the validation stage.
	Quality    float64
	Diagnostic string
}

// Clone returns a deep copy; retries re-execute a stage from the cloned
// input snapshot.
func (d *Data) Clone() *Data {
	out := *d
	out.Strategy = d.Strategy.Clone()

	if d.Curve != nil {
		out.Curve = d.Curve.Clone()
	}

	if d.Peaks != nil {
		out.Peaks = make([]*curve.Peak, len(d.Peaks))
		for i, p := range d.Peaks {
			out.Peaks[i] = p.Clone()
		}
	}

	return &out
}
