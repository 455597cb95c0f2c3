package strategy

import (
	"math"

	"github.com/cwbudde/algo-peaks/core"
	"github.com/cwbudde/algo-peaks/curve"
	"github.com/cwbudde/algo-peaks/overlap"
)

// Context summarizes one curve and its candidate peaks in the scalar
// features the scoring rules consume. Built once per curve.
type Context struct {
	PeakCount    int
	OverlapRatio float64
	SNR          float64

	// ShapeComplexity is 0 for uniform symmetric peaks and approaches 1
	// as widths diverge and asymmetry grows.
	ShapeComplexity float64

	// DataQuality maps the curve's dynamic range onto [0, 1].
	DataQuality float64
}

// BuildContext measures the curve and candidate set.
func BuildContext(c *curve.Curve, peaks []*curve.Peak) (Context, error) {
	if c == nil || c.Len() == 0 {
		return Context{}, core.DataErrorf("context needs a non-empty curve")
	}

	stats := curve.Analyze(c)

	ctx := Context{
		PeakCount:       len(peaks),
		OverlapRatio:    overlap.Degree(peaks),
		SNR:             stats.SNR,
		ShapeComplexity: shapeComplexity(peaks),
		DataQuality:     dataQuality(stats.DynamicRange),
	}

	return ctx, nil
}

// shapeComplexity combines the coefficient of variation of the peak
// widths with the mean deviation from unit asymmetry.
func shapeComplexity(peaks []*curve.Peak) float64 {
	if len(peaks) == 0 {
		return 0
	}

	meanW := 0.0
	asym := 0.0

	for _, p := range peaks {
		meanW += p.FWHM

		if p.Asymmetry > 0 {
			asym += math.Abs(p.Asymmetry - 1)
		}
	}

	meanW /= float64(len(peaks))
	asym /= float64(len(peaks))

	cv := 0.0

	if meanW > 0 && len(peaks) > 1 {
		ss := 0.0
		for _, p := range peaks {
			d := p.FWHM - meanW
			ss += d * d
		}

		cv = math.Sqrt(ss/float64(len(peaks))) / meanW
	}

	return core.Clamp(0.5*cv+0.5*asym, 0, 1)
}

// dataQuality maps the dynamic range logarithmically onto [0, 1]; four
// decades or more count as pristine data.
func dataQuality(dynamicRange float64) float64 {
	if dynamicRange <= 1 {
		return 0
	}

	return core.Clamp(math.Log10(dynamicRange)/4, 0, 1)
}
