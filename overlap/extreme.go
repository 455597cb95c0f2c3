package overlap

import (
	"github.com/cwbudde/algo-peaks/curve"
	"github.com/cwbudde/algo-peaks/shape"
)

// resolveExtreme is the composed pipeline for heavily overlapping, noisy
// clusters: sharpen-and-wavelet pre-conditioning relocates the candidates,
// the joint EMG fit separates them, and a final validation pass drops
// components the fit could not support.
func resolveExtreme(peaks []*curve.Peak, c *curve.Curve, cfg Config) ([]*curve.Peak, error) {
	enhanced, err := resolveSharpenCWT(peaks, c, cfg)
	if err != nil {
		return nil, err
	}

	fitted, err := resolveEMGNLLS(enhanced, c, cfg)
	if err != nil {
		return nil, err
	}

	out := make([]*curve.Peak, 0, len(fitted))

	for _, p := range fitted {
		if !plausiblePeak(p, c) {
			continue
		}

		p.SetMeta("overlap_method", MethodExtreme.String())
		out = append(out, p)
	}

	return out, nil
}

// plausiblePeak applies the acceptance gates of the extreme pipeline:
// positive amplitude and width, center inside the data range, R^2 >= 0.5,
// width below half the data span, and a predicted-vs-observed intensity
// ratio within [0.1, 10].
func plausiblePeak(p *curve.Peak, c *curve.Curve) bool {
	if p.Amplitude <= 0 || p.Sigma <= 0 || p.FWHM <= 0 {
		return false
	}

	if p.Center < c.X[0] || p.Center > c.X[c.Len()-1] {
		return false
	}

	if p.R2 < 0.5 {
		return false
	}

	if p.FWHM > c.Span()/2 {
		return false
	}

	observed := c.Y[c.IndexOf(p.Center)]
	if observed <= 0 {
		return false
	}

	predicted := shape.Eval(shape.Params{Kind: shape.EMG, Values: p.FitParams}, p.Center)

	ratio := predicted / observed

	return ratio >= 0.1 && ratio <= 10
}
