package detect

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-peaks/curve"
	"github.com/cwbudde/algo-peaks/optimize"
	"github.com/cwbudde/algo-peaks/shape"
)

func makeCurve(t *testing.T, noise float64, seed int64, specs ...curve.GaussianSpec) *curve.Curve {
	t.Helper()

	g := curve.NewGenerator(curve.WithSeed(seed))

	c, err := g.Gaussians(0, 10, 0.02, specs...)
	if err != nil {
		t.Fatal(err)
	}

	if noise > 0 {
		c, err = g.AddNoise(c, noise)
		if err != nil {
			t.Fatal(err)
		}
	}

	return c
}

func TestCandidatesFindsIsolatedPeaks(t *testing.T) {
	c := makeCurve(t, 0.2, 7,
		curve.GaussianSpec{Center: 2.5, Amplitude: 50, Sigma: 0.3},
		curve.GaussianSpec{Center: 7.0, Amplitude: 30, Sigma: 0.4},
	)

	d, err := NewDetector(Config{})
	if err != nil {
		t.Fatal(err)
	}

	cands, err := d.Candidates(c)
	if err != nil {
		t.Fatal(err)
	}

	if len(cands) != 2 {
		t.Fatalf("got %d candidates, want 2", len(cands))
	}

	if math.Abs(cands[0].Center-2.5) > 0.1 || math.Abs(cands[1].Center-7.0) > 0.1 {
		t.Fatalf("centers %g, %g", cands[0].Center, cands[1].Center)
	}

	// FWHM of a sigma=0.3 Gaussian is about 0.706.
	if math.Abs(cands[0].FWHM-0.706) > 0.1 {
		t.Fatalf("FWHM estimate %g, want near 0.706", cands[0].FWHM)
	}

	for _, p := range cands {
		if p.Detector != DetectorName {
			t.Fatalf("detector tag %q", p.Detector)
		}

		if p.LeftBound >= p.RightBound {
			t.Fatalf("bounds [%g, %g]", p.LeftBound, p.RightBound)
		}
	}
}

func TestCandidatesThresholdSuppressesNoise(t *testing.T) {
	c := makeCurve(t, 0.5, 5, curve.GaussianSpec{Center: 5, Amplitude: 40, Sigma: 0.5})

	d, err := NewDetector(Config{})
	if err != nil {
		t.Fatal(err)
	}

	cands, err := d.Candidates(c)
	if err != nil {
		t.Fatal(err)
	}

	if len(cands) != 1 {
		t.Fatalf("got %d candidates from a single noisy peak, want 1", len(cands))
	}
}

func TestCandidatesMinSeparation(t *testing.T) {
	c := makeCurve(t, 0, 1,
		curve.GaussianSpec{Center: 5.0, Amplitude: 50, Sigma: 0.2},
		curve.GaussianSpec{Center: 5.5, Amplitude: 30, Sigma: 0.2},
	)

	d, err := NewDetector(Config{MinSeparation: 1.0})
	if err != nil {
		t.Fatal(err)
	}

	cands, err := d.Candidates(c)
	if err != nil {
		t.Fatal(err)
	}

	if len(cands) != 1 {
		t.Fatalf("got %d candidates, want the stronger of the close pair", len(cands))
	}

	if math.Abs(cands[0].Center-5.0) > 0.1 {
		t.Fatalf("kept center %g, want the stronger peak at 5.0", cands[0].Center)
	}
}

func TestCandidatesMaxPeaks(t *testing.T) {
	c := makeCurve(t, 0, 1,
		curve.GaussianSpec{Center: 2, Amplitude: 50, Sigma: 0.2},
		curve.GaussianSpec{Center: 5, Amplitude: 40, Sigma: 0.2},
		curve.GaussianSpec{Center: 8, Amplitude: 30, Sigma: 0.2},
	)

	d, err := NewDetector(Config{MaxPeaks: 2})
	if err != nil {
		t.Fatal(err)
	}

	cands, err := d.Candidates(c)
	if err != nil {
		t.Fatal(err)
	}

	if len(cands) != 2 {
		t.Fatalf("got %d candidates, want 2", len(cands))
	}

	// The weakest peak at x=8 must be the one dropped.
	for _, p := range cands {
		if math.Abs(p.Center-8) < 0.2 {
			t.Fatal("cap kept the weakest candidate")
		}
	}
}

func TestNewDetectorRejectsBadConfig(t *testing.T) {
	if _, err := NewDetector(Config{Threshold: -1}); err == nil {
		t.Fatal("negative threshold accepted")
	}

	if _, err := NewDetector(Config{Shape: shape.GaussianMixture}); err == nil {
		t.Fatal("mixture shape accepted")
	}
}

func TestFitSinglePeak(t *testing.T) {
	c := makeCurve(t, 0.1, 3, curve.GaussianSpec{Center: 4, Amplitude: 60, Sigma: 0.5})

	peaks, err := Detect(c, Config{})
	if err != nil {
		t.Fatal(err)
	}

	if len(peaks) != 1 {
		t.Fatalf("got %d peaks, want 1", len(peaks))
	}

	p := peaks[0]

	if math.Abs(p.Center-4) > 0.05 {
		t.Fatalf("center %g, want 4", p.Center)
	}

	if math.Abs(p.Amplitude-60) > 3 {
		t.Fatalf("amplitude %g, want near 60", p.Amplitude)
	}

	if math.Abs(p.Sigma-0.5) > 0.05 {
		t.Fatalf("sigma %g, want near 0.5", p.Sigma)
	}

	if p.R2 < 0.95 {
		t.Fatalf("R2 = %g", p.R2)
	}

	// Closed-form Gaussian area: amp * sigma * sqrt(2*pi).
	wantArea := 60 * 0.5 * math.Sqrt(2*math.Pi)
	if math.Abs(p.Area-wantArea)/wantArea > 0.1 {
		t.Fatalf("area %g, want near %g", p.Area, wantArea)
	}

	if p.Shape != "gaussian" {
		t.Fatalf("shape tag %q", p.Shape)
	}
}

func TestFitGridSearchPolished(t *testing.T) {
	c := makeCurve(t, 0.1, 3, curve.GaussianSpec{Center: 4, Amplitude: 60, Sigma: 0.5})

	peaks, err := Detect(c, Config{
		Optimizer: optimize.Config{Method: optimize.MethodGridSearch, GridPoints: 7},
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(peaks) != 1 {
		t.Fatalf("got %d peaks, want 1", len(peaks))
	}

	p := peaks[0]

	// A 7-point grid quantizes each parameter coarsely; the polish that
	// follows must recover the center far tighter than the grid spacing.
	if math.Abs(p.Center-4) > 0.05 {
		t.Fatalf("center %g, want 4", p.Center)
	}

	if p.R2 < 0.95 {
		t.Fatalf("R2 = %g", p.R2)
	}
}

func TestFitJointTwoPeaks(t *testing.T) {
	c := makeCurve(t, 0.2, 9,
		curve.GaussianSpec{Center: 4.0, Amplitude: 70, Sigma: 0.5},
		curve.GaussianSpec{Center: 5.5, Amplitude: 50, Sigma: 0.4},
	)

	peaks, err := Detect(c, Config{})
	if err != nil {
		t.Fatal(err)
	}

	if len(peaks) != 2 {
		t.Fatalf("got %d peaks, want 2", len(peaks))
	}

	if math.Abs(peaks[0].Center-4.0) > 0.1 || math.Abs(peaks[1].Center-5.5) > 0.1 {
		t.Fatalf("centers %g, %g", peaks[0].Center, peaks[1].Center)
	}

	for _, p := range peaks {
		if p.R2 < 0.9 {
			t.Fatalf("R2 = %g", p.R2)
		}

		if err := p.Validate(); err != nil {
			t.Fatalf("invalid peak: %v", err)
		}
	}
}

func TestFitDoesNotMutateInput(t *testing.T) {
	c := makeCurve(t, 0, 1, curve.GaussianSpec{Center: 5, Amplitude: 40, Sigma: 0.5})

	before := append([]float64(nil), c.Y...)

	if _, err := Detect(c, Config{}); err != nil {
		t.Fatal(err)
	}

	for i, v := range c.Y {
		if v != before[i] {
			t.Fatalf("input curve mutated at sample %d", i)
		}
	}
}

func TestFitNoCandidates(t *testing.T) {
	g := curve.NewGenerator(curve.WithSeed(2))

	flat, err := g.Gaussians(0, 10, 0.05)
	if err != nil {
		t.Fatal(err)
	}

	flat, err = g.AddNoise(flat, 0.1)
	if err != nil {
		t.Fatal(err)
	}

	peaks, err := Detect(flat, Config{})
	if err != nil {
		t.Fatal(err)
	}

	if len(peaks) != 0 {
		t.Fatalf("got %d peaks from noise, want 0", len(peaks))
	}
}

func TestFitEMGShape(t *testing.T) {
	// A tailing peak: EMG with sigma 0.3, tau 0.5.
	g := curve.NewGenerator(curve.WithSeed(4))

	base, err := g.Gaussians(0, 10, 0.02)
	if err != nil {
		t.Fatal(err)
	}

	params := shape.Params{Kind: shape.EMG, Values: []float64{80, 4, 0.3, 0.5}}

	y := make([]float64, base.Len())
	for i, x := range base.X {
		y[i] = shape.Eval(params, x)
	}

	c, err := curve.New(base.X, y)
	if err != nil {
		t.Fatal(err)
	}

	peaks, err := Detect(c, Config{Shape: shape.EMG})
	if err != nil {
		t.Fatal(err)
	}

	if len(peaks) != 1 {
		t.Fatalf("got %d peaks, want 1", len(peaks))
	}

	p := peaks[0]

	if p.R2 < 0.99 {
		t.Fatalf("R2 = %g", p.R2)
	}

	if p.Asymmetry <= 1 {
		t.Fatalf("asymmetry %g, want > 1 for a right-tailing peak", p.Asymmetry)
	}

	if p.Tau <= 0 {
		t.Fatalf("tau %g", p.Tau)
	}
}
