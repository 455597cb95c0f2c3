package strategy

import (
	"testing"

	"github.com/cwbudde/algo-peaks/curve"
)

func testPeak(center, amplitude, fwhm, asymmetry float64) *curve.Peak {
	return &curve.Peak{
		Center:     center,
		Amplitude:  amplitude,
		FWHM:       fwhm,
		HWHM:       fwhm / 2,
		Sigma:      fwhm / 2.3548200450309493,
		Asymmetry:  asymmetry,
		LeftBound:  center - fwhm,
		RightBound: center + fwhm,
	}
}

func noisyCurve(t *testing.T, noise float64, specs ...curve.GaussianSpec) *curve.Curve {
	t.Helper()

	g := curve.NewGenerator(curve.WithSeed(1))

	c, err := g.Gaussians(0, 10, 0.05, specs...)
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

func TestBuildContext(t *testing.T) {
	c := noisyCurve(t, 0.5,
		curve.GaussianSpec{Center: 3, Amplitude: 100, Sigma: 0.5},
		curve.GaussianSpec{Center: 7, Amplitude: 80, Sigma: 0.5},
	)

	peaks := []*curve.Peak{
		testPeak(3, 100, 1.18, 1),
		testPeak(7, 80, 1.18, 1),
	}

	ctx, err := BuildContext(c, peaks)
	if err != nil {
		t.Fatal(err)
	}

	if ctx.PeakCount != 2 {
		t.Fatalf("peak count %d", ctx.PeakCount)
	}

	if ctx.OverlapRatio != 0 {
		t.Fatalf("overlap ratio %g for separated peaks", ctx.OverlapRatio)
	}

	if ctx.SNR < 10 {
		t.Fatalf("SNR %g unexpectedly low", ctx.SNR)
	}

	if ctx.ShapeComplexity > 0.2 {
		t.Fatalf("complexity %g for two identical symmetric peaks", ctx.ShapeComplexity)
	}

	if ctx.DataQuality <= 0 || ctx.DataQuality > 1 {
		t.Fatalf("data quality %g out of range", ctx.DataQuality)
	}
}

func TestBuildContextEmptyCurve(t *testing.T) {
	if _, err := BuildContext(nil, nil); err == nil {
		t.Fatal("nil curve accepted")
	}
}

func TestAutomaticSeparatedPeaksStaySimple(t *testing.T) {
	sc, err := NewController(ControllerConfig{Mode: Automatic})
	if err != nil {
		t.Fatal(err)
	}

	s, err := sc.Select(Context{PeakCount: 2, OverlapRatio: 0, SNR: 120, DataQuality: 0.6})
	if err != nil {
		t.Fatal(err)
	}

	if s.Name != "simple-peaks" {
		t.Fatalf("selected %q, want simple-peaks", s.Name)
	}

	if s.Overlap != "none" {
		t.Fatalf("overlap slot %q", s.Overlap)
	}
}

func TestAutomaticModerateOverlap(t *testing.T) {
	sc, err := NewController(ControllerConfig{Mode: Automatic})
	if err != nil {
		t.Fatal(err)
	}

	s, err := sc.Select(Context{PeakCount: 2, OverlapRatio: 0.35, SNR: 40, DataQuality: 0.5})
	if err != nil {
		t.Fatal(err)
	}

	if s.Name != "overlapping-peaks" || s.Overlap != "fbf" {
		t.Fatalf("selected %q with overlap %q", s.Name, s.Overlap)
	}
}

func TestAutomaticHeavyOverlapEscalates(t *testing.T) {
	sc, err := NewController(ControllerConfig{Mode: Automatic})
	if err != nil {
		t.Fatal(err)
	}

	// High overlap with good SNR: sharpen-and-wavelet path.
	s, err := sc.Select(Context{PeakCount: 2, OverlapRatio: 0.7, SNR: 120, DataQuality: 0.6})
	if err != nil {
		t.Fatal(err)
	}

	if s.Name != "complex-peaks" || s.Overlap != "sharpen-cwt" {
		t.Fatalf("selected %q with overlap %q", s.Name, s.Overlap)
	}

	// High overlap with poor SNR: the extreme pipeline, even though a low
	// SNR alone would force the simple strategy.
	s, err = sc.Select(Context{PeakCount: 2, OverlapRatio: 0.85, SNR: 6, DataQuality: 0.4})
	if err != nil {
		t.Fatal(err)
	}

	if s.Name != "complex-peaks" || s.Overlap != "extreme" {
		t.Fatalf("selected %q with overlap %q", s.Name, s.Overlap)
	}
}

func TestAutomaticLowSNRForcesSimple(t *testing.T) {
	sc, err := NewController(ControllerConfig{Mode: Automatic})
	if err != nil {
		t.Fatal(err)
	}

	s, err := sc.Select(Context{PeakCount: 3, OverlapRatio: 0.1, SNR: 4, DataQuality: 0.4})
	if err != nil {
		t.Fatal(err)
	}

	if s.Name != "simple-peaks" {
		t.Fatalf("selected %q at SNR 4, want simple-peaks", s.Name)
	}
}

func TestAutomaticVeryHighSNRUnlocksHighPrecision(t *testing.T) {
	sc, err := NewController(ControllerConfig{Mode: Automatic})
	if err != nil {
		t.Fatal(err)
	}

	s, err := sc.Select(Context{PeakCount: 1, OverlapRatio: 0.15, SNR: 400, DataQuality: 0.9})
	if err != nil {
		t.Fatal(err)
	}

	if s.Name != "high-precision" {
		t.Fatalf("selected %q at SNR 400, want high-precision", s.Name)
	}

	if s.Shape != "bi-gaussian" {
		t.Fatalf("shape slot %q", s.Shape)
	}
}

func TestAutomaticComplexityPicksEMG(t *testing.T) {
	sc, err := NewController(ControllerConfig{Mode: Automatic})
	if err != nil {
		t.Fatal(err)
	}

	s, err := sc.Select(Context{PeakCount: 3, OverlapRatio: 0.05, SNR: 30, ShapeComplexity: 0.9, DataQuality: 0.5})
	if err != nil {
		t.Fatal(err)
	}

	if s.Name != "complex-peaks" || s.Overlap != "emg-nlls" || s.Shape != "emg" {
		t.Fatalf("selected %q with overlap %q shape %q", s.Name, s.Overlap, s.Shape)
	}
}

func TestManualMode(t *testing.T) {
	manual := OverlappingPeaks()

	sc, err := NewController(ControllerConfig{Mode: Manual, Manual: &manual})
	if err != nil {
		t.Fatal(err)
	}

	s, err := sc.Select(Context{OverlapRatio: 0.9, SNR: 5})
	if err != nil {
		t.Fatal(err)
	}

	if s.Name != "overlapping-peaks" {
		t.Fatalf("manual mode selected %q", s.Name)
	}

	// The returned copy must not alias the caller's config map.
	s.Config["max_iterations"] = 1
	if manual.Config["max_iterations"] == 1 {
		t.Fatal("manual strategy config aliased")
	}
}

func TestManualModeNeedsStrategy(t *testing.T) {
	if _, err := NewController(ControllerConfig{Mode: Manual}); err == nil {
		t.Fatal("manual mode without strategy accepted")
	}
}

func TestHybridOverrides(t *testing.T) {
	sc, err := NewController(ControllerConfig{
		Mode: Hybrid,
		Overrides: map[string]string{
			SlotShape:     "pearson-iv",
			SlotOptimizer: "simulated-annealing",
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	s, err := sc.Select(Context{PeakCount: 2, OverlapRatio: 0.35, SNR: 40, DataQuality: 0.5})
	if err != nil {
		t.Fatal(err)
	}

	if s.Name != "overlapping-peaks" {
		t.Fatalf("base strategy %q", s.Name)
	}

	if s.Shape != "pearson-iv" || s.Optimizer != "simulated-annealing" {
		t.Fatalf("overrides not applied: shape %q optimizer %q", s.Shape, s.Optimizer)
	}

	if s.Overlap != "fbf" {
		t.Fatalf("untouched slot changed: %q", s.Overlap)
	}
}

func TestHybridRejectsUnknownSlot(t *testing.T) {
	sc, err := NewController(ControllerConfig{
		Mode:      Hybrid,
		Overrides: map[string]string{"bogus": "x"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := sc.Select(Context{}); err == nil {
		t.Fatal("unknown override slot accepted")
	}
}

func TestWithSlot(t *testing.T) {
	base := SimplePeaks()

	s, err := base.WithSlot(SlotOverlap, "fbf")
	if err != nil {
		t.Fatal(err)
	}

	if s.Overlap != "fbf" || base.Overlap != "none" {
		t.Fatal("WithSlot must not mutate the receiver")
	}

	if _, err := base.WithSlot("nope", "x"); err == nil {
		t.Fatal("unknown slot accepted")
	}
}

func TestPredefinedStrategiesValidate(t *testing.T) {
	for _, s := range []Strategy{SimplePeaks(), OverlappingPeaks(), ComplexPeaks(), HighPrecision()} {
		if err := s.Validate(); err != nil {
			t.Fatalf("%s: %v", s.Name, err)
		}
	}
}
