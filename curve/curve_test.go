package curve

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-peaks/core"
)

func TestNewValidation(t *testing.T) {
	_, err := New(nil, nil)
	if !errors.Is(err, core.ErrData) {
		t.Fatalf("empty curve: got %v, want data error", err)
	}

	_, err = New([]float64{0, 1}, []float64{0})
	if !errors.Is(err, core.ErrData) {
		t.Fatalf("length mismatch: got %v, want data error", err)
	}

	_, err = New([]float64{0, 1, 1}, []float64{0, 0, 0})
	if !errors.Is(err, core.ErrData) {
		t.Fatalf("non-increasing x: got %v, want data error", err)
	}

	_, err = New([]float64{0, 1}, []float64{0, math.NaN()})
	if !errors.Is(err, core.ErrData) {
		t.Fatalf("NaN y: got %v, want data error", err)
	}
}

func TestWindowAndIndexOf(t *testing.T) {
	c, err := New([]float64{0, 1, 2, 3, 4, 5}, []float64{0, 1, 2, 3, 4, 5})
	if err != nil {
		t.Fatal(err)
	}

	w := c.Window(1.5, 4.2)
	if w.Len() != 3 || w.X[0] != 2 || w.X[2] != 4 {
		t.Fatalf("unexpected window: %v", w.X)
	}

	if got := c.IndexOf(2.4); got != 2 {
		t.Fatalf("IndexOf(2.4) = %d, want 2", got)
	}

	if got := c.IndexOf(2.6); got != 3 {
		t.Fatalf("IndexOf(2.6) = %d, want 3", got)
	}
}

func TestAnalyzeFlatPlusPeak(t *testing.T) {
	g := NewGenerator(WithSeed(7))

	c, err := g.Gaussians(0, 10, 0.05, GaussianSpec{Center: 5, Amplitude: 100, Sigma: 1})
	if err != nil {
		t.Fatal(err)
	}

	noisy, err := g.AddNoise(c, 0.5)
	if err != nil {
		t.Fatal(err)
	}

	s := Analyze(noisy)

	if s.Max < 99 || s.Max > 101 {
		t.Fatalf("Max = %g, want close to 100", s.Max)
	}

	if math.Abs(noisy.X[s.MaxPos]-5) > 0.2 {
		t.Fatalf("MaxPos at x=%g, want near 5", noisy.X[s.MaxPos])
	}

	if s.Baseline > 1 || s.Baseline < -1 {
		t.Fatalf("Baseline = %g, want near 0", s.Baseline)
	}

	if s.SNR < 50 {
		t.Fatalf("SNR = %g, want strong signal", s.SNR)
	}
}

func TestAnalyzeNoiseNotInflatedByPeaks(t *testing.T) {
	g := NewGenerator(WithSeed(42))

	c, err := g.Gaussians(0, 10, 0.05,
		GaussianSpec{Center: 5, Amplitude: 100, Sigma: 1},
		GaussianSpec{Center: 5.3, Amplitude: 80, Sigma: 0.8},
	)
	if err != nil {
		t.Fatal(err)
	}

	noisy, err := g.AddNoise(c, 0.5)
	if err != nil {
		t.Fatal(err)
	}

	s := Analyze(noisy)

	// Uniform noise of amplitude 0.5 has sigma 0.5/sqrt(3), about 0.29.
	// A whole-distribution MAD would report several units here because
	// the peaks dominate the intensity spread.
	if s.Noise > 0.6 {
		t.Fatalf("Noise = %g, signal leaked into the noise estimate", s.Noise)
	}

	if s.Noise < 0.05 {
		t.Fatalf("Noise = %g, want near 0.29", s.Noise)
	}

	if s.SNR < 200 {
		t.Fatalf("SNR = %g, want several hundred for this curve", s.SNR)
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	g := NewGenerator(WithSeed(42))

	c, _ := g.Gaussians(0, 5, 0.1, GaussianSpec{Center: 2.5, Amplitude: 10, Sigma: 0.4})

	a, _ := g.AddNoise(c, 0.1)
	b, _ := g.AddNoise(c, 0.1)

	for i := range a.Y {
		if a.Y[i] != b.Y[i] {
			t.Fatalf("seeded noise not deterministic at index %d", i)
		}
	}
}

func TestPeakValidate(t *testing.T) {
	p := &Peak{
		Center:     5,
		Amplitude:  10,
		FWHM:       1,
		LeftBound:  4,
		RightBound: 6,
	}

	if err := p.Validate(); err != nil {
		t.Fatalf("valid peak rejected: %v", err)
	}

	bad := p.Clone()
	bad.Amplitude = -1

	if err := bad.Validate(); !errors.Is(err, core.ErrData) {
		t.Fatalf("negative amplitude: got %v", err)
	}

	bad = p.Clone()
	bad.LeftBound = 5.5

	if err := bad.Validate(); !errors.Is(err, core.ErrData) {
		t.Fatalf("boundary order: got %v", err)
	}
}

func TestPeakMetadata(t *testing.T) {
	p := &Peak{}

	p.SetMeta("quality_score", 0.92)
	p.SetMeta("quality_grade", "A")
	p.SetMeta("is_resolved", true)

	if got := p.MetaNum("quality_score", 0); got != 0.92 {
		t.Fatalf("MetaNum = %g", got)
	}

	if got := p.MetaStr("quality_grade", ""); got != "A" {
		t.Fatalf("MetaStr = %q", got)
	}

	if !p.MetaBool("is_resolved", false) {
		t.Fatal("MetaBool lost value")
	}

	if got := p.MetaNum("missing", -1); got != -1 {
		t.Fatalf("missing key default = %g", got)
	}
}

func TestSmooth(t *testing.T) {
	c, _ := New(
		[]float64{0, 1, 2, 3, 4},
		[]float64{0, 10, 0, 10, 0},
	)

	s := Smooth(c, 1)

	want := []float64{5, 10.0 / 3, 20.0 / 3, 10.0 / 3, 5}
	for i := range want {
		if math.Abs(s.Y[i]-want[i]) > 1e-12 {
			t.Fatalf("Smooth[%d] = %g, want %g", i, s.Y[i], want[i])
		}
	}

	if c.Y[1] != 10 {
		t.Fatal("Smooth modified input curve")
	}
}
