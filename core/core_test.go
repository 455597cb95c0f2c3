package core

import (
	"errors"
	"math"
	"testing"
)

func TestErrorKinds(t *testing.T) {
	err := MathErrorf("singular matrix at column %d", 2)
	if !errors.Is(err, ErrMath) {
		t.Fatalf("errors.Is(err, ErrMath) = false for %v", err)
	}

	if errors.Is(err, ErrConfig) {
		t.Fatalf("math error matched ErrConfig: %v", err)
	}

	if got := err.Error(); got != "math error: singular matrix at column 2" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestClamp(t *testing.T) {
	cases := []struct {
		v, lo, hi, want float64
	}{
		{0.5, 0, 1, 0.5},
		{-1, 0, 1, 0},
		{2, 0, 1, 1},
	}

	for _, c := range cases {
		if got := Clamp(c.v, c.lo, c.hi); got != c.want {
			t.Errorf("Clamp(%v, %v, %v) = %v, want %v", c.v, c.lo, c.hi, got, c.want)
		}
	}
}

func TestPositiveWidth(t *testing.T) {
	if got := PositiveWidth(0); got != WidthFloor {
		t.Fatalf("PositiveWidth(0) = %v, want %v", got, WidthFloor)
	}

	if got := PositiveWidth(2.5); got != 2.5 {
		t.Fatalf("PositiveWidth(2.5) = %v", got)
	}
}

func TestAllFinite(t *testing.T) {
	if !AllFinite([]float64{0, 1, -2}) {
		t.Fatal("finite slice reported non-finite")
	}

	if AllFinite([]float64{0, math.NaN()}) {
		t.Fatal("NaN not detected")
	}

	if AllFinite([]float64{math.Inf(1)}) {
		t.Fatal("Inf not detected")
	}
}

func TestZero(t *testing.T) {
	buf := []float64{1, -2, 3}

	Zero(buf)

	for i, v := range buf {
		if v != 0 {
			t.Fatalf("index %d not zeroed: %v", i, v)
		}
	}
}

func TestClampInt(t *testing.T) {
	cases := []struct {
		v, lo, hi, want int
	}{
		{5, 0, 10, 5},
		{-3, 0, 10, 0},
		{12, 0, 10, 10},
	}

	for _, c := range cases {
		if got := ClampInt(c.v, c.lo, c.hi); got != c.want {
			t.Errorf("ClampInt(%d, %d, %d) = %d, want %d", c.v, c.lo, c.hi, got, c.want)
		}
	}
}
