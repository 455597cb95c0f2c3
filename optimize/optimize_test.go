package optimize

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-peaks/core"
	"github.com/cwbudde/algo-peaks/shape"
)

// gaussianModel is the three-parameter test model (amplitude, center, sigma).
func gaussianModel(params []float64, x float64) float64 {
	sigma := core.PositiveWidth(params[2])
	d := (x - params[1]) / sigma

	return params[0] * math.Exp(-0.5*d*d)
}

// gaussianData samples a noiseless Gaussian on [0, 10].
func gaussianData(amp, center, sigma float64) (x, y []float64) {
	n := 201
	x = make([]float64, n)
	y = make([]float64, n)

	for i := range x {
		x[i] = float64(i) * 0.05
		y[i] = gaussianModel([]float64{amp, center, sigma}, x[i])
	}

	return x, y
}

func gaussianProblem(amp, center, sigma float64) Problem {
	x, y := gaussianData(amp, center, sigma)

	return Problem{
		Model: gaussianModel,
		X:     x,
		Y:     y,
		Bounds: []shape.Bound{
			{Lo: 0, Hi: 2 * amp},
			{Lo: 0, Hi: 10},
			{Lo: core.WidthFloor, Hi: 10},
		},
	}
}

func checkRecovery(t *testing.T, res Result, want []float64, relTol float64) {
	t.Helper()

	for i, w := range want {
		rel := math.Abs(res.Params[i]-w) / math.Abs(w)
		if rel > relTol {
			t.Fatalf("param %d: got %g, want %g (rel err %g)", i, res.Params[i], w, rel)
		}
	}

	if !core.AllFinite(res.Params) {
		t.Fatalf("non-finite parameters: %v", res.Params)
	}

	for _, e := range res.ParamErrors {
		if math.IsNaN(e) {
			t.Fatalf("NaN parameter error: %v", res.ParamErrors)
		}
	}
}

func TestLevenbergMarquardtRecoversGaussian(t *testing.T) {
	p := gaussianProblem(100, 5, 1)

	res, err := Run(p, []float64{80, 4.5, 1.5}, Config{Method: MethodLevenbergMarquardt})
	if err != nil {
		t.Fatal(err)
	}

	if !res.Converged {
		t.Fatalf("did not converge after %d iterations (error %g)", res.Iterations, res.FinalError)
	}

	checkRecovery(t, res, []float64{100, 5, 1}, 0.001)
}

func TestGradientDescentImprovesFit(t *testing.T) {
	p := gaussianProblem(100, 5, 1)

	initial := []float64{90, 4.8, 1.2}
	startErr := sumSquares(p, initial)

	res, err := Run(p, initial, Config{
		Method:        MethodGradientDescent,
		MaxIterations: 2000,
		LearningRate:  1e-5,
	})
	if err != nil {
		t.Fatal(err)
	}

	if res.FinalError >= startErr {
		t.Fatalf("no improvement: %g -> %g", startErr, res.FinalError)
	}

	checkRecovery(t, res, []float64{100, 5, 1}, 0.02)
}

func TestGradientDescentOversizedStepNeverWorsens(t *testing.T) {
	p := gaussianProblem(100, 5, 1)

	initial := []float64{60, 3.5, 2.5}
	startErr := sumSquares(p, initial)

	// A learning rate this large overshoots on every raw step; the line
	// search must backtrack instead of returning a worse point.
	res, err := Run(p, initial, Config{
		Method:        MethodGradientDescent,
		MaxIterations: 200,
		LearningRate:  10,
	})
	if err != nil {
		t.Fatal(err)
	}

	if res.FinalError > startErr {
		t.Fatalf("fit got worse: %g -> %g", startErr, res.FinalError)
	}
}

func TestGridSearchFindsBasin(t *testing.T) {
	p := gaussianProblem(100, 5, 1)

	res, err := Run(p, []float64{50, 2, 5}, Config{
		Method:     MethodGridSearch,
		GridPoints: 21,
	})
	if err != nil {
		t.Fatal(err)
	}

	// 21 points over [0,10] lands exactly on center 5 and amplitude 100.
	checkRecovery(t, res, []float64{100, 5}, 0.01)

	if res.Iterations != 21*21*21 {
		t.Fatalf("evaluations = %d, want %d", res.Iterations, 21*21*21)
	}
}

func TestRefineGridPolishes(t *testing.T) {
	p := gaussianProblem(100, 5, 1)

	res, err := RefineGrid(p, []float64{50, 2, 5}, Config{GridPoints: 11})
	if err != nil {
		t.Fatal(err)
	}

	checkRecovery(t, res, []float64{100, 5, 1}, 0.001)
}

func TestAnnealRecoversGaussian(t *testing.T) {
	p := gaussianProblem(100, 5, 1)

	res, err := Run(p, []float64{60, 3, 2}, Config{
		Method:        MethodAnneal,
		MaxIterations: 5000,
		Seed:          7,
	})
	if err != nil {
		t.Fatal(err)
	}

	refined, err := Run(p, res.Params, Config{Method: MethodLevenbergMarquardt})
	if err != nil {
		t.Fatal(err)
	}

	checkRecovery(t, refined, []float64{100, 5, 1}, 0.02)
}

func TestDeterministicRepeats(t *testing.T) {
	p := gaussianProblem(100, 5, 1)
	initial := []float64{80, 4.5, 1.5}

	for _, method := range []Method{
		MethodLevenbergMarquardt,
		MethodGridSearch,
		MethodGradientDescent,
		MethodAnneal,
	} {
		cfg := Config{Method: method, Seed: 42, MaxIterations: 300}

		a, err := Run(p, initial, cfg)
		if err != nil {
			t.Fatalf("%s: %v", method, err)
		}

		b, err := Run(p, initial, cfg)
		if err != nil {
			t.Fatalf("%s: %v", method, err)
		}

		for i := range a.Params {
			if a.Params[i] != b.Params[i] {
				t.Fatalf("%s: param %d differs between runs: %g vs %g",
					method, i, a.Params[i], b.Params[i])
			}
		}

		if a.FinalError != b.FinalError {
			t.Fatalf("%s: final error differs: %g vs %g", method, a.FinalError, b.FinalError)
		}
	}
}

func TestBoundsAlwaysRespected(t *testing.T) {
	p := gaussianProblem(100, 5, 1)

	for _, method := range []Method{
		MethodLevenbergMarquardt,
		MethodGridSearch,
		MethodGradientDescent,
		MethodAnneal,
	} {
		res, err := Run(p, []float64{150, 9.5, 4}, Config{Method: method, MaxIterations: 100})
		if err != nil {
			t.Fatalf("%s: %v", method, err)
		}

		for i, v := range res.Params {
			if v < p.Bounds[i].Lo || v > p.Bounds[i].Hi {
				t.Fatalf("%s: param %d = %g outside [%g, %g]",
					method, i, v, p.Bounds[i].Lo, p.Bounds[i].Hi)
			}
		}
	}
}

func TestProblemValidation(t *testing.T) {
	_, err := Run(Problem{}, []float64{1}, Config{})
	if !errors.Is(err, core.ErrConfig) {
		t.Fatalf("nil model: got %v", err)
	}

	p := Problem{Model: gaussianModel, X: []float64{1, 2}, Y: []float64{1, 2}}

	_, err = Run(p, []float64{1, 2, 3}, Config{})
	if !errors.Is(err, core.ErrData) {
		t.Fatalf("insufficient samples: got %v", err)
	}

	p.Y = []float64{1}

	_, err = Run(p, []float64{1}, Config{})
	if !errors.Is(err, core.ErrData) {
		t.Fatalf("length mismatch: got %v", err)
	}
}

func TestSolveGaussianSingular(t *testing.T) {
	aug := [][]float64{
		{1, 2, 3},
		{2, 4, 6},
	}

	_, err := solveGaussian(aug, 2)
	if !errors.Is(err, core.ErrMath) {
		t.Fatalf("singular system: got %v, want math error", err)
	}
}

func TestSolveGaussianKnownSystem(t *testing.T) {
	// 2x + y = 5; x - y = 1 -> x = 2, y = 1.
	aug := [][]float64{
		{2, 1, 5},
		{1, -1, 1},
	}

	out, err := solveGaussian(aug, 2)
	if err != nil {
		t.Fatal(err)
	}

	if math.Abs(out[0]-2) > 1e-12 || math.Abs(out[1]-1) > 1e-12 {
		t.Fatalf("solution %v, want [2 1]", out)
	}
}

func TestAnalyticJacobianPath(t *testing.T) {
	x, y := gaussianData(100, 5, 1)

	p := Problem{
		Model: gaussianModel,
		Jacobian: func(params []float64, x float64, i int) float64 {
			return shape.Derivative(shape.Params{Kind: shape.Gaussian, Values: params}, x, i)
		},
		X: x,
		Y: y,
		Bounds: []shape.Bound{
			{Lo: 0, Hi: 200}, {Lo: 0, Hi: 10}, {Lo: core.WidthFloor, Hi: 10},
		},
	}

	res, err := Run(p, []float64{80, 4.5, 1.5}, Config{Method: MethodLevenbergMarquardt})
	if err != nil {
		t.Fatal(err)
	}

	checkRecovery(t, res, []float64{100, 5, 1}, 0.001)
}
