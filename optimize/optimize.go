// Package optimize provides generic sum-of-squared-residuals minimizers
// used for peak fitting: exhaustive grid search, finite-difference gradient
// descent, damped Gauss-Newton (Levenberg-Marquardt), and seeded simulated
// annealing. The optimizers are independent of the shape being fitted; they
// see only a model function, sampled data, and parameter bounds.
package optimize

import (
	"math"

	"github.com/cwbudde/algo-peaks/core"
	"github.com/cwbudde/algo-peaks/shape"
)

// Model evaluates a parameterized curve at one coordinate.
type Model func(params []float64, x float64) float64

// Jacobian returns the partial derivative of the model with respect to
// parameter i at coordinate x.
type Jacobian func(params []float64, x float64, i int) float64

// Problem bundles the model and the sampled data it is fitted against.
// Jacobian is optional; when nil, finite differences are used.
type Problem struct {
	Model    Model
	Jacobian Jacobian
	X        []float64
	Y        []float64
	Bounds   []shape.Bound
}

// Method selects the optimization algorithm.
type Method int

// Supported methods.
const (
	MethodLevenbergMarquardt Method = iota
	MethodGridSearch
	MethodGradientDescent
	MethodAnneal
)

// String returns the canonical method name.
func (m Method) String() string {
	switch m {
	case MethodLevenbergMarquardt:
		return "levenberg-marquardt"
	case MethodGridSearch:
		return "grid-search"
	case MethodGradientDescent:
		return "gradient-descent"
	case MethodAnneal:
		return "simulated-annealing"
	default:
		return "unknown"
	}
}

// MethodByName resolves a canonical method name.
func MethodByName(name string) (Method, error) {
	for m := MethodLevenbergMarquardt; m <= MethodAnneal; m++ {
		if m.String() == name {
			return m, nil
		}
	}

	return 0, core.ConfigErrorf("unknown optimizer %q", name)
}

// Config holds algorithm settings. Zero values select the documented
// defaults.
type Config struct {
	Method        Method
	MaxIterations int
	Tolerance     float64

	// LearningRate applies to gradient descent.
	LearningRate float64

	// GridPoints is the per-dimension resolution of the grid search.
	GridPoints int

	// InitialLambda is the starting Levenberg-Marquardt damping factor.
	InitialLambda float64

	// InitialTemp and Cooling apply to simulated annealing; Seed makes
	// the annealing path deterministic.
	InitialTemp float64
	Cooling     float64
	Seed        int64
}

func normalizeConfig(cfg Config) Config {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 200
	}

	if cfg.Tolerance <= 0 {
		cfg.Tolerance = 1e-10
	}

	if cfg.LearningRate <= 0 {
		cfg.LearningRate = 1e-3
	}

	if cfg.GridPoints <= 1 {
		cfg.GridPoints = 11
	}

	if cfg.InitialLambda <= 0 {
		cfg.InitialLambda = 1e-3
	}

	if cfg.InitialTemp <= 0 {
		cfg.InitialTemp = 1
	}

	if cfg.Cooling <= 0 || cfg.Cooling >= 1 {
		cfg.Cooling = 0.95
	}

	if cfg.Seed == 0 {
		cfg.Seed = 1
	}

	return cfg
}

// Result reports the outcome of one optimization run.
type Result struct {
	Params      []float64
	FinalError  float64
	Iterations  int
	Converged   bool
	ParamErrors []float64
}

// Run dispatches to the configured method.
func Run(p Problem, initial []float64, cfg Config) (Result, error) {
	if err := checkProblem(p, initial); err != nil {
		return Result{}, err
	}

	cfg = normalizeConfig(cfg)

	switch cfg.Method {
	case MethodGridSearch:
		return gridSearch(p, initial, cfg)
	case MethodGradientDescent:
		return gradientDescent(p, initial, cfg)
	case MethodLevenbergMarquardt:
		return levenbergMarquardt(p, initial, cfg)
	case MethodAnneal:
		return anneal(p, initial, cfg)
	default:
		return Result{}, core.ConfigErrorf("invalid optimizer method %d", cfg.Method)
	}
}

func checkProblem(p Problem, initial []float64) error {
	if p.Model == nil {
		return core.ConfigErrorf("optimizer model is nil")
	}

	if len(p.X) != len(p.Y) {
		return core.DataErrorf("optimizer data length mismatch: %d vs %d", len(p.X), len(p.Y))
	}

	if len(initial) == 0 {
		return core.ConfigErrorf("optimizer initial parameters are empty")
	}

	if len(p.X) < len(initial) {
		return core.DataErrorf("optimizer needs at least %d samples for %d parameters, got %d",
			len(initial), len(initial), len(p.X))
	}

	if p.Bounds != nil && len(p.Bounds) != len(initial) {
		return core.ConfigErrorf("optimizer bounds length %d != parameter length %d",
			len(p.Bounds), len(initial))
	}

	return nil
}

// clampParams limits every parameter into its bound, in place.
func clampParams(params []float64, bounds []shape.Bound) {
	for i := range params {
		if i < len(bounds) {
			params[i] = core.Clamp(params[i], bounds[i].Lo, bounds[i].Hi)
		}
	}
}

// residual computes y - model(x) into dst and returns the sum of squares.
func residual(dst []float64, p Problem, params []float64) float64 {
	sum := 0.0

	for i, x := range p.X {
		r := p.Y[i] - p.Model(params, x)
		dst[i] = r
		sum += r * r
	}

	return sum
}

// sumSquares evaluates the objective without keeping residuals.
func sumSquares(p Problem, params []float64) float64 {
	sum := 0.0

	for i, x := range p.X {
		r := p.Y[i] - p.Model(params, x)
		sum += r * r
	}

	return sum
}

// jacobianAt returns d(model)/d(param i), analytic when provided,
// otherwise a central finite difference with bound-respecting steps.
func jacobianAt(p Problem, params []float64, x float64, i int) float64 {
	if p.Jacobian != nil {
		return p.Jacobian(params, x, i)
	}

	h := 1e-6 * math.Abs(params[i])
	if h < 1e-8 {
		h = 1e-8
	}

	orig := params[i]

	params[i] = orig + h
	hi := p.Model(params, x)

	params[i] = orig - h
	lo := p.Model(params, x)

	params[i] = orig

	return (hi - lo) / (2 * h)
}

// paramErrors estimates per-parameter standard errors from the curvature
// of the objective at the optimum: err_i = sqrt(2 * s^2 / d2E/dp_i^2) with
// s^2 the residual variance. A flat or negative curvature yields +Inf for
// that parameter.
func paramErrors(p Problem, params []float64, finalError float64) []float64 {
	out := make([]float64, len(params))

	dof := len(p.X) - len(params)
	if dof < 1 {
		dof = 1
	}

	variance := finalError / float64(dof)

	for i := range params {
		h := 1e-4 * math.Abs(params[i])
		if h < 1e-6 {
			h = 1e-6
		}

		orig := params[i]

		params[i] = orig + h
		ePlus := sumSquares(p, params)

		params[i] = orig - h
		eMinus := sumSquares(p, params)

		params[i] = orig

		curvature := (ePlus - 2*finalError + eMinus) / (h * h)
		if curvature <= 0 || !core.IsFinite(curvature) {
			out[i] = math.Inf(1)
			continue
		}

		out[i] = math.Sqrt(2 * variance / curvature)
	}

	return out
}
