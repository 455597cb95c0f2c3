package optimize

import (
	"math"
	"math/rand"
)

// anneal minimizes the objective by seeded simulated annealing: parameters
// are perturbed with temperature-scaled noise, worsening moves are accepted
// with probability exp(-delta/T), and the temperature cools geometrically.
// It is the method of choice when the objective surface is multi-modal,
// e.g. under extreme peak overlap.
func anneal(p Problem, initial []float64, cfg Config) (Result, error) {
	n := len(initial)
	rng := rand.New(rand.NewSource(cfg.Seed))

	current := make([]float64, n)
	copy(current, initial)
	clampParams(current, p.Bounds)

	best := make([]float64, n)
	copy(best, current)

	trial := make([]float64, n)

	// Perturbation scale per parameter: a fraction of the bound span, or
	// of the parameter magnitude when unbounded.
	scale := make([]float64, n)
	for i := range scale {
		if i < len(p.Bounds) && p.Bounds[i].Hi > p.Bounds[i].Lo && !math.IsInf(p.Bounds[i].Hi, 1) {
			scale[i] = 0.1 * (p.Bounds[i].Hi - p.Bounds[i].Lo)
		} else {
			scale[i] = 0.1*math.Abs(current[i]) + 1e-3
		}
	}

	curErr := sumSquares(p, current)
	bestErr := curErr

	temp := cfg.InitialTemp * curErr
	if temp <= 0 {
		temp = cfg.InitialTemp
	}

	iterations := 0

	for iter := 0; iter < cfg.MaxIterations; iter++ {
		iterations = iter + 1

		for i := range trial {
			trial[i] = current[i] + rng.NormFloat64()*scale[i]*tempFraction(temp, cfg.InitialTemp, curErr)
		}

		clampParams(trial, p.Bounds)

		trialErr := sumSquares(p, trial)
		delta := trialErr - curErr

		if delta < 0 || rng.Float64() < math.Exp(-delta/temp) {
			copy(current, trial)
			curErr = trialErr

			if curErr < bestErr {
				copy(best, current)
				bestErr = curErr
			}
		}

		temp *= cfg.Cooling
		if temp < cfg.Tolerance {
			break
		}
	}

	return Result{
		Params:      best,
		FinalError:  bestErr,
		Iterations:  iterations,
		Converged:   true,
		ParamErrors: paramErrors(p, best, bestErr),
	}, nil
}

// tempFraction shrinks the perturbation amplitude as the system cools.
func tempFraction(temp, initialTemp, scaleErr float64) float64 {
	base := initialTemp * scaleErr
	if base <= 0 {
		base = initialTemp
	}

	f := temp / base
	if f > 1 {
		return 1
	}

	if f < 0.01 {
		return 0.01
	}

	return f
}
