package optimize

import (
	"math"
)

// gradientDescent minimizes the objective with a finite-difference gradient
// and a backtracking line search along the descent direction. Every
// accepted step lowers the objective, so the result is never worse than
// the initial guess. It stops when no backtracked step improves, when the
// improvement drops below the tolerance, or at the iteration cap.
func gradientDescent(p Problem, initial []float64, cfg Config) (Result, error) {
	n := len(initial)

	params := make([]float64, n)
	copy(params, initial)
	clampParams(params, p.Bounds)

	grad := make([]float64, n)
	trial := make([]float64, n)

	curErr := sumSquares(p, params)
	converged := false
	iterations := 0

	for iter := 0; iter < cfg.MaxIterations; iter++ {
		iterations = iter + 1

		objectiveGradient(p, params, grad)

		// Scale the step so a large gradient cannot throw the parameters
		// out of the data range in one move.
		norm := 0.0
		for _, g := range grad {
			norm += g * g
		}

		norm = math.Sqrt(norm)

		step := cfg.LearningRate
		if norm > 1/cfg.LearningRate {
			step = 1 / norm
		}

		// Halve the step until the objective improves.
		improved := false
		trialErr := curErr

		for try := 0; try < 30; try++ {
			for i := range params {
				trial[i] = params[i] - step*grad[i]
			}

			clampParams(trial, p.Bounds)

			trialErr = sumSquares(p, trial)
			if trialErr < curErr {
				improved = true

				break
			}

			step /= 2
		}

		if !improved {
			// The line search exhausted its halvings without finding a
			// lower point; the gradient direction no longer helps.
			converged = true

			break
		}

		improvement := curErr - trialErr
		copy(params, trial)
		curErr = trialErr

		if improvement < cfg.Tolerance {
			converged = true

			break
		}
	}

	return Result{
		Params:      params,
		FinalError:  curErr,
		Iterations:  iterations,
		Converged:   converged,
		ParamErrors: paramErrors(p, params, curErr),
	}, nil
}

// objectiveGradient writes the finite-difference gradient of the summed
// squared residuals into grad.
func objectiveGradient(p Problem, params, grad []float64) {
	for i := range params {
		h := 1e-6 * math.Abs(params[i])
		if h < 1e-8 {
			h = 1e-8
		}

		orig := params[i]

		params[i] = orig + h
		ePlus := sumSquares(p, params)

		params[i] = orig - h
		eMinus := sumSquares(p, params)

		params[i] = orig

		grad[i] = (ePlus - eMinus) / (2 * h)
	}
}
