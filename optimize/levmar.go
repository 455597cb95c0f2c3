package optimize

import (
	"math"

	"github.com/cwbudde/algo-peaks/core"
)

// levenbergMarquardt minimizes the objective with a damped Gauss-Newton
// iteration: it builds the Jacobian, solves (J'J + lambda*I) dp = J'r by
// Gaussian elimination with partial pivoting, and accepts the step only if
// the error decreases (halving lambda), otherwise doubles lambda and
// retries. A singular normal matrix is reported as a math error.
func levenbergMarquardt(p Problem, initial []float64, cfg Config) (Result, error) {
	n := len(initial)
	m := len(p.X)

	params := make([]float64, n)
	copy(params, initial)
	clampParams(params, p.Bounds)

	res := make([]float64, m)
	jac := make([][]float64, m)

	for i := range jac {
		jac[i] = make([]float64, n)
	}

	jtj := make([][]float64, n)
	for i := range jtj {
		jtj[i] = make([]float64, n+1)
	}

	trial := make([]float64, n)

	curErr := residual(res, p, params)
	lambda := cfg.InitialLambda
	converged := false
	iterations := 0

	for iter := 0; iter < cfg.MaxIterations; iter++ {
		iterations = iter + 1

		for i, x := range p.X {
			for j := 0; j < n; j++ {
				jac[i][j] = jacobianAt(p, params, x, j)
			}
		}

		// Augmented normal equations: [J'J + lambda*I | J'r].
		for a := 0; a < n; a++ {
			core.Zero(jtj[a])

			for i := 0; i < m; i++ {
				for b := 0; b < n; b++ {
					jtj[a][b] += jac[i][a] * jac[i][b]
				}

				jtj[a][n] += jac[i][a] * res[i]
			}

			jtj[a][a] += lambda
		}

		delta, err := solveGaussian(jtj, n)
		if err != nil {
			return Result{}, err
		}

		for i := range params {
			trial[i] = params[i] + delta[i]
		}

		clampParams(trial, p.Bounds)

		trialErr := sumSquares(p, trial)

		if trialErr < curErr {
			improvement := curErr - trialErr

			copy(params, trial)
			// Refresh the residual vector at the accepted point so the
			// next J'r is built against the current parameters.
			curErr = residual(res, p, params)
			lambda /= 2

			if improvement < cfg.Tolerance {
				converged = true

				break
			}
		} else {
			lambda *= 2

			if lambda > 1e12 {
				// Damping has degenerated to a vanishing step; stop
				// without claiming convergence.
				break
			}
		}
	}

	if !core.AllFinite(params) || !core.IsFinite(curErr) {
		return Result{}, core.MathErrorf("levenberg-marquardt produced non-finite parameters")
	}

	return Result{
		Params:      params,
		FinalError:  curErr,
		Iterations:  iterations,
		Converged:   converged,
		ParamErrors: paramErrors(p, params, curErr),
	}, nil
}

// solveGaussian solves the n x n augmented system in place by Gaussian
// elimination with partial pivoting. aug rows must have length n+1.
func solveGaussian(aug [][]float64, n int) ([]float64, error) {
	const pivotEps = 1e-12

	for col := 0; col < n; col++ {
		// Partial pivot: swap in the row with the largest magnitude.
		pivot := col
		for row := col + 1; row < n; row++ {
			if math.Abs(aug[row][col]) > math.Abs(aug[pivot][col]) {
				pivot = row
			}
		}

		if math.Abs(aug[pivot][col]) < pivotEps {
			return nil, core.MathErrorf("singular matrix at column %d", col)
		}

		aug[col], aug[pivot] = aug[pivot], aug[col]

		for row := col + 1; row < n; row++ {
			factor := aug[row][col] / aug[col][col]
			for k := col; k <= n; k++ {
				aug[row][k] -= factor * aug[col][k]
			}
		}
	}

	out := make([]float64, n)

	for row := n - 1; row >= 0; row-- {
		sum := aug[row][n]
		for k := row + 1; k < n; k++ {
			sum -= aug[row][k] * out[k]
		}

		out[row] = sum / aug[row][row]
	}

	return out, nil
}
