package optimize

// gridSearch exhaustively evaluates the objective over a Cartesian grid
// spanned by the parameter bounds at cfg.GridPoints per dimension. It walks
// the grid with an explicit N-dimensional index counter, so stack depth is
// independent of the parameter count. Parameters without bounds keep their
// initial value.
func gridSearch(p Problem, initial []float64, cfg Config) (Result, error) {
	n := len(initial)

	lo := make([]float64, n)
	step := make([]float64, n)
	points := make([]int, n)

	for i := range initial {
		if i < len(p.Bounds) && p.Bounds[i].Hi > p.Bounds[i].Lo {
			lo[i] = p.Bounds[i].Lo
			points[i] = cfg.GridPoints
			step[i] = (p.Bounds[i].Hi - p.Bounds[i].Lo) / float64(cfg.GridPoints-1)
		} else {
			lo[i] = initial[i]
			points[i] = 1
			step[i] = 0
		}
	}

	idx := make([]int, n)
	trial := make([]float64, n)

	best := make([]float64, n)
	copy(best, initial)
	clampParams(best, p.Bounds)

	bestErr := sumSquares(p, best)
	evaluations := 0

	for {
		for i := range trial {
			trial[i] = lo[i] + float64(idx[i])*step[i]
		}

		clampParams(trial, p.Bounds)

		if err := sumSquares(p, trial); err < bestErr {
			bestErr = err
			copy(best, trial)
		}

		evaluations++

		// Increment the mixed-radix counter; done when it wraps.
		carry := true
		for i := 0; i < n && carry; i++ {
			idx[i]++
			if idx[i] < points[i] {
				carry = false
			} else {
				idx[i] = 0
			}
		}

		if carry {
			break
		}
	}

	return Result{
		Params:      best,
		FinalError:  bestErr,
		Iterations:  evaluations,
		Converged:   true,
		ParamErrors: paramErrors(p, best, bestErr),
	}, nil
}

// RefineGrid runs a grid search and uses its best sample to seed a
// Levenberg-Marquardt polish. It is the robust-but-expensive path for
// poorly seeded fits.
func RefineGrid(p Problem, initial []float64, cfg Config) (Result, error) {
	coarse, err := gridSearch(p, initial, normalizeConfig(cfg))
	if err != nil {
		return Result{}, err
	}

	lmCfg := cfg
	lmCfg.Method = MethodLevenbergMarquardt

	polished, err := Run(p, coarse.Params, lmCfg)
	if err != nil {
		// The grid result is still usable when the polish fails.
		return coarse, nil //nolint:nilerr
	}

	if polished.FinalError <= coarse.FinalError {
		return polished, nil
	}

	return coarse, nil
}
