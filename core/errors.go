package core

import (
	"errors"
	"fmt"
)

// Error kind sentinels. Components wrap one of these so callers can classify
// failures with errors.Is without depending on concrete error values.
var (
	// ErrConfig marks a missing or invalid method name, or an
	// out-of-range configuration parameter.
	ErrConfig = errors.New("config error")

	// ErrData marks insufficient or unusable input data, e.g. fewer
	// sample points than model parameters.
	ErrData = errors.New("data error")

	// ErrMath marks a numerical failure, e.g. a singular matrix during a
	// linear solve or a degenerate width causing division by zero.
	ErrMath = errors.New("math error")

	// ErrProcess marks a generic algorithmic failure signaled explicitly
	// by a component, e.g. exceeding iterations without convergence.
	ErrProcess = errors.New("process error")
)

// ConfigErrorf wraps a formatted message as a config error.
func ConfigErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

// DataErrorf wraps a formatted message as a data error.
func DataErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrData, fmt.Sprintf(format, args...))
}

// MathErrorf wraps a formatted message as a math error.
func MathErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMath, fmt.Sprintf(format, args...))
}

// ProcessErrorf wraps a formatted message as a process error.
func ProcessErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProcess, fmt.Sprintf(format, args...))
}
