package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/algo-peaks/core"
	"github.com/cwbudde/algo-peaks/curve"
	"github.com/cwbudde/algo-peaks/strategy"
)

// ErrorMode decides what the controller does when a stage fails.
type ErrorMode int

// Error-handling modes, configured once per workflow run.
const (
	// StopOnError aborts the run and surfaces the stage error.
	StopOnError ErrorMode = iota

	// SkipOnError records the failure and continues with the previous
	// stage's data unchanged.
	SkipOnError

	// RetryOnError re-executes the failed stage from its input snapshot
	// up to MaxRetries times, then stops.
	RetryOnError
)

// String returns the canonical mode name.
func (m ErrorMode) String() string {
	switch m {
	case StopOnError:
		return "stop"
	case SkipOnError:
		return "skip"
	case RetryOnError:
		return "retry"
	default:
		return "unknown"
	}
}

// StageResult records one stage execution for diagnostics.
type StageResult struct {
	Stage    string
	Success  bool
	Duration time.Duration
	Quality  float64
	Err      error
}

// Result is the outcome of one workflow run. A run that completes every
// stage but scores below the quality threshold is a negative result, not
// an error: Passed is false and Diagnostic explains which metric fell
// short.
type Result struct {
	Peaks    []*curve.Peak
	Strategy strategy.Strategy
	Context  strategy.Context
	Stages   []StageResult

	Quality    float64
	Passed     bool
	Diagnostic string
}

// Config configures a workflow controller.
type Config struct {
	// Registry supplies the components; nil selects DefaultRegistry.
	Registry *Registry

	// StrategyMode, Manual, and Overrides configure strategy selection,
	// forwarded to the strategy controller.
	StrategyMode strategy.Mode
	Manual       *strategy.Strategy
	Overrides    map[string]string

	// ErrorMode and MaxRetries set the per-stage failure policy.
	ErrorMode  ErrorMode
	MaxRetries int

	// QualityThreshold is the terminal acceptance bar in [0, 1]. Zero
	// selects the default of 0.5.
	QualityThreshold float64

	// Logger receives per-stage diagnostics; nil discards them.
	Logger *slog.Logger
}

// Controller runs the fixed eight-stage pipeline over curves.
type Controller struct {
	cfg      Config
	registry *Registry
	sc       *strategy.Controller
	log      *slog.Logger
}

// NewController validates the configuration and returns a controller.
func NewController(cfg Config) (*Controller, error) {
	if cfg.ErrorMode < StopOnError || cfg.ErrorMode > RetryOnError {
		return nil, core.ConfigErrorf("invalid error mode %d", cfg.ErrorMode)
	}

	if cfg.ErrorMode == RetryOnError && cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}

	if cfg.QualityThreshold == 0 {
		cfg.QualityThreshold = 0.5
	}

	if cfg.QualityThreshold < 0 || cfg.QualityThreshold > 1 {
		return nil, core.ConfigErrorf("quality threshold must be in [0, 1]: %g", cfg.QualityThreshold)
	}

	sc, err := strategy.NewController(strategy.ControllerConfig{
		Mode:      cfg.StrategyMode,
		Manual:    cfg.Manual,
		Overrides: cfg.Overrides,
	})
	if err != nil {
		return nil, err
	}

	registry := cfg.Registry
	if registry == nil {
		registry = DefaultRegistry()
	}

	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &Controller{cfg: cfg, registry: registry, sc: sc, log: log}, nil
}

// stageSpec binds a pipeline position to the capability and the strategy
// slot naming its component.
type stageSpec struct {
	name string
	cap  Capability
	slot func(strategy.Strategy) string
}

func fixedSlot(name string) func(strategy.Strategy) string {
	return func(strategy.Strategy) string { return name }
}

// pipeline is the fixed stage order. The strategy is selected after the
// overlap-analysis stage has measured the context; the first two stages
// read their component names from the provisional strategy.
var pipeline = []stageSpec{
	{name: "detection", cap: CapDetector, slot: func(s strategy.Strategy) string { return s.Detector }},
	{name: "overlap-analysis", cap: CapAnalysis, slot: fixedSlot("default")},
	{name: "overlap-processing", cap: CapOverlap, slot: func(s strategy.Strategy) string { return s.Overlap }},
	{name: "shape-analysis", cap: CapShapeCheck, slot: fixedSlot("default")},
	{name: "fitting", cap: CapFitter, slot: func(s strategy.Strategy) string { return s.Shape }},
	{name: "parameter-optimization", cap: CapOptimizer, slot: func(s strategy.Strategy) string { return s.Optimizer }},
	{name: "post-processing", cap: CapPost, slot: postSlot},
	{name: "validation", cap: CapValidation, slot: fixedSlot("default")},
}

func postSlot(s strategy.Strategy) string {
	if s.Post != "" {
		return s.Post
	}

	return "default"
}

// strategyStage is the index after which the strategy is selected.
const strategyStage = 1

// Run executes the pipeline on one curve. candidates may pre-populate
// the peak list, skipping detection. Cancellation is checked only at
// stage boundaries; an in-flight stage always completes.
func (wc *Controller) Run(ctx context.Context, c *curve.Curve, candidates []*curve.Peak) (*Result, error) {
	if c == nil || c.Len() == 0 {
		return nil, core.DataErrorf("workflow needs a non-empty curve")
	}

	data := &Data{
		Curve:    c,
		Peaks:    candidates,
		Strategy: wc.provisionalStrategy(),
	}

	result := &Result{}

	for i, spec := range pipeline {
		if err := ctx.Err(); err != nil {
			return nil, core.ProcessErrorf("workflow cancelled before stage %s: %v", spec.name, err)
		}

		out, sr := wc.runStage(spec, data)
		result.Stages = append(result.Stages, sr)

		wc.log.Info("stage finished",
			"stage", spec.name,
			"success", sr.Success,
			"duration", sr.Duration,
			"quality", sr.Quality,
			"peaks", len(data.Peaks))

		if !sr.Success {
			if wc.cfg.ErrorMode == SkipOnError {
				continue
			}

			result.Diagnostic = fmt.Sprintf("stage %s failed: %v", spec.name, sr.Err)

			return result, sr.Err
		}

		data = out

		if i == strategyStage {
			selected, err := wc.sc.Select(data.Context)
			if err != nil {
				return result, err
			}

			data.Strategy = selected
			result.Strategy = selected
			result.Context = data.Context

			wc.log.Info("strategy selected",
				"strategy", selected.Name,
				"overlap", selected.Overlap,
				"shape", selected.Shape,
				"overlap_ratio", data.Context.OverlapRatio,
				"snr", data.Context.SNR)
		}
	}

	// A strategy may carry its own acceptance bar, overriding the
	// controller default.
	threshold := data.Strategy.ConfigNum("quality_threshold", wc.cfg.QualityThreshold)

	result.Peaks = data.Peaks
	result.Quality = data.Quality
	result.Passed = data.Quality >= threshold

	if !result.Passed {
		result.Diagnostic = fmt.Sprintf("validation quality %.3f below threshold %.3f",
			data.Quality, threshold)
	}

	return result, nil
}

// runStage builds and executes one stage, applying the retry policy. It
// always hands the stage a snapshot so a failed attempt cannot leak
// partial mutations into the next one.
func (wc *Controller) runStage(spec stageSpec, data *Data) (*Data, StageResult) {
	sr := StageResult{Stage: spec.name}
	start := time.Now()

	attempts := 1
	if wc.cfg.ErrorMode == RetryOnError {
		attempts += wc.cfg.MaxRetries
	}

	name := spec.slot(data.Strategy)
	params := Params{Name: name, Num: data.Strategy.Config}

	var out *Data
	var err error

	for attempt := 0; attempt < attempts; attempt++ {
		comp, buildErr := wc.registry.Build(spec.cap, name, params)
		if buildErr != nil {
			err = buildErr
			break
		}

		out, err = comp.Process(data.Clone())
		if err == nil {
			break
		}

		wc.log.Warn("stage attempt failed",
			"stage", spec.name, "attempt", attempt+1, "error", err)
	}

	sr.Duration = time.Since(start)

	if err != nil || out == nil {
		sr.Success = false
		sr.Err = err

		return nil, sr
	}

	sr.Success = true
	sr.Quality = stageQuality(spec.name, out)

	return out, sr
}

// stageQuality is the stage-specific quality check recorded in the
// StageResult.
func stageQuality(stage string, data *Data) float64 {
	switch stage {
	case "detection", "overlap-analysis", "overlap-processing":
		if len(data.Peaks) > 0 {
			return 1
		}

		return 0
	case "fitting", "parameter-optimization":
		return overallQuality(data.Peaks)
	case "validation":
		return data.Quality
	default:
		return 1
	}
}

// provisionalStrategy supplies component names for the stages that run
// before the context is measured.
func (wc *Controller) provisionalStrategy() strategy.Strategy {
	if wc.cfg.StrategyMode == strategy.Manual && wc.cfg.Manual != nil {
		return wc.cfg.Manual.Clone()
	}

	return strategy.SimplePeaks()
}
