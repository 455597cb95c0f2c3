package strategy

import (
	"github.com/cwbudde/algo-peaks/core"
)

// Mode selects how the controller arrives at a strategy.
type Mode int

// Operating modes.
const (
	// Automatic evaluates the scoring rules and takes the best match.
	Automatic Mode = iota

	// Manual uses the caller-supplied strategy unchanged.
	Manual

	// Hybrid starts from the automatic choice and applies caller
	// overrides per component slot on top.
	Hybrid
)

// String returns the canonical mode name.
func (m Mode) String() string {
	switch m {
	case Automatic:
		return "automatic"
	case Manual:
		return "manual"
	case Hybrid:
		return "hybrid"
	default:
		return "unknown"
	}
}

// ControllerConfig configures a strategy controller.
type ControllerConfig struct {
	Mode Mode

	// Manual is the explicit strategy for Manual mode.
	Manual *Strategy

	// Overrides maps component slot names to replacement component names,
	// applied in Hybrid mode.
	Overrides map[string]string

	// Rules replaces the default rule set when non-nil.
	Rules []Rule
}

// Controller turns a measured context into a concrete strategy.
type Controller struct {
	cfg   ControllerConfig
	rules []Rule
}

// NewController validates the configuration and returns a controller.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if cfg.Mode < Automatic || cfg.Mode > Hybrid {
		return nil, core.ConfigErrorf("invalid strategy mode %d", cfg.Mode)
	}

	if cfg.Mode == Manual {
		if cfg.Manual == nil {
			return nil, core.ConfigErrorf("manual mode needs an explicit strategy")
		}

		if err := cfg.Manual.Validate(); err != nil {
			return nil, err
		}
	}

	rules := cfg.Rules
	if rules == nil {
		rules = DefaultRules()
	}

	return &Controller{cfg: cfg, rules: rules}, nil
}

// Select maps the context to a strategy according to the operating mode.
func (sc *Controller) Select(ctx Context) (Strategy, error) {
	switch sc.cfg.Mode {
	case Manual:
		return sc.cfg.Manual.Clone(), nil
	case Automatic:
		return sc.automatic(ctx), nil
	case Hybrid:
		s := sc.automatic(ctx)

		for slot, name := range sc.cfg.Overrides {
			var err error

			s, err = s.WithSlot(slot, name)
			if err != nil {
				return Strategy{}, err
			}
		}

		return s, nil
	default:
		return Strategy{}, core.ConfigErrorf("invalid strategy mode %d", sc.cfg.Mode)
	}
}

// automatic evaluates every rule and keeps the highest-scoring candidate,
// falling back to the simple strategy when no rule fires.
func (sc *Controller) automatic(ctx Context) Strategy {
	best := SimplePeaks()
	bestScore := 0.0

	for _, rule := range sc.rules {
		score, cand := rule.Score(ctx)
		if score > bestScore {
			bestScore = score
			best = cand
		}
	}

	return best
}
