package workflow

import (
	"github.com/cwbudde/algo-peaks/core"
)

// Capability names one narrow component role in the pipeline.
type Capability string

// Component capabilities, one per pipeline role.
const (
	CapDetector   Capability = "detector"
	CapAnalysis   Capability = "overlap-analysis"
	CapOverlap    Capability = "overlap"
	CapShapeCheck Capability = "shape-analysis"
	CapFitter     Capability = "fitter"
	CapOptimizer  Capability = "optimizer"
	CapPost       Capability = "post-processing"
	CapValidation Capability = "validation"
)

// Component is the narrow contract every pipeline stage implementation
// satisfies: consume the data bundle, return the transformed bundle.
type Component interface {
	Process(data *Data) (*Data, error)
}

// ComponentFunc adapts a plain function to the Component interface.
type ComponentFunc func(data *Data) (*Data, error)

// Process implements Component.
func (f ComponentFunc) Process(data *Data) (*Data, error) {
	return f(data)
}

// Factory builds one component instance from its configuration.
type Factory func(p Params) (Component, error)

type registryKey struct {
	cap  Capability
	name string
}

// Registry maps (capability, name) pairs to component factories. It is
// written during setup and read-only afterwards, so concurrent batch
// workers can share it without locking.
type Registry struct {
	factories map[registryKey]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[registryKey]Factory)}
}

// Register adds a factory under the capability and name.
func (r *Registry) Register(cap Capability, name string, factory Factory) error {
	if cap == "" || name == "" {
		return core.ConfigErrorf("empty capability or component name")
	}

	if factory == nil {
		return core.ConfigErrorf("nil factory for %s/%s", cap, name)
	}

	key := registryKey{cap: cap, name: name}
	if _, exists := r.factories[key]; exists {
		return core.ConfigErrorf("duplicate component %s/%s", cap, name)
	}

	r.factories[key] = factory

	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(cap Capability, name string, factory Factory) {
	if err := r.Register(cap, name, factory); err != nil {
		panic("workflow registry: " + err.Error())
	}
}

// Lookup returns the factory for the capability and name, or nil.
func (r *Registry) Lookup(cap Capability, name string) Factory {
	return r.factories[registryKey{cap: cap, name: name}]
}

// Build looks up and instantiates a component in one step.
func (r *Registry) Build(cap Capability, name string, p Params) (Component, error) {
	factory := r.Lookup(cap, name)
	if factory == nil {
		return nil, core.ConfigErrorf("no %s component named %q", cap, name)
	}

	return factory(p)
}
