package curve

import (
	"math"
	"math/rand"

	"github.com/cwbudde/algo-peaks/core"
)

// GaussianSpec describes one synthetic Gaussian component.
type GaussianSpec struct {
	Center    float64
	Amplitude float64
	Sigma     float64
}

// Generator creates deterministic synthetic curves from a shared
// configuration. Noise generation is seeded for reproducibility.
type Generator struct {
	seed int64
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithSeed sets the deterministic random seed for noise generation.
func WithSeed(seed int64) GeneratorOption {
	return func(g *Generator) {
		g.seed = seed
	}
}

// NewGenerator creates a configured curve generator.
func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{seed: 1}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g
}

// Gaussians samples a sum of Gaussian components on [x0, x1] with the
// given step.
func (g *Generator) Gaussians(x0, x1, step float64, specs ...GaussianSpec) (*Curve, error) {
	if step <= 0 {
		return nil, core.ConfigErrorf("generator step must be > 0: %g", step)
	}

	if x1 <= x0 {
		return nil, core.ConfigErrorf("generator range [%g, %g] is empty", x0, x1)
	}

	n := int(math.Floor((x1-x0)/step)) + 1
	x := make([]float64, n)
	y := make([]float64, n)

	for i := range x {
		xi := x0 + float64(i)*step
		x[i] = xi

		for _, s := range specs {
			sigma := core.PositiveWidth(s.Sigma)
			d := (xi - s.Center) / sigma
			y[i] += s.Amplitude * math.Exp(-0.5*d*d)
		}
	}

	return New(x, y)
}

// AddNoise returns a copy of the curve with seeded uniform noise in
// [-amplitude, amplitude] added to the intensities.
func (g *Generator) AddNoise(c *Curve, amplitude float64) (*Curve, error) {
	if amplitude < 0 {
		return nil, core.ConfigErrorf("noise amplitude must be >= 0: %g", amplitude)
	}

	out := c.Clone()
	rng := rand.New(rand.NewSource(g.seed))

	for i := range out.Y {
		out.Y[i] += (rng.Float64()*2 - 1) * amplitude
	}

	return out, nil
}
