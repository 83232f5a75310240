package transformer

import (
	"fmt"
	"math"

	"github.com/Alex-Nair/one-bit-ml-cli/matrix"
)

const (
	sqrt2OverPi = 0.7978845608028654 // sqrt(2/pi)
	geluCubic   = 0.044715
)

// GeluApply is the tanh approximation 0.5x(1 + tanh(sqrt(2/pi)(x + 0.044715x^3))).
func GeluApply(x float64) float64 {
	u := sqrt2OverPi * (x + geluCubic*x*x*x)
	return 0.5 * x * (1 + math.Tanh(u))
}

// GeluPrime is the exact derivative of GeluApply.
func GeluPrime(x float64) float64 {
	u := sqrt2OverPi * (x + geluCubic*x*x*x)
	t := math.Tanh(u)
	sech2 := 1 - t*t // stays finite where cosh overflows
	if sech2 == 0 {
		// saturated; x*du may be infinite here
		return 0.5 * (1 + t)
	}
	du := sqrt2OverPi * (1 + 3*geluCubic*x*x)
	return 0.5*(1+t) + 0.5*x*sech2*du
}

// GELU applies GeluApply elementwise. It has no parameters.
type GELU struct {
	cache *geluCache
}

type geluCache struct {
	input *matrix.Matrix[float64]
}

func NewGELU() *GELU { return &GELU{} }

func (g *GELU) Forward(x *matrix.Matrix[float64]) (*matrix.Matrix[float64], error) {
	g.cache = &geluCache{input: x.Clone()}
	return x.Map(GeluApply), nil
}

// Backward multiplies grad by GeluPrime at the cached input (not the output).
func (g *GELU) Backward(grad *matrix.Matrix[float64]) (*matrix.Matrix[float64], error) {
	if g.cache == nil {
		return nil, fmt.Errorf("GELU.Backward: %w", ErrUninitializedCache)
	}
	x := g.cache.input
	if !grad.SameShape(x) {
		return nil, shapeError("GELU.Backward", "grad", grad.Rows(), grad.Cols(), x.Rows(), x.Cols())
	}
	out, err := x.Map(GeluPrime).Hadamard(grad)
	if err != nil {
		return nil, fmt.Errorf("GELU.Backward: %w", err)
	}
	return out, nil
}

func (g *GELU) UpdateParameters(float64) {}

func (g *GELU) Clone() *GELU { return &GELU{} }

func (g *GELU) replicate() Layer { return g.Clone() }
