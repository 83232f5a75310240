package transformer

import (
	"fmt"
	"math/rand/v2"

	"github.com/Alex-Nair/one-bit-ml-cli/matrix"
	"github.com/Alex-Nair/one-bit-ml-cli/params"
	"github.com/Alex-Nair/one-bit-ml-cli/utils"
)

// FFN is the position-wise feed-forward block: Dense(d->inner) -> GELU -> Dense(inner->d).
type FFN struct {
	Inner      *Dense // (inner x d)
	Activation *GELU
	Outer      *Dense // (d x inner)
}

// NewFFN draws both Dense layers from src, inner first.
func NewFFN(inputSize, innerSize int, src rand.Source) (*FFN, error) {
	inner, err := NewDense(inputSize, innerSize, src)
	if err != nil {
		return nil, fmt.Errorf("NewFFN inner: %w", err)
	}
	outer, err := NewDense(innerSize, inputSize, src)
	if err != nil {
		return nil, fmt.Errorf("NewFFN outer: %w", err)
	}
	return &FFN{
		Inner:      inner,
		Activation: NewGELU(),
		Outer:      outer,
	}, nil
}

// NewFFNFromConfig sizes the block from params.Config. A nil src is seeded
// from params.Config.Seed.
func NewFFNFromConfig(src rand.Source) (*FFN, error) {
	if src == nil {
		src = utils.NewSource(params.Config.Seed)
	}
	return NewFFN(params.Config.DModel, params.Config.InnerSize, src)
}

func (f *FFN) stages() []Layer {
	return []Layer{f.Inner, f.Activation, f.Outer}
}

func (f *FFN) Forward(x *matrix.Matrix[float64]) (*matrix.Matrix[float64], error) {
	return forwardChain("FFN", f.stages(), x)
}

func (f *FFN) Backward(grad *matrix.Matrix[float64]) (*matrix.Matrix[float64], error) {
	return backwardChain("FFN", f.stages(), grad)
}

func (f *FFN) UpdateParameters(learningRate float64) {
	updateChain(f.stages(), learningRate)
}

// Quantize refreshes the one-bit weights of both Dense layers.
func (f *FFN) Quantize() {
	f.Inner.Quantize()
	f.Outer.Quantize()
}

// ForwardQuantized runs the block on quantized weights without touching any cache.
func (f *FFN) ForwardQuantized(x *matrix.Matrix[float64]) (*matrix.Matrix[float64], error) {
	h, err := f.Inner.ForwardQuantized(x)
	if err != nil {
		return nil, fmt.Errorf("FFN quantized inner: %w", err)
	}
	out, err := f.Outer.ForwardQuantized(h.Map(GeluApply))
	if err != nil {
		return nil, fmt.Errorf("FFN quantized outer: %w", err)
	}
	return out, nil
}

func (f *FFN) Clone() *FFN {
	return &FFN{
		Inner:      f.Inner.Clone(),
		Activation: f.Activation.Clone(),
		Outer:      f.Outer.Clone(),
	}
}

func (f *FFN) replicate() Layer { return f.Clone() }
