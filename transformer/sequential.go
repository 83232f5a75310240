package transformer

import (
	"github.com/Alex-Nair/one-bit-ml-cli/matrix"
)

// Sequential chains layers: Forward runs them in order, Backward in reverse.
// An empty chain is the identity.
type Sequential struct {
	layers []Layer
}

func NewSequential(layers ...Layer) *Sequential {
	return &Sequential{layers: append([]Layer(nil), layers...)}
}

func (s *Sequential) Add(l Layer) { s.layers = append(s.layers, l) }

func (s *Sequential) Layers() []Layer { return s.layers }

func (s *Sequential) Len() int { return len(s.layers) }

func (s *Sequential) Forward(x *matrix.Matrix[float64]) (*matrix.Matrix[float64], error) {
	return forwardChain("Sequential", s.layers, x)
}

func (s *Sequential) Backward(grad *matrix.Matrix[float64]) (*matrix.Matrix[float64], error) {
	return backwardChain("Sequential", s.layers, grad)
}

func (s *Sequential) UpdateParameters(learningRate float64) {
	updateChain(s.layers, learningRate)
}

// Clone replicates every child. It fails with ErrNotReplicable when a child
// is not one of this package's layers.
func (s *Sequential) Clone() (*Sequential, error) {
	r, err := Replicate(s)
	if err != nil {
		return nil, err
	}
	return r.(*Sequential), nil
}
