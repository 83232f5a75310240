// Package transformer implements the layers of a feed-forward transformer
// block with closed-form backward passes: Dense, GELU, LayerNorm and the FFN
// composite, plus a general Sequential chain.
//
// Every layer takes (features x T) inputs where each of the T columns is an
// independent sample. Forward caches what Backward needs; Backward records
// parameter gradients; UpdateParameters applies them with plain gradient
// descent. A layer holds one in-flight forward at a time, so concurrent
// training needs one replica per worker (see Replicate).
package transformer

import (
	"errors"
	"fmt"

	"github.com/Alex-Nair/one-bit-ml-cli/matrix"
)

var (
	// ErrUninitializedCache is returned when Backward runs before Forward.
	ErrUninitializedCache = errors.New("transformer: backward called before forward")

	// ErrDimensionMismatch is matrix.ErrDimensionMismatch, re-exported so
	// callers only need this package for errors.Is checks.
	ErrDimensionMismatch = matrix.ErrDimensionMismatch

	// ErrNotReplicable is returned when a chain holds a layer that can't be cloned.
	ErrNotReplicable = errors.New("transformer: layer cannot be replicated")
)

// Layer is the capability set every stage implements.
type Layer interface {
	// Forward computes the output and overwrites the layer's forward cache.
	// The cache holds a copy of input, so callers may reuse it.
	Forward(input *matrix.Matrix[float64]) (*matrix.Matrix[float64], error)
	// Backward consumes the most recent forward cache, records parameter
	// gradients and returns the gradient with respect to the input.
	Backward(grad *matrix.Matrix[float64]) (*matrix.Matrix[float64], error)
	// UpdateParameters applies parameter -= learningRate * gradient in place.
	UpdateParameters(learningRate float64)
}

// replicable layers can produce an independent copy with an empty cache.
type replicable interface {
	replicate() Layer
}

func forwardChain(name string, layers []Layer, x *matrix.Matrix[float64]) (*matrix.Matrix[float64], error) {
	for i, l := range layers {
		out, err := l.Forward(x)
		if err != nil {
			return nil, fmt.Errorf("%s forward, layer %d: %w", name, i, err)
		}
		x = out
	}
	return x, nil
}

// backwardChain walks layers in reverse.
func backwardChain(name string, layers []Layer, grad *matrix.Matrix[float64]) (*matrix.Matrix[float64], error) {
	for i := len(layers) - 1; i >= 0; i-- {
		g, err := layers[i].Backward(grad)
		if err != nil {
			return nil, fmt.Errorf("%s backward, layer %d: %w", name, i, err)
		}
		grad = g
	}
	return grad, nil
}

func updateChain(layers []Layer, learningRate float64) {
	for _, l := range layers {
		l.UpdateParameters(learningRate)
	}
}

func shapeError(op string, what string, gotR, gotC, wantR, wantC int) error {
	return fmt.Errorf("%s: %w: %s is (%d, %d), want (%d, %d)",
		op, ErrDimensionMismatch, what, gotR, gotC, wantR, wantC)
}
