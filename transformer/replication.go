package transformer

import (
	"fmt"
)

// Replicate returns an independent copy of l with the same parameters and an
// empty cache. Every layer in this package is supported, including
// Sequential chains built from them.
func Replicate(l Layer) (Layer, error) {
	switch v := l.(type) {
	case *Sequential:
		out := &Sequential{layers: make([]Layer, len(v.layers))}
		for i, child := range v.layers {
			c, err := Replicate(child)
			if err != nil {
				return nil, fmt.Errorf("Sequential layer %d: %w", i, err)
			}
			out.layers[i] = c
		}
		return out, nil
	case replicable:
		return v.replicate(), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrNotReplicable, l)
	}
}

// Replicas makes n copies of l, one per worker. Each replica keeps its own
// cache and gradients; the source layer is never shared.
func Replicas(l Layer, n int) ([]Layer, error) {
	out := make([]Layer, n)
	for i := range out {
		r, err := Replicate(l)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}
