package utils

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/Alex-Nair/one-bit-ml-cli/matrix"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrInvalidRange is returned for an empty sampling interval or a negative shape.
var ErrInvalidRange = errors.New("utils: invalid range")

// NewSource returns a seeded PCG source so initialisation is reproducible.
func NewSource(seed uint64) rand.Source {
	return rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
}

// RandomMatrix returns a (rows x cols) matrix of independent U(min, max) draws
// taken from src. A nil src falls back to the global generator.
func RandomMatrix(rows, cols int, min, max float64, src rand.Source) (*matrix.Matrix[float64], error) {
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("RandomMatrix: %w: shape (%d, %d)", ErrInvalidRange, rows, cols)
	}
	dist, err := uniform(min, max, src)
	if err != nil {
		return nil, err
	}
	m := matrix.Zeros[float64](rows, cols)
	data := m.RawData()
	for i := range data {
		data[i] = dist.Rand()
	}
	return m, nil
}

// RandomScalar draws a single value from U(min, max).
func RandomScalar(min, max float64, src rand.Source) (float64, error) {
	dist, err := uniform(min, max, src)
	if err != nil {
		return 0, err
	}
	return dist.Rand(), nil
}

// FanInBound is the 1/sqrt(fan-in) bound used for weight init.
func FanInBound(fanIn int) float64 {
	return 1.0 / math.Sqrt(float64(fanIn)+1e-12)
}

func uniform(min, max float64, src rand.Source) (distuv.Uniform, error) {
	if math.IsNaN(min) || math.IsNaN(max) || min > max {
		return distuv.Uniform{}, fmt.Errorf("%w: [%g, %g)", ErrInvalidRange, min, max)
	}
	return distuv.Uniform{Min: min, Max: max, Src: src}, nil
}
