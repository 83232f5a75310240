package transformer

import (
	"math"
	"testing"

	"github.com/Alex-Nair/one-bit-ml-cli/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeluApplyKnownValues(t *testing.T) {
	assert.Equal(t, 0.0, GeluApply(0))
	assert.InDelta(t, 0.8411919906082768, GeluApply(1), 1e-12)
	assert.InDelta(t, -0.15880800939172324, GeluApply(-1), 1e-12)
	assert.InDelta(t, 1.954597694087775, GeluApply(2), 1e-12)
	assert.Equal(t, 0.5, GeluPrime(0))
}

func TestGeluPrimeMatchesFiniteDifference(t *testing.T) {
	for _, x := range []float64{-8, -3, -1.5, -0.5, -1e-3, 0, 1e-3, 0.5, 1.5, 3, 8} {
		num := utils.NumericDerivative(GeluApply, x)
		assert.InDelta(t, num, GeluPrime(x), 1e-6, "x=%g", x)
	}
}

func TestGeluSaturates(t *testing.T) {
	for _, x := range []float64{50, 1e3, 1e6} {
		assert.InDelta(t, x, GeluApply(x), 1e-9*x)
		assert.InDelta(t, 0, GeluApply(-x), 1e-9)
		assert.InDelta(t, 1, GeluPrime(x), 1e-9)
		assert.InDelta(t, 0, GeluPrime(-x), 1e-9)
		assert.False(t, math.IsNaN(GeluPrime(x)) || math.IsNaN(GeluPrime(-x)))
	}
}

func TestGeluPrimeHugeInputs(t *testing.T) {
	for _, x := range []float64{1e154, 1e200, math.MaxFloat64} {
		assert.Equal(t, 1.0, GeluPrime(x), "x=%g", x)
		assert.Equal(t, 0.0, GeluPrime(-x), "x=%g", -x)
	}
}

func TestGeluCachesCopyOfInput(t *testing.T) {
	g := NewGELU()
	x := mustMatrix(t, 1, 2, -1, 2)
	_, err := g.Forward(x)
	require.NoError(t, err)
	x.Set(0, 0, 50)

	dx, err := g.Backward(mustMatrix(t, 1, 2, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, []float64{GeluPrime(-1), GeluPrime(2)}, dx.RawData())
}

func TestGeluLayerGradient(t *testing.T) {
	x := randomInput(t, 3, 4, 31).Scale(3)
	w := randomInput(t, 3, 4, 32)
	checkInputGradient(t, "gelu dx", NewGELU(), x, w)
}

func TestGeluBackwardUsesCachedInput(t *testing.T) {
	g := NewGELU()
	x := mustMatrix(t, 1, 3, -1, 0, 2)
	_, err := g.Forward(x)
	require.NoError(t, err)

	dx, err := g.Backward(mustMatrix(t, 1, 3, 1, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, []float64{GeluPrime(-1), GeluPrime(0), GeluPrime(2)}, dx.RawData())

	_, err = g.Backward(mustMatrix(t, 3, 1, 1, 1, 1))
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
