package transformer

import (
	"testing"

	"github.com/Alex-Nair/one-bit-ml-cli/matrix"
	"github.com/Alex-Nair/one-bit-ml-cli/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

const (
	gradAbsTol = 1e-6
	gradRelTol = 1e-4
)

func mustMatrix(t *testing.T, rows, cols int, data ...float64) *matrix.Matrix[float64] {
	t.Helper()
	m, err := matrix.FromSlice(rows, cols, data)
	require.NoError(t, err)
	return m
}

func randomInput(t *testing.T, rows, cols int, seed uint64) *matrix.Matrix[float64] {
	t.Helper()
	m, err := utils.RandomMatrix(rows, cols, -1, 1, utils.NewSource(seed))
	require.NoError(t, err)
	return m
}

// weightedLoss is L = sum(w ⊙ layer(x)), so dL/dout = w.
func weightedLoss(t *testing.T, l Layer, x, w *matrix.Matrix[float64]) float64 {
	t.Helper()
	out, err := l.Forward(x)
	require.NoError(t, err)
	return floats.Dot(out.RawData(), w.RawData())
}

// checkInputGradient compares Backward's input gradient with central differences.
func checkInputGradient(t *testing.T, name string, l Layer, x, w *matrix.Matrix[float64]) {
	t.Helper()
	_, err := l.Forward(x)
	require.NoError(t, err)
	dx, err := l.Backward(w)
	require.NoError(t, err)

	num := utils.NumericGradient(func(v []float64) float64 {
		in, err := matrix.FromSlice(x.Rows(), x.Cols(), v)
		require.NoError(t, err)
		return weightedLoss(t, l, in, w)
	}, x.RawData())
	require.NoError(t, utils.CompareGradients(name, dx.RawData(), num, gradAbsTol, gradRelTol))
}

// numericParamGradient perturbs param in place and restores it afterwards.
func numericParamGradient(t *testing.T, l Layer, param []float64, x, w *matrix.Matrix[float64]) []float64 {
	t.Helper()
	orig := append([]float64(nil), param...)
	defer func() { copy(param, orig) }()
	return utils.NumericGradient(func(v []float64) float64 {
		copy(param, v)
		return weightedLoss(t, l, x, w)
	}, orig)
}

func TestBackwardBeforeForward(t *testing.T) {
	ffn, err := NewFFN(3, 4, utils.NewSource(1))
	require.NoError(t, err)
	dense, err := NewDense(3, 2, utils.NewSource(1))
	require.NoError(t, err)
	ln, err := NewLayerNorm(1, utils.NewSource(1))
	require.NoError(t, err)

	cases := map[string]struct {
		layer Layer
		grad  *matrix.Matrix[float64]
	}{
		"dense":      {dense, matrix.Zeros[float64](2, 1)},
		"gelu":       {NewGELU(), matrix.Zeros[float64](3, 1)},
		"layernorm":  {ln, matrix.Zeros[float64](3, 1)},
		"ffn":        {ffn, matrix.Zeros[float64](3, 1)},
		"sequential": {NewSequential(dense.Clone()), matrix.Zeros[float64](2, 1)},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := tc.layer.Backward(tc.grad)
			assert.ErrorIs(t, err, ErrUninitializedCache)
		})
	}
}

func TestUpdateBeforeBackwardIsNoop(t *testing.T) {
	dense, err := NewDense(3, 2, utils.NewSource(4))
	require.NoError(t, err)
	ln, err := NewLayerNorm(1, utils.NewSource(4))
	require.NoError(t, err)

	w := dense.Weights.Clone()
	scale, shift := ln.Scale, ln.Shift

	_, err = dense.Forward(randomInput(t, 3, 2, 5))
	require.NoError(t, err)
	dense.UpdateParameters(0.5)
	ln.UpdateParameters(0.5)

	assert.True(t, dense.Weights.Equal(w))
	assert.Nil(t, dense.WeightGradient())
	assert.Equal(t, scale, ln.Scale)
	assert.Equal(t, shift, ln.Shift)
}
