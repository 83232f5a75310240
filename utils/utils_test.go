package utils

import (
	"bytes"
	"log"
	"math"
	"sync/atomic"
	"testing"

	"github.com/Alex-Nair/one-bit-ml-cli/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomMatrixBoundsAndShape(t *testing.T) {
	m, err := RandomMatrix(4, 5, -0.25, 0.75, NewSource(1))
	require.NoError(t, err)
	r, c := m.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 5, c)
	for _, v := range m.RawData() {
		assert.GreaterOrEqual(t, v, -0.25)
		assert.Less(t, v, 0.75)
	}
}

func TestRandomMatrixIsReproducible(t *testing.T) {
	a, err := RandomMatrix(3, 3, -1, 1, NewSource(9))
	require.NoError(t, err)
	b, err := RandomMatrix(3, 3, -1, 1, NewSource(9))
	require.NoError(t, err)
	c, err := RandomMatrix(3, 3, -1, 1, NewSource(10))
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestRandomRejectsBadRange(t *testing.T) {
	_, err := RandomMatrix(2, 2, 1, -1, NewSource(1))
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = RandomMatrix(-1, 2, -1, 1, NewSource(1))
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = RandomScalar(math.NaN(), 1, NewSource(1))
	assert.ErrorIs(t, err, ErrInvalidRange)

	v, err := RandomScalar(0.5, 0.5, NewSource(1))
	require.NoError(t, err)
	assert.Equal(t, 0.5, v)
}

func TestFanInBound(t *testing.T) {
	assert.InDelta(t, 0.5, FanInBound(4), 1e-9)
}

func TestParallelForVisitsEachIndexOnce(t *testing.T) {
	for _, workers := range []int{0, 1, 3, 8, 100} {
		const n = 37
		var hits [n]int32
		var total atomic.Int32
		ParallelFor(n, workers, func(i int) {
			atomic.AddInt32(&hits[i], 1)
			total.Add(1)
		})
		assert.Equal(t, int32(n), total.Load(), "workers=%d", workers)
		for i := range hits {
			assert.Equal(t, int32(1), hits[i], "workers=%d index=%d", workers, i)
		}
	}
}

func TestNumericGradientQuadratic(t *testing.T) {
	// f(x) = x0^2 + 3*x0*x1, grad = (2x0 + 3x1, 3x0)
	f := func(x []float64) float64 { return x[0]*x[0] + 3*x[0]*x[1] }
	x := []float64{1.5, -2}
	num := NumericGradient(f, x)
	require.NoError(t, CompareGradients("quad", []float64{2*1.5 + 3*-2, 3 * 1.5}, num, 1e-6, 1e-6))
	assert.Equal(t, []float64{1.5, -2}, x, "x must not be modified")
}

func TestNumericDerivative(t *testing.T) {
	d := NumericDerivative(math.Sin, 0.3)
	assert.InDelta(t, math.Cos(0.3), d, 1e-8)
}

func TestCompareGradientsReportsMismatch(t *testing.T) {
	err := CompareGradients("w", []float64{1, 2}, []float64{1, 2.5}, 1e-6, 1e-6)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "w[1]")

	assert.Error(t, CompareGradients("w", []float64{1}, []float64{1, 2}, 1, 1))
}

func TestDebugGating(t *testing.T) {
	saved := params.Config
	defer func() { params.Config = saved }()
	out := log.Writer()
	defer log.SetOutput(out)
	var buf bytes.Buffer
	log.SetOutput(&buf)

	params.Config.Debug = false
	Debugf("hidden %d", 1)
	assert.False(t, DebugStep(4))
	assert.Empty(t, buf.String())

	params.Config.Debug = true
	params.Config.DebugEvery = 2
	Debugf("shown %d", 2)
	assert.Contains(t, buf.String(), "[debug] shown 2")
	assert.True(t, DebugStep(4))
	assert.False(t, DebugStep(3))
}

func TestCompareGradientsAbsOrRel(t *testing.T) {
	// large values pass on the relative bound, tiny ones on the absolute bound
	require.NoError(t, CompareGradients("big", []float64{1e6}, []float64{1e6 + 1}, 1e-6, 1e-4))
	require.NoError(t, CompareGradients("tiny", []float64{1e-9}, []float64{2e-9}, 1e-6, 1e-4))
	assert.Error(t, CompareGradients("mid", []float64{1}, []float64{1.01}, 1e-6, 1e-4))
}
