package transformer

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/Alex-Nair/one-bit-ml-cli/matrix"
	"github.com/Alex-Nair/one-bit-ml-cli/params"
	"github.com/Alex-Nair/one-bit-ml-cli/utils"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// LayerNorm normalizes each column to zero mean and unit (biased) variance,
// then applies a scalar scale and shift shared by every element.
type LayerNorm struct {
	Scale   float64
	Shift   float64
	Epsilon float64
	// Columns are independent; Workers > 1 splits them across goroutines.
	Workers int

	scaleGrad, shiftGrad float64

	cache *layerNormCache
	steps int
}

type layerNormCache struct {
	input      *matrix.Matrix[float64] // (N x T)
	normalized *matrix.Matrix[float64] // (N x T)
	mean       []float64               // per column
	variance   []float64               // per column, biased
	scale      float64
	epsilon    float64
}

// NewLayerNorm draws Scale and Shift independently from U(-initRange, initRange).
// Epsilon and Workers come from params.Config.
func NewLayerNorm(initRange float64, src rand.Source) (*LayerNorm, error) {
	scale, err := utils.RandomScalar(-initRange, initRange, src)
	if err != nil {
		return nil, fmt.Errorf("NewLayerNorm: %w", err)
	}
	shift, err := utils.RandomScalar(-initRange, initRange, src)
	if err != nil {
		return nil, fmt.Errorf("NewLayerNorm: %w", err)
	}
	return &LayerNorm{
		Scale:   scale,
		Shift:   shift,
		Epsilon: params.Config.Epsilon,
		Workers: params.Config.Workers,
	}, nil
}

// NewLayerNormFromConfig draws the scalars from U(-r, r) with
// r = params.Config.NormInitRange. A nil src is seeded from params.Config.Seed.
func NewLayerNormFromConfig(src rand.Source) (*LayerNorm, error) {
	if src == nil {
		src = utils.NewSource(params.Config.Seed)
	}
	return NewLayerNorm(params.Config.NormInitRange, src)
}

// ScaleGradient is dL/dscale from the last Backward; zero after an update.
func (ln *LayerNorm) ScaleGradient() float64 { return ln.scaleGrad }

// ShiftGradient is dL/dshift from the last Backward; zero after an update.
func (ln *LayerNorm) ShiftGradient() float64 { return ln.shiftGrad }

func (ln *LayerNorm) Forward(x *matrix.Matrix[float64]) (*matrix.Matrix[float64], error) {
	n, t := x.Dims()
	if n == 0 {
		return nil, fmt.Errorf("LayerNorm.Forward: %w: input has no rows", ErrDimensionMismatch)
	}

	c := &layerNormCache{
		input:      x.Clone(),
		normalized: matrix.Zeros[float64](n, t),
		mean:       make([]float64, t),
		variance:   make([]float64, t),
		scale:      ln.Scale,
		epsilon:    ln.Epsilon,
	}
	out := matrix.Zeros[float64](n, t)
	xd, nd, od := x.RawData(), c.normalized.RawData(), out.RawData()

	utils.ParallelFor(t, ln.Workers, func(col int) {
		mu, v := stat.PopMeanVariance(x.Column(col), nil)
		c.mean[col], c.variance[col] = mu, v
		invStd := 1 / math.Sqrt(v+c.epsilon)
		for i := 0; i < n; i++ {
			idx := i*t + col
			xhat := (xd[idx] - mu) * invStd
			nd[idx] = xhat
			od[idx] = c.scale*xhat + ln.Shift
		}
	})

	ln.cache = c
	return out, nil
}

func (ln *LayerNorm) Backward(grad *matrix.Matrix[float64]) (*matrix.Matrix[float64], error) {
	c := ln.cache
	if c == nil {
		return nil, fmt.Errorf("LayerNorm.Backward: %w", ErrUninitializedCache)
	}
	n, t := c.input.Dims()
	if !grad.SameShape(c.input) {
		return nil, shapeError("LayerNorm.Backward", "grad", grad.Rows(), grad.Cols(), n, t)
	}

	gd := grad.RawData()
	ln.scaleGrad = floats.Dot(c.normalized.RawData(), gd)
	ln.shiftGrad = floats.Sum(gd)

	dx := matrix.Zeros[float64](n, t)
	xd, dxd := c.input.RawData(), dx.RawData()
	size := float64(n)

	utils.ParallelFor(t, ln.Workers, func(col int) {
		mu := c.mean[col]
		invStd := 1 / math.Sqrt(c.variance[col]+c.epsilon)
		invStd3 := invStd * invStd * invStd

		var dVar, dMean, centered float64
		for i := 0; i < n; i++ {
			idx := i*t + col
			dXhat := c.scale * gd[idx]
			diff := xd[idx] - mu
			dVar += dXhat * diff * -0.5 * invStd3
			dMean -= dXhat * invStd
			centered -= 2 * diff
		}
		dMean += dVar * centered / size

		for i := 0; i < n; i++ {
			idx := i*t + col
			dXhat := c.scale * gd[idx]
			dxd[idx] = dXhat*invStd + dVar*2*(xd[idx]-mu)/size + dMean/size
		}
	})

	return dx, nil
}

// UpdateParameters applies and then clears the recorded gradients, so a second
// call without an intervening Backward changes nothing.
func (ln *LayerNorm) UpdateParameters(learningRate float64) {
	ln.Scale -= learningRate * ln.scaleGrad
	ln.Shift -= learningRate * ln.shiftGrad
	ln.scaleGrad, ln.shiftGrad = 0, 0

	ln.steps++
	if utils.DebugStep(ln.steps) {
		utils.Debugf("LayerNorm: scale=%.4g shift=%.4g at step %d", ln.Scale, ln.Shift, ln.steps)
	}
}

func (ln *LayerNorm) Clone() *LayerNorm {
	return &LayerNorm{
		Scale:   ln.Scale,
		Shift:   ln.Shift,
		Epsilon: ln.Epsilon,
		Workers: ln.Workers,
	}
}

func (ln *LayerNorm) replicate() Layer { return ln.Clone() }
