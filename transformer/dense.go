package transformer

import (
	"fmt"
	"math/rand/v2"

	"github.com/Alex-Nair/one-bit-ml-cli/matrix"
	"github.com/Alex-Nair/one-bit-ml-cli/utils"
	"gonum.org/v1/gonum/floats"
)

// Dense is the affine layer y = W·x + b, with b broadcast across columns.
type Dense struct {
	Weights *matrix.Matrix[float64] // (out x in)
	Biases  *matrix.Matrix[float64] // (out x 1)

	// One-bit copy of Weights, filled by Quantize.
	QuantizedWeights *matrix.Matrix[float64]

	weightGrad, biasGrad *matrix.Matrix[float64]

	cache *denseCache
	steps int
}

type denseCache struct {
	input *matrix.Matrix[float64] // (in x T)
}

// NewDense draws weights from U(-1/sqrt(in), 1/sqrt(in)) using src; biases start at zero.
func NewDense(inputSize, outputSize int, src rand.Source) (*Dense, error) {
	bound := utils.FanInBound(inputSize)
	w, err := utils.RandomMatrix(outputSize, inputSize, -bound, bound, src)
	if err != nil {
		return nil, fmt.Errorf("NewDense: %w", err)
	}
	return &Dense{
		Weights: w,
		Biases:  matrix.Zeros[float64](outputSize, 1),
	}, nil
}

// NewDenseFrom builds a layer from externally supplied parameters (copied).
func NewDenseFrom(weights, biases *matrix.Matrix[float64]) (*Dense, error) {
	if biases.Rows() != weights.Rows() || biases.Cols() != 1 {
		return nil, shapeError("NewDenseFrom", "biases", biases.Rows(), biases.Cols(), weights.Rows(), 1)
	}
	return &Dense{
		Weights: weights.Clone(),
		Biases:  biases.Clone(),
	}, nil
}

func (d *Dense) InputSize() int  { return d.Weights.Cols() }
func (d *Dense) OutputSize() int { return d.Weights.Rows() }

// WeightGradient is dL/dW from the last Backward, or nil.
func (d *Dense) WeightGradient() *matrix.Matrix[float64] { return d.weightGrad }

// BiasGradient is dL/db from the last Backward, or nil.
func (d *Dense) BiasGradient() *matrix.Matrix[float64] { return d.biasGrad }

func (d *Dense) Forward(x *matrix.Matrix[float64]) (*matrix.Matrix[float64], error) {
	out, err := d.affine("Dense.Forward", d.Weights, x)
	if err != nil {
		return nil, err
	}
	d.cache = &denseCache{input: x.Clone()}
	return out, nil
}

func (d *Dense) Backward(grad *matrix.Matrix[float64]) (*matrix.Matrix[float64], error) {
	if d.cache == nil {
		return nil, fmt.Errorf("Dense.Backward: %w", ErrUninitializedCache)
	}
	x := d.cache.input
	if gr, gc := grad.Dims(); gr != d.OutputSize() || gc != x.Cols() {
		return nil, shapeError("Dense.Backward", "grad", gr, gc, d.OutputSize(), x.Cols())
	}

	dW, err := matrix.Product(grad, x.Transpose()) // (out x in)
	if err != nil {
		return nil, fmt.Errorf("Dense.Backward: %w", err)
	}
	dX, err := matrix.Product(d.Weights.Transpose(), grad) // (in x T)
	if err != nil {
		return nil, fmt.Errorf("Dense.Backward: %w", err)
	}

	d.weightGrad = dW
	d.biasGrad = grad.RowSums() // sum over the broadcast columns
	return dX, nil
}

// UpdateParameters is a no-op until Backward has recorded gradients.
func (d *Dense) UpdateParameters(learningRate float64) {
	if d.weightGrad == nil {
		return
	}
	floats.AddScaled(d.Weights.RawData(), -learningRate, d.weightGrad.RawData())
	floats.AddScaled(d.Biases.RawData(), -learningRate, d.biasGrad.RawData())
	// stale once W moves; ForwardQuantized recomputes it
	d.QuantizedWeights = nil

	d.steps++
	if utils.DebugStep(d.steps) {
		utils.Debugf("Dense %dx%d: |dW|=%.4g |db|=%.4g at step %d",
			d.OutputSize(), d.InputSize(),
			floats.Norm(d.weightGrad.RawData(), 2), floats.Norm(d.biasGrad.RawData(), 2), d.steps)
	}
}

// Quantize stores and returns alpha*sign(W), alpha = mean(|W|). Zero maps to +alpha.
func (d *Dense) Quantize() *matrix.Matrix[float64] {
	w := d.Weights.RawData()
	alpha := 0.0
	if len(w) > 0 {
		alpha = floats.Norm(w, 1) / float64(len(w))
	}
	d.QuantizedWeights = d.Weights.Map(func(v float64) float64 {
		if v < 0 {
			return -alpha
		}
		return alpha
	})
	return d.QuantizedWeights
}

// ForwardQuantized evaluates the layer with QuantizedWeights, computing them
// if Quantize has not run since the last update. It leaves the forward cache alone.
func (d *Dense) ForwardQuantized(x *matrix.Matrix[float64]) (*matrix.Matrix[float64], error) {
	if d.QuantizedWeights == nil {
		d.Quantize()
	}
	return d.affine("Dense.ForwardQuantized", d.QuantizedWeights, x)
}

// Clone deep-copies the parameters; the copy has no cache or gradients.
func (d *Dense) Clone() *Dense {
	c := &Dense{
		Weights: d.Weights.Clone(),
		Biases:  d.Biases.Clone(),
	}
	if d.QuantizedWeights != nil {
		c.QuantizedWeights = d.QuantizedWeights.Clone()
	}
	return c
}

func (d *Dense) replicate() Layer { return d.Clone() }

func (d *Dense) affine(op string, w, x *matrix.Matrix[float64]) (*matrix.Matrix[float64], error) {
	if x.Rows() != w.Cols() {
		return nil, shapeError(op, "input", x.Rows(), x.Cols(), w.Cols(), x.Cols())
	}
	z, err := matrix.Product(w, x) // (out x T)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out, err := z.AddColumn(d.Biases)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}
