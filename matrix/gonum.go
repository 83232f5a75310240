package matrix

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// float64 helpers backed by gonum.

// ToDense wraps m as a *mat.Dense sharing the same backing slice.
// Empty matrices have no gonum representation and yield nil.
func ToDense(m *Matrix[float64]) *mat.Dense {
	if m.rows == 0 || m.cols == 0 {
		return nil
	}
	return mat.NewDense(m.rows, m.cols, m.data)
}

// FromDense copies any gonum matrix into a Matrix.
func FromDense(d mat.Matrix) *Matrix[float64] {
	r, c := d.Dims()
	out := Zeros[float64](r, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.data[j+i*c] = d.At(i, j)
		}
	}
	return out
}

// Product is Multiply for float64 routed through gonum's BLAS-backed Mul.
func Product(m, n *Matrix[float64]) (*Matrix[float64], error) {
	if m.cols != n.rows {
		return nil, mismatch("Product", m, n)
	}
	if m.rows == 0 || m.cols == 0 || n.cols == 0 {
		return m.Multiply(n)
	}
	out := Zeros[float64](m.rows, n.cols)
	o := mat.NewDense(out.rows, out.cols, out.data)
	o.Mul(ToDense(m), ToDense(n))
	return out, nil
}

// ApproxEqual reports whether m and n have the same shape and every pair of
// elements is within tol (absolute or relative).
func ApproxEqual(m, n *Matrix[float64], tol float64) bool {
	return m.SameShape(n) && floats.EqualApprox(m.data, n.data, tol)
}

// Format pretty-prints m the way mat.Formatted does.
func Format(m *Matrix[float64]) string {
	if m.rows == 0 || m.cols == 0 {
		return fmt.Sprintf("(%dx%d) []", m.rows, m.cols)
	}
	fa := mat.Formatted(ToDense(m), mat.Prefix(""), mat.Squeeze())
	return fmt.Sprintf("%v", fa)
}
