// Package matrix holds the dense 2-D container every layer is built on.
//
// Elements are stored row-major: element (r, c) lives at index c + r*cols.
// Every operation returns a fresh matrix; shape faults come back as errors
// wrapping ErrDimensionMismatch.
package matrix

import (
	"errors"
	"fmt"
	"math"
)

// ErrDimensionMismatch is returned when two operands have incompatible shapes.
var ErrDimensionMismatch = errors.New("matrix: dimension mismatch")

// Numeric is the element constraint: anything that supports + - * / and can
// be raised to a power through float64.
type Numeric interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Matrix is a dense rows x cols matrix.
type Matrix[T Numeric] struct {
	rows, cols int
	data       []T
}

// New returns a rows x cols matrix with every element set to fill.
func New[T Numeric](rows, cols int, fill T) *Matrix[T] {
	if rows < 0 || cols < 0 {
		rows, cols = 0, 0
	}
	data := make([]T, rows*cols)
	if fill != 0 {
		for i := range data {
			data[i] = fill
		}
	}
	return &Matrix[T]{rows: rows, cols: cols, data: data}
}

// Zeros is New with the additive identity.
func Zeros[T Numeric](rows, cols int) *Matrix[T] {
	return New[T](rows, cols, 0)
}

// FromSlice copies data into a rows x cols matrix.
func FromSlice[T Numeric](rows, cols int, data []T) (*Matrix[T], error) {
	if rows < 0 || cols < 0 || len(data) != rows*cols {
		return nil, fmt.Errorf("FromSlice: %w: %d values for a %dx%d matrix",
			ErrDimensionMismatch, len(data), rows, cols)
	}
	out := make([]T, len(data))
	copy(out, data)
	return &Matrix[T]{rows: rows, cols: cols, data: out}, nil
}

// FromRows builds a matrix from nested rows, which must all have equal length.
func FromRows[T Numeric](rows [][]T) (*Matrix[T], error) {
	if len(rows) == 0 {
		return Zeros[T](0, 0), nil
	}
	cols := len(rows[0])
	data := make([]T, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("FromRows: %w: row %d has %d values, want %d",
				ErrDimensionMismatch, i, len(row), cols)
		}
		data = append(data, row...)
	}
	return &Matrix[T]{rows: len(rows), cols: cols, data: data}, nil
}

func (m *Matrix[T]) Rows() int { return m.rows }
func (m *Matrix[T]) Cols() int { return m.cols }

// Dims returns (rows, cols), matching gonum's mat.Matrix.
func (m *Matrix[T]) Dims() (int, int) { return m.rows, m.cols }

// At returns element (r, c). Bounds are the caller's responsibility.
func (m *Matrix[T]) At(r, c int) T {
	return m.data[c+r*m.cols]
}

// Set writes element (r, c). Bounds are the caller's responsibility.
func (m *Matrix[T]) Set(r, c int, v T) {
	m.data[c+r*m.cols] = v
}

// RawData exposes the backing row-major slice. Writes through it mutate m.
func (m *Matrix[T]) RawData() []T {
	return m.data
}

// Column returns a copy of column c.
func (m *Matrix[T]) Column(c int) []T {
	out := make([]T, m.rows)
	for r := 0; r < m.rows; r++ {
		out[r] = m.data[c+r*m.cols]
	}
	return out
}

func (m *Matrix[T]) Clone() *Matrix[T] {
	out := make([]T, len(m.data))
	copy(out, m.data)
	return &Matrix[T]{rows: m.rows, cols: m.cols, data: out}
}

// SameShape reports whether m and n have identical dimensions.
func (m *Matrix[T]) SameShape(n *Matrix[T]) bool {
	return m.rows == n.rows && m.cols == n.cols
}

// Equal reports exact element-wise equality.
func (m *Matrix[T]) Equal(n *Matrix[T]) bool {
	if !m.SameShape(n) {
		return false
	}
	for i, v := range m.data {
		if n.data[i] != v {
			return false
		}
	}
	return true
}

func (m *Matrix[T]) String() string {
	return fmt.Sprintf("Matrix (%dx%d) %v", m.rows, m.cols, m.data)
}

// ---------- Element-wise ops ----------

func (m *Matrix[T]) Add(n *Matrix[T]) (*Matrix[T], error) {
	return m.zip("Add", n, func(a, b T) T { return a + b })
}

func (m *Matrix[T]) Subtract(n *Matrix[T]) (*Matrix[T], error) {
	return m.zip("Subtract", n, func(a, b T) T { return a - b })
}

// Divide divides element-wise. Zero divisors are not guarded.
func (m *Matrix[T]) Divide(n *Matrix[T]) (*Matrix[T], error) {
	return m.zip("Divide", n, func(a, b T) T { return a / b })
}

// Hadamard is the element-wise product.
func (m *Matrix[T]) Hadamard(n *Matrix[T]) (*Matrix[T], error) {
	return m.zip("Hadamard", n, func(a, b T) T { return a * b })
}

// PowMatrix raises every element to the matching element of exp.
func (m *Matrix[T]) PowMatrix(exp *Matrix[T]) (*Matrix[T], error) {
	return m.zip("PowMatrix", exp, pow[T])
}

// Pow raises every element to the same exponent.
func (m *Matrix[T]) Pow(exp T) *Matrix[T] {
	return m.Map(func(v T) T { return pow(v, exp) })
}

func (m *Matrix[T]) Scale(s T) *Matrix[T] {
	return m.Map(func(v T) T { return v * s })
}

func (m *Matrix[T]) AddScalar(s T) *Matrix[T] {
	return m.Map(func(v T) T { return v + s })
}

// Map applies fn to every element.
func (m *Matrix[T]) Map(fn func(v T) T) *Matrix[T] {
	out := make([]T, len(m.data))
	for i, v := range m.data {
		out[i] = fn(v)
	}
	return &Matrix[T]{rows: m.rows, cols: m.cols, data: out}
}

func (m *Matrix[T]) zip(op string, n *Matrix[T], fn func(a, b T) T) (*Matrix[T], error) {
	if !m.SameShape(n) {
		return nil, mismatch(op, m, n)
	}
	out := make([]T, len(m.data))
	for i, v := range m.data {
		out[i] = fn(v, n.data[i])
	}
	return &Matrix[T]{rows: m.rows, cols: m.cols, data: out}, nil
}

// ---------- Linear algebra ----------

// Multiply is the matrix product m·n. Requires m.cols == n.rows.
func (m *Matrix[T]) Multiply(n *Matrix[T]) (*Matrix[T], error) {
	if m.cols != n.rows {
		return nil, mismatch("Multiply", m, n)
	}
	out := Zeros[T](m.rows, n.cols)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < n.cols; j++ {
			var total T
			for k := 0; k < m.cols; k++ {
				total += m.data[k+i*m.cols] * n.data[j+k*n.cols]
			}
			out.data[j+i*n.cols] = total
		}
	}
	return out, nil
}

// Transpose returns a new cols x rows matrix.
func (m *Matrix[T]) Transpose() *Matrix[T] {
	out := Zeros[T](m.cols, m.rows)
	for r := 0; r < m.rows; r++ {
		for c := 0; c < m.cols; c++ {
			out.data[r+c*m.rows] = m.data[c+r*m.cols]
		}
	}
	return out
}

// AddColumn broadcasts an (rows x 1) column over every column of m.
func (m *Matrix[T]) AddColumn(col *Matrix[T]) (*Matrix[T], error) {
	if col.rows != m.rows || col.cols != 1 {
		return nil, mismatch("AddColumn", m, col)
	}
	out := m.Clone()
	for r := 0; r < m.rows; r++ {
		b := col.data[r]
		row := out.data[r*m.cols : (r+1)*m.cols]
		for c := range row {
			row[c] += b
		}
	}
	return out, nil
}

// RowSums returns the (rows x 1) column of per-row sums.
func (m *Matrix[T]) RowSums() *Matrix[T] {
	out := Zeros[T](m.rows, 1)
	for r := 0; r < m.rows; r++ {
		var s T
		for _, v := range m.data[r*m.cols : (r+1)*m.cols] {
			s += v
		}
		out.data[r] = s
	}
	return out
}

// AddScaledInPlace performs m += alpha*n. It is the only mutating arithmetic
// op and exists for in-place parameter updates.
func (m *Matrix[T]) AddScaledInPlace(alpha T, n *Matrix[T]) error {
	if !m.SameShape(n) {
		return mismatch("AddScaledInPlace", m, n)
	}
	for i, v := range n.data {
		m.data[i] += alpha * v
	}
	return nil
}

func pow[T Numeric](base, exp T) T {
	return T(math.Pow(float64(base), float64(exp)))
}

func mismatch[T Numeric](op string, m, n *Matrix[T]) error {
	return fmt.Errorf("%s: %w: (%d, %d) vs (%d, %d)",
		op, ErrDimensionMismatch, m.rows, m.cols, n.rows, n.cols)
}
