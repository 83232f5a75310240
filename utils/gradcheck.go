package utils

import (
	"fmt"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats/scalar"
)

// Finite-difference gradient checking. Closed-form backward passes are only
// trusted once they agree with these estimates.

// GradStep is the central-difference step used by the checkers.
const GradStep = 1e-5

var centralSettings = &fd.Settings{
	Formula: fd.Central,
	Step:    GradStep,
}

// NumericGradient estimates df/dx at x with central differences.
// f may read x but must not retain it.
func NumericGradient(f func(x []float64) float64, x []float64) []float64 {
	return fd.Gradient(nil, f, x, centralSettings)
}

// NumericDerivative estimates f'(x) with a central difference.
func NumericDerivative(f func(x float64) float64, x float64) float64 {
	return fd.Derivative(f, x, centralSettings)
}

// CompareGradients returns an error naming the first index where analytic and
// numeric disagree beyond absTol and relTol.
func CompareGradients(name string, analytic, numeric []float64, absTol, relTol float64) error {
	if len(analytic) != len(numeric) {
		return fmt.Errorf("%s: gradient length mismatch: analytic=%d numeric=%d", name, len(analytic), len(numeric))
	}
	for i := range analytic {
		if !scalar.EqualWithinAbsOrRel(analytic[i], numeric[i], absTol, relTol) {
			return fmt.Errorf("%s[%d] grad mismatch: num=%.6g ana=%.6g", name, i, numeric[i], analytic[i])
		}
	}
	return nil
}
