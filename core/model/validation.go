package model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regselect/pkg/errors"
)

// ValidateFitInput checks the shapes every estimator's Fit requires:
// non-empty X, y a column vector with the same number of rows.
func ValidateFitInput(op string, X, y mat.Matrix) (rows, cols int, err error) {
	rows, cols = X.Dims()
	if rows == 0 || cols == 0 {
		return 0, 0, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	ry, cy := y.Dims()
	if ry != rows {
		return 0, 0, errors.NewDimensionError(op, rows, ry, 0)
	}
	if cy != 1 {
		return 0, 0, errors.NewValueError(op, "y must be a column vector")
	}
	return rows, cols, nil
}

// DenseOf returns X as *mat.Dense without copying when it already is one.
func DenseOf(X mat.Matrix) *mat.Dense {
	if d, ok := X.(*mat.Dense); ok {
		return d
	}
	return mat.DenseCopyOf(X)
}

// ColumnOf copies column j of m into a new slice.
func ColumnOf(m mat.Matrix, j int) []float64 {
	r, _ := m.Dims()
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		out[i] = m.At(i, j)
	}
	return out
}

// ColumnVector wraps values as an n×1 matrix.
func ColumnVector(values []float64) *mat.Dense {
	return mat.NewDense(len(values), 1, values)
}

// SelectRows copies the given rows of X into a new matrix.
func SelectRows(X *mat.Dense, idx []int) *mat.Dense {
	_, c := X.Dims()
	out := mat.NewDense(len(idx), c, nil)
	for i, r := range idx {
		out.SetRow(i, X.RawRowView(r))
	}
	return out
}

// SelectValues returns values[idx[i]] for every i.
func SelectValues(values []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, r := range idx {
		out[i] = values[r]
	}
	return out
}
