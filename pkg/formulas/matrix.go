package formulas

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrDimensionMismatch is returned when a vector and a matrix passed together disagree in size.
var ErrDimensionMismatch = errors.New("dimension mismatch")

// Corr2Cov converts a correlation matrix to a covariance matrix.
//
// Formula: cov(i,j) = corr(i,j) * std(i) * std(j)
func Corr2Cov(corr mat.Symmetric, std []float64) (*mat.SymDense, error) {
	n := corr.SymmetricDim()
	if len(std) != n {
		return nil, fmt.Errorf("%w: std has %d entries, matrix is %dx%d", ErrDimensionMismatch, len(std), n, n)
	}

	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			cov.SetSym(i, j, corr.At(i, j)*std[i]*std[j])
		}
	}
	return cov, nil
}

// Cov2Corr calculates the correlation matrix from a covariance matrix.
//
// Formula: corr(i,j) = cov(i,j) / sqrt(cov(i,i) * cov(j,j))
//
// Off-diagonal values are clamped to [-1, 1] and the diagonal is exactly 1.
func Cov2Corr(cov mat.Symmetric) (*mat.SymDense, error) {
	std, err := StdDevs(cov)
	if err != nil {
		return nil, err
	}

	n := len(std)
	corr := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		corr.SetSym(i, i, 1.0)
		for j := i + 1; j < n; j++ {
			val := cov.At(i, j) / (std[i] * std[j])
			val = math.Max(-1.0, math.Min(1.0, val))
			corr.SetSym(i, j, val)
		}
	}
	return corr, nil
}

// StdDevs returns the square roots of the diagonal of a covariance matrix.
func StdDevs(cov mat.Symmetric) ([]float64, error) {
	n := cov.SymmetricDim()
	if n == 0 {
		return nil, fmt.Errorf("empty covariance matrix")
	}

	std := make([]float64, n)
	for i := 0; i < n; i++ {
		v := cov.At(i, i)
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("invalid variance on diagonal at %d: %v", i, v)
		}
		std[i] = math.Sqrt(v)
	}
	return std, nil
}

// Symmetrize returns (a + aᵀ)/2 as a symmetric matrix. a must be square.
func Symmetrize(a mat.Matrix) (*mat.SymDense, error) {
	r, c := a.Dims()
	if r != c {
		return nil, fmt.Errorf("%w: matrix is %dx%d, expected square", ErrDimensionMismatch, r, c)
	}

	sym := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			sym.SetSym(i, j, 0.5*(a.At(i, j)+a.At(j, i)))
		}
	}
	return sym, nil
}

// Diagonal returns the diagonal of a symmetric matrix.
func Diagonal(a mat.Symmetric) []float64 {
	n := a.SymmetricDim()
	d := make([]float64, n)
	for i := 0; i < n; i++ {
		d[i] = a.At(i, i)
	}
	return d
}
