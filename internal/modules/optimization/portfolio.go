package optimization

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/aristath/mcdenoise/pkg/formulas"
)

// ErrSingularCovariance is returned when the covariance matrix cannot be inverted reliably.
var ErrSingularCovariance = errors.New("covariance matrix is singular")

// OptPort returns the analytic portfolio weights for a covariance matrix.
//
// Mathematical formulation:
//   - w = Σ⁻¹ m, then w = w / Σw_i
//   - m = 1 (vector of ones) when mu is absent: minimum-variance portfolio
//   - m = mu otherwise: the mean-variance portfolio on the efficient frontier
//
// There are no bounds, so weights may be negative.
func OptPort(cov mat.Symmetric, mu MeanVector) ([]float64, error) {
	n := cov.SymmetricDim()
	if n == 0 {
		return nil, fmt.Errorf("empty covariance matrix")
	}

	m := make([]float64, n)
	if values, ok := mu.Get(); ok {
		if len(values) != n {
			return nil, fmt.Errorf("%w: mean has %d entries, covariance is %dx%d", formulas.ErrDimensionMismatch, len(values), n, n)
		}
		copy(m, values)
	} else {
		for i := range m {
			m[i] = 1.0
		}
	}

	var inv mat.Dense
	if err := inv.Inverse(cov); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingularCovariance, err)
	}

	var wv mat.VecDense
	wv.MulVec(&inv, mat.NewVecDense(n, m))
	w := make([]float64, n)
	for i := range w {
		w[i] = wv.AtVec(i)
	}

	sum := floats.Sum(w)
	if sum == 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return nil, fmt.Errorf("cannot normalize weights: sum is %v", sum)
	}
	floats.Scale(1/sum, w)

	return w, nil
}

// PortfolioVariance returns wᵀΣw.
func PortfolioVariance(w []float64, cov mat.Symmetric) (float64, error) {
	n := cov.SymmetricDim()
	if len(w) != n {
		return 0, fmt.Errorf("%w: %d weights, covariance is %dx%d", formulas.ErrDimensionMismatch, len(w), n, n)
	}
	wv := mat.NewVecDense(n, w)
	return mat.Inner(wv, cov, wv), nil
}
