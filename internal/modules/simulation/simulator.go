// Package simulation draws finite observation windows from a known model and estimates the
// sample mean and covariance from them.
package simulation

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/aristath/mcdenoise/pkg/formulas"
)

// Sample holds one simulated observation window and the statistics estimated from it.
type Sample struct {
	Obs       *mat.Dense    // nObs x N, one observation per row
	Mean      []float64     // column means of Obs
	Cov       *mat.SymDense // sample covariance (plain or shrunk)
	Shrinkage float64       // Ledoit-Wolf intensity, 0 for the plain estimator
}

// SimCovMu draws nObs i.i.d. observations from MultivariateNormal(mu0, cov0) and returns the
// sample mean and covariance. With shrink the covariance is the Ledoit-Wolf estimate, otherwise
// the unbiased sample covariance (denominator nObs-1).
//
// A window that is short relative to N gives an ill-conditioned covariance; that is the case the
// experiment studies, so it is not rejected here.
func SimCovMu(rng *rand.Rand, mu0 []float64, cov0 mat.Symmetric, nObs int, shrink bool) (*Sample, error) {
	n := cov0.SymmetricDim()
	if len(mu0) != n {
		return nil, fmt.Errorf("%w: mean has %d entries, covariance is %dx%d", formulas.ErrDimensionMismatch, len(mu0), n, n)
	}
	if nObs < 1 {
		return nil, fmt.Errorf("invalid number of observations: %d", nObs)
	}
	if !shrink && nObs < 2 {
		return nil, fmt.Errorf("insufficient data: need at least 2 observations, got %d", nObs)
	}

	dist, ok := distmv.NewNormal(mu0, cov0, rng)
	if !ok {
		return nil, fmt.Errorf("covariance matrix is not positive definite")
	}

	obs := mat.NewDense(nObs, n, nil)
	row := make([]float64, n)
	for t := 0; t < nObs; t++ {
		dist.Rand(row)
		obs.SetRow(t, row)
	}

	mean := make([]float64, n)
	col := make([]float64, nObs)
	for j := 0; j < n; j++ {
		mat.Col(col, j, obs)
		mean[j] = stat.Mean(col, nil)
	}

	sample := &Sample{
		Obs:  obs,
		Mean: mean,
	}

	if shrink {
		cov, intensity, err := LedoitWolf(obs)
		if err != nil {
			return nil, fmt.Errorf("failed to apply Ledoit-Wolf shrinkage: %w", err)
		}
		sample.Cov = cov
		sample.Shrinkage = intensity
		return sample, nil
	}

	cov := mat.NewSymDense(n, nil)
	stat.CovarianceMatrix(cov, obs, nil)
	sample.Cov = cov
	return sample, nil
}
