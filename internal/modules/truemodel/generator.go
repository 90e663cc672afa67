// Package truemodel builds the synthetic "ground truth" used by the Monte Carlo experiment:
// a block-correlated covariance matrix with shuffled asset order and a vector of means.
package truemodel

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/aristath/mcdenoise/pkg/formulas"
)

// Bounds of the uniform distribution the per-asset standard deviations are drawn from.
const (
	MinStdDev = 0.05
	MaxStdDev = 0.20
)

// Model is the true covariance structure and mean vector of a simulated market.
type Model struct {
	Mean []float64
	Std  []float64
	Cov  *mat.SymDense
}

// Dim returns the number of assets.
func (m *Model) Dim() int {
	return len(m.Mean)
}

// FormBlockMatrix returns a block-diagonal correlation matrix made of nBlocks blocks of size
// bSize. Inside a block every off-diagonal entry is bCorr, across blocks entries are 0, and the
// diagonal is 1.
func FormBlockMatrix(nBlocks, bSize int, bCorr float64) (*mat.SymDense, error) {
	if nBlocks <= 0 || bSize <= 0 {
		return nil, fmt.Errorf("invalid block layout: %d blocks of size %d", nBlocks, bSize)
	}
	if bCorr < -1 || bCorr > 1 {
		return nil, fmt.Errorf("block correlation %v outside [-1, 1]", bCorr)
	}

	n := nBlocks * bSize
	corr := mat.NewSymDense(n, nil)
	for b := 0; b < nBlocks; b++ {
		start := b * bSize
		for i := start; i < start+bSize; i++ {
			corr.SetSym(i, i, 1.0)
			for j := i + 1; j < start+bSize; j++ {
				corr.SetSym(i, j, bCorr)
			}
		}
	}
	return corr, nil
}

// FormTrueMatrix builds the true model. The block matrix is permuted on both axes with the same
// random permutation, standard deviations are drawn uniformly from [MinStdDev, MaxStdDev] and
// each mean is drawn from Normal(std_i, std_i).
//
// The random source is advanced by every draw; callers seed rng to make the model reproducible.
func FormTrueMatrix(rng *rand.Rand, nBlocks, bSize int, bCorr float64) (*Model, error) {
	block, err := FormBlockMatrix(nBlocks, bSize, bCorr)
	if err != nil {
		return nil, err
	}

	n := block.SymmetricDim()
	perm := rng.Perm(n)
	corr := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			corr.SetSym(i, j, block.At(perm[i], perm[j]))
		}
	}

	uniform := distuv.Uniform{Min: MinStdDev, Max: MaxStdDev, Src: rng}
	std := make([]float64, n)
	for i := range std {
		std[i] = uniform.Rand()
	}

	cov, err := formulas.Corr2Cov(corr, std)
	if err != nil {
		return nil, fmt.Errorf("failed to build true covariance: %w", err)
	}

	mean := make([]float64, n)
	for i := range mean {
		mean[i] = distuv.Normal{Mu: std[i], Sigma: std[i], Src: rng}.Rand()
	}

	return &Model{
		Mean: mean,
		Std:  std,
		Cov:  cov,
	}, nil
}
