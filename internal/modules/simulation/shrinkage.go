package simulation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// LedoitWolf estimates the covariance of the observations in x (one observation per row) with
// Ledoit-Wolf shrinkage toward a scaled identity target mu*I, mu = trace(S)/p, where S is the
// maximum-likelihood (1/n) covariance of the centered data.
//
// Σ_shrunk = (1-δ) * S + δ * mu * I
//
// δ is the closed-form intensity minimizing the expected squared Frobenius error, clipped to
// [0, 1]. The intensity is returned alongside the matrix.
//
// Reference: Ledoit, O., & Wolf, M. (2004). "A well-conditioned estimator for large-dimensional covariance matrices"
func LedoitWolf(x mat.Matrix) (*mat.SymDense, float64, error) {
	nObs, p := x.Dims()
	if nObs == 0 || p == 0 {
		return nil, 0, fmt.Errorf("empty observation matrix")
	}

	// Center each column.
	centered := mat.DenseCopyOf(x)
	col := make([]float64, nObs)
	for j := 0; j < p; j++ {
		mat.Col(col, j, x)
		mean := stat.Mean(col, nil)
		for t := 0; t < nObs; t++ {
			centered.Set(t, j, col[t]-mean)
		}
	}

	n := float64(nObs)

	// S = XᵀX / n
	var xtx mat.Dense
	xtx.Mul(centered.T(), centered)
	sample := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			sample.SetSym(i, j, xtx.At(i, j)/n)
		}
	}

	if p == 1 {
		return sample, 0, nil
	}

	var trace float64
	for i := 0; i < p; i++ {
		trace += sample.At(i, i)
	}
	mu := trace / float64(p)

	squared := mat.DenseCopyOf(centered)
	squared.Apply(func(_, _ int, v float64) float64 { return v * v }, centered)
	var x2tx2 mat.Dense
	x2tx2.Mul(squared.T(), squared)

	var betaSum, deltaSum float64
	for i := 0; i < p; i++ {
		for j := 0; j < p; j++ {
			betaSum += x2tx2.At(i, j)
			deltaSum += xtx.At(i, j) * xtx.At(i, j)
		}
	}
	deltaSum /= n * n

	beta := (betaSum/n - deltaSum) / (float64(p) * n)
	delta := (deltaSum - 2*mu*trace + float64(p)*mu*mu) / float64(p)
	beta = math.Min(beta, delta)

	shrinkage := 0.0
	if beta > 0 && delta > 0 {
		shrinkage = beta / delta
	}

	shrunk := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			v := (1 - shrinkage) * sample.At(i, j)
			if i == j {
				v += shrinkage * mu
			}
			shrunk.SetSym(i, j, v)
		}
	}

	return shrunk, shrinkage, nil
}
