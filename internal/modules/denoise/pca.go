package denoise

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Spectrum is the eigendecomposition of a correlation matrix. Values are in descending order and
// column i of Vectors is the eigenvector of Values[i].
type Spectrum struct {
	Values  []float64
	Vectors *mat.Dense
}

// GetPCA decomposes a symmetric matrix and sorts the eigenpairs by descending eigenvalue.
func GetPCA(m mat.Symmetric) (Spectrum, error) {
	var eig mat.EigenSym
	if ok := eig.Factorize(m, true); !ok {
		return Spectrum{}, fmt.Errorf("eigendecomposition failed")
	}

	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	n := len(values)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] > values[order[b]]
	})

	sorted := Spectrum{
		Values:  make([]float64, n),
		Vectors: mat.NewDense(n, n, nil),
	}
	col := make([]float64, n)
	for dst, src := range order {
		sorted.Values[dst] = values[src]
		mat.Col(col, src, &vectors)
		sorted.Vectors.SetCol(dst, col)
	}
	return sorted, nil
}

// Reconstruct returns V diag(values) Vᵀ for the given eigenvalues and the spectrum's vectors.
func (s Spectrum) Reconstruct(values []float64) (*mat.Dense, error) {
	n := len(s.Values)
	if len(values) != n {
		return nil, fmt.Errorf("got %d eigenvalues, spectrum has %d", len(values), n)
	}

	var scaled mat.Dense
	scaled.Mul(s.Vectors, mat.NewDiagDense(n, values))
	var out mat.Dense
	out.Mul(&scaled, s.Vectors.T())
	return &out, nil
}
