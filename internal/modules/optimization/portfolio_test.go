package optimization

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/aristath/mcdenoise/pkg/formulas"
)

func TestOptPort_TwoAssetMinVariance(t *testing.T) {
	// Closed form: w_A = (σ_B² - σ_AB) / (σ_A² + σ_B² - 2σ_AB)
	cov := mat.NewSymDense(2, []float64{
		0.04, 0.01,
		0.01, 0.03,
	})

	w, err := OptPort(cov, Absent())
	require.NoError(t, err)
	require.Len(t, w, 2)

	expectedA := (0.03 - 0.01) / (0.04 + 0.03 - 2*0.01)
	assert.InDelta(t, expectedA, w[0], 1e-12)
	assert.InDelta(t, 1-expectedA, w[1], 1e-12)
}

func TestOptPort_MinVarianceFirstOrderCondition(t *testing.T) {
	cov := randomCovariance(rand.New(rand.NewPCG(1, 1)), 6)

	w, err := OptPort(cov, Absent())
	require.NoError(t, err)

	sum := 0.0
	for _, wi := range w {
		sum += wi
	}
	assert.InDelta(t, 1.0, sum, 1e-12, "weights should sum to 1")

	// Σw must be proportional to the vector of ones.
	var sw mat.VecDense
	sw.MulVec(cov, mat.NewVecDense(len(w), w))
	for i := 1; i < len(w); i++ {
		assert.InDelta(t, sw.AtVec(0), sw.AtVec(i), 1e-12, "marginal risk %d", i)
	}

	// No other fully-invested portfolio has lower variance.
	minVar, err := PortfolioVariance(w, cov)
	require.NoError(t, err)
	equal := []float64{1.0 / 6, 1.0 / 6, 1.0 / 6, 1.0 / 6, 1.0 / 6, 1.0 / 6}
	eqVar, err := PortfolioVariance(equal, cov)
	require.NoError(t, err)
	assert.LessOrEqual(t, minVar, eqVar)
}

func TestOptPort_MeanVariance(t *testing.T) {
	cov := mat.NewSymDense(3, []float64{
		0.04, 0.00, 0.00,
		0.00, 0.09, 0.00,
		0.00, 0.00, 0.01,
	})
	mu := []float64{0.08, 0.09, 0.02}

	w, err := OptPort(cov, Present(mu))
	require.NoError(t, err)

	// Diagonal covariance: w_i ∝ μ_i / σ_i²
	raw := []float64{0.08 / 0.04, 0.09 / 0.09, 0.02 / 0.01}
	total := raw[0] + raw[1] + raw[2]
	for i := range w {
		assert.InDelta(t, raw[i]/total, w[i], 1e-12)
	}
}

func TestOptPort_AllowsShortPositions(t *testing.T) {
	// Highly correlated pair with very different risk: the riskier asset is shorted.
	cov := mat.NewSymDense(2, []float64{
		0.01, 0.018,
		0.018, 0.04,
	})

	w, err := OptPort(cov, Absent())
	require.NoError(t, err)
	assert.Less(t, w[1], 0.0)
	assert.InDelta(t, 1.0, w[0]+w[1], 1e-12)
}

func TestOptPort_Errors(t *testing.T) {
	singular := mat.NewSymDense(2, []float64{
		1.0, 1.0,
		1.0, 1.0,
	})
	_, err := OptPort(singular, Absent())
	assert.ErrorIs(t, err, ErrSingularCovariance)

	cov := mat.NewSymDense(2, []float64{
		0.04, 0.0,
		0.0, 0.04,
	})
	_, err = OptPort(cov, Present([]float64{0.1}))
	assert.ErrorIs(t, err, formulas.ErrDimensionMismatch)

	// Expected returns that cancel out leave nothing to normalize by.
	_, err = OptPort(cov, Present([]float64{0.1, -0.1}))
	assert.Error(t, err)
}

func TestMeanVector(t *testing.T) {
	values, ok := Absent().Get()
	assert.False(t, ok)
	assert.Nil(t, values)

	var zero MeanVector
	_, ok = zero.Get()
	assert.False(t, ok)

	src := []float64{0.1, 0.2}
	m := Present(src)
	src[0] = 99
	values, ok = m.Get()
	assert.True(t, ok)
	assert.Equal(t, []float64{0.1, 0.2}, values)
}

func TestPortfolioVariance(t *testing.T) {
	cov := mat.NewSymDense(2, []float64{
		0.04, 0.01,
		0.01, 0.09,
	})

	v, err := PortfolioVariance([]float64{0.5, 0.5}, cov)
	require.NoError(t, err)
	assert.InDelta(t, 0.25*0.04+0.25*0.09+2*0.25*0.01, v, 1e-15)

	_, err = PortfolioVariance([]float64{1}, cov)
	assert.ErrorIs(t, err, formulas.ErrDimensionMismatch)
}

// randomCovariance returns AᵀA/n + 0.01·I for a random n x n matrix A.
func randomCovariance(rng *rand.Rand, n int) *mat.SymDense {
	a := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			a.Set(i, j, 0.1*rng.NormFloat64())
		}
	}
	cov := mat.NewSymDense(n, nil)
	cov.SymOuterK(1.0/float64(n), a.T())
	for i := 0; i < n; i++ {
		cov.SetSym(i, i, cov.At(i, i)+0.01)
	}
	return cov
}
