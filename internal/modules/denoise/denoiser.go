// Package denoise cleans the eigenvalue spectrum of an empirical covariance matrix.
//
// Eigenvalues of the correlation matrix that fall inside the Marcenko-Pastur noise band are
// treated as noise and replaced, while the ones above the fitted band edge are kept as signal.
// Two replacement rules are available: constant residual eigenvalue and targeted shrinkage.
package denoise

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/aristath/mcdenoise/pkg/formulas"
)

// Method selects how noise eigenvalues are replaced.
type Method string

const (
	// MethodConstantResidual replaces every noise eigenvalue by their average.
	MethodConstantResidual Method = "constant"
	// MethodTargetedShrinkage shrinks the noise component toward its own diagonal.
	MethodTargetedShrinkage Method = "target_shrink"
)

// ParseMethod converts a configuration string to a Method.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodConstantResidual, "":
		return MethodConstantResidual, nil
	case MethodTargetedShrinkage:
		return MethodTargetedShrinkage, nil
	default:
		return "", fmt.Errorf("unknown denoise method: %q", s)
	}
}

// Result is a denoised covariance matrix and the fit that produced it.
type Result struct {
	Cov        *mat.SymDense
	Corr       *mat.SymDense
	Spectrum   Spectrum
	EMax       float64
	Variance   float64
	NumFactors int
}

// Denoiser applies eigenvalue denoising to covariance matrices.
type Denoiser struct {
	method     Method
	alpha      float64
	fitMaxIter int
	log        zerolog.Logger
}

// NewDenoiser creates a denoiser. alpha is only used by MethodTargetedShrinkage and must be in
// [0, 1]; alpha = 0 removes the noise correlations entirely, alpha = 1 keeps them.
func NewDenoiser(method Method, alpha float64, log zerolog.Logger) (*Denoiser, error) {
	if method != MethodConstantResidual && method != MethodTargetedShrinkage {
		return nil, fmt.Errorf("unknown denoise method: %q", method)
	}
	if alpha < 0 || alpha > 1 {
		return nil, fmt.Errorf("shrinkage alpha %v outside [0, 1]", alpha)
	}
	return &Denoiser{
		method:     method,
		alpha:      alpha,
		fitMaxIter: DefaultFitMaxIter,
		log:        log.With().Str("component", "denoiser").Logger(),
	}, nil
}

// SetFitMaxIter caps the major iterations of the Marcenko-Pastur fit. A fit that reaches the
// cap fails with ErrFitNotConverged.
func (d *Denoiser) SetFitMaxIter(n int) error {
	if n < 1 {
		return fmt.Errorf("fit iteration limit must be positive, got %d", n)
	}
	d.fitMaxIter = n
	return nil
}

// DeNoiseCov denoises cov0 with the constant residual eigenvalue rule.
func DeNoiseCov(cov0 mat.Symmetric, q, bWidth float64) (*mat.SymDense, error) {
	d := &Denoiser{method: MethodConstantResidual, fitMaxIter: DefaultFitMaxIter, log: zerolog.Nop()}
	return d.DeNoiseCov(cov0, q, bWidth)
}

// DeNoiseCov returns the denoised covariance of cov0. q is the ratio of observations to
// variables the matrix was estimated from and bWidth the kernel bandwidth of the spectrum fit.
func (d *Denoiser) DeNoiseCov(cov0 mat.Symmetric, q, bWidth float64) (*mat.SymDense, error) {
	res, err := d.Denoise(cov0, q, bWidth)
	if err != nil {
		return nil, err
	}
	return res.Cov, nil
}

// Denoise runs the full pipeline:
//  1. covariance to correlation
//  2. eigendecomposition, descending
//  3. Marcenko-Pastur fit of the noise band edge eMax
//  4. count of eigenvalues above eMax
//  5. replacement of the noise eigenvalues and rescale to unit diagonal
//  6. back to covariance with the original standard deviations
//
// The returned covariance has exactly the diagonal of cov0.
func (d *Denoiser) Denoise(cov0 mat.Symmetric, q, bWidth float64) (*Result, error) {
	std, err := formulas.StdDevs(cov0)
	if err != nil {
		return nil, fmt.Errorf("failed to extract standard deviations: %w", err)
	}

	corr0, err := formulas.Cov2Corr(cov0)
	if err != nil {
		return nil, fmt.Errorf("failed to convert covariance to correlation: %w", err)
	}

	spectrum, err := GetPCA(corr0)
	if err != nil {
		return nil, err
	}

	eMax, variance, err := findMaxEval(spectrum.Values, q, bWidth, d.fitMaxIter)
	if err != nil {
		d.log.Warn().Err(err).Float64("q", q).Msg("Spectrum fit failed")
		return nil, err
	}

	nFacts := NumFactors(spectrum.Values, eMax)

	var corr1 *mat.SymDense
	switch d.method {
	case MethodTargetedShrinkage:
		corr1, err = DenoisedCorrShrink(spectrum, nFacts, d.alpha)
	default:
		corr1, err = DenoisedCorr(spectrum, nFacts)
	}
	if err != nil {
		return nil, err
	}

	cov1, err := formulas.Corr2Cov(corr1, std)
	if err != nil {
		return nil, err
	}
	// Keep the original variances bit for bit instead of std*std.
	for i := range std {
		cov1.SetSym(i, i, cov0.At(i, i))
	}

	d.log.Debug().
		Str("method", string(d.method)).
		Float64("q", q).
		Float64("e_max", eMax).
		Float64("variance", variance).
		Int("num_factors", nFacts).
		Int("num_assets", len(std)).
		Msg("Denoised covariance matrix")

	return &Result{
		Cov:        cov1,
		Corr:       corr1,
		Spectrum:   spectrum,
		EMax:       eMax,
		Variance:   variance,
		NumFactors: nFacts,
	}, nil
}

// NumFactors returns how many eigenvalues are strictly greater than eMax. eVal must be sorted
// in descending order.
func NumFactors(eVal []float64, eMax float64) int {
	n := len(eVal)
	// Index into the ascending view of eVal.
	idx := sort.Search(n, func(i int) bool {
		return eVal[n-1-i] > eMax
	})
	return n - idx
}

// DenoisedCorr applies the constant residual eigenvalue rule: the top nFacts eigenvalues are
// kept and the remaining ones are replaced by their average, which preserves the trace. The
// rebuilt matrix is rescaled to a correlation matrix.
func DenoisedCorr(s Spectrum, nFacts int) (*mat.SymDense, error) {
	n := len(s.Values)
	if nFacts < 0 || nFacts > n {
		return nil, fmt.Errorf("invalid number of factors %d for %d eigenvalues", nFacts, n)
	}

	values := make([]float64, n)
	copy(values, s.Values)
	if nFacts < n {
		avg := floats.Sum(values[nFacts:]) / float64(n-nFacts)
		for i := nFacts; i < n; i++ {
			values[i] = avg
		}
	}

	rebuilt, err := s.Reconstruct(values)
	if err != nil {
		return nil, err
	}
	return toCorrelation(rebuilt)
}

// DenoisedCorrShrink applies targeted shrinkage: the signal component built from the top
// nFacts eigenpairs is kept and the noise component C_R is replaced by
//
//	alpha * C_R + (1 - alpha) * diag(C_R)
func DenoisedCorrShrink(s Spectrum, nFacts int, alpha float64) (*mat.SymDense, error) {
	n := len(s.Values)
	if nFacts < 0 || nFacts > n {
		return nil, fmt.Errorf("invalid number of factors %d for %d eigenvalues", nFacts, n)
	}

	signal := make([]float64, n)
	noise := make([]float64, n)
	for i, v := range s.Values {
		if i < nFacts {
			signal[i] = v
		} else {
			noise[i] = v
		}
	}

	c0, err := s.Reconstruct(signal)
	if err != nil {
		return nil, err
	}
	c1, err := s.Reconstruct(noise)
	if err != nil {
		return nil, err
	}

	out := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := c0.At(i, j) + alpha*c1.At(i, j)
			if i == j {
				v += (1 - alpha) * c1.At(i, j)
			}
			out.Set(i, j, v)
		}
	}
	return toCorrelation(out)
}

func toCorrelation(m mat.Matrix) (*mat.SymDense, error) {
	sym, err := formulas.Symmetrize(m)
	if err != nil {
		return nil, err
	}
	corr, err := formulas.Cov2Corr(sym)
	if err != nil {
		return nil, fmt.Errorf("failed to rescale denoised matrix: %w", err)
	}
	return corr, nil
}
