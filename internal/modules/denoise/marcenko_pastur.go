package denoise

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrFitNotConverged is returned when the Marcenko-Pastur variance fit does not converge.
var ErrFitNotConverged = errors.New("marcenko-pastur fit did not converge")

// Fit configuration for FindMaxEval.
const (
	PDFPoints         = 1000
	MinFitVariance    = 1e-5
	MaxFitVariance    = 1 - 1e-5
	DefaultFitMaxIter = 1000
	initialFitVar     = 0.5
)

// MarcenkoPasturPDF evaluates the Marcenko-Pastur density of a random correlation matrix with
// noise variance `variance` and q = T/N on pts evenly spaced points in [λ-, λ+]:
//
//	λ± = variance * (1 ± sqrt(1/q))²
//	pdf(λ) = q / (2π variance λ) * sqrt((λ+ - λ)(λ - λ-))
func MarcenkoPasturPDF(variance, q float64, pts int) (x, pdf []float64) {
	if pts < 2 {
		return nil, nil
	}
	eMin := variance * math.Pow(1-math.Sqrt(1/q), 2)
	eMax := variance * math.Pow(1+math.Sqrt(1/q), 2)

	x = floats.Span(make([]float64, pts), eMin, eMax)
	pdf = make([]float64, pts)
	for i, lambda := range x {
		if lambda <= 0 {
			continue
		}
		// Clamp rounding noise at the support edges.
		width := math.Max(0, (eMax-lambda)*(lambda-eMin))
		pdf[i] = q / (2 * math.Pi * variance * lambda) * math.Sqrt(width)
	}
	return x, pdf
}

// FitKDE evaluates a Gaussian kernel density estimate of obs with bandwidth bWidth at x.
func FitKDE(obs []float64, bWidth float64, x []float64) []float64 {
	kernel := distuv.Normal{Mu: 0, Sigma: bWidth}
	pdf := make([]float64, len(x))
	if len(obs) == 0 {
		return pdf
	}
	for i, xi := range x {
		var sum float64
		for _, o := range obs {
			sum += kernel.Prob(xi - o)
		}
		pdf[i] = sum / float64(len(obs))
	}
	return pdf
}

// errPDFs is the sum of squared differences between the theoretical density and the kernel
// density of the empirical eigenvalues, both evaluated on the theoretical grid.
func errPDFs(variance float64, eVal []float64, q, bWidth float64) float64 {
	x, pdf0 := MarcenkoPasturPDF(variance, q, PDFPoints)
	pdf1 := FitKDE(eVal, bWidth, x)
	floats.Sub(pdf1, pdf0)
	return floats.Dot(pdf1, pdf1)
}

// FindMaxEval fits the Marcenko-Pastur noise variance to the empirical eigenvalues by least
// squares and returns the implied largest noise eigenvalue eMax = variance * (1 + sqrt(1/q))².
//
// The variance is searched in (MinFitVariance, MaxFitVariance) from 0.5. The bound is applied
// through a logistic reparameterization so NelderMead works on an unconstrained problem.
func FindMaxEval(eVal []float64, q, bWidth float64) (eMax, variance float64, err error) {
	return findMaxEval(eVal, q, bWidth, DefaultFitMaxIter)
}

// fitSettings returns fresh optimizer settings; the converger is stateful.
func fitSettings(maxIter int) *optimize.Settings {
	return &optimize.Settings{
		MajorIterations: maxIter,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-12,
			Iterations: 50,
		},
	}
}

// findMaxEval is FindMaxEval with a cap on NelderMead major iterations. Hitting the cap is
// reported as ErrFitNotConverged.
func findMaxEval(eVal []float64, q, bWidth float64, maxIter int) (eMax, variance float64, err error) {
	if maxIter < 1 {
		return 0, 0, fmt.Errorf("invalid fit iteration limit: %d", maxIter)
	}
	if len(eVal) == 0 {
		return 0, 0, fmt.Errorf("no eigenvalues provided")
	}
	if q <= 0 || math.IsNaN(q) || math.IsInf(q, 0) {
		return 0, 0, fmt.Errorf("invalid q: %v", q)
	}
	if bWidth <= 0 {
		return 0, 0, fmt.Errorf("invalid bandwidth: %v", bWidth)
	}
	for i, v := range eVal {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, 0, fmt.Errorf("invalid eigenvalue at %d: %v", i, v)
		}
	}

	toVariance := func(z float64) float64 {
		return MinFitVariance + (MaxFitVariance-MinFitVariance)/(1+math.Exp(-z))
	}
	z0 := -math.Log((MaxFitVariance-MinFitVariance)/(initialFitVar-MinFitVariance) - 1)

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return errPDFs(toVariance(x[0]), eVal, q, bWidth)
		},
	}
	result, err := optimize.Minimize(problem, []float64{z0}, fitSettings(maxIter), &optimize.NelderMead{})
	if err != nil {
		if result != nil {
			return 0, 0, fmt.Errorf("%w: status=%v: %v", ErrFitNotConverged, result.Status, err)
		}
		return 0, 0, fmt.Errorf("%w: %v", ErrFitNotConverged, err)
	}

	successStatuses := map[optimize.Status]bool{
		optimize.Success:             true,
		optimize.MethodConverge:      true,
		optimize.FunctionThreshold:   true,
		optimize.FunctionConvergence: true,
	}
	if !successStatuses[result.Status] {
		return 0, 0, fmt.Errorf("%w: status=%v", ErrFitNotConverged, result.Status)
	}

	variance = toVariance(result.X[0])
	if math.IsNaN(variance) || math.IsNaN(result.F) {
		return 0, 0, fmt.Errorf("%w: non-finite result", ErrFitNotConverged)
	}

	eMax = variance * math.Pow(1+math.Sqrt(1/q), 2)
	return eMax, variance, nil
}
