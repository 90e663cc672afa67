// Package experiment runs the Monte Carlo comparison of portfolio weights estimated from raw and
// denoised sample covariance matrices.
package experiment

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/mcdenoise/internal/modules/denoise"
	"github.com/aristath/mcdenoise/internal/modules/optimization"
	"github.com/aristath/mcdenoise/internal/modules/simulation"
	"github.com/aristath/mcdenoise/internal/modules/truemodel"
	"github.com/aristath/mcdenoise/pkg/formulas"
)

// Params are the inputs of one experiment run.
type Params struct {
	NBlocks     int
	BlockSize   int
	BlockCorr   float64
	NObs        int
	NTrials     int
	Bandwidth   float64
	Shrink      bool
	MinVarPortf bool
	Seed        uint64

	Method     denoise.Method
	Alpha      float64
	FitMaxIter int // 0 uses denoise.DefaultFitMaxIter
}

// DefaultParams returns the reference scenario: 2 blocks of 2 assets with correlation 0.5,
// 5 trials of 5 observations, bandwidth 0.01, minimum-variance weights, seed 0.
func DefaultParams() Params {
	return Params{
		NBlocks:     2,
		BlockSize:   2,
		BlockCorr:   0.5,
		NObs:        5,
		NTrials:     5,
		Bandwidth:   0.01,
		Shrink:      false,
		MinVarPortf: true,
		Seed:        0,
		Method:      denoise.MethodConstantResidual,
		FitMaxIter:  denoise.DefaultFitMaxIter,
	}
}

// Result is the outcome of one run.
type Result struct {
	RunID           string
	TrueWeights     []float64
	Weights         [][]float64 // one row per trial, raw covariance
	WeightsDenoised [][]float64 // one row per trial, denoised covariance
	RMSE            float64
	RMSEDenoised    float64
}

// Runner executes experiment runs.
type Runner struct {
	log zerolog.Logger
}

// NewRunner creates a new experiment runner.
func NewRunner(log zerolog.Logger) *Runner {
	return &Runner{
		log: log.With().Str("component", "experiment").Logger(),
	}
}

// newRand returns the random source used for one phase of a run.
func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// Run generates the true model, simulates p.NTrials observation windows and compares the
// weights from the raw and denoised sample covariances against the true-optimal weights.
//
// The random source is seeded with p.Seed before the true model and again before the trials, so
// the trials do not depend on how many draws the model consumed. Any error aborts the run.
func (r *Runner) Run(p Params) (*Result, error) {
	runID := uuid.New().String()
	log := r.log.With().Str("run_id", runID).Uint64("seed", p.Seed).Logger()

	denoiser, err := denoise.NewDenoiser(p.Method, p.Alpha, log)
	if err != nil {
		return nil, err
	}
	if p.FitMaxIter != 0 {
		if err := denoiser.SetFitMaxIter(p.FitMaxIter); err != nil {
			return nil, err
		}
	}

	model, err := truemodel.FormTrueMatrix(newRand(p.Seed), p.NBlocks, p.BlockSize, p.BlockCorr)
	if err != nil {
		return nil, fmt.Errorf("failed to build true model: %w", err)
	}
	n := model.Dim()
	q := float64(p.NObs) / float64(n)

	log.Debug().
		Int("num_assets", n).
		Int("num_obs", p.NObs).
		Int("num_trials", p.NTrials).
		Float64("q", q).
		Bool("shrink", p.Shrink).
		Bool("min_var", p.MinVarPortf).
		Msg("Generated true model")

	rng := newRand(p.Seed)
	weights := make([][]float64, 0, p.NTrials)
	weightsDenoised := make([][]float64, 0, p.NTrials)

	for trial := 0; trial < p.NTrials; trial++ {
		sample, err := simulation.SimCovMu(rng, model.Mean, model.Cov, p.NObs, p.Shrink)
		if err != nil {
			return nil, fmt.Errorf("trial %d: failed to simulate sample: %w", trial, err)
		}

		mu := optimization.Present(sample.Mean)
		if p.MinVarPortf {
			mu = optimization.Absent()
		}

		covDenoised, err := denoiser.DeNoiseCov(sample.Cov, q, p.Bandwidth)
		if err != nil {
			return nil, fmt.Errorf("trial %d: failed to denoise covariance: %w", trial, err)
		}

		w, err := optimization.OptPort(sample.Cov, mu)
		if err != nil {
			return nil, fmt.Errorf("trial %d: failed to optimize raw covariance: %w", trial, err)
		}
		wd, err := optimization.OptPort(covDenoised, mu)
		if err != nil {
			return nil, fmt.Errorf("trial %d: failed to optimize denoised covariance: %w", trial, err)
		}

		weights = append(weights, w)
		weightsDenoised = append(weightsDenoised, wd)

		log.Debug().
			Int("trial", trial).
			Float64("shrinkage", sample.Shrinkage).
			Floats64("weights", w).
			Floats64("weights_denoised", wd).
			Msg("Trial complete")
	}

	mu0 := optimization.Present(model.Mean)
	if p.MinVarPortf {
		mu0 = optimization.Absent()
	}
	w0, err := optimization.OptPort(model.Cov, mu0)
	if err != nil {
		return nil, fmt.Errorf("failed to optimize true covariance: %w", err)
	}

	rmse, err := formulas.RMSE(weights, w0)
	if err != nil {
		return nil, err
	}
	rmseDenoised, err := formulas.RMSE(weightsDenoised, w0)
	if err != nil {
		return nil, err
	}

	log.Info().
		Float64("rmse", rmse).
		Float64("rmse_denoised", rmseDenoised).
		Msg("Run complete")

	return &Result{
		RunID:           runID,
		TrueWeights:     w0,
		Weights:         weights,
		WeightsDenoised: weightsDenoised,
		RMSE:            rmse,
		RMSEDenoised:    rmseDenoised,
	}, nil
}
