package experiment

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// SweepResult summarizes runs over consecutive seeds.
type SweepResult struct {
	Seeds            int
	RMSE             []float64 // per seed
	RMSEDenoised     []float64 // per seed
	MeanRMSE         float64
	MeanRMSEDenoised float64
	DenoisedWins     int // runs where the denoised RMSE was strictly lower
}

// WinRate returns the share of runs where denoising beat the raw covariance.
func (s *SweepResult) WinRate() float64 {
	if s.Seeds == 0 {
		return 0
	}
	return float64(s.DenoisedWins) / float64(s.Seeds)
}

// Sweep repeats Run for seeds p.Seed, p.Seed+1, ..., p.Seed+seeds-1 and averages the RMSEs.
// A failed run aborts the sweep.
func (r *Runner) Sweep(p Params, seeds int) (*SweepResult, error) {
	if seeds < 1 {
		return nil, fmt.Errorf("invalid number of seeds: %d", seeds)
	}

	res := &SweepResult{
		Seeds:        seeds,
		RMSE:         make([]float64, 0, seeds),
		RMSEDenoised: make([]float64, 0, seeds),
	}

	base := p.Seed
	for i := 0; i < seeds; i++ {
		p.Seed = base + uint64(i)
		run, err := r.Run(p)
		if err != nil {
			return nil, fmt.Errorf("seed %d: %w", p.Seed, err)
		}
		res.RMSE = append(res.RMSE, run.RMSE)
		res.RMSEDenoised = append(res.RMSEDenoised, run.RMSEDenoised)
		if run.RMSEDenoised < run.RMSE {
			res.DenoisedWins++
		}
	}

	res.MeanRMSE = stat.Mean(res.RMSE, nil)
	res.MeanRMSEDenoised = stat.Mean(res.RMSEDenoised, nil)

	r.log.Info().
		Int("seeds", seeds).
		Uint64("first_seed", base).
		Float64("mean_rmse", res.MeanRMSE).
		Float64("mean_rmse_denoised", res.MeanRMSEDenoised).
		Float64("denoised_win_rate", res.WinRate()).
		Msg("Sweep complete")

	return res, nil
}
