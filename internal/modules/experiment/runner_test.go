package experiment

import (
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/aristath/mcdenoise/internal/modules/denoise"
)

func TestRun_DefaultScenario(t *testing.T) {
	runner := NewRunner(zerolog.Nop())

	res, err := runner.Run(DefaultParams())
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	require.Len(t, res.TrueWeights, 4)
	require.Len(t, res.Weights, 5)
	require.Len(t, res.WeightsDenoised, 5)

	assert.InDelta(t, 1.0, floats.Sum(res.TrueWeights), 1e-12)
	for trial := 0; trial < 5; trial++ {
		assert.InDelta(t, 1.0, floats.Sum(res.Weights[trial]), 1e-9, "raw weights, trial %d", trial)
		assert.InDelta(t, 1.0, floats.Sum(res.WeightsDenoised[trial]), 1e-9, "denoised weights, trial %d", trial)
	}

	for _, v := range []float64{res.RMSE, res.RMSEDenoised} {
		assert.False(t, math.IsNaN(v))
		assert.False(t, math.IsInf(v, 0))
		assert.GreaterOrEqual(t, v, 0.0)
	}
}

func TestRun_Reproducible(t *testing.T) {
	runner := NewRunner(zerolog.Nop())
	p := DefaultParams()
	p.Seed = 17

	a, err := runner.Run(p)
	require.NoError(t, err)
	b, err := runner.Run(p)
	require.NoError(t, err)

	assert.NotEqual(t, a.RunID, b.RunID)
	assert.Equal(t, a.TrueWeights, b.TrueWeights)
	assert.Equal(t, a.Weights, b.Weights)
	assert.Equal(t, a.RMSE, b.RMSE)
	assert.Equal(t, a.RMSEDenoised, b.RMSEDenoised)

	p.Seed = 18
	c, err := runner.Run(p)
	require.NoError(t, err)
	assert.NotEqual(t, a.RMSE, c.RMSE)
}

func TestRun_Modes(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(p *Params)
	}{
		{"shrunk covariance", func(p *Params) { p.Shrink = true }},
		{"mean-variance weights", func(p *Params) { p.MinVarPortf = false }},
		{"targeted shrinkage", func(p *Params) {
			p.Method = denoise.MethodTargetedShrinkage
			p.Alpha = 0.5
		}},
		{"larger market", func(p *Params) {
			p.NBlocks = 3
			p.BlockSize = 4
			p.NObs = 60
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultParams()
			tc.mutate(&p)

			res, err := NewRunner(zerolog.Nop()).Run(p)
			require.NoError(t, err)
			assert.Len(t, res.Weights, p.NTrials)
			assert.False(t, math.IsNaN(res.RMSE))
			assert.False(t, math.IsNaN(res.RMSEDenoised))
		})
	}
}

func TestRun_InvalidParams(t *testing.T) {
	runner := NewRunner(zerolog.Nop())

	p := DefaultParams()
	p.NBlocks = 0
	_, err := runner.Run(p)
	assert.Error(t, err)

	p = DefaultParams()
	p.NObs = 1
	_, err = runner.Run(p)
	assert.Error(t, err)

	p = DefaultParams()
	p.Method = "unknown"
	_, err = runner.Run(p)
	assert.Error(t, err)
}

func TestRun_FitFailureAbortsRun(t *testing.T) {
	p := DefaultParams()
	p.FitMaxIter = 1

	res, err := NewRunner(zerolog.Nop()).Run(p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, denoise.ErrFitNotConverged))
	assert.Contains(t, err.Error(), "trial 0")
	assert.Nil(t, res)

	sweep, err := NewRunner(zerolog.Nop()).Sweep(p, 3)
	assert.True(t, errors.Is(err, denoise.ErrFitNotConverged))
	assert.Nil(t, sweep)

	p.FitMaxIter = -1
	_, err = NewRunner(zerolog.Nop()).Run(p)
	require.Error(t, err)
	assert.False(t, errors.Is(err, denoise.ErrFitNotConverged))
}

func TestSweep_DenoisingHelpsOnAverage(t *testing.T) {
	runner := NewRunner(zerolog.Nop())

	res, err := runner.Sweep(DefaultParams(), 40)
	require.NoError(t, err)

	assert.Equal(t, 40, res.Seeds)
	assert.Len(t, res.RMSE, 40)
	assert.Len(t, res.RMSEDenoised, 40)
	assert.LessOrEqual(t, res.MeanRMSEDenoised, res.MeanRMSE)
	assert.GreaterOrEqual(t, res.WinRate(), 0.0)
	assert.LessOrEqual(t, res.WinRate(), 1.0)
}

func TestSweep_MatchesIndividualRuns(t *testing.T) {
	runner := NewRunner(zerolog.Nop())
	p := DefaultParams()
	p.Seed = 3

	res, err := runner.Sweep(p, 2)
	require.NoError(t, err)

	p.Seed = 4
	second, err := runner.Run(p)
	require.NoError(t, err)
	assert.Equal(t, second.RMSE, res.RMSE[1])
	assert.InDelta(t, (res.RMSE[0]+res.RMSE[1])/2, res.MeanRMSE, 1e-15)

	_, err = runner.Sweep(p, 0)
	assert.Error(t, err)
}
