// Package main is the entry point for the covariance denoising experiment.
//
// It builds a synthetic block-correlated market, estimates covariance matrices from short
// observation windows and prints the RMSE of the portfolio weights obtained from the raw and
// the denoised estimates, in that order, separated by a space.
//
// Parameters come from the environment (and an optional .env file); see internal/config.
package main

import (
	"fmt"

	"github.com/aristath/mcdenoise/internal/config"
	"github.com/aristath/mcdenoise/internal/modules/denoise"
	"github.com/aristath/mcdenoise/internal/modules/experiment"
	"github.com/aristath/mcdenoise/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})
	logger.SetGlobalLogger(log)

	method, err := denoise.ParseMethod(cfg.DenoiseMethod)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid denoise method")
	}

	params := experiment.Params{
		NBlocks:     cfg.NBlocks,
		BlockSize:   cfg.BlockSize,
		BlockCorr:   cfg.BlockCorr,
		NObs:        cfg.NObs,
		NTrials:     cfg.NTrials,
		Bandwidth:   cfg.Bandwidth,
		Shrink:      cfg.Shrink,
		MinVarPortf: cfg.MinVarPortf,
		Seed:        cfg.Seed,
		Method:      method,
		Alpha:       cfg.ShrinkAlpha,
		FitMaxIter:  cfg.FitMaxIter,
	}

	runner := experiment.NewRunner(log)

	if cfg.SweepSeeds > 0 {
		res, err := runner.Sweep(params, cfg.SweepSeeds)
		if err != nil {
			log.Fatal().Err(err).Msg("Sweep failed")
		}
		fmt.Println(res.MeanRMSE, res.MeanRMSEDenoised)
		return
	}

	res, err := runner.Run(params)
	if err != nil {
		log.Fatal().Err(err).Msg("Experiment failed")
	}
	fmt.Println(res.RMSE, res.RMSEDenoised)
}
