// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	LogLevel  string
	LogPretty bool

	NBlocks     int     // number of correlation blocks in the true model
	BlockSize   int     // assets per block
	BlockCorr   float64 // intra-block correlation
	NObs        int     // observations per simulated window
	NTrials     int     // simulated windows per run
	Bandwidth   float64 // KDE bandwidth for the Marcenko-Pastur fit
	Shrink      bool    // Ledoit-Wolf shrinkage of the sample covariance
	MinVarPortf bool    // minimum-variance weights (otherwise mean-variance)
	Seed        uint64

	DenoiseMethod string  // "constant" or "target_shrink"
	ShrinkAlpha   float64 // alpha for target_shrink
	SweepSeeds    int     // > 0 runs that many seeds and reports the averages
	FitMaxIter    int     // major iteration cap of the Marcenko-Pastur fit
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogPretty:     getEnvAsBool("LOG_PRETTY", false),
		NBlocks:       getEnvAsInt("MC_N_BLOCKS", 2),
		BlockSize:     getEnvAsInt("MC_BLOCK_SIZE", 2),
		BlockCorr:     getEnvAsFloat("MC_BLOCK_CORR", 0.5),
		NObs:          getEnvAsInt("MC_N_OBS", 5),
		NTrials:       getEnvAsInt("MC_N_TRIALS", 5),
		Bandwidth:     getEnvAsFloat("MC_BANDWIDTH", 0.01),
		Shrink:        getEnvAsBool("MC_SHRINK", false),
		MinVarPortf:   getEnvAsBool("MC_MIN_VAR", true),
		Seed:          getEnvAsUint("MC_SEED", 0),
		DenoiseMethod: getEnv("MC_DENOISE_METHOD", "constant"),
		ShrinkAlpha:   getEnvAsFloat("MC_SHRINK_ALPHA", 0.0),
		SweepSeeds:    getEnvAsInt("MC_SWEEP_SEEDS", 0),
		FitMaxIter:    getEnvAsInt("MC_FIT_MAX_ITER", 1000),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the experiment parameters are usable
func (c *Config) Validate() error {
	if c.NBlocks <= 0 || c.BlockSize <= 0 {
		return fmt.Errorf("invalid block layout: MC_N_BLOCKS=%d MC_BLOCK_SIZE=%d", c.NBlocks, c.BlockSize)
	}
	if c.BlockCorr < -1 || c.BlockCorr > 1 {
		return fmt.Errorf("MC_BLOCK_CORR must be in [-1, 1], got %v", c.BlockCorr)
	}
	if c.NObs < 1 {
		return fmt.Errorf("MC_N_OBS must be at least 1, got %d", c.NObs)
	}
	if !c.Shrink && c.NObs < 2 {
		return fmt.Errorf("MC_N_OBS must be at least 2 without shrinkage, got %d", c.NObs)
	}
	if c.NTrials < 1 {
		return fmt.Errorf("MC_N_TRIALS must be at least 1, got %d", c.NTrials)
	}
	if c.Bandwidth <= 0 {
		return fmt.Errorf("MC_BANDWIDTH must be positive, got %v", c.Bandwidth)
	}
	if c.ShrinkAlpha < 0 || c.ShrinkAlpha > 1 {
		return fmt.Errorf("MC_SHRINK_ALPHA must be in [0, 1], got %v", c.ShrinkAlpha)
	}
	if c.SweepSeeds < 0 {
		return fmt.Errorf("MC_SWEEP_SEEDS must not be negative, got %d", c.SweepSeeds)
	}
	if c.FitMaxIter < 1 {
		return fmt.Errorf("MC_FIT_MAX_ITER must be at least 1, got %d", c.FitMaxIter)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsUint(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if uintVal, err := strconv.ParseUint(value, 10, 64); err == nil {
			return uintVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
