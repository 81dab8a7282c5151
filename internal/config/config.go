// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds engine configuration. Everything here is a default that the
// caller can override per request; numeric tolerances and iteration caps are
// deliberately not configurable.
type Config struct {
	LogLevel          string  // debug, info, warn, error
	LogPretty         bool    // Human-readable console output instead of JSON
	DefaultTrials     int     // Monte Carlo trial count when the caller passes 0
	DefaultConfidence float64 // Confidence level for VaR/CVaR when the caller passes 0
	SimWorkers        int     // Parallel simulation workers; 0 means one per CPU
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel:          getEnv("QUANTCORE_LOG_LEVEL", "info"),
		LogPretty:         getEnvAsBool("QUANTCORE_LOG_PRETTY", false),
		DefaultTrials:     getEnvAsInt("QUANTCORE_DEFAULT_TRIALS", 10000),
		DefaultConfidence: getEnvAsFloat("QUANTCORE_DEFAULT_CONFIDENCE", 0.95),
		SimWorkers:        getEnvAsInt("QUANTCORE_SIM_WORKERS", 0),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that configured defaults are usable
func (c *Config) Validate() error {
	if c.DefaultTrials <= 0 {
		return fmt.Errorf("default trial count must be positive, got %d", c.DefaultTrials)
	}
	if c.DefaultConfidence <= 0 || c.DefaultConfidence >= 1 {
		return fmt.Errorf("default confidence must be in (0,1), got %f", c.DefaultConfidence)
	}
	if c.SimWorkers < 0 {
		return fmt.Errorf("simulation worker count cannot be negative, got %d", c.SimWorkers)
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
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
