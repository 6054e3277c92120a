// Package config provides configuration management for the pipeline.
//
// Two layers: process-level settings come from environment variables (.env
// supported via godotenv), while the series universe and feature wiring live
// in a YAML file so the loader and feature engine stay generic over the
// configured set instead of hardcoding column names.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds process-level application configuration.
type Config struct {
	DataDir      string // Base directory for raw and processed data
	PipelinePath string // Path to the pipeline YAML file ("" = built-in defaults)
	FredAPIKey   string // API key for the FRED observations endpoint (collect only)
	LogLevel     string
	Pretty       bool
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("PIPELINE_DATA_DIR", ".")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return &Config{
		DataDir:      absDataDir,
		PipelinePath: getEnv("PIPELINE_CONFIG", ""),
		FredAPIKey:   getEnv("FRED_API_KEY", ""),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		Pretty:       getEnvAsBool("LOG_PRETTY", true),
	}, nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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
