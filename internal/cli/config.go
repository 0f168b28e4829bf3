package cli

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that supply flag defaults.
const (
	EnvDatabase = "CIPHERFLOW_DB"
	EnvLibrary  = "CIPHERFLOW_LIBRARY"
	EnvWasm     = "CIPHERFLOW_WASM"
	EnvMaxPulls = "CIPHERFLOW_MAX_PULLS"
)

// Config holds the defaults read from the environment.
type Config struct {
	Database string
	Library  string
	Wasm     string
	MaxPulls int
}

// LoadConfig reads flag defaults from the environment. A .env file in the
// working directory is loaded first when present; variables already set
// in the environment win.
func LoadConfig() Config {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return Config{
		Database: getEnvWithDefault(EnvDatabase, ""),
		Library:  getEnvWithDefault(EnvLibrary, ""),
		Wasm:     getEnvWithDefault(EnvWasm, ""),
		MaxPulls: getEnvAsInt(EnvMaxPulls, 0),
	}
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if valueStr := os.Getenv(key); valueStr != "" {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
