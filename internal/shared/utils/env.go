package utils

import (
	"os"
	"strconv"
	"time"
)

// GetEnv returns the value of key, or fallback when it is unset or empty.
func GetEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// GetEnvInt parses key as an integer, falling back on absence or bad input.
func GetEnvInt(key string, fallback int) int {
	value, err := strconv.Atoi(GetEnv(key, ""))
	if err != nil {
		return fallback
	}
	return value
}

// GetEnvFloat parses key as a float, falling back on absence or bad input.
func GetEnvFloat(key string, fallback float64) float64 {
	value, err := strconv.ParseFloat(GetEnv(key, ""), 64)
	if err != nil {
		return fallback
	}
	return value
}

// GetEnvDuration parses key as a count of unit.
func GetEnvDuration(key string, fallback int, unit time.Duration) time.Duration {
	return time.Duration(GetEnvInt(key, fallback)) * unit
}
