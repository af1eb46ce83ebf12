package utils

import (
	"os"
	"strconv"
	"time"
)

// GetEnv returns the value of key, or fallback when it is unset or empty.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

// GetEnvInt parses key as an int, falling back on a missing or malformed value.
func GetEnvInt(key string, fallback int) int {
	value, err := strconv.Atoi(GetEnv(key, strconv.Itoa(fallback)))
	if err != nil {
		return fallback
	}
	return value
}

// GetEnvFloat parses key as a float64, falling back on a missing or malformed value.
func GetEnvFloat(key string, fallback float64) float64 {
	value, err := strconv.ParseFloat(GetEnv(key, ""), 64)
	if err != nil {
		return fallback
	}
	return value
}

// GetEnvMillis reads key as a count of milliseconds.
func GetEnvMillis(key string, fallback time.Duration) time.Duration {
	ms := GetEnvInt(key, int(fallback/time.Millisecond))
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func CreateFolder(folderPath string) error {
	return os.MkdirAll(folderPath, 0755)
}
