// Package env reads typed settings from environment variables with defaults.
package env

import (
	"os"
	"strconv"
	"time"
)

// String returns the value of key, or def when unset or empty.
func String(key, def string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return def
}

// Int returns key parsed as an int, or def when unset or invalid.
func Int(key string, def int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return def
}

// Bool returns key parsed as a bool, or def when unset or invalid.
func Bool(key string, def bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return def
}

// Duration returns key parsed with time.ParseDuration, or def when unset or invalid.
func Duration(key string, def time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return def
}
