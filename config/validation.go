package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"
)

// ValidationError is one rejected field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for field %q: %s", e.Field, e.Message)
}

// Validator collects field errors so a config reports every problem at once.
type Validator struct {
	errors []ValidationError
}

// NewValidator creates an empty validator.
func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) add(field, format string, args ...any) *Validator {
	v.errors = append(v.errors, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	return v
}

// RequireNonEmpty rejects an empty string.
func (v *Validator) RequireNonEmpty(field, value string) *Validator {
	if value == "" {
		return v.add(field, "value cannot be empty")
	}
	return v
}

// RequirePositive rejects values below 1.
func (v *Validator) RequirePositive(field string, value int) *Validator {
	if value <= 0 {
		return v.add(field, "value must be positive, got %d", value)
	}
	return v
}

// ValidateRange requires min <= value <= max.
func (v *Validator) ValidateRange(field string, value, min, max int) *Validator {
	if value < min || value > max {
		return v.add(field, "value must be between %d and %d, got %d", min, max, value)
	}
	return v
}

// ValidateFloatRange requires min <= value <= max.
func (v *Validator) ValidateFloatRange(field string, value, min, max float64) *Validator {
	if value < min || value > max {
		return v.add(field, "value must be between %.2f and %.2f, got %.2f", min, max, value)
	}
	return v
}

// ValidatePort requires a TCP port number.
func (v *Validator) ValidatePort(field string, port int) *Validator {
	return v.ValidateRange(field, port, 1, 65535)
}

// ValidateDBNumber requires a Redis logical database index.
func (v *Validator) ValidateDBNumber(field string, db int) *Validator {
	return v.ValidateRange(field, db, 0, 15)
}

// ValidateOneOf requires value to be one of allowed.
func (v *Validator) ValidateOneOf(field string, value string, allowed ...string) *Validator {
	if !slices.Contains(allowed, value) {
		return v.add(field, "value must be one of %v, got %q", allowed, value)
	}
	return v
}

// RequireHTTPURL requires an absolute http or https URL.
func (v *Validator) RequireHTTPURL(field, value string) *Validator {
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return v.add(field, "value must be an http(s) URL, got %q", value)
	}
	return v
}

// RequireNonNegativeDuration rejects negative durations.
func (v *Validator) RequireNonNegativeDuration(field string, value time.Duration) *Validator {
	if value < 0 {
		return v.add(field, "duration cannot be negative, got %s", value)
	}
	return v
}

// HasErrors reports whether any check failed.
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Error joins every failure into one error, or returns nil.
func (v *Validator) Error() error {
	if !v.HasErrors() {
		return nil
	}
	var b strings.Builder
	b.WriteString("configuration validation failed:\n")
	for _, e := range v.errors {
		fmt.Fprintf(&b, "  - %s: %s\n", e.Field, e.Message)
	}
	return errors.New(b.String())
}

// Errors returns the individual failures.
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

func (v *Validator) validatePostgres(prefix string, c PostgresConfig) {
	v.RequireNonEmpty(prefix+".host", c.Host)
	v.ValidatePort(prefix+".port", c.Port)
	v.RequireNonEmpty(prefix+".user", c.User)
	v.RequireNonEmpty(prefix+".dbname", c.DBName)
	v.ValidateOneOf(prefix+".sslmode", c.SSLMode, "disable", "require", "verify-ca", "verify-full")
}

func (v *Validator) validateRedis(prefix string, c RedisConfig) {
	v.RequireNonEmpty(prefix+".addr", c.Addr)
	v.ValidateDBNumber(prefix+".db", c.DB)
	v.RequireNonEmpty(prefix+".prefix", c.Prefix)
	v.RequireNonNegativeDuration(prefix+".ttl", c.TTL)
}

func (v *Validator) validateMongo(prefix string, c MongoConfig) {
	v.RequireNonEmpty(prefix+".uri", c.URI)
	v.RequireNonEmpty(prefix+".database", c.Database)
	v.RequireNonEmpty(prefix+".collection", c.Collection)
}
