// Package config loads the ragdeck configuration file and applies
// RAGDECK_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweetpotato0/ragdeck/pkg/env"
)

// Store backends.
const (
	BackendNone     = "none"
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// Config is the full client configuration.
type Config struct {
	Backend   BackendConfig   `yaml:"backend"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Auth      AuthConfig      `yaml:"auth"`
	Session   SessionConfig   `yaml:"session"`
	History   HistoryConfig   `yaml:"history"`
	// SettingsPath is the YAML file holding user preferences.
	SettingsPath string `yaml:"settings_path"`
}

// BackendConfig describes the RAG server.
type BackendConfig struct {
	URL             string        `yaml:"url"`
	Timeout         time.Duration `yaml:"timeout"`
	EvidenceTimeout time.Duration `yaml:"evidence_timeout"`
	UserAgent       string        `yaml:"user_agent"`
	// RateLimit caps requests per second; zero disables the limiter.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

// TelemetryConfig controls tracing.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
	Environment string `yaml:"environment"`
}

// AuthConfig selects where the login session is kept.
type AuthConfig struct {
	Store string      `yaml:"store"`
	Path  string      `yaml:"path"`
	Redis RedisConfig `yaml:"redis"`
}

// SessionConfig controls retrieval conversations.
type SessionConfig struct {
	Store        string      `yaml:"store"`
	HistoryTurns int         `yaml:"history_turns"`
	TokenBudget  int         `yaml:"token_budget"`
	Tokenizer    string      `yaml:"tokenizer"`
	Redis        RedisConfig `yaml:"redis"`
}

// HistoryConfig selects the query history store.
type HistoryConfig struct {
	Backend  string         `yaml:"backend"`
	Limit    int            `yaml:"limit"`
	Postgres PostgresConfig `yaml:"postgres"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Redis    RedisConfig    `yaml:"redis"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// Dir returns the directory holding ragdeck's files, honouring
// RAGDECK_HOME.
func Dir() string {
	if dir := os.Getenv("RAGDECK_HOME"); dir != "" {
		return dir
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "ragdeck")
	}
	return ".ragdeck"
}

// DefaultPath is the config file read when no path is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the built-in configuration.
func Default() *Config {
	dir := Dir()
	return &Config{
		Backend: BackendConfig{
			URL:             "http://localhost:9621",
			Timeout:         60 * time.Second,
			EvidenceTimeout: 30 * time.Second,
			RateBurst:       1,
		},
		Log: LogConfig{Format: "text", Level: "info"},
		Telemetry: TelemetryConfig{
			ServiceName: "ragdeck",
		},
		Auth: AuthConfig{
			Store: BackendFile,
			Path:  filepath.Join(dir, "session.json"),
			Redis: RedisConfig{Addr: "localhost:6379", Prefix: "ragdeck:auth"},
		},
		Session: SessionConfig{
			Store:        BackendMemory,
			HistoryTurns: 3,
			TokenBudget:  4000,
			Tokenizer:    "simple",
			Redis:        RedisConfig{Addr: "localhost:6379", Prefix: "ragdeck:session:", TTL: 7 * 24 * time.Hour},
		},
		History: HistoryConfig{
			Backend: BackendMemory,
			Limit:   1000,
			Postgres: PostgresConfig{
				Host:    "localhost",
				Port:    5432,
				User:    "postgres",
				DBName:  "ragdeck",
				SSLMode: "disable",
			},
			Mongo: MongoConfig{
				URI:        "mongodb://localhost:27017",
				Database:   "ragdeck",
				Collection: "query_history",
			},
			Redis: RedisConfig{Addr: "localhost:6379", Prefix: "ragdeck:history:", TTL: 30 * 24 * time.Hour},
		},
		SettingsPath: filepath.Join(dir, "settings.yaml"),
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path reads DefaultPath and tolerates its
// absence; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from RAGDECK_* variables.
func (c *Config) ApplyEnv() {
	c.Backend.URL = env.String("RAGDECK_BACKEND_URL", c.Backend.URL)
	c.Backend.Timeout = env.Duration("RAGDECK_TIMEOUT", c.Backend.Timeout)
	c.Backend.EvidenceTimeout = env.Duration("RAGDECK_EVIDENCE_TIMEOUT", c.Backend.EvidenceTimeout)
	c.Log.Format = env.String("RAGDECK_LOG_FORMAT", c.Log.Format)
	c.Log.Level = env.String("RAGDECK_LOG_LEVEL", c.Log.Level)
	c.Telemetry.Enabled = env.Bool("RAGDECK_TELEMETRY", c.Telemetry.Enabled)
	c.Telemetry.Endpoint = env.String("RAGDECK_OTLP_ENDPOINT", c.Telemetry.Endpoint)
	c.Auth.Store = env.String("RAGDECK_AUTH_STORE", c.Auth.Store)
	c.Auth.Path = env.String("RAGDECK_AUTH_PATH", c.Auth.Path)
	c.Session.Store = env.String("RAGDECK_SESSION_STORE", c.Session.Store)
	c.Session.Tokenizer = env.String("RAGDECK_TOKENIZER", c.Session.Tokenizer)
	c.History.Backend = env.String("RAGDECK_HISTORY_BACKEND", c.History.Backend)
	c.History.Postgres.Host = env.String("POSTGRES_HOST", c.History.Postgres.Host)
	c.History.Postgres.Password = env.String("POSTGRES_PASSWORD", c.History.Postgres.Password)
	c.History.Mongo.URI = env.String("MONGODB_URI", c.History.Mongo.URI)
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Auth.Redis.Addr = addr
		c.Session.Redis.Addr = addr
		c.History.Redis.Addr = addr
	}
	c.SettingsPath = env.String("RAGDECK_SETTINGS_PATH", c.SettingsPath)
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	v := NewValidator()

	v.RequireHTTPURL("backend.url", c.Backend.URL)
	v.RequireNonNegativeDuration("backend.timeout", c.Backend.Timeout)
	v.RequireNonNegativeDuration("backend.evidence_timeout", c.Backend.EvidenceTimeout)
	v.ValidateFloatRange("backend.rate_limit", c.Backend.RateLimit, 0, 1e6)
	if c.Backend.RateLimit > 0 {
		v.RequirePositive("backend.rate_burst", c.Backend.RateBurst)
	}

	v.ValidateOneOf("log.format", c.Log.Format, "json", "text")
	v.ValidateOneOf("log.level", c.Log.Level, "debug", "info", "warn", "warning", "error")

	v.ValidateOneOf("auth.store", c.Auth.Store, BackendMemory, BackendFile, BackendRedis)
	switch c.Auth.Store {
	case BackendFile:
		v.RequireNonEmpty("auth.path", c.Auth.Path)
	case BackendRedis:
		v.validateRedis("auth.redis", c.Auth.Redis)
	}

	v.ValidateOneOf("session.store", c.Session.Store, BackendMemory, BackendRedis)
	v.ValidateRange("session.history_turns", c.Session.HistoryTurns, 0, 100)
	v.ValidateRange("session.token_budget", c.Session.TokenBudget, 0, 1<<20)
	v.RequireNonEmpty("session.tokenizer", c.Session.Tokenizer)
	if c.Session.Store == BackendRedis {
		v.validateRedis("session.redis", c.Session.Redis)
	}

	v.ValidateOneOf("history.backend", c.History.Backend,
		BackendNone, BackendMemory, BackendPostgres, BackendMongo, BackendRedis)
	switch c.History.Backend {
	case BackendPostgres:
		v.validatePostgres("history.postgres", c.History.Postgres)
	case BackendMongo:
		v.validateMongo("history.mongo", c.History.Mongo)
	case BackendRedis:
		v.validateRedis("history.redis", c.History.Redis)
	}

	return v.Error()
}
