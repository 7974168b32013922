package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("RAGDECK_HOME", dir)
	for _, key := range []string{
		"RAGDECK_BACKEND_URL", "RAGDECK_TIMEOUT", "RAGDECK_LOG_FORMAT", "RAGDECK_LOG_LEVEL",
		"RAGDECK_HISTORY_BACKEND", "RAGDECK_AUTH_STORE", "REDIS_ADDR", "POSTGRES_HOST", "MONGODB_URI",
	} {
		t.Setenv(key, "")
	}
	return dir
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend.URL != "http://localhost:9621" {
		t.Errorf("URL = %q", cfg.Backend.URL)
	}
	if cfg.Backend.Timeout != 60*time.Second || cfg.Backend.EvidenceTimeout != 30*time.Second {
		t.Errorf("timeouts = %s, %s", cfg.Backend.Timeout, cfg.Backend.EvidenceTimeout)
	}
	if cfg.Auth.Path != filepath.Join(dir, "session.json") {
		t.Errorf("auth path = %q", cfg.Auth.Path)
	}
	if cfg.SettingsPath != filepath.Join(dir, "settings.yaml") {
		t.Errorf("settings path = %q", cfg.SettingsPath)
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	isolate(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestLoadYAML(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
backend:
  url: https://rag.example.com
  timeout: 15s
  rate_limit: 5
  rate_burst: 10
log:
  format: json
  level: debug
history:
  backend: postgres
  postgres:
    host: db.internal
    port: 5433
session:
  history_turns: 5
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend.URL != "https://rag.example.com" || cfg.Backend.Timeout != 15*time.Second {
		t.Errorf("backend = %+v", cfg.Backend)
	}
	if cfg.Backend.RateLimit != 5 || cfg.Backend.RateBurst != 10 {
		t.Errorf("rate = %v/%d", cfg.Backend.RateLimit, cfg.Backend.RateBurst)
	}
	if cfg.Log.Format != "json" || cfg.Log.Level != "debug" {
		t.Errorf("log = %+v", cfg.Log)
	}
	if cfg.History.Backend != BackendPostgres || cfg.History.Postgres.Host != "db.internal" || cfg.History.Postgres.Port != 5433 {
		t.Errorf("history = %+v", cfg.History)
	}
	// Fields absent from the file keep their defaults.
	if cfg.History.Postgres.DBName != "ragdeck" || cfg.Session.TokenBudget != 4000 || cfg.Session.HistoryTurns != 5 {
		t.Errorf("defaults lost: %+v %+v", cfg.History.Postgres, cfg.Session)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("RAGDECK_BACKEND_URL", "http://10.0.0.2:9621")
	t.Setenv("RAGDECK_TIMEOUT", "5s")
	t.Setenv("RAGDECK_HISTORY_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "cache:6380")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend.URL != "http://10.0.0.2:9621" || cfg.Backend.Timeout != 5*time.Second {
		t.Errorf("backend = %+v", cfg.Backend)
	}
	if cfg.History.Backend != BackendRedis || cfg.History.Redis.Addr != "cache:6380" || cfg.Session.Redis.Addr != "cache:6380" {
		t.Errorf("redis overrides not applied: %+v", cfg.History.Redis)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad url", func(c *Config) { c.Backend.URL = "localhost" }, "backend.url"},
		{"negative timeout", func(c *Config) { c.Backend.Timeout = -time.Second }, "backend.timeout"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"limiter without burst", func(c *Config) { c.Backend.RateLimit = 2; c.Backend.RateBurst = 0 }, "backend.rate_burst"},
		{"unknown history backend", func(c *Config) { c.History.Backend = "sqlite" }, "history.backend"},
		{"postgres without host", func(c *Config) {
			c.History.Backend = BackendPostgres
			c.History.Postgres.Host = ""
		}, "history.postgres.host"},
		{"mongo without uri", func(c *Config) {
			c.History.Backend = BackendMongo
			c.History.Mongo.URI = ""
		}, "history.mongo.uri"},
		{"redis session bad db", func(c *Config) {
			c.Session.Store = BackendRedis
			c.Session.Redis.DB = 42
		}, "session.redis.db"},
		{"file auth without path", func(c *Config) { c.Auth.Path = "" }, "auth.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantField) {
				t.Errorf("Validate() = %v, want mention of %s", err, tt.wantField)
			}
		})
	}
}
