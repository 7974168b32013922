package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidatorChecks(t *testing.T) {
	tests := []struct {
		name      string
		check     func(v *Validator)
		wantError bool
	}{
		{"non-empty", func(v *Validator) { v.RequireNonEmpty("f", "x") }, false},
		{"empty", func(v *Validator) { v.RequireNonEmpty("f", "") }, true},
		{"positive", func(v *Validator) { v.RequirePositive("f", 3) }, false},
		{"zero not positive", func(v *Validator) { v.RequirePositive("f", 0) }, true},
		{"negative not positive", func(v *Validator) { v.RequirePositive("f", -1) }, true},
		{"range lower bound", func(v *Validator) { v.ValidateRange("f", 0, 0, 100) }, false},
		{"range upper bound", func(v *Validator) { v.ValidateRange("f", 100, 0, 100) }, false},
		{"range above", func(v *Validator) { v.ValidateRange("f", 101, 0, 100) }, true},
		{"float range inside", func(v *Validator) { v.ValidateFloatRange("f", 2.5, 0, 10) }, false},
		{"float range below", func(v *Validator) { v.ValidateFloatRange("f", -0.1, 0, 10) }, true},
		{"port", func(v *Validator) { v.ValidatePort("f", 5432) }, false},
		{"port zero", func(v *Validator) { v.ValidatePort("f", 0) }, true},
		{"port too high", func(v *Validator) { v.ValidatePort("f", 70000) }, true},
		{"redis db", func(v *Validator) { v.ValidateDBNumber("f", 15) }, false},
		{"redis db too high", func(v *Validator) { v.ValidateDBNumber("f", 16) }, true},
		{"one of", func(v *Validator) { v.ValidateOneOf("f", "json", "json", "text") }, false},
		{"not one of", func(v *Validator) { v.ValidateOneOf("f", "xml", "json", "text") }, true},
		{"http url", func(v *Validator) { v.RequireHTTPURL("f", "http://localhost:9621") }, false},
		{"https url", func(v *Validator) { v.RequireHTTPURL("f", "https://rag.example.com/api") }, false},
		{"url without scheme", func(v *Validator) { v.RequireHTTPURL("f", "localhost:9621") }, true},
		{"ftp url", func(v *Validator) { v.RequireHTTPURL("f", "ftp://host") }, true},
		{"url without host", func(v *Validator) { v.RequireHTTPURL("f", "http://") }, true},
		{"zero duration", func(v *Validator) { v.RequireNonNegativeDuration("f", 0) }, false},
		{"negative duration", func(v *Validator) { v.RequireNonNegativeDuration("f", -time.Second) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			tt.check(v)
			if got := v.HasErrors(); got != tt.wantError {
				t.Errorf("HasErrors() = %v, want %v (errors: %v)", got, tt.wantError, v.Errors())
			}
			if (v.Error() != nil) != tt.wantError {
				t.Errorf("Error() = %v, want error %v", v.Error(), tt.wantError)
			}
		})
	}
}

func TestValidatorCollectsEveryFailure(t *testing.T) {
	v := NewValidator()
	v.RequireNonEmpty("backend.url", "").
		ValidatePort("history.postgres.port", 0).
		RequireNonEmpty("session.tokenizer", "simple")

	errs := v.Errors()
	if len(errs) != 2 {
		t.Fatalf("Errors() = %v, want 2 entries", errs)
	}
	msg := v.Error().Error()
	for _, field := range []string{"backend.url", "history.postgres.port"} {
		if !strings.Contains(msg, field) {
			t.Errorf("error message missing %q:\n%s", field, msg)
		}
	}
	if strings.Contains(msg, "session.tokenizer") {
		t.Errorf("passing field reported:\n%s", msg)
	}
}

func TestStoreSectionValidators(t *testing.T) {
	tests := []struct {
		name   string
		check  func(v *Validator)
		fields []string
	}{
		{
			name:  "postgres ok",
			check: func(v *Validator) { v.validatePostgres("pg", Default().History.Postgres) },
		},
		{
			name: "postgres bad",
			check: func(v *Validator) {
				v.validatePostgres("pg", PostgresConfig{Port: 99999, SSLMode: "maybe"})
			},
			fields: []string{"pg.host", "pg.port", "pg.user", "pg.dbname", "pg.sslmode"},
		},
		{
			name:  "redis ok",
			check: func(v *Validator) { v.validateRedis("r", Default().Session.Redis) },
		},
		{
			name:   "redis bad",
			check:  func(v *Validator) { v.validateRedis("r", RedisConfig{DB: 20, TTL: -time.Minute}) },
			fields: []string{"r.addr", "r.db", "r.prefix", "r.ttl"},
		},
		{
			name:  "mongo ok",
			check: func(v *Validator) { v.validateMongo("m", Default().History.Mongo) },
		},
		{
			name:   "mongo bad",
			check:  func(v *Validator) { v.validateMongo("m", MongoConfig{}) },
			fields: []string{"m.uri", "m.database", "m.collection"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			tt.check(v)
			var got []string
			for _, e := range v.Errors() {
				got = append(got, e.Field)
			}
			if strings.Join(got, ",") != strings.Join(tt.fields, ",") {
				t.Errorf("failed fields = %v, want %v", got, tt.fields)
			}
		})
	}
}

func TestValidationErrorString(t *testing.T) {
	err := ValidationError{Field: "backend.url", Message: "value cannot be empty"}
	want := `config validation failed for field "backend.url": value cannot be empty`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
