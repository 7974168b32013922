package env

import (
	"testing"
	"time"
)

func TestLookups(t *testing.T) {
	t.Setenv("RAGDECK_TEST_STR", "value")
	t.Setenv("RAGDECK_TEST_INT", "42")
	t.Setenv("RAGDECK_TEST_BAD_INT", "x")
	t.Setenv("RAGDECK_TEST_BOOL", "true")
	t.Setenv("RAGDECK_TEST_DUR", "1m30s")

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"string set", String("RAGDECK_TEST_STR", "def"), "value"},
		{"string unset", String("RAGDECK_TEST_MISSING", "def"), "def"},
		{"int set", Int("RAGDECK_TEST_INT", 1), 42},
		{"int invalid", Int("RAGDECK_TEST_BAD_INT", 1), 1},
		{"bool set", Bool("RAGDECK_TEST_BOOL", false), true},
		{"bool unset", Bool("RAGDECK_TEST_MISSING", true), true},
		{"duration set", Duration("RAGDECK_TEST_DUR", 0), 90 * time.Second},
		{"duration unset", Duration("RAGDECK_TEST_MISSING", time.Second), time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}
