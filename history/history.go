// Package history records finished retrieval queries.
package history

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sweetpotato0/ragdeck/api"
)

// Record is one finished query.
type Record struct {
	ID        string        `json:"id"`
	SessionID string        `json:"session_id,omitempty"`
	Query     string        `json:"query"`
	Mode      api.QueryMode `json:"mode"`
	Response  string        `json:"response"`
	// Errors are the error frames the backend streamed.
	Errors []string `json:"errors,omitempty"`
	// Dropped counts frames that could not be parsed.
	Dropped   int           `json:"dropped,omitempty"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at"`
}

// Prepare fills in a missing ID and creation time.
func (r *Record) Prepare() {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Errors = slices.Clone(r.Errors)
	return &c
}

// Matches reports whether the query or response contains q, ignoring case.
// An empty q matches everything.
func (r *Record) Matches(q string) bool {
	if q == "" {
		return true
	}
	q = strings.ToLower(q)
	return strings.Contains(strings.ToLower(r.Query), q) ||
		strings.Contains(strings.ToLower(r.Response), q)
}

// Store persists query records. Search and Recent return newest first;
// a limit of zero or less means no limit.
type Store interface {
	Add(ctx context.Context, r *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	Search(ctx context.Context, query string, limit int) ([]*Record, error)
	Recent(ctx context.Context, limit int) ([]*Record, error)
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}
