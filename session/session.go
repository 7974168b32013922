// Package session runs multi-turn retrieval conversations against the
// streaming query endpoint.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/sweetpotato0/ragdeck/api"
	"github.com/sweetpotato0/ragdeck/message"
)

// ErrBusy is returned by Send while another query of the same
// conversation is still streaming.
var ErrBusy = errors.New("session: a query is already in flight")

// State represents the state of a conversation
type State string

const (
	StateActive State = "active"
	StateClosed State = "closed"
)

// Record is the serializable snapshot of a conversation.
type Record struct {
	ID           string             `json:"id"`
	Mode         api.QueryMode      `json:"mode"`
	State        State              `json:"state"`
	Messages     []*message.Message `json:"messages,omitempty"`
	LastDuration time.Duration      `json:"last_duration,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	cloned := *r
	cloned.Messages = message.CloneMessages(r.Messages)
	return &cloned
}

// Store defines the interface for conversation storage backends.
type Store interface {
	Save(ctx context.Context, record *Record) error
	Load(ctx context.Context, id string) (*Record, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int, error)
	Exists(ctx context.Context, id string) (bool, error)
}
