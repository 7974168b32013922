// Package message holds the turns of a retrieval conversation.
package message

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/sweetpotato0/ragdeck/api"
)

// Role represents the role of the message sender
type Role = api.Role

const (
	RoleUser      = api.RoleUser
	RoleAssistant = api.RoleAssistant
	RoleSystem    = api.RoleSystem
)

// Message represents a single message in a conversation
type Message struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
	// Errors holds error frames received while the message was streamed.
	Errors    []string  `json:"errors,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMessage creates a new message with the given role and content
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// Clone creates a deep copy of the message.
func Clone(msg *Message) *Message {
	if msg == nil {
		return nil
	}
	cloned := *msg
	cloned.Errors = slices.Clone(msg.Errors)
	return &cloned
}

// CloneMessages copies a slice of messages.
func CloneMessages(msgs []*Message) []*Message {
	if len(msgs) == 0 {
		return nil
	}
	clones := make([]*Message, 0, len(msgs))
	for _, msg := range msgs {
		clones = append(clones, Clone(msg))
	}
	return clones
}

// ToAPI converts messages into conversation_history entries. Messages with
// no content are skipped.
func ToAPI(msgs []*Message) []api.Message {
	out := make([]api.Message, 0, len(msgs))
	for _, msg := range msgs {
		if msg == nil || msg.Content == "" {
			continue
		}
		out = append(out, api.Message{Role: msg.Role, Content: msg.Content})
	}
	return out
}
