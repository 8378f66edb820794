package domain

import (
	"context"
	"time"
)

// DefaultTitle is the placeholder title for a conversation that has not been
// named yet. The chat flow replaces it with a title derived from the first
// user turn.
const DefaultTitle = "新对话"

// Conversation is a thread of messages owned by exactly one username.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	Owner     string    `json:"owner,omitempty"`
}

// ConversationRepository defines the interface for conversation storage.
type ConversationRepository interface {
	Create(ctx context.Context, conversation *Conversation) error
	// Get returns nil without error when no conversation has the given id.
	Get(ctx context.Context, id string) (*Conversation, error)
	// List returns conversations newest first. An empty owner returns all
	// conversations system-wide; otherwise only the owner's.
	List(ctx context.Context, owner string) ([]Conversation, error)
	UpdateTitle(ctx context.Context, id, title string) error
	// Delete removes the conversation and all of its messages atomically.
	Delete(ctx context.Context, id string) error
}
