package domain

import (
	"context"
	"time"
)

// Memo is a cached, regenerable natural-language summary of one conversation.
// At most one memo exists per conversation. It is derived data: safe to delete
// and recompute.
type Memo struct {
	ConversationID string    `json:"conversationId"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// MemoRepository defines the interface for memo storage.
type MemoRepository interface {
	// Get returns nil without error when the conversation has no memo.
	Get(ctx context.Context, conversationID string) (*Memo, error)
	// Upsert inserts or replaces the memo content, preserving the original
	// CreatedAt across updates and refreshing UpdatedAt.
	Upsert(ctx context.Context, conversationID, content string) (*Memo, error)
}
