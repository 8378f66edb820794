package domain

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// Role identifies the sender of a message.
type Role string

const (
	RoleUser   Role = "user"
	RoleModel  Role = "model"
	RoleSystem Role = "system"
)

// Message is one turn inside a conversation. Messages are append-only and
// totally ordered by CreatedAt within their conversation.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

// MessageRepository defines the interface for message storage.
type MessageRepository interface {
	Create(ctx context.Context, message *Message) error
	// ListByConversation returns the conversation's messages oldest first.
	ListByConversation(ctx context.Context, conversationID string) ([]Message, error)
	// ListSince returns all messages created at or after since, oldest first.
	ListSince(ctx context.Context, since time.Time) ([]Message, error)
	// ListSinceForOwner restricts ListSince to conversations owned by owner.
	// An empty owner is equivalent to the unrestricted scan.
	ListSinceForOwner(ctx context.Context, since time.Time, owner string) ([]Message, error)
}

// NormalizeContent undoes a legacy storage bug where message content was
// occasionally persisted as a JSON wrapper object {"text": ...}, sometimes
// several concatenated, instead of the raw text. New rows are never written
// that way; this read-side unwrap only protects pre-existing data.
func NormalizeContent(content string) string {
	if text, ok := textFromJSONObject(content); ok {
		return text
	}
	candidates := balancedJSONObjects(content)
	for i := len(candidates) - 1; i >= 0; i-- {
		if text, ok := textFromJSONObject(candidates[i]); ok {
			return text
		}
	}
	return content
}

func textFromJSONObject(s string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
		return "", false
	}
	var wrapper struct {
		Text *string `json:"text"`
	}
	if err := json.Unmarshal([]byte(trimmed), &wrapper); err != nil || wrapper.Text == nil {
		return "", false
	}
	return *wrapper.Text, true
}

// balancedJSONObjects extracts top-level {...} spans from s in order.
func balancedJSONObjects(s string) []string {
	var out []string
	depth, start := 0, -1
	for i, ch := range s {
		switch ch {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
			if depth == 0 && start != -1 {
				out = append(out, s[start:i+1])
				start = -1
			}
		}
	}
	return out
}
