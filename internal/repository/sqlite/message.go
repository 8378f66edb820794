package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/SpaceshipxDev/super-tribble/internal/domain"
)

// MessageRepository implements domain.MessageRepository
type MessageRepository struct {
	db *DB
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create appends a message
func (r *MessageRepository) Create(ctx context.Context, message *domain.Message) error {
	query := `
		INSERT INTO messages (id, conversation_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		message.ID,
		message.ConversationID,
		string(message.Role),
		message.Content,
		formatTime(message.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// ListByConversation returns the conversation's messages oldest first, with
// same-millisecond ties broken by insertion order (rowid).
func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error) {
	query := `
		SELECT id, conversation_id, role, content, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC, rowid ASC
	`
	return r.queryMessages(ctx, query, conversationID)
}

// ListSince returns all messages created at or after since, oldest first
func (r *MessageRepository) ListSince(ctx context.Context, since time.Time) ([]domain.Message, error) {
	query := `
		SELECT id, conversation_id, role, content, created_at
		FROM messages
		WHERE created_at >= ?
		ORDER BY created_at ASC, rowid ASC
	`
	return r.queryMessages(ctx, query, formatTime(since))
}

// ListSinceForOwner restricts ListSince to conversations owned by owner by
// joining against conversation ownership. An empty owner is the unrestricted
// scan (the administrator's fleet-wide view).
func (r *MessageRepository) ListSinceForOwner(ctx context.Context, since time.Time, owner string) ([]domain.Message, error) {
	if owner == "" {
		return r.ListSince(ctx, since)
	}
	query := `
		SELECT m.id, m.conversation_id, m.role, m.content, m.created_at
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE m.created_at >= ? AND c.owner = ?
		ORDER BY m.created_at ASC, m.rowid ASC
	`
	return r.queryMessages(ctx, query, formatTime(since), owner)
}

func (r *MessageRepository) queryMessages(ctx context.Context, query string, args ...any) ([]domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		var role, createdAt string
		if err := rows.Scan(&m.ID, &m.ConversationID, &role, &m.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Role = domain.Role(role)
		m.Content = domain.NormalizeContent(m.Content)
		m.CreatedAt = parseTime(createdAt)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
