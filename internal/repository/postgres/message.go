package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SpaceshipxDev/super-tribble/internal/domain"
)

// MessageRepository implements domain.MessageRepository
type MessageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *DB) *MessageRepository {
	return &MessageRepository{pool: db.Pool}
}

// Create appends a message to its conversation
func (r *MessageRepository) Create(ctx context.Context, message *domain.Message) error {
	query := `
		INSERT INTO messages (id, conversation_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		message.ID,
		message.ConversationID,
		message.Role,
		message.Content,
		message.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// ListByConversation returns a conversation's messages oldest first.
// The seq column breaks ties between same-timestamp rows.
func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error) {
	query := `
		SELECT id, conversation_id, role, content, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, seq ASC
	`
	return r.queryMessages(ctx, query, conversationID)
}

// ListSince returns every message created at or after since, oldest first
func (r *MessageRepository) ListSince(ctx context.Context, since time.Time) ([]domain.Message, error) {
	query := `
		SELECT id, conversation_id, role, content, created_at
		FROM messages
		WHERE created_at >= $1
		ORDER BY created_at ASC, seq ASC
	`
	return r.queryMessages(ctx, query, since.UTC())
}

// ListSinceForOwner restricts ListSince to conversations owned by owner.
// An empty owner means no restriction.
func (r *MessageRepository) ListSinceForOwner(ctx context.Context, since time.Time, owner string) ([]domain.Message, error) {
	if owner == "" {
		return r.ListSince(ctx, since)
	}
	query := `
		SELECT m.id, m.conversation_id, m.role, m.content, m.created_at
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE m.created_at >= $1 AND c.owner = $2
		ORDER BY m.created_at ASC, m.seq ASC
	`
	return r.queryMessages(ctx, query, since.UTC(), owner)
}

func (r *MessageRepository) queryMessages(ctx context.Context, query string, args ...any) ([]domain.Message, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Content = domain.NormalizeContent(m.Content)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
