package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/SpaceshipxDev/super-tribble/internal/domain"
)

// ConversationRepository implements domain.ConversationRepository
type ConversationRepository struct {
	db *DB
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Create inserts a new conversation
func (r *ConversationRepository) Create(ctx context.Context, conversation *domain.Conversation) error {
	query := `
		INSERT INTO conversations (id, title, created_at, owner)
		VALUES (?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		conversation.ID,
		conversation.Title,
		formatTime(conversation.CreatedAt),
		conversation.Owner,
	)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

// Get returns the conversation with the given id, or nil when absent
func (r *ConversationRepository) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	query := `
		SELECT id, title, created_at, COALESCE(owner, '')
		FROM conversations
		WHERE id = ?
	`
	var c domain.Conversation
	var createdAt string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Title, &createdAt, &c.Owner)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	c.CreatedAt = parseTime(createdAt)
	return &c, nil
}

// List returns conversations newest first, optionally restricted to owner.
// An empty owner returns every conversation system-wide.
func (r *ConversationRepository) List(ctx context.Context, owner string) ([]domain.Conversation, error) {
	query := `
		SELECT id, title, created_at, COALESCE(owner, '')
		FROM conversations
		ORDER BY created_at DESC
	`
	args := []any{}
	if owner != "" {
		query = `
			SELECT id, title, created_at, COALESCE(owner, '')
			FROM conversations
			WHERE owner = ?
			ORDER BY created_at DESC
		`
		args = append(args, owner)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var conversations []domain.Conversation
	for rows.Next() {
		var c domain.Conversation
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Title, &createdAt, &c.Owner); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		c.CreatedAt = parseTime(createdAt)
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

// UpdateTitle replaces the conversation title
func (r *ConversationRepository) UpdateTitle(ctx context.Context, id, title string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE conversations SET title = ? WHERE id = ?`, title, id)
	if err != nil {
		return fmt.Errorf("failed to update conversation title: %w", err)
	}
	return nil
}

// Delete removes the conversation and all of its messages in one transaction
func (r *ConversationRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM memos WHERE conversation_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete memo: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}
