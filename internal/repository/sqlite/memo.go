package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/SpaceshipxDev/super-tribble/internal/domain"
)

// MemoRepository implements domain.MemoRepository
type MemoRepository struct {
	db *DB
}

// NewMemoRepository creates a new memo repository
func NewMemoRepository(db *DB) *MemoRepository {
	return &MemoRepository{db: db}
}

// Get returns the conversation's memo, or nil when absent
func (r *MemoRepository) Get(ctx context.Context, conversationID string) (*domain.Memo, error) {
	query := `
		SELECT conversation_id, content, created_at, updated_at
		FROM memos
		WHERE conversation_id = ?
	`
	var m domain.Memo
	var createdAt, updatedAt string
	err := r.db.QueryRowContext(ctx, query, conversationID).Scan(&m.ConversationID, &m.Content, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get memo: %w", err)
	}
	m.CreatedAt = parseTime(createdAt)
	m.UpdatedAt = parseTime(updatedAt)
	return &m, nil
}

// Upsert inserts or replaces the memo content. The original created_at is
// preserved across updates; updated_at always reflects this write.
func (r *MemoRepository) Upsert(ctx context.Context, conversationID, content string) (*domain.Memo, error) {
	now := time.Now()
	query := `
		INSERT INTO memos (conversation_id, content, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (conversation_id) DO UPDATE SET
			content = excluded.content,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query, conversationID, content, formatTime(now), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert memo: %w", err)
	}
	return r.Get(ctx, conversationID)
}
