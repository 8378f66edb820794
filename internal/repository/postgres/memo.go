package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SpaceshipxDev/super-tribble/internal/domain"
)

// MemoRepository implements domain.MemoRepository
type MemoRepository struct {
	pool *pgxpool.Pool
}

// NewMemoRepository creates a new memo repository
func NewMemoRepository(db *DB) *MemoRepository {
	return &MemoRepository{pool: db.Pool}
}

// Get returns the conversation's memo, or nil when absent
func (r *MemoRepository) Get(ctx context.Context, conversationID string) (*domain.Memo, error) {
	query := `
		SELECT conversation_id, content, created_at, updated_at
		FROM memos
		WHERE conversation_id = $1
	`
	var m domain.Memo
	err := r.pool.QueryRow(ctx, query, conversationID).Scan(&m.ConversationID, &m.Content, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get memo: %w", err)
	}
	return &m, nil
}

// Upsert writes the memo content, keeping the original created_at on update
func (r *MemoRepository) Upsert(ctx context.Context, conversationID, content string) (*domain.Memo, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO memos (conversation_id, content, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (conversation_id) DO UPDATE
		SET content = excluded.content, updated_at = excluded.updated_at
	`
	if _, err := r.pool.Exec(ctx, query, conversationID, content, now); err != nil {
		return nil, fmt.Errorf("failed to upsert memo: %w", err)
	}
	return r.Get(ctx, conversationID)
}
