package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/SpaceshipxDev/super-tribble/internal/domain"
)

// ConversationService serves owner-scoped reads and deletes. The administrator
// sees every conversation; everyone else only their own.
type ConversationService struct {
	conversationRepo domain.ConversationRepository
	messageRepo      domain.MessageRepository
	memoRepo         domain.MemoRepository
	allowList        *domain.AllowList
}

// NewConversationService creates a new conversation service
func NewConversationService(
	conversationRepo domain.ConversationRepository,
	messageRepo domain.MessageRepository,
	memoRepo domain.MemoRepository,
	allowList *domain.AllowList,
) *ConversationService {
	return &ConversationService{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		memoRepo:         memoRepo,
		allowList:        allowList,
	}
}

// Create starts an empty conversation owned by username
func (s *ConversationService) Create(ctx context.Context, username, title string) (*domain.Conversation, error) {
	if title == "" {
		title = domain.DefaultTitle
	}
	conversation := &domain.Conversation{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: time.Now(),
		Owner:     username,
	}
	if err := s.conversationRepo.Create(ctx, conversation); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conversation, nil
}

// List returns the caller's conversations, newest first
func (s *ConversationService) List(ctx context.Context, username string) ([]domain.Conversation, error) {
	owner := username
	if s.allowList.IsAdmin(username) {
		owner = ""
	}
	return s.conversationRepo.List(ctx, owner)
}

// Get returns one conversation after an ownership check
func (s *ConversationService) Get(ctx context.Context, username, id string) (*domain.Conversation, error) {
	conversation, err := s.conversationRepo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if conversation == nil {
		return nil, domain.ErrNotFound
	}
	if !s.allowList.CanAccess(username, conversation.Owner) {
		return nil, domain.ErrForbidden
	}
	return conversation, nil
}

// Messages returns a conversation's messages oldest first, after an ownership check
func (s *ConversationService) Messages(ctx context.Context, username, id string) ([]domain.Message, error) {
	if _, err := s.Get(ctx, username, id); err != nil {
		return nil, err
	}
	return s.messageRepo.ListByConversation(ctx, id)
}

// Delete removes a conversation with its messages and memo, after an ownership check
func (s *ConversationService) Delete(ctx context.Context, username, id string) error {
	if _, err := s.Get(ctx, username, id); err != nil {
		return err
	}
	return s.conversationRepo.Delete(ctx, id)
}

// Memo returns the conversation's stored memo, or nil when none exists yet
func (s *ConversationService) Memo(ctx context.Context, username, id string) (*domain.Memo, error) {
	if _, err := s.Get(ctx, username, id); err != nil {
		return nil, err
	}
	return s.memoRepo.Get(ctx, id)
}
