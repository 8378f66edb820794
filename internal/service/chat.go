package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/SpaceshipxDev/super-tribble/internal/domain"
	"github.com/SpaceshipxDev/super-tribble/internal/llm"
)

// DefaultSystemInstruction steers every chat turn unless the client overrides it.
const DefaultSystemInstruction = "你是一名中文助手。所有回答请使用简洁、现代的中文表达，短句直给，避免冗长。"

const titleMaxRunes = 48

// ChatService drives the send-message flow: conversation bootstrap, turn
// persistence, auto-titling and the round trip to the model.
type ChatService struct {
	conversationRepo domain.ConversationRepository
	messageRepo      domain.MessageRepository
	allowList        *domain.AllowList
	llmRouter        *llm.Router
	chatTimeout      time.Duration
	thinkingBudget   int
}

// NewChatService creates a new chat service
func NewChatService(
	conversationRepo domain.ConversationRepository,
	messageRepo domain.MessageRepository,
	allowList *domain.AllowList,
	llmRouter *llm.Router,
	chatTimeout time.Duration,
	thinkingBudget int,
) *ChatService {
	return &ChatService{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		allowList:        allowList,
		llmRouter:        llmRouter,
		chatTimeout:      chatTimeout,
		thinkingBudget:   thinkingBudget,
	}
}

// SendInput is one user turn
type SendInput struct {
	ConversationID    string
	Message           string
	SystemInstruction string
	Temperature       *float64
	ThinkingBudget    *int
}

// SendResult is the model's reply together with the conversation it landed in
type SendResult struct {
	ConversationID string
	Text           string
}

// Send persists the user turn, replays the conversation to the model and
// persists the reply. A missing or unknown conversation id starts a fresh
// conversation owned by the sender.
func (s *ChatService) Send(ctx context.Context, username string, input SendInput) (*SendResult, error) {
	if s.allowList.IsAdmin(username) {
		return nil, domain.ErrAdminChat
	}

	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, domain.ErrEmptyMessage
	}

	provider, err := s.llmRouter.GetProvider("")
	if err != nil {
		return nil, err
	}

	conversation, err := s.ensureConversation(ctx, username, input.ConversationID)
	if err != nil {
		return nil, err
	}

	userMsg := &domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conversation.ID,
		Role:           domain.RoleUser,
		Content:        message,
		CreatedAt:      time.Now(),
	}
	if err := s.messageRepo.Create(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("failed to save user message: %w", err)
	}

	history, err := s.messageRepo.ListByConversation(ctx, conversation.ID)
	if err != nil {
		log.Error().Err(err).Str("conversation", conversation.ID).Msg("failed to fetch chat history")
		history = []domain.Message{*userMsg}
	}

	s.maybeRetitle(ctx, conversation, message, len(history))

	turns := make([]llm.Turn, 0, len(history))
	for _, m := range history {
		if m.ID == userMsg.ID {
			continue
		}
		role := llm.RoleUser
		if m.Role == domain.RoleModel {
			role = llm.RoleModel
		}
		turns = append(turns, llm.Turn{Role: role, Text: m.Content})
	}

	instruction := input.SystemInstruction
	if instruction == "" {
		instruction = DefaultSystemInstruction
	}
	budget := s.thinkingBudget
	if input.ThinkingBudget != nil {
		budget = *input.ThinkingBudget
	}

	callCtx, cancel := context.WithTimeout(ctx, s.chatTimeout)
	defer cancel()

	log.Info().
		Str("conversation", conversation.ID).
		Str("provider", provider.Name()).
		Int("history", len(turns)).
		Msg("chat request")

	text, err := provider.Converse(callCtx, llm.ChatRequest{
		History:           turns,
		Message:           message,
		SystemInstruction: instruction,
		Temperature:       input.Temperature,
		ThinkingBudget:    &budget,
	})
	if err != nil {
		return &SendResult{ConversationID: conversation.ID}, err
	}

	if strings.TrimSpace(text) != "" {
		reply := &domain.Message{
			ID:             uuid.NewString(),
			ConversationID: conversation.ID,
			Role:           domain.RoleModel,
			Content:        text,
			CreatedAt:      time.Now(),
		}
		if err := s.messageRepo.Create(ctx, reply); err != nil {
			log.Error().Err(err).Str("conversation", conversation.ID).Msg("failed to save model reply")
		}
	}

	return &SendResult{ConversationID: conversation.ID, Text: text}, nil
}

func (s *ChatService) ensureConversation(ctx context.Context, username, id string) (*domain.Conversation, error) {
	if id != "" {
		conversation, err := s.conversationRepo.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get conversation: %w", err)
		}
		if conversation != nil {
			if !s.allowList.CanAccess(username, conversation.Owner) {
				return nil, domain.ErrForbidden
			}
			return conversation, nil
		}
	}

	conversation := &domain.Conversation{
		ID:        uuid.NewString(),
		Title:     domain.DefaultTitle,
		CreatedAt: time.Now(),
		Owner:     username,
	}
	if err := s.conversationRepo.Create(ctx, conversation); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conversation, nil
}

// maybeRetitle derives the title from the first user message when the
// conversation is on its first turn or still carries a placeholder title.
func (s *ChatService) maybeRetitle(ctx context.Context, conversation *domain.Conversation, message string, historyLen int) {
	firstTurn := historyLen <= 1
	placeholder := conversation.Title == "" ||
		conversation.Title == domain.DefaultTitle ||
		strings.EqualFold(conversation.Title, "new chat")
	if !firstTurn && !placeholder {
		return
	}
	title := titleFromText(message)
	if title == "" {
		return
	}
	if err := s.conversationRepo.UpdateTitle(ctx, conversation.ID, title); err != nil {
		log.Error().Err(err).Str("conversation", conversation.ID).Msg("failed to update title")
		return
	}
	conversation.Title = title
}

// titleFromText collapses whitespace and truncates to a rune budget, so CJK
// text is never cut mid-character.
func titleFromText(text string) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	runes := []rune(collapsed)
	if len(runes) <= titleMaxRunes {
		return collapsed
	}
	return string(runes[:titleMaxRunes]) + "…"
}
