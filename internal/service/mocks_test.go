package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/SpaceshipxDev/super-tribble/internal/domain"
	"github.com/SpaceshipxDev/super-tribble/internal/llm"
)

// MockConversationRepository mocks the ConversationRepository interface
type MockConversationRepository struct {
	mock.Mock
}

func (m *MockConversationRepository) Create(ctx context.Context, conversation *domain.Conversation) error {
	args := m.Called(ctx, conversation)
	return args.Error(0)
}

func (m *MockConversationRepository) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepository) List(ctx context.Context, owner string) ([]domain.Conversation, error) {
	args := m.Called(ctx, owner)
	return args.Get(0).([]domain.Conversation), args.Error(1)
}

func (m *MockConversationRepository) UpdateTitle(ctx context.Context, id, title string) error {
	args := m.Called(ctx, id, title)
	return args.Error(0)
}

func (m *MockConversationRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockMessageRepository mocks the MessageRepository interface
type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Create(ctx context.Context, message *domain.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockMessageRepository) ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error) {
	args := m.Called(ctx, conversationID)
	return args.Get(0).([]domain.Message), args.Error(1)
}

func (m *MockMessageRepository) ListSince(ctx context.Context, since time.Time) ([]domain.Message, error) {
	args := m.Called(ctx, since)
	return args.Get(0).([]domain.Message), args.Error(1)
}

func (m *MockMessageRepository) ListSinceForOwner(ctx context.Context, since time.Time, owner string) ([]domain.Message, error) {
	args := m.Called(ctx, since, owner)
	return args.Get(0).([]domain.Message), args.Error(1)
}

// MockMemoRepository mocks the MemoRepository interface
type MockMemoRepository struct {
	mock.Mock
}

func (m *MockMemoRepository) Get(ctx context.Context, conversationID string) (*domain.Memo, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Memo), args.Error(1)
}

func (m *MockMemoRepository) Upsert(ctx context.Context, conversationID, content string) (*domain.Memo, error) {
	args := m.Called(ctx, conversationID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Memo), args.Error(1)
}

// stubProvider is a canned llm.Provider for service tests
type stubProvider struct {
	name        string
	converse    func(ctx context.Context, req llm.ChatRequest) (string, error)
	generate    func(ctx context.Context, prompt string, temperature *float64) (string, error)
	unavailable bool
}

func (p *stubProvider) Name() string {
	if p.name == "" {
		return "stub"
	}
	return p.name
}

func (p *stubProvider) IsConfigured() bool { return !p.unavailable }

func (p *stubProvider) Converse(ctx context.Context, req llm.ChatRequest) (string, error) {
	if p.converse == nil {
		return "", nil
	}
	return p.converse(ctx, req)
}

func (p *stubProvider) Generate(ctx context.Context, prompt string, temperature *float64) (string, error) {
	if p.generate == nil {
		return "", nil
	}
	return p.generate(ctx, prompt, temperature)
}

func newStubRouter(p llm.Provider) *llm.Router {
	r := llm.NewRouter(p.Name())
	r.RegisterProvider(p)
	return r
}
