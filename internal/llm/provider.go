package llm

import (
	"context"
	"errors"
	"fmt"
)

// Turn is one prior exchange in a conversation history. Role is "user" or
// "model"; system turns are carried via ChatRequest.SystemInstruction instead.
type Turn struct {
	Role string
	Text string
}

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ChatRequest contains conversational generation parameters. History must be
// in creation order and must not include the new Message.
type ChatRequest struct {
	History           []Turn
	Message           string
	SystemInstruction string
	// Temperature nil lets the provider pick its default.
	Temperature *float64
	// ThinkingBudget zero disables any extended-reasoning mode the backend
	// offers; nil means zero.
	ThinkingBudget *int
}

// Provider defines the interface for completion gateway backends.
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// IsConfigured checks if provider has valid credentials
	IsConfigured() bool

	// Converse sends a history plus a new user message and returns the
	// generated reply, trimmed.
	Converse(ctx context.Context, req ChatRequest) (string, error)

	// Generate runs a single-shot completion without conversational
	// framing, used for memos and summaries.
	Generate(ctx context.Context, prompt string, temperature *float64) (string, error)
}

// ErrNotConfigured reports a provider invoked without an API credential.
// Callers surface a user-visible placeholder rather than an error page.
var ErrNotConfigured = errors.New("llm provider is not configured (missing API key)")

// ProviderError wraps any upstream failure (network, timeout, non-success
// status). Its message is for server logs; the raw provider body must never
// reach end users.
type ProviderError struct {
	Provider string
	Status   int
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s provider error (status %d): %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("%s provider error: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
