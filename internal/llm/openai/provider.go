package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/SpaceshipxDev/super-tribble/internal/config"
	"github.com/SpaceshipxDev/super-tribble/internal/llm"
)

const defaultTemperature = 0.3

// Provider implements llm.Provider against the OpenAI REST API
type Provider struct {
	apiKey    string
	baseURL   string
	chatModel string
	textModel string
	client    *http.Client
}

// NewProvider creates a new OpenAI provider
func NewProvider(cfg config.OpenAIConfig) *Provider {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = "gpt-5-chat-latest"
	}
	textModel := cfg.TextModel
	if textModel == "" {
		textModel = chatModel
	}
	return &Provider{
		apiKey:    cfg.APIKey,
		baseURL:   baseURL,
		chatModel: chatModel,
		textModel: textModel,
		// Request deadlines come from the caller's context; this is a
		// backstop above the longest allowed chat generation.
		client: &http.Client{Timeout: 6 * time.Minute},
	}
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return "openai"
}

// IsConfigured checks if provider has valid credentials
func (p *Provider) IsConfigured() bool {
	return p.apiKey != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	// ReasoningEffort is only sent when a thinking budget is granted; the
	// zero-budget default leaves extended reasoning off.
	ReasoningEffort string `json:"reasoning_effort,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type textRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

type textResponse struct {
	Choices []struct {
		Text string `json:"text"`
	} `json:"choices"`
}

// Converse sends the turn history plus a new user message to the chat
// completions API and returns the generated reply, trimmed.
func (p *Provider) Converse(ctx context.Context, req llm.ChatRequest) (string, error) {
	if !p.IsConfigured() {
		return "", llm.ErrNotConfigured
	}

	messages := make([]chatMessage, 0, len(req.History)+2)
	if req.SystemInstruction != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemInstruction})
	}
	for _, turn := range req.History {
		role := "user"
		if turn.Role == llm.RoleModel {
			role = "assistant"
		}
		if turn.Text == "" {
			continue
		}
		messages = append(messages, chatMessage{Role: role, Content: turn.Text})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Message})

	chatReq := chatRequest{
		Model:       p.chatModel,
		Messages:    messages,
		Temperature: temperatureOrDefault(req.Temperature),
	}
	if req.ThinkingBudget != nil && *req.ThinkingBudget > 0 {
		chatReq.ReasoningEffort = "medium"
	}

	var chatResp chatResponse
	if err := p.post(ctx, "/v1/chat/completions", chatReq, &chatResp); err != nil {
		return "", err
	}
	if len(chatResp.Choices) == 0 {
		return "", &llm.ProviderError{Provider: p.Name(), Err: fmt.Errorf("empty choices in chat response")}
	}
	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}

// Generate runs a single-shot completion. It tries the text completions API
// first and falls back to a one-message chat completion, because some
// deployments only serve the chat surface.
func (p *Provider) Generate(ctx context.Context, prompt string, temperature *float64) (string, error) {
	if !p.IsConfigured() {
		return "", llm.ErrNotConfigured
	}

	textReq := textRequest{
		Model:       p.textModel,
		Prompt:      prompt,
		Temperature: temperatureOrDefault(temperature),
		MaxTokens:   512,
	}
	var textResp textResponse
	err := p.post(ctx, "/v1/completions", textReq, &textResp)
	if err == nil && len(textResp.Choices) > 0 {
		return strings.TrimSpace(textResp.Choices[0].Text), nil
	}
	if ctx.Err() != nil {
		return "", &llm.ProviderError{Provider: p.Name(), Err: ctx.Err()}
	}

	return p.Converse(ctx, llm.ChatRequest{Message: prompt, Temperature: temperature})
}

func (p *Provider) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return &llm.ProviderError{Provider: p.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 800))
		return &llm.ProviderError{
			Provider: p.Name(),
			Status:   resp.StatusCode,
			Err:      fmt.Errorf("%s", strings.TrimSpace(string(snippet))),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &llm.ProviderError{Provider: p.Name(), Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func temperatureOrDefault(t *float64) float64 {
	if t != nil {
		return *t
	}
	return defaultTemperature
}
