package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/SpaceshipxDev/super-tribble/internal/config"
	"github.com/SpaceshipxDev/super-tribble/internal/llm"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Provider implements llm.Provider against the Gemini API. Gemini models of
// this generation do no extended reasoning unless asked, so the zero
// thinking-budget contract holds without an explicit switch.
type Provider struct {
	apiKey    string
	chatModel string
	textModel string
}

func NewProvider(cfg config.GeminiConfig) *Provider {
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = "gemini-2.5-flash"
	}
	textModel := cfg.TextModel
	if textModel == "" {
		textModel = chatModel
	}
	return &Provider{
		apiKey:    cfg.APIKey,
		chatModel: chatModel,
		textModel: textModel,
	}
}

func (p *Provider) Name() string {
	return "gemini"
}

func (p *Provider) IsConfigured() bool {
	return p.apiKey != ""
}

func (p *Provider) Converse(ctx context.Context, req llm.ChatRequest) (string, error) {
	if !p.IsConfigured() {
		return "", llm.ErrNotConfigured
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return "", &llm.ProviderError{Provider: p.Name(), Err: fmt.Errorf("failed to create client: %w", err)}
	}
	defer client.Close()

	model := client.GenerativeModel(p.chatModel)
	if req.Temperature != nil {
		temperature := float32(*req.Temperature)
		model.Temperature = &temperature
	}
	if req.SystemInstruction != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.SystemInstruction)},
		}
	}

	session := model.StartChat()
	for _, turn := range req.History {
		if turn.Text == "" {
			continue
		}
		role := "user"
		if turn.Role == llm.RoleModel {
			role = "model"
		}
		session.History = append(session.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(turn.Text)},
		})
	}

	resp, err := session.SendMessage(ctx, genai.Text(req.Message))
	if err != nil {
		return "", &llm.ProviderError{Provider: p.Name(), Err: err}
	}
	return extractText(resp)
}

func (p *Provider) Generate(ctx context.Context, prompt string, temperature *float64) (string, error) {
	if !p.IsConfigured() {
		return "", llm.ErrNotConfigured
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return "", &llm.ProviderError{Provider: p.Name(), Err: fmt.Errorf("failed to create client: %w", err)}
	}
	defer client.Close()

	model := client.GenerativeModel(p.textModel)
	if temperature != nil {
		t := float32(*temperature)
		model.Temperature = &t
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", &llm.ProviderError{Provider: p.Name(), Err: err}
	}
	return extractText(resp)
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", &llm.ProviderError{Provider: "gemini", Err: fmt.Errorf("empty response")}
	}
	var output strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			output.WriteString(string(text))
		}
	}
	return strings.TrimSpace(output.String()), nil
}
