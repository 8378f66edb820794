package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/SpaceshipxDev/super-tribble/internal/api/middleware"
	"github.com/SpaceshipxDev/super-tribble/internal/api/response"
	"github.com/SpaceshipxDev/super-tribble/internal/domain"
	"github.com/SpaceshipxDev/super-tribble/internal/llm"
	"github.com/SpaceshipxDev/super-tribble/internal/service"
)

// ChatHandler handles the send-message endpoint
type ChatHandler struct {
	chatService *service.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

type chatInput struct {
	ConversationID    string   `json:"conversationId"`
	Message           string   `json:"message"`
	SystemInstruction string   `json:"systemInstruction"`
	Temperature       *float64 `json:"temperature"`
	ThinkingBudget    *int     `json:"thinkingBudget"`
}

// Send runs one chat turn and returns the reply
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var input chatInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	username, _ := middleware.GetUsername(r.Context())

	result, err := h.chatService.Send(r.Context(), username, service.SendInput{
		ConversationID:    input.ConversationID,
		Message:           input.Message,
		SystemInstruction: input.SystemInstruction,
		Temperature:       input.Temperature,
		ThinkingBudget:    input.ThinkingBudget,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyMessage):
			response.BadRequest(w, "missing message")
		case errors.Is(err, domain.ErrAdminChat):
			response.Forbidden(w, "管理员不可发起聊天")
		case errors.Is(err, domain.ErrForbidden):
			response.Forbidden(w, "无权访问该会话")
		case errors.Is(err, llm.ErrNotConfigured):
			response.InternalError(w, "server missing API key")
		default:
			// Provider failures stay in the logs; clients get a generic
			// message plus the conversation the turn landed in.
			log.Error().Err(err).Msg("chat generation failed")
			payload := map[string]any{"error": "generation error"}
			if result != nil && result.ConversationID != "" {
				payload["conversationId"] = result.ConversationID
			}
			response.JSON(w, http.StatusInternalServerError, payload)
		}
		return
	}

	response.OK(w, map[string]any{
		"conversationId": result.ConversationID,
		"text":           result.Text,
	})
}
