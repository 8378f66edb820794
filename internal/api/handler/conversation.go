package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SpaceshipxDev/super-tribble/internal/api/middleware"
	"github.com/SpaceshipxDev/super-tribble/internal/api/response"
	"github.com/SpaceshipxDev/super-tribble/internal/domain"
	"github.com/SpaceshipxDev/super-tribble/internal/service"
)

// ConversationHandler handles conversation, message and memo endpoints
type ConversationHandler struct {
	conversationService *service.ConversationService
	metricsService      *service.MetricsService
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(conversationService *service.ConversationService, metricsService *service.MetricsService) *ConversationHandler {
	return &ConversationHandler{
		conversationService: conversationService,
		metricsService:      metricsService,
	}
}

func writeConversationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(w, "未找到会话")
	case errors.Is(err, domain.ErrForbidden):
		response.Forbidden(w, "无权访问该会话")
	default:
		response.InternalError(w, "internal error")
	}
}

// List returns the caller's conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	username, _ := middleware.GetUsername(r.Context())
	conversations, err := h.conversationService.List(r.Context(), username)
	if err != nil {
		response.InternalError(w, "internal error")
		return
	}
	response.OK(w, map[string]any{"conversations": conversations})
}

// Create starts an empty conversation
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	username, _ := middleware.GetUsername(r.Context())

	var input struct {
		Title string `json:"title"`
	}
	// A missing or malformed body falls back to the default title.
	_ = json.NewDecoder(r.Body).Decode(&input)

	conversation, err := h.conversationService.Create(r.Context(), username, input.Title)
	if err != nil {
		response.InternalError(w, "internal error")
		return
	}
	response.OK(w, conversation)
}

// Messages returns a conversation's messages oldest first
func (h *ConversationHandler) Messages(w http.ResponseWriter, r *http.Request) {
	username, _ := middleware.GetUsername(r.Context())
	id := chi.URLParam(r, "conversationID")

	messages, err := h.conversationService.Messages(r.Context(), username, id)
	if err != nil {
		writeConversationError(w, err)
		return
	}
	response.OK(w, map[string]any{"messages": messages})
}

// Delete removes a conversation with everything attached to it
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	username, _ := middleware.GetUsername(r.Context())
	id := chi.URLParam(r, "conversationID")

	if err := h.conversationService.Delete(r.Context(), username, id); err != nil {
		writeConversationError(w, err)
		return
	}
	response.OK(w, map[string]any{"ok": true})
}

// GetMemo returns the stored memo, or null when none exists
func (h *ConversationHandler) GetMemo(w http.ResponseWriter, r *http.Request) {
	username, _ := middleware.GetUsername(r.Context())
	id := chi.URLParam(r, "conversationID")

	memo, err := h.conversationService.Memo(r.Context(), username, id)
	if err != nil {
		writeConversationError(w, err)
		return
	}
	response.OK(w, map[string]any{"memo": memo})
}

// GenerateMemo returns the cached memo or generates a fresh one
func (h *ConversationHandler) GenerateMemo(w http.ResponseWriter, r *http.Request) {
	username, _ := middleware.GetUsername(r.Context())
	id := chi.URLParam(r, "conversationID")

	var input struct {
		Regen bool `json:"regen"`
	}
	_ = json.NewDecoder(r.Body).Decode(&input)

	memo, err := h.metricsService.ConversationMemo(r.Context(), username, id, input.Regen)
	if err != nil {
		writeConversationError(w, err)
		return
	}
	response.OK(w, map[string]any{"memo": memo})
}
