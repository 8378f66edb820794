package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/SpaceshipxDev/super-tribble/internal/api/middleware"
	"github.com/SpaceshipxDev/super-tribble/internal/api/response"
	"github.com/SpaceshipxDev/super-tribble/internal/domain"
	"github.com/SpaceshipxDev/super-tribble/internal/service"
)

var validate = validator.New()

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService  *service.AuthService
	sessionTTL   time.Duration
	secureCookie bool
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, sessionTTL time.Duration, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		sessionTTL:   sessionTTL,
		secureCookie: secureCookie,
	}
}

type loginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login checks credentials and sets the session cookie
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input loginInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	input.Username = strings.TrimSpace(input.Username)

	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, "username and password are required")
		return
	}

	token, err := h.authService.Login(input.Username, input.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidUser):
			response.Unauthorized(w, "无效的用户")
		case errors.Is(err, domain.ErrInvalidPassword):
			response.Unauthorized(w, "密码错误")
		default:
			response.InternalError(w, "login failed")
		}
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secureCookie,
	})
	response.OK(w, map[string]any{"ok": true, "user": input.Username})
}

// Logout clears the session cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secureCookie,
	})
	response.OK(w, map[string]any{"ok": true})
}

// Me reports the logged-in username
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	username, ok := middleware.GetUsername(r.Context())
	if !ok {
		response.JSON(w, http.StatusUnauthorized, map[string]any{"user": nil})
		return
	}
	response.OK(w, map[string]any{"user": username})
}
