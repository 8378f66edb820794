package middleware

import (
	"context"
	"net/http"

	"github.com/SpaceshipxDev/super-tribble/internal/security"
)

// SessionCookieName is the cookie carrying the signed session token
const SessionCookieName = "eldaline_session"

type contextKey string

const usernameKey contextKey = "username"

// SessionMiddleware resolves the session cookie into a username
type SessionMiddleware struct {
	codec *security.SessionCodec
}

// NewSessionMiddleware creates a new session middleware
func NewSessionMiddleware(codec *security.SessionCodec) *SessionMiddleware {
	return &SessionMiddleware{codec: codec}
}

// Identify parses the session cookie and, when valid, stores the username in
// the request context. Invalid or missing cookies leave the request
// anonymous; rejection is the access gate's job.
func (m *SessionMiddleware) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(SessionCookieName); err == nil {
			if username, ok := m.codec.Parse(cookie.Value); ok {
				ctx := context.WithValue(r.Context(), usernameKey, username)
				r = r.WithContext(ctx)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// GetUsername gets the authenticated username from context
func GetUsername(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(usernameKey).(string)
	return username, ok && username != ""
}

// WithUsername returns a context carrying an authenticated username. Intended
// for tests and internal calls.
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameKey, username)
}
