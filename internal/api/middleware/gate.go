package middleware

import (
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/SpaceshipxDev/super-tribble/internal/api/response"
	"github.com/SpaceshipxDev/super-tribble/internal/domain"
)

var assetExtensions = map[string]struct{}{
	".svg": {}, ".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".ico": {},
	".txt": {}, ".json": {}, ".js": {}, ".css": {}, ".map": {},
}

// AccessGate enforces the route-level access policy: public paths pass
// through, admin-only pages bounce non-admins to the chat UI, and everything
// else needs an identity, with APIs failing as 401 JSON and pages redirecting
// to the login form.
type AccessGate struct {
	allowList *domain.AllowList
}

// NewAccessGate creates a new access gate
func NewAccessGate(allowList *domain.AllowList) *AccessGate {
	return &AccessGate{allowList: allowList}
}

// Enforce classifies the request path and applies the policy
func (g *AccessGate) Enforce(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		username, _ := GetUsername(r.Context())
		isAdmin := username != "" && g.allowList.IsAdmin(username)

		// A logged-in visitor has no business on the login form.
		if p == "/login" || strings.HasPrefix(p, "/login/") {
			switch {
			case isAdmin:
				http.Redirect(w, r, "/admin", http.StatusFound)
			case username != "":
				http.Redirect(w, r, "/", http.StatusFound)
			default:
				next.ServeHTTP(w, r)
			}
			return
		}

		if isPublicPath(p) {
			next.ServeHTTP(w, r)
			return
		}

		if strings.HasPrefix(p, "/admin") || strings.HasPrefix(p, "/metrics") {
			if !isAdmin {
				http.Redirect(w, r, "/", http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		if p == "/" && isAdmin {
			http.Redirect(w, r, "/admin", http.StatusFound)
			return
		}

		if username != "" {
			next.ServeHTTP(w, r)
			return
		}

		if strings.HasPrefix(p, "/api/") {
			response.Unauthorized(w, "未登录")
			return
		}

		http.Redirect(w, r, "/login?next="+url.QueryEscape(p), http.StatusFound)
	})
}

func isPublicPath(p string) bool {
	switch p {
	case "/api/v1/auth/login", "/api/v1/auth/logout", "/api/v1/auth/me",
		"/api/v1/health", "/api/v1/ready", "/favicon.ico":
		return true
	}
	if strings.HasPrefix(p, "/static/") {
		return true
	}
	_, asset := assetExtensions[path.Ext(p)]
	return asset
}
