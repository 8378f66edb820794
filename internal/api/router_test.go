package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SpaceshipxDev/super-tribble/internal/api"
	"github.com/SpaceshipxDev/super-tribble/internal/api/middleware"
	"github.com/SpaceshipxDev/super-tribble/internal/config"
	"github.com/SpaceshipxDev/super-tribble/internal/llm"
	"github.com/SpaceshipxDev/super-tribble/internal/repository/sqlite"
)

type fakeProvider struct {
	converse func(ctx context.Context, req llm.ChatRequest) (string, error)
	generate func(ctx context.Context, prompt string, temperature *float64) (string, error)
}

func (p *fakeProvider) Name() string       { return "fake" }
func (p *fakeProvider) IsConfigured() bool { return true }

func (p *fakeProvider) Converse(ctx context.Context, req llm.ChatRequest) (string, error) {
	if p.converse == nil {
		return "好的。", nil
	}
	return p.converse(ctx, req)
}

func (p *fakeProvider) Generate(ctx context.Context, prompt string, temperature *float64) (string, error) {
	if p.generate == nil {
		return "摘要。", nil
	}
	return p.generate(ctx, prompt, temperature)
}

func newTestServer(t *testing.T, provider llm.Provider) *httptest.Server {
	t.Helper()

	db, err := sqlite.NewDB(context.Background(), config.DatabaseConfig{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	cfg := &config.Config{
		Env: "test",
		Server: config.ServerConfig{
			WriteTimeout: 30 * time.Second,
		},
		Auth: config.AuthConfig{
			Users:         []string{"test1", "test2", "test3", "admin"},
			AdminUser:     "admin",
			Password:      "boldJam3",
			SessionSecret: "router-test-secret",
			SessionTTL:    720 * time.Hour,
		},
		LLM: config.LLMConfig{
			Provider:        "fake",
			ChatTimeout:     30 * time.Second,
			GenerateTimeout: 30 * time.Second,
		},
	}

	llmRouter := llm.NewRouter("fake")
	llmRouter.RegisterProvider(provider)

	store := api.Store{
		Conversations: sqlite.NewConversationRepository(db),
		Messages:      sqlite.NewMessageRepository(db),
		Memos:         sqlite.NewMemoRepository(db),
		Pinger:        db,
	}

	router, err := api.NewRouter(cfg, store, llmRouter, nil)
	require.NoError(t, err)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func noRedirectClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func login(t *testing.T, server *httptest.Server, username string) *http.Cookie {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": "boldJam3"})
	res, err := http.Post(server.URL+"/api/v1/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	for _, c := range res.Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	t.Fatal("no session cookie in login response")
	return nil
}

func doJSON(t *testing.T, method, url string, cookie *http.Cookie, payload any) (*http.Response, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	res, err := noRedirectClient().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })

	var body map[string]any
	_ = json.NewDecoder(res.Body).Decode(&body)
	return res, body
}

func TestLogin(t *testing.T) {
	server := newTestServer(t, &fakeProvider{})

	t.Run("success sets session cookie", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{"username": "test1", "password": "boldJam3"})
		res, err := http.Post(server.URL+"/api/v1/auth/login", "application/json", bytes.NewReader(body))
		require.NoError(t, err)
		defer res.Body.Close()
		require.Equal(t, http.StatusOK, res.StatusCode)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(res.Body).Decode(&payload))
		assert.Equal(t, true, payload["ok"])
		assert.Equal(t, "test1", payload["user"])

		var cookie *http.Cookie
		for _, c := range res.Cookies() {
			if c.Name == middleware.SessionCookieName {
				cookie = c
			}
		}
		require.NotNil(t, cookie)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
		assert.False(t, cookie.Secure)
		assert.Greater(t, cookie.MaxAge, 0)
	})

	t.Run("wrong password", func(t *testing.T) {
		res, body := doJSON(t, http.MethodPost, server.URL+"/api/v1/auth/login", nil,
			map[string]string{"username": "test1", "password": "nope"})
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
		assert.Equal(t, "密码错误", body["error"])
	})

	t.Run("unknown user", func(t *testing.T) {
		res, body := doJSON(t, http.MethodPost, server.URL+"/api/v1/auth/login", nil,
			map[string]string{"username": "mallory", "password": "boldJam3"})
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
		assert.Equal(t, "无效的用户", body["error"])
	})
}

func TestMe(t *testing.T) {
	server := newTestServer(t, &fakeProvider{})
	cookie := login(t, server, "test2")

	res, body := doJSON(t, http.MethodGet, server.URL+"/api/v1/auth/me", cookie, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "test2", body["user"])

	res, body = doJSON(t, http.MethodGet, server.URL+"/api/v1/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Nil(t, body["user"])
}

func TestAccessGate(t *testing.T) {
	server := newTestServer(t, &fakeProvider{})
	userCookie := login(t, server, "test1")
	adminCookie := login(t, server, "admin")

	t.Run("anonymous api request", func(t *testing.T) {
		res, body := doJSON(t, http.MethodGet, server.URL+"/api/v1/conversations", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
		assert.Equal(t, "未登录", body["error"])
	})

	t.Run("anonymous page redirects to login", func(t *testing.T) {
		res, _ := doJSON(t, http.MethodGet, server.URL+"/", nil, nil)
		assert.Equal(t, http.StatusFound, res.StatusCode)
		assert.Equal(t, "/login?next=%2F", res.Header.Get("Location"))
	})

	t.Run("admin lands on dashboard", func(t *testing.T) {
		res, _ := doJSON(t, http.MethodGet, server.URL+"/", adminCookie, nil)
		assert.Equal(t, http.StatusFound, res.StatusCode)
		assert.Equal(t, "/admin", res.Header.Get("Location"))
	})

	t.Run("non-admin bounced off admin pages", func(t *testing.T) {
		for _, path := range []string{"/admin", "/metrics"} {
			res, _ := doJSON(t, http.MethodGet, server.URL+path, userCookie, nil)
			assert.Equal(t, http.StatusFound, res.StatusCode, path)
			assert.Equal(t, "/", res.Header.Get("Location"), path)
		}
	})

	t.Run("logged-in user leaves login page", func(t *testing.T) {
		res, _ := doJSON(t, http.MethodGet, server.URL+"/login", userCookie, nil)
		assert.Equal(t, http.StatusFound, res.StatusCode)
		assert.Equal(t, "/", res.Header.Get("Location"))

		res, _ = doJSON(t, http.MethodGet, server.URL+"/login", adminCookie, nil)
		assert.Equal(t, http.StatusFound, res.StatusCode)
		assert.Equal(t, "/admin", res.Header.Get("Location"))
	})

	t.Run("metrics api is not admin-only", func(t *testing.T) {
		res, _ := doJSON(t, http.MethodGet, server.URL+"/api/v1/metrics", userCookie, nil)
		assert.Equal(t, http.StatusOK, res.StatusCode)
	})

	t.Run("health is public", func(t *testing.T) {
		res, body := doJSON(t, http.MethodGet, server.URL+"/api/v1/health", nil, nil)
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.Equal(t, "ok", body["status"])
	})
}

func TestChatFlow(t *testing.T) {
	server := newTestServer(t, &fakeProvider{
		converse: func(_ context.Context, req llm.ChatRequest) (string, error) {
			return "你好！有什么可以帮你？", nil
		},
	})
	cookie := login(t, server, "test1")

	// First turn creates the conversation and titles it after the message.
	res, body := doJSON(t, http.MethodPost, server.URL+"/api/v1/chat", cookie,
		map[string]string{"message": "你好"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	conversationID, _ := body["conversationId"].(string)
	require.NotEmpty(t, conversationID)
	assert.Equal(t, "你好！有什么可以帮你？", body["text"])

	res, body = doJSON(t, http.MethodGet, server.URL+"/api/v1/conversations", cookie, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	conversations := body["conversations"].([]any)
	require.Len(t, conversations, 1)
	first := conversations[0].(map[string]any)
	assert.Equal(t, "你好", first["title"])
	assert.Equal(t, "test1", first["owner"])

	res, body = doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/v1/conversations/%s/messages", server.URL, conversationID), cookie, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	messages := body["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "user", messages[0].(map[string]any)["role"])
	assert.Equal(t, "model", messages[1].(map[string]any)["role"])

	t.Run("foreign conversation is forbidden", func(t *testing.T) {
		other := login(t, server, "test2")
		res, body := doJSON(t, http.MethodGet,
			fmt.Sprintf("%s/api/v1/conversations/%s/messages", server.URL, conversationID), other, nil)
		assert.Equal(t, http.StatusForbidden, res.StatusCode)
		assert.Equal(t, "无权访问该会话", body["error"])
	})

	t.Run("admin can read it", func(t *testing.T) {
		adminCookie := login(t, server, "admin")
		res, _ := doJSON(t, http.MethodGet,
			fmt.Sprintf("%s/api/v1/conversations/%s/messages", server.URL, conversationID), adminCookie, nil)
		assert.Equal(t, http.StatusOK, res.StatusCode)
	})

	t.Run("admin cannot chat", func(t *testing.T) {
		adminCookie := login(t, server, "admin")
		res, body := doJSON(t, http.MethodPost, server.URL+"/api/v1/chat", adminCookie,
			map[string]string{"message": "你好"})
		assert.Equal(t, http.StatusForbidden, res.StatusCode)
		assert.Equal(t, "管理员不可发起聊天", body["error"])
	})

	t.Run("empty message rejected", func(t *testing.T) {
		res, _ := doJSON(t, http.MethodPost, server.URL+"/api/v1/chat", cookie,
			map[string]string{"message": "   "})
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})

	t.Run("delete removes the conversation", func(t *testing.T) {
		res, body := doJSON(t, http.MethodDelete,
			fmt.Sprintf("%s/api/v1/conversations/%s", server.URL, conversationID), cookie, nil)
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.Equal(t, true, body["ok"])

		res, body = doJSON(t, http.MethodGet, server.URL+"/api/v1/conversations", cookie, nil)
		require.Equal(t, http.StatusOK, res.StatusCode)
		assert.Empty(t, body["conversations"])
	})
}

func TestMemoEndpoints(t *testing.T) {
	server := newTestServer(t, &fakeProvider{
		generate: func(context.Context, string, *float64) (string, error) {
			return "员工问好，无实质内容。", nil
		},
	})
	cookie := login(t, server, "test1")

	_, body := doJSON(t, http.MethodPost, server.URL+"/api/v1/chat", cookie,
		map[string]string{"message": "你好"})
	conversationID := body["conversationId"].(string)

	res, body := doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/v1/conversations/%s/memo", server.URL, conversationID), cookie, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Nil(t, body["memo"])

	res, body = doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/v1/conversations/%s/memo", server.URL, conversationID), cookie,
		map[string]bool{})
	require.Equal(t, http.StatusOK, res.StatusCode)
	memo := body["memo"].(map[string]any)
	assert.Equal(t, "员工问好，无实质内容。", memo["content"])

	// Generated once, then served from storage.
	res, body = doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/v1/conversations/%s/memo", server.URL, conversationID), cookie, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.NotNil(t, body["memo"])
	assert.Equal(t, "员工问好，无实质内容。", body["memo"].(map[string]any)["content"])
}

func TestMetricsEndpoints(t *testing.T) {
	server := newTestServer(t, &fakeProvider{
		generate: func(context.Context, string, *float64) (string, error) { return "", nil },
	})
	cookie := login(t, server, "test1")

	_, _ = doJSON(t, http.MethodPost, server.URL+"/api/v1/chat", cookie,
		map[string]string{"message": "你好"})

	res, body := doJSON(t, http.MethodGet, server.URL+"/api/v1/metrics", cookie, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	series := body["series"].([]any)
	assert.Len(t, series, 24)
	assert.GreaterOrEqual(t, body["total"].(float64), float64(2))

	// Blank model output degrades to the fixed placeholder, still HTTP 200.
	res, body = doJSON(t, http.MethodPost, server.URL+"/api/v1/metrics", cookie, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "未检测到显著活动。", body["summary"])
}
