package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/SpaceshipxDev/super-tribble/internal/api/handler"
	custommiddleware "github.com/SpaceshipxDev/super-tribble/internal/api/middleware"
	"github.com/SpaceshipxDev/super-tribble/internal/config"
	"github.com/SpaceshipxDev/super-tribble/internal/domain"
	"github.com/SpaceshipxDev/super-tribble/internal/llm"
	"github.com/SpaceshipxDev/super-tribble/internal/repository/redis"
	"github.com/SpaceshipxDev/super-tribble/internal/security"
	"github.com/SpaceshipxDev/super-tribble/internal/service"
	"github.com/SpaceshipxDev/super-tribble/internal/web"
)

// Store bundles the persistence backend behind the repository interfaces, so
// the router works the same over sqlite and postgres.
type Store struct {
	Conversations domain.ConversationRepository
	Messages      domain.MessageRepository
	Memos         domain.MemoRepository
	Pinger        handler.Pinger
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, store Store, llmRouter *llm.Router, limiter *redis.RateLimiter) (http.Handler, error) {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(custommiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(cfg.Server.WriteTimeout))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	allowList := domain.NewAllowList(cfg.Auth.Users, cfg.Auth.AdminUser)
	codec := security.NewSessionCodec(cfg.Auth.SessionSecret, allowList)

	// Every request resolves its identity first, then passes the access gate.
	sessionMiddleware := custommiddleware.NewSessionMiddleware(codec)
	gate := custommiddleware.NewAccessGate(allowList)
	r.Use(sessionMiddleware.Identify)
	r.Use(gate.Enforce)

	// Initialize services
	authService := service.NewAuthService(allowList, cfg.Auth.Password, codec)
	conversationService := service.NewConversationService(store.Conversations, store.Messages, store.Memos, allowList)
	chatService := service.NewChatService(
		store.Conversations,
		store.Messages,
		allowList,
		llmRouter,
		cfg.LLM.ChatTimeout,
		cfg.LLM.ThinkingBudget,
	)
	metricsService := service.NewMetricsService(
		store.Conversations,
		store.Messages,
		store.Memos,
		allowList,
		llmRouter,
		cfg.LLM.GenerateTimeout,
	)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, cfg.Auth.SessionTTL, cfg.IsProduction())
	conversationHandler := handler.NewConversationHandler(conversationService, metricsService)
	chatHandler := handler.NewChatHandler(chatService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(store.Pinger))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
		})

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", conversationHandler.List)
			r.Post("/", conversationHandler.Create)

			r.Route("/{conversationID}", func(r chi.Router) {
				r.Delete("/", conversationHandler.Delete)
				r.Get("/messages", conversationHandler.Messages)
				r.Get("/memo", conversationHandler.GetMemo)
				r.Post("/memo", conversationHandler.GenerateMemo)
			})
		})

		r.Group(func(r chi.Router) {
			if limiter != nil {
				rateLimit := custommiddleware.NewRateLimitMiddleware(limiter)
				r.Use(rateLimit.Limit)
			}
			r.Post("/chat", chatHandler.Send)
		})

		r.Get("/metrics", metricsHandler.Histogram)
		r.Post("/metrics", metricsHandler.Summary)
	})

	pages, err := web.NewPages()
	if err != nil {
		return nil, err
	}
	r.Get("/", pages.Chat)
	r.Get("/login", pages.Login)
	r.Get("/admin", pages.Admin)
	r.Get("/metrics", pages.Metrics)
	r.Handle("/static/*", web.Static())

	return r, nil
}
