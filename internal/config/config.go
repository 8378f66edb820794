package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// DevSessionSecret signs session cookies when no secret is configured. It is
// only ever used outside production; Load refuses to start a production
// process without an explicit secret.
const DevSessionSecret = "dev-session-secret-do-not-deploy"

// Config holds all application configuration, assembled once at startup and
// threaded through constructors.
type Config struct {
	Env      string         `mapstructure:"env"`
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// IsProduction reports whether the process runs with production hardening
// (secure cookies, no dev secret fallback).
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type AuthConfig struct {
	// Users is the closed allow-list of usernames. AdminUser is always a
	// member and holds the global analytics view.
	Users     []string `mapstructure:"users"`
	AdminUser string   `mapstructure:"admin_user"`
	// Password is the single shared password gating the allow-list.
	Password string `mapstructure:"password"`
	// SessionSecret signs the session cookie. Required in production.
	SessionSecret string        `mapstructure:"session_secret"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
}

type DatabaseConfig struct {
	// Driver selects the store backend: "sqlite" (default) or "postgres".
	Driver string `mapstructure:"driver"`
	// Path is the sqlite database file.
	Path string `mapstructure:"path"`

	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// DSN returns the postgres connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	// Host empty disables redis entirely (and with it chat rate limiting).
	Host     string          `mapstructure:"host"`
	Port     int             `mapstructure:"port"`
	Password string          `mapstructure:"password"`
	DB       int             `mapstructure:"db"`
	Limit    RateLimitConfig `mapstructure:"rate_limit"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
}

type LLMConfig struct {
	// Provider names the default completion gateway: "openai" or "gemini".
	Provider string       `mapstructure:"provider"`
	OpenAI   OpenAIConfig `mapstructure:"openai"`
	Gemini   GeminiConfig `mapstructure:"gemini"`
	// ChatTimeout bounds conversational generation; GenerateTimeout bounds
	// single-shot memo/summary generation.
	ChatTimeout     time.Duration `mapstructure:"chat_timeout"`
	GenerateTimeout time.Duration `mapstructure:"generate_timeout"`
	// ThinkingBudget of zero disables any extended-reasoning mode the
	// backend offers.
	ThinkingBudget int `mapstructure:"thinking_budget"`
}

type OpenAIConfig struct {
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	ChatModel string `mapstructure:"chat_model"`
	TextModel string `mapstructure:"text_model"`
}

type GeminiConfig struct {
	APIKey    string `mapstructure:"api_key"`
	ChatModel string `mapstructure:"chat_model"`
	TextModel string `mapstructure:"text_model"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// File, when set, mirrors logs to a rotating file alongside stderr.
	File          string        `mapstructure:"file"`
	RotationTime  time.Duration `mapstructure:"rotation_time"`
	RetentionTime time.Duration `mapstructure:"retention_time"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Auth.SessionSecret == "" {
		if cfg.IsProduction() {
			return nil, errors.New("auth.session_secret is required in production")
		}
		cfg.Auth.SessionSecret = DevSessionSecret
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")

	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "330s") // must outlast llm.chat_timeout
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Auth
	v.SetDefault("auth.users", []string{"test1", "test2", "test3", "admin"})
	v.SetDefault("auth.admin_user", "admin")
	v.SetDefault("auth.password", "boldJam3")
	v.SetDefault("auth.session_ttl", "720h") // 30 days

	// Database
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/chat.sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "chat")
	v.SetDefault("database.database", "chat")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)

	// Redis (disabled unless a host is configured)
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.rate_limit.requests_per_minute", 30)
	v.SetDefault("redis.rate_limit.burst", 10)

	// LLM
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.openai.base_url", "https://api.openai.com")
	v.SetDefault("llm.openai.chat_model", "gpt-5-chat-latest")
	v.SetDefault("llm.openai.text_model", "gpt-5-chat-latest")
	v.SetDefault("llm.gemini.chat_model", "gemini-2.5-flash")
	v.SetDefault("llm.gemini.text_model", "gemini-2.5-flash")
	v.SetDefault("llm.chat_timeout", "300s")
	v.SetDefault("llm.generate_timeout", "120s")
	v.SetDefault("llm.thinking_budget", 0)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.rotation_time", "24h")
	v.SetDefault("logging.retention_time", "168h")
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("env", "ENV")

	// Auth
	v.BindEnv("auth.password", "CHAT_PASSWORD")
	v.BindEnv("auth.session_secret", "SESSION_SECRET")

	// Database
	v.BindEnv("database.password", "POSTGRES_PASSWORD")

	// Redis
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// LLM API keys and models (env names match the deployed front-end)
	v.BindEnv("llm.openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("llm.openai.base_url", "OPENAI_API_BASE")
	v.BindEnv("llm.openai.chat_model", "GPT5_CHAT_MODEL")
	v.BindEnv("llm.openai.text_model", "GPT5_TEXT_MODEL")
	v.BindEnv("llm.gemini.api_key", "GEMINI_API_KEY")
}
