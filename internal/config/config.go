package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the PersonaLens server.
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Auth         AuthConfig
	Orchestrator OrchestratorConfig
	Scrape       ScrapeConfig
	LLM          LLMConfig
	Mail         MailConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type AuthConfig struct {
	// WorkerToken gates the internal worker-trigger and admin routes.
	WorkerToken string
}

type OrchestratorConfig struct {
	// Policy is "parallel" or "sequential".
	Policy        string
	WorkerTimeout time.Duration
	// StuckAfter is the age past which a processing job counts as stuck.
	StuckAfter time.Duration
}

type ScrapeConfig struct {
	Firecrawl FirecrawlConfig
	ScrapeOwl ScrapeOwlConfig
	Reddit    RedditConfig
	YouTube   YouTubeConfig
}

type FirecrawlConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type ScrapeOwlConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type RedditConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

type YouTubeConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type LLMConfig struct {
	Provider         string
	InferenceTimeout time.Duration
	OpenAI           OpenAIConfig
	Gemini           GeminiConfig
}

type OpenAIConfig struct {
	APIKey string
	Model  string
}

type GeminiConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type MailConfig struct {
	ResendAPIKey string
	BaseURL      string
	From         string
	Timeout      time.Duration
}

var validProviders = map[string]bool{
	"openai": true,
	"gemini": true,
	"mock":   true,
}

var validPolicies = map[string]bool{
	"parallel":   true,
	"sequential": true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("PERSONALENS_PORT", 8080),
			Env:  envString("PERSONALENS_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Auth: AuthConfig{
			WorkerToken: os.Getenv("WORKER_AUTH_TOKEN"),
		},
		Orchestrator: OrchestratorConfig{
			Policy:        envString("ORCHESTRATOR_POLICY", "parallel"),
			WorkerTimeout: envDuration("WORKER_TIMEOUT", 2*time.Minute),
			StuckAfter:    envDuration("STUCK_JOB_AFTER", 30*time.Minute),
		},
		Scrape: ScrapeConfig{
			Firecrawl: FirecrawlConfig{
				APIKey:  os.Getenv("FIRECRAWL_API_KEY"),
				BaseURL: envString("FIRECRAWL_BASE_URL", "https://api.firecrawl.dev"),
				Timeout: envDuration("FIRECRAWL_TIMEOUT", 90*time.Second),
			},
			ScrapeOwl: ScrapeOwlConfig{
				APIKey:  os.Getenv("SCRAPEOWL_API_KEY"),
				BaseURL: envString("SCRAPEOWL_BASE_URL", "https://api.scrapeowl.com"),
				Timeout: envDuration("SCRAPEOWL_TIMEOUT", 90*time.Second),
			},
			Reddit: RedditConfig{
				BaseURL:   envString("REDDIT_BASE_URL", "https://www.reddit.com"),
				UserAgent: envString("REDDIT_USER_AGENT", "personalens/1.0"),
				Timeout:   envDuration("REDDIT_TIMEOUT", 30*time.Second),
			},
			YouTube: YouTubeConfig{
				APIKey:  os.Getenv("YOUTUBE_API_KEY"),
				BaseURL: envString("YOUTUBE_BASE_URL", "https://www.googleapis.com/youtube/v3"),
				Timeout: envDuration("YOUTUBE_TIMEOUT", 30*time.Second),
			},
		},
		LLM: LLMConfig{
			Provider:         os.Getenv("LLM_PROVIDER"),
			InferenceTimeout: envDurationSecs("LLM_INFERENCE_TIMEOUT_SECS", 120*time.Second),
			OpenAI: OpenAIConfig{
				APIKey: os.Getenv("OPENAI_API_KEY"),
				Model:  envString("OPENAI_MODEL", "gpt-4o"),
			},
			Gemini: GeminiConfig{
				APIKey:  os.Getenv("GEMINI_API_KEY"),
				BaseURL: envString("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
				Model:   envString("GEMINI_MODEL", "gemini-1.5-pro"),
			},
		},
		Mail: MailConfig{
			ResendAPIKey: os.Getenv("RESEND_API_KEY"),
			BaseURL:      envString("RESEND_BASE_URL", "https://api.resend.com"),
			From:         envString("MAIL_FROM", "PersonaLens <reports@personalens.app>"),
			Timeout:      envDuration("RESEND_TIMEOUT", 30*time.Second),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Auth.WorkerToken == "" {
		return fmt.Errorf("WORKER_AUTH_TOKEN is required")
	}

	if !validPolicies[c.Orchestrator.Policy] {
		return fmt.Errorf("ORCHESTRATOR_POLICY must be parallel or sequential; got %q", c.Orchestrator.Policy)
	}

	if !strings.HasPrefix(c.Scrape.Firecrawl.BaseURL, "http://") && !strings.HasPrefix(c.Scrape.Firecrawl.BaseURL, "https://") {
		return fmt.Errorf("FIRECRAWL_BASE_URL must start with http:// or https://, got %q", c.Scrape.Firecrawl.BaseURL)
	}

	if c.LLM.Provider == "" {
		return fmt.Errorf("LLM_PROVIDER is required")
	}
	if !validProviders[c.LLM.Provider] {
		return fmt.Errorf("LLM_PROVIDER must be one of openai, gemini, mock; got %q", c.LLM.Provider)
	}

	if c.LLM.Provider == "openai" && c.LLM.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER is openai")
	}
	if c.LLM.Provider == "gemini" && c.LLM.Gemini.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required when LLM_PROVIDER is gemini")
	}

	if c.Mail.ResendAPIKey == "" {
		return fmt.Errorf("RESEND_API_KEY is required")
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
