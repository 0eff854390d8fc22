// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Auth      AuthConfig      `mapstructure:"auth"`
	DB        DBConfig        `mapstructure:"db"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Firecrawl FirecrawlConfig `mapstructure:"firecrawl"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Tavily    TavilyConfig    `mapstructure:"tavily"`
	Crawl     CrawlConfig     `mapstructure:"crawl"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// AuthConfig defines API authentication settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// DBConfig controls access to the relational store.
type DBConfig struct {
	Provider        string `mapstructure:"provider"`
	DSN             string `mapstructure:"dsn"`
	MaxConns        int32  `mapstructure:"max_conns"`
	MinConns        int32  `mapstructure:"min_conns"`
	MaxConnLifetime int    `mapstructure:"max_conn_lifetime_minutes"`
}

// QueueConfig selects and tunes the background task queue.
type QueueConfig struct {
	Provider  string `mapstructure:"provider"`
	Depth     int    `mapstructure:"depth"`
	RedisAddr string `mapstructure:"redis_addr"`
	RedisKey  string `mapstructure:"redis_key"`
}

// NotifyConfig selects the scan-completion notification provider.
type NotifyConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// FirecrawlConfig points at the crawling API.
type FirecrawlConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// GeminiConfig points at the generative-text API.
type GeminiConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	FallbackModel  string `mapstructure:"fallback_model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// TavilyConfig points at the search API.
type TavilyConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// CrawlConfig governs crawl orchestration behavior.
type CrawlConfig struct {
	Concurrency         int `mapstructure:"concurrency"`
	PageLimit           int `mapstructure:"page_limit"`
	DiscoverLimit       int `mapstructure:"discover_limit"`
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds"`
	PollMaxAttempts     int `mapstructure:"poll_max_attempts"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AUDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// setDefaults registers every key with Viper. Keys without a meaningful
// default still need registering so AutomaticEnv picks them up during
// Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("db.provider", "memory")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("db.min_conns", 0)
	v.SetDefault("db.max_conn_lifetime_minutes", 30)
	v.SetDefault("queue.provider", "memory")
	v.SetDefault("queue.depth", 64)
	v.SetDefault("queue.redis_addr", "")
	v.SetDefault("queue.redis_key", "siteaudit:tasks")
	v.SetDefault("notify.provider", "noop")
	v.SetDefault("notify.project_id", "")
	v.SetDefault("notify.topic_id", "")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev")
	v.SetDefault("firecrawl.api_key", "")
	v.SetDefault("firecrawl.timeout_seconds", 30)
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-2.0-flash-exp")
	v.SetDefault("gemini.fallback_model", "gemini-1.5-flash")
	v.SetDefault("gemini.timeout_seconds", 60)
	v.SetDefault("tavily.base_url", "https://api.tavily.com")
	v.SetDefault("tavily.api_key", "")
	v.SetDefault("tavily.timeout_seconds", 30)
	v.SetDefault("crawl.concurrency", 4)
	v.SetDefault("crawl.page_limit", 50)
	v.SetDefault("crawl.discover_limit", 50)
	v.SetDefault("crawl.poll_interval_seconds", 5)
	v.SetDefault("crawl.poll_max_attempts", 60)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret must be set")
	}
	if c.Crawl.Concurrency <= 0 {
		return fmt.Errorf("crawl.concurrency must be > 0")
	}
	if c.Crawl.PollIntervalSeconds <= 0 {
		return fmt.Errorf("crawl.poll_interval_seconds must be > 0")
	}
	if c.Crawl.PollMaxAttempts <= 0 {
		return fmt.Errorf("crawl.poll_max_attempts must be > 0")
	}
	switch c.DB.Provider {
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set when db.provider is postgres")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown db provider: %s", c.DB.Provider)
	}
	switch c.Queue.Provider {
	case "redis":
		if c.Queue.RedisAddr == "" {
			return fmt.Errorf("queue.redis_addr must be set when queue.provider is redis")
		}
	case "memory":
		if c.Queue.Depth <= 0 {
			return fmt.Errorf("queue.depth must be > 0")
		}
	default:
		return fmt.Errorf("unknown queue provider: %s", c.Queue.Provider)
	}
	switch c.Notify.Provider {
	case "pubsub":
		if c.Notify.ProjectID == "" || c.Notify.TopicID == "" {
			return fmt.Errorf("notify.project_id and notify.topic_id must be set when notify.provider is pubsub")
		}
	case "noop":
	default:
		return fmt.Errorf("unknown notify provider: %s", c.Notify.Provider)
	}
	return nil
}

// PollInterval converts the poll interval config into a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Crawl.PollIntervalSeconds) * time.Second
}
