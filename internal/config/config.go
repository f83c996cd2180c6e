// Package config handles application configuration from an optional YAML
// file with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const configPathEnv = "CONTENT_FILTER_CONFIG"

// Config holds the application configuration.
type Config struct {
	ListenAddr   string `yaml:"listenAddr"`
	DatabasePath string `yaml:"databasePath"`
	LogLevel     string `yaml:"logLevel"`

	// SessionTTL is the inactivity window after which a session entry is
	// treated as absent. FetchCacheTTL bounds reuse of upstream results.
	SessionTTLSeconds    int `yaml:"sessionTTLSeconds"`
	FetchCacheTTLSeconds int `yaml:"fetchCacheTTLSeconds"`

	// ScrapeLimit caps how many items a single scrape may collect.
	ScrapeLimit int `yaml:"scrapeLimit"`

	Reddit  RedditConfig  `yaml:"reddit"`
	YouTube YouTubeConfig `yaml:"youtube"`
	LLM     LLMConfig     `yaml:"llm"`
}

// RedditConfig identifies us to the Reddit listing API.
type RedditConfig struct {
	UserAgent string `yaml:"userAgent"`
}

// YouTubeConfig holds the Data API v3 key.
type YouTubeConfig struct {
	APIKey string `yaml:"apiKey"`
}

// LLMConfig wires the pluggable language-model backends.
type LLMConfig struct {
	OpenAIAPIKey   string `yaml:"openaiApiKey"`
	GeminiAPIKey   string `yaml:"geminiApiKey"`
	DeepSeekAPIKey string `yaml:"deepseekApiKey"`
	ZhipuAPIKey    string `yaml:"zhipuApiKey"`
	DefaultModel   string `yaml:"defaultModel"`
}

// SessionTTL returns the session TTL as a duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSeconds) * time.Second
}

// FetchCacheTTL returns the fetch cache TTL as a duration.
func (c *Config) FetchCacheTTL() time.Duration {
	return time.Duration(c.FetchCacheTTLSeconds) * time.Second
}

// Load reads the YAML config file named by CONTENT_FILTER_CONFIG (if set)
// and then applies environment variable overrides.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		ListenAddr:           ":8080",
		DatabasePath:         "./data/materials.db",
		LogLevel:             "info",
		SessionTTLSeconds:    1800,
		FetchCacheTTLSeconds: 3600,
		ScrapeLimit:          100,
		Reddit:               RedditConfig{UserAgent: "content-filter/1.0"},
		LLM:                  LLMConfig{DefaultModel: "deepseek-chat"},
	}
}

func (c *Config) applyEnv() error {
	setString(&c.ListenAddr, "LISTEN_ADDR")
	setString(&c.DatabasePath, "DATABASE_PATH")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.Reddit.UserAgent, "REDDIT_USER_AGENT")
	setString(&c.YouTube.APIKey, "YOUTUBE_API_KEY")
	setString(&c.LLM.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&c.LLM.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&c.LLM.DeepSeekAPIKey, "DEEPSEEK_API_KEY")
	setString(&c.LLM.ZhipuAPIKey, "ZHIPU_API_KEY")
	setString(&c.LLM.DefaultModel, "LLM_DEFAULT_MODEL")

	for _, v := range []struct {
		dst *int
		key string
	}{
		{&c.SessionTTLSeconds, "SESSION_TTL_SECONDS"},
		{&c.FetchCacheTTLSeconds, "FETCH_CACHE_TTL_SECONDS"},
		{&c.ScrapeLimit, "SCRAPE_LIMIT"},
	} {
		if err := setInt(v.dst, v.key); err != nil {
			return err
		}
	}

	if c.SessionTTLSeconds <= 0 {
		return fmt.Errorf("session TTL must be positive, got %d", c.SessionTTLSeconds)
	}
	if c.ScrapeLimit <= 0 {
		return fmt.Errorf("scrape limit must be positive, got %d", c.ScrapeLimit)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	*dst = n
	return nil
}
