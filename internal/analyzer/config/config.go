package config

import (
	"fmt"
	"time"

	"smartstock-analyst/pkg/config"
)

// Gemini holds the configuration for the Gemini API.
type Gemini struct {
	APIKey              string `mapstructure:"api_key"`
	Model               string `mapstructure:"model"`
	VisionModel         string `mapstructure:"vision_model"`
	BaseURL             string `mapstructure:"base_url"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute"`
	MaxTokenPerMinute   int    `mapstructure:"max_token_per_minute"`
}

// YahooFinance holds the configuration for the Yahoo Finance API.
type YahooFinance struct {
	BaseURL             string        `mapstructure:"base_url"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
}

// News holds the configuration for the news feed provider.
type News struct {
	BaseURL        string        `mapstructure:"base_url"`
	MaxHeadlines   int           `mapstructure:"max_headlines"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Chart holds limits for uploaded chart images.
type Chart struct {
	MaxImageSizeBytes int64    `mapstructure:"max_image_size_bytes"`
	AllowedMediaTypes []string `mapstructure:"allowed_media_types"`
}

// Pipeline holds orchestration retry parameters. Retry counts and
// intervals are configuration, not hard invariants.
type Pipeline struct {
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

// Telegram holds configuration for the optional completion notifier.
type Telegram struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// Config holds the full configuration for the analyst service.
type Config struct {
	App          config.App    `mapstructure:"app"`
	Logger       config.Logger `mapstructure:"logger"`
	API          config.API    `mapstructure:"api"`
	Gemini       Gemini        `mapstructure:"gemini"`
	YahooFinance YahooFinance  `mapstructure:"yahoo_finance"`
	News         News          `mapstructure:"news"`
	Chart        Chart         `mapstructure:"chart"`
	Pipeline     Pipeline      `mapstructure:"pipeline"`
	Telegram     Telegram      `mapstructure:"telegram"`
}

// Load loads the analyst configuration from the given path and applies
// defaults. A missing Gemini API key is a startup-time configuration
// error, never a per-request failure.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.5-pro"
	}
	if c.Gemini.VisionModel == "" {
		c.Gemini.VisionModel = c.Gemini.Model
	}
	if c.Gemini.BaseURL == "" {
		c.Gemini.BaseURL = "https://generativelanguage.googleapis.com/v1beta/models"
	}
	if c.Gemini.MaxRequestPerMinute <= 0 {
		c.Gemini.MaxRequestPerMinute = 10
	}
	if c.Gemini.MaxTokenPerMinute <= 0 {
		c.Gemini.MaxTokenPerMinute = 250000
	}
	if c.YahooFinance.BaseURL == "" {
		c.YahooFinance.BaseURL = "https://query1.finance.yahoo.com"
	}
	if c.YahooFinance.MaxRequestPerMinute <= 0 {
		c.YahooFinance.MaxRequestPerMinute = 60
	}
	if c.YahooFinance.RequestTimeout <= 0 {
		c.YahooFinance.RequestTimeout = 10 * time.Second
	}
	if c.News.BaseURL == "" {
		c.News.BaseURL = "https://news.google.com/rss"
	}
	if c.News.MaxHeadlines <= 0 {
		c.News.MaxHeadlines = 10
	}
	if c.News.RequestTimeout <= 0 {
		c.News.RequestTimeout = 15 * time.Second
	}
	if c.Chart.MaxImageSizeBytes <= 0 {
		c.Chart.MaxImageSizeBytes = 8 << 20
	}
	if len(c.Chart.AllowedMediaTypes) == 0 {
		c.Chart.AllowedMediaTypes = []string{"image/png", "image/jpeg"}
	}
	if c.Pipeline.RetryInterval <= 0 {
		c.Pipeline.RetryInterval = 2 * time.Second
	}
}

func (c *Config) validate() error {
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("gemini.api_key is required (set GEMINI_API_KEY)")
	}
	return nil
}
