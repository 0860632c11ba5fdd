// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/olegiv/transync/internal/model"
	"github.com/olegiv/transync/internal/provider"
)

// Dispatch modes
const (
	DispatchInline = "inline"
	DispatchQueued = "queued"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath     string `env:"TRANSYNC_DB_PATH" envDefault:"./data/transync.db"`
	ServerHost string `env:"TRANSYNC_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"TRANSYNC_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"TRANSYNC_ENV" envDefault:"development"`
	LogLevel   string `env:"TRANSYNC_LOG_LEVEL" envDefault:"info"`

	// Translation configuration
	Direction     string `env:"TRANSYNC_DIRECTION" envDefault:"en-to-es"` // en-to-es or es-to-en
	AutoTranslate bool   `env:"TRANSYNC_AUTO_TRANSLATE" envDefault:"true"`
	DispatchMode  string `env:"TRANSYNC_DISPATCH_MODE" envDefault:"inline"` // inline or queued

	// Provider configuration
	Provider           string        `env:"TRANSYNC_PROVIDER" envDefault:"openai"` // openai or anthropic
	OpenAIAPIKey       string        `env:"TRANSYNC_OPENAI_API_KEY"`
	OpenAIModel        string        `env:"TRANSYNC_OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIBaseURL      string        `env:"TRANSYNC_OPENAI_BASE_URL"` // optional OpenAI-compatible endpoint
	AnthropicAPIKey    string        `env:"TRANSYNC_ANTHROPIC_API_KEY"`
	AnthropicModel     string        `env:"TRANSYNC_ANTHROPIC_MODEL" envDefault:"claude-sonnet-4-20250514"`
	ProviderTemp       float64       `env:"TRANSYNC_PROVIDER_TEMPERATURE" envDefault:"0.3"`
	ProviderMaxTokens  int64         `env:"TRANSYNC_PROVIDER_MAX_TOKENS" envDefault:"4000"`
	ProviderTimeout    time.Duration `env:"TRANSYNC_PROVIDER_TIMEOUT" envDefault:"90s"`
	RetryMaxAttempts   uint64        `env:"TRANSYNC_RETRY_MAX_ATTEMPTS" envDefault:"3"`
	RetryInitialDelay  time.Duration `env:"TRANSYNC_RETRY_INITIAL_DELAY" envDefault:"1s"`
	RetryMaxDelay      time.Duration `env:"TRANSYNC_RETRY_MAX_DELAY" envDefault:"10s"`
	InlineTimeout      time.Duration `env:"TRANSYNC_INLINE_TIMEOUT" envDefault:"2m"`
	RequestsPerMinute  float64       `env:"TRANSYNC_REQUESTS_PER_MINUTE" envDefault:"30"`
	BulkPause          time.Duration `env:"TRANSYNC_BULK_PAUSE" envDefault:"2s"`

	// Queue configuration (queued dispatch mode)
	RedisURL string `env:"TRANSYNC_REDIS_URL"`
	QueueKey string `env:"TRANSYNC_QUEUE_KEY" envDefault:"transync:jobs"`

	// Retry scheduler configuration
	RetrySchedule string `env:"TRANSYNC_RETRY_SCHEDULE" envDefault:"@hourly"` // cron spec, empty disables
	RetryBatchMax int    `env:"TRANSYNC_RETRY_BATCH_MAX" envDefault:"10"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// ParsedDirection returns the validated translation direction.
func (c Config) ParsedDirection() (model.Direction, error) {
	return model.ParseDirection(c.Direction)
}

// RetryPolicy returns the provider retry bounds.
func (c Config) RetryPolicy() provider.RetryPolicy {
	return provider.RetryPolicy{
		MaxRetries:     c.RetryMaxAttempts,
		InitialBackoff: c.RetryInitialDelay,
		MaxBackoff:     c.RetryMaxDelay,
	}
}

// OpenAIConfig returns the OpenAI provider settings.
func (c Config) OpenAIConfig() provider.OpenAIConfig {
	return provider.OpenAIConfig{
		APIKey:      c.OpenAIAPIKey,
		Model:       c.OpenAIModel,
		BaseURL:     c.OpenAIBaseURL,
		Temperature: c.ProviderTemp,
		MaxTokens:   c.ProviderMaxTokens,
		Timeout:     c.ProviderTimeout,
	}
}

// AnthropicConfig returns the Anthropic provider settings.
func (c Config) AnthropicConfig() provider.AnthropicConfig {
	return provider.AnthropicConfig{
		APIKey:      c.AnthropicAPIKey,
		Model:       c.AnthropicModel,
		Temperature: c.ProviderTemp,
		MaxTokens:   c.ProviderMaxTokens,
		Timeout:     c.ProviderTimeout,
	}
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if _, err := cfg.ParsedDirection(); err != nil {
		return nil, fmt.Errorf("TRANSYNC_DIRECTION: %w", err)
	}

	switch cfg.DispatchMode {
	case DispatchInline:
	case DispatchQueued:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("TRANSYNC_REDIS_URL is required when TRANSYNC_DISPATCH_MODE=%s", DispatchQueued)
		}
	default:
		return nil, fmt.Errorf("TRANSYNC_DISPATCH_MODE must be %q or %q, got %q",
			DispatchInline, DispatchQueued, cfg.DispatchMode)
	}

	switch cfg.Provider {
	case provider.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("TRANSYNC_OPENAI_API_KEY is required when TRANSYNC_PROVIDER=%s", cfg.Provider)
		}
	case provider.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("TRANSYNC_ANTHROPIC_API_KEY is required when TRANSYNC_PROVIDER=%s", cfg.Provider)
		}
	default:
		return nil, fmt.Errorf("TRANSYNC_PROVIDER must be %q or %q, got %q",
			provider.ProviderOpenAI, provider.ProviderAnthropic, cfg.Provider)
	}

	return cfg, nil
}
