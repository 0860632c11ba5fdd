// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package provider

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy bounds the retry loop around transient provider failures.
type RetryPolicy struct {
	MaxRetries     uint64
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryPolicy matches the provider rate limits seen in production:
// three retries starting at one second, capped at ten.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     3,
		InitialBackoff: time.Second,
		MaxBackoff:     10 * time.Second,
	}
}

type retrying struct {
	inner  Translator
	policy RetryPolicy
	logger *slog.Logger
}

// WithRetry wraps a translator with exponential backoff on transient errors.
// Structural errors pass through untouched: retrying a malformed response or
// a protected-term violation would burn quota for the same bad output.
func WithRetry(inner Translator, policy RetryPolicy, logger *slog.Logger) Translator {
	if logger == nil {
		logger = slog.Default()
	}
	if policy.InitialBackoff <= 0 {
		policy.InitialBackoff = time.Second
	}
	return &retrying{inner: inner, policy: policy, logger: logger}
}

func (r *retrying) Translate(ctx context.Context, req Request) (map[string]string, error) {
	backoff := retry.NewExponential(r.policy.InitialBackoff)
	if r.policy.MaxBackoff > 0 {
		backoff = retry.WithCappedDuration(r.policy.MaxBackoff, backoff)
	}
	backoff = retry.WithMaxRetries(r.policy.MaxRetries, backoff)

	var out map[string]string
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		out, err = r.inner.Translate(ctx, req)
		if err != nil && IsTransient(err) {
			r.logger.Warn("transient provider error, will retry",
				"direction", req.Direction.String(),
				"record_type", req.RecordType,
				"error", err,
			)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *retrying) Ping(ctx context.Context) error {
	return r.inner.Ping(ctx)
}

// New constructs the configured translator implementation, without retry
// wrapping. Callers compose WithRetry around it.
func New(providerID string, openAICfg OpenAIConfig, anthropicCfg AnthropicConfig) (Translator, error) {
	switch providerID {
	case ProviderAnthropic:
		return NewAnthropic(anthropicCfg)
	case ProviderOpenAI, "":
		return NewOpenAI(openAICfg)
	}
	return nil, fmt.Errorf("unknown provider %q: must be one of openai, anthropic", providerID)
}
