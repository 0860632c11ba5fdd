// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIConfig configures the OpenAI-backed translator.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string // optional, for OpenAI-compatible endpoints
	Temperature float64
	MaxTokens   int64
	Timeout     time.Duration
}

// OpenAITranslator implements Translator on the OpenAI chat completions API.
type OpenAITranslator struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int64
}

// NewOpenAI creates an OpenAI translator. Retries are handled by the
// WithRetry wrapper, so the SDK's own retry loop is disabled.
func NewOpenAI(cfg OpenAIConfig) (*OpenAITranslator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4000
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &OpenAITranslator{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Translate implements Translator.
func (t *OpenAITranslator) Translate(ctx context.Context, req Request) (map[string]string, error) {
	if len(req.Fields) == 0 {
		return map[string]string{}, nil
	}

	userPrompt, err := buildUserPrompt(req.Fields)
	if err != nil {
		return nil, err
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(t.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(buildSystemPrompt(req)),
			openai.UserMessage(userPrompt),
		},
		MaxCompletionTokens: openai.Int(t.maxTokens),
	}
	if t.temperature > 0 {
		params.Temperature = openai.Float(t.temperature)
	}

	resp, err := t.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classifyAPIError("openai", err)
	}
	if len(resp.Choices) == 0 {
		return nil, &StructuralError{Kind: KindMalformedOutput, Detail: "openai: no choices returned"}
	}

	return parseResponse(resp.Choices[0].Message.Content, req)
}

// Ping implements Translator with a minimal completion request.
func (t *OpenAITranslator) Ping(ctx context.Context) error {
	_, err := t.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(t.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage("Hello"),
		},
		MaxCompletionTokens: openai.Int(5),
	})
	if err != nil {
		return fmt.Errorf("openai ping: %w", err)
	}
	return nil
}

// classifyAPIError maps SDK/network failures into the retryable taxonomy.
// Timeouts, throttling and server-side errors are transient; anything else
// (bad credentials, invalid request) fails without retry.
func classifyAPIError(name string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransientError{Err: fmt.Errorf("%s: %w", name, err)}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TransientError{Err: fmt.Errorf("%s: %w", name, err)}
	}
	if status, ok := statusCodeOf(err); ok {
		if status == 408 || status == 429 || status >= 500 {
			return &TransientError{Err: fmt.Errorf("%s: %w", name, err)}
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	// Unclassified network-level failures are worth one more try.
	return &TransientError{Err: fmt.Errorf("%s: %w", name, err)}
}
