// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openaiapi "github.com/openai/openai-go/v3"
)

// AnthropicConfig configures the Anthropic-backed translator.
type AnthropicConfig struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int64
	Timeout     time.Duration
}

// AnthropicTranslator implements Translator on the Anthropic messages API.
type AnthropicTranslator struct {
	client      anthropic.Client
	model       string
	temperature float64
	maxTokens   int64
}

// NewAnthropic creates an Anthropic translator.
func NewAnthropic(cfg AnthropicConfig) (*AnthropicTranslator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-20250514"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4000
	}

	opts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(cfg.APIKey),
		anthropicoption.WithMaxRetries(0),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, anthropicoption.WithRequestTimeout(cfg.Timeout))
	}

	return &AnthropicTranslator{
		client:      anthropic.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Translate implements Translator.
func (t *AnthropicTranslator) Translate(ctx context.Context, req Request) (map[string]string, error) {
	if len(req.Fields) == 0 {
		return map[string]string{}, nil
	}

	userPrompt, err := buildUserPrompt(req.Fields)
	if err != nil {
		return nil, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(t.model),
		MaxTokens: t.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: buildSystemPrompt(req)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}
	if t.temperature > 0 {
		params.Temperature = anthropic.Float(t.temperature)
	}

	msg, err := t.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classifyAPIError("anthropic", err)
	}

	var content strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	if content.Len() == 0 {
		return nil, &StructuralError{Kind: KindMalformedOutput, Detail: "anthropic: no text content returned"}
	}

	return parseResponse(content.String(), req)
}

// Ping implements Translator with a minimal message request.
func (t *AnthropicTranslator) Ping(ctx context.Context) error {
	_, err := t.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(t.model),
		MaxTokens: 5,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("Hello")),
		},
	})
	if err != nil {
		return fmt.Errorf("anthropic ping: %w", err)
	}
	return nil
}

// statusCodeOf extracts the HTTP status from either SDK's API error type.
func statusCodeOf(err error) (int, bool) {
	var oaErr *openaiapi.Error
	if errors.As(err, &oaErr) {
		return oaErr.StatusCode, true
	}
	var anErr *anthropic.Error
	if errors.As(err, &anErr) {
		return anErr.StatusCode, true
	}
	return 0, false
}
