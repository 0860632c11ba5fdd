// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package provider adapts external text-generation services to one
// translation contract. Implementations exist for OpenAI and Anthropic;
// transient failures are retried with backoff while structural failures
// (malformed output, protected-term violations) fail immediately.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/olegiv/transync/internal/model"
)

// Provider IDs
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Request is one translation call. Fields holds only translatable content;
// non-translatable fields never reach the provider. ProtectedTerms must be
// reproduced verbatim in the output.
type Request struct {
	Direction      model.Direction
	RecordType     string
	Fields         map[string]string
	ProtectedTerms []string
}

// Translator is the uniform interface to a text-generation provider.
type Translator interface {
	// Translate returns a field map with exactly the same key set as the
	// request, values translated into the target language.
	Translate(ctx context.Context, req Request) (map[string]string, error)

	// Ping verifies the provider is reachable with the configured
	// credentials.
	Ping(ctx context.Context) error
}

// TransientError wraps failures worth retrying: timeouts, throttling,
// temporary server errors.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient provider error: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Structural error kinds
const (
	KindMalformedOutput        = "malformed_output"
	KindFieldMismatch          = "field_mismatch"
	KindProtectedTermViolation = "protected_term_violation"
)

// StructuralError marks a response that came back but cannot be used. It is
// never retried; the same input would produce the same bad output.
type StructuralError struct {
	Kind   string
	Detail string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("structural provider error (%s): %s", e.Kind, e.Detail)
}

// IsTransient reports whether err should be retried with backoff.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// parseResponse decodes a provider completion into a validated field map.
func parseResponse(content string, req Request) (map[string]string, error) {
	content = stripCodeFence(content)

	var fields map[string]string
	if err := json.Unmarshal([]byte(content), &fields); err != nil {
		return nil, &StructuralError{
			Kind:   KindMalformedOutput,
			Detail: fmt.Sprintf("response is not a JSON field map: %v", err),
		}
	}

	if err := validateKeySet(req.Fields, fields); err != nil {
		return nil, err
	}
	if err := verifyProtectedTerms(req, fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// stripCodeFence removes a surrounding markdown code block, which models emit
// despite instructions not to.
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	lines := strings.Split(content, "\n")
	lines = lines[1:]
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// validateKeySet requires the output to contain exactly the input's keys.
func validateKeySet(in, out map[string]string) error {
	for key := range in {
		if _, ok := out[key]; !ok {
			return &StructuralError{
				Kind:   KindFieldMismatch,
				Detail: fmt.Sprintf("response is missing field %q", key),
			}
		}
	}
	for key := range out {
		if _, ok := in[key]; !ok {
			return &StructuralError{
				Kind:   KindFieldMismatch,
				Detail: fmt.Sprintf("response contains unexpected field %q", key),
			}
		}
	}
	return nil
}

// verifyProtectedTerms checks that every protected term present in an input
// field survives verbatim (case sensitive) in the corresponding output field.
func verifyProtectedTerms(req Request, out map[string]string) error {
	for _, term := range req.ProtectedTerms {
		if term == "" {
			continue
		}
		for name, value := range req.Fields {
			if !strings.Contains(value, term) {
				continue
			}
			if !strings.Contains(out[name], term) {
				return &StructuralError{
					Kind:   KindProtectedTermViolation,
					Detail: fmt.Sprintf("protected term %q altered in field %q", term, name),
				}
			}
		}
	}
	return nil
}
