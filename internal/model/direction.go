// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Languages supported for automated translation.
const (
	LangEnglish = "en"
	LangSpanish = "es"
)

// languageNames maps supported ISO 639-1 codes to display names used in
// provider prompts.
var languageNames = map[string]string{
	LangEnglish: "English",
	LangSpanish: "Spanish",
}

// Direction is an active (source -> target) language pair. Exactly one
// direction is active per process; it is passed explicitly into the
// dispatcher and the bulk runner at construction time.
type Direction struct {
	Source string
	Target string
}

// ParseDirection parses a direction string like "en-to-es".
func ParseDirection(s string) (Direction, error) {
	source, target, ok := strings.Cut(s, "-to-")
	if !ok {
		return Direction{}, fmt.Errorf("invalid direction %q: expected format <src>-to-<dst>", s)
	}
	for _, code := range []string{source, target} {
		if _, err := language.Parse(code); err != nil {
			return Direction{}, fmt.Errorf("invalid language code %q in direction %q: %w", code, s, err)
		}
		if _, ok := languageNames[code]; !ok {
			return Direction{}, fmt.Errorf("unsupported language %q: supported codes are en, es", code)
		}
	}
	if source == target {
		return Direction{}, fmt.Errorf("direction %q has identical source and target", s)
	}
	return Direction{Source: source, Target: target}, nil
}

// String returns the canonical form, e.g. "en-to-es".
func (d Direction) String() string {
	return d.Source + "-to-" + d.Target
}

// Reversed returns the opposite direction.
func (d Direction) Reversed() Direction {
	return Direction{Source: d.Target, Target: d.Source}
}

// SourceName returns the display name of the source language.
func (d Direction) SourceName() string { return LanguageName(d.Source) }

// TargetName returns the display name of the target language.
func (d Direction) TargetName() string { return LanguageName(d.Target) }

// LanguageName returns the display name for a supported language code,
// falling back to the upper-cased code.
func LanguageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return strings.ToUpper(code)
}
