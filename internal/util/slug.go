// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util holds slug helpers for catalog records. Strain and terpene
// names carry accents and punctuation ("Piña", "Gorilla Glue #4") that must
// collapse into stable URL slugs shared by both language variants.
package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxSlugLen bounds derived slugs; explicit slugs are not clamped.
const maxSlugLen = 80

var (
	separators  = regexp.MustCompile(`[\s_/]+`)
	disallowed  = regexp.MustCompile(`[^a-z0-9-]+`)
	hyphenRuns  = regexp.MustCompile(`-{2,}`)
	validSlugRe = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
)

// Slugify derives a URL slug from a record name: accents are decomposed and
// stripped, separators become single hyphens, and anything outside [a-z0-9-]
// is dropped. Returns "" when nothing sluggable remains, in which case the
// caller must supply an explicit slug.
func Slugify(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, _ := transform.String(t, name)

	s = strings.ToLower(s)
	s = separators.ReplaceAllString(s, "-")
	s = disallowed.ReplaceAllString(s, "")
	s = hyphenRuns.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if len(s) > maxSlugLen {
		s = strings.Trim(s[:maxSlugLen], "-")
	}
	return s
}

// IsValidSlug reports whether s is lowercase alphanumerics joined by single
// hyphens, with no leading or trailing hyphen.
func IsValidSlug(s string) bool {
	return validSlugRe.MatchString(s)
}
