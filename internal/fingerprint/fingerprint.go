// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package fingerprint computes comparable digests of translatable content
// and classifies edits as cosmetic or semantic. Two digests are kept per
// record: a text hash over markup-stripped content and a raw hash over the
// content as stored. An edit that changes only markup moves the raw hash but
// not the text hash, so it never triggers a provider call.
package fingerprint

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"

	"github.com/olegiv/transync/internal/model"
)

// Field formats
const (
	FormatPlain    = "plain"
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

// Field is one translatable field value with its storage format.
type Field struct {
	Name   string
	Value  string
	Format string
}

// Fingerprint is a pair of digests over a record's translatable fields.
type Fingerprint struct {
	TextHash string // markup stripped, whitespace collapsed
	RawHash  string // content exactly as stored
}

// stripPolicy removes every tag; bluemonday keeps only text nodes.
var stripPolicy = bluemonday.StrictPolicy()

var whitespaceRe = regexp.MustCompile(`\s+`)

// separators qualify each field by name so that moving text between fields
// changes the digest even when the concatenated text is identical.
const (
	fieldNameSep  = "\x00"
	fieldValueSep = "\x1e"
)

// Compute returns the fingerprint for an ordered field list. It is a pure
// function: absent values hash as empty strings and malformed markup falls
// back to the raw text rather than failing.
func Compute(fields []Field) Fingerprint {
	var text, raw strings.Builder
	for _, f := range fields {
		raw.WriteString(f.Name)
		raw.WriteString(fieldNameSep)
		raw.WriteString(f.Value)
		raw.WriteString(fieldValueSep)

		text.WriteString(f.Name)
		text.WriteString(fieldNameSep)
		text.WriteString(extract(f))
		text.WriteString(fieldValueSep)
	}
	return Fingerprint{
		TextHash: hashString(text.String()),
		RawHash:  hashString(raw.String()),
	}
}

// FieldsForRecord builds the ordered field list for a record type from a
// field-name -> value map. Fields absent from the map are included with an
// empty value to keep the ordering stable.
func FieldsForRecord(rt model.RecordType, values map[string]string) []Field {
	fields := make([]Field, 0, len(rt.TranslatableFields))
	for _, name := range rt.TranslatableFields {
		format := FormatPlain
		switch {
		case rt.RichTextFields[name]:
			format = FormatHTML
		case rt.MarkdownFields[name]:
			format = FormatMarkdown
		}
		fields = append(fields, Field{Name: name, Value: values[name], Format: format})
	}
	return fields
}

// ExtractText returns the plain text of an HTML fragment: tags removed,
// entities decoded, whitespace collapsed to single spaces.
func ExtractText(markup string) string {
	// Tags are replaced by a space before stripping so that adjacent block
	// elements keep a word boundary between them.
	spaced := strings.ReplaceAll(markup, "<", " <")
	stripped := stripPolicy.Sanitize(spaced)
	decoded := html.UnescapeString(stripped)
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(decoded, " "))
}

func extract(f Field) string {
	switch f.Format {
	case FormatHTML:
		return ExtractText(f.Value)
	case FormatMarkdown:
		return ExtractText(renderMarkdown(f.Value))
	default:
		return strings.TrimSpace(whitespaceRe.ReplaceAllString(f.Value, " "))
	}
}

// renderMarkdown converts markdown to HTML so that markdown formatting edits
// are classified like HTML ones. On conversion failure the raw text is used.
func renderMarkdown(src string) string {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		return src
	}
	return buf.String()
}

func hashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
