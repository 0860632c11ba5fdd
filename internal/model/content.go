// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// ContentRecord is a catalog entity owning translatable fields in two
// language variants. Fields is keyed by language code, then field name.
// Non-translatable attributes (slug, proper-noun name) live outside Fields
// and are never sent to the provider.
type ContentRecord struct {
	ID        int64                        `json:"id"`
	Type      string                       `json:"type"` // strain, article, terpene
	Slug      string                       `json:"slug"`
	Name      string                       `json:"name"` // proper noun, never translated
	Fields    map[string]map[string]string `json:"fields"`
	CreatedAt time.Time                    `json:"created_at"`
	UpdatedAt time.Time                    `json:"updated_at"`
}

// FieldsFor returns the field map for the given language. Missing languages
// and fields read as empty; the returned map is never nil.
func (r *ContentRecord) FieldsFor(lang string) map[string]string {
	if r.Fields == nil {
		return map[string]string{}
	}
	fields := r.Fields[lang]
	if fields == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// SetFields replaces the field map for the given language.
func (r *ContentRecord) SetFields(lang string, fields map[string]string) {
	if r.Fields == nil {
		r.Fields = make(map[string]map[string]string, 2)
	}
	r.Fields[lang] = fields
}

// SetField sets a single field value for the given language.
func (r *ContentRecord) SetField(lang, name, value string) {
	if r.Fields == nil {
		r.Fields = make(map[string]map[string]string, 2)
	}
	if r.Fields[lang] == nil {
		r.Fields[lang] = make(map[string]string)
	}
	r.Fields[lang][name] = value
}

// HasContent reports whether the record carries at least one non-empty
// translatable field in the given language.
func (r *ContentRecord) HasContent(lang string) bool {
	for _, v := range r.FieldsFor(lang) {
		if v != "" {
			return true
		}
	}
	return false
}
