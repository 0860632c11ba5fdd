// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Translation statuses
const (
	StatusPending  = "pending"  // never translated
	StatusSynced   = "synced"   // target matches source
	StatusOutdated = "outdated" // source changed since last sync
	StatusFailed   = "failed"   // last dispatch attempt errored
)

// ValidStatus reports whether s is a known translation status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusSynced, StatusOutdated, StatusFailed:
		return true
	}
	return false
}

// TranslationRecord tracks translation state for one content entity in one
// direction. The record is created the first time an entity with translatable
// content is saved and lives as long as the entity does.
type TranslationRecord struct {
	ID               int64      `json:"id"`
	EntityType       string     `json:"entity_type"` // strain, article, terpene
	EntityID         int64      `json:"entity_id"`
	SourceLang       string     `json:"source_lang"`
	TargetLang       string     `json:"target_lang"`
	Status           string     `json:"status"`
	SourceTextHash   string     `json:"source_text_hash"` // markup-stripped content digest
	SourceRawHash    string     `json:"source_raw_hash"`  // digest including markup
	LastTranslatedAt *time.Time `json:"last_translated_at,omitempty"`
	ErrorDetail      string     `json:"error_detail,omitempty"`
	SkipRequested    bool       `json:"skip_requested"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// NeedsTranslation reports whether the record should be picked up by the bulk
// runner: never synced, source drifted from the last translated hash, or the
// previous attempt failed.
func (r *TranslationRecord) NeedsTranslation(currentTextHash string) bool {
	if r.Status == StatusFailed {
		return true
	}
	if r.Status != StatusSynced {
		return true
	}
	return r.SourceTextHash != currentTextHash
}
