// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package fingerprint

import "github.com/olegiv/transync/internal/model"

// Decision is the outcome of classifying a save against the stored
// translation state.
type Decision int

const (
	// DecisionNone: nothing changed, not even markup. No writes, no dispatch.
	DecisionNone Decision = iota
	// DecisionCosmetic: markup changed but extracted text did not. Hashes
	// advance silently, status stays as it was.
	DecisionCosmetic
	// DecisionSkip: text changed but the caller requested no dispatch.
	// Hashes advance so later cosmetic edits compare against the skipped
	// content; the target stays as-is until a forced re-dispatch.
	DecisionSkip
	// DecisionDispatch: text changed, record goes outdated and a job is
	// dispatched.
	DecisionDispatch
)

// String returns the decision name for logs.
func (d Decision) String() string {
	switch d {
	case DecisionNone:
		return "none"
	case DecisionCosmetic:
		return "cosmetic"
	case DecisionSkip:
		return "skip"
	case DecisionDispatch:
		return "dispatch"
	}
	return "unknown"
}

// isCosmetic and skipOverride are the two independent predicates behind
// Classify: automatic cosmetic detection and the manual skip checkbox.

func isCosmetic(prev *model.TranslationRecord, next Fingerprint) bool {
	return prev.SourceTextHash == next.TextHash
}

func skipOverride(skipRequested bool) bool {
	return skipRequested
}

// Classify labels a save event. prev is the stored translation record; nil
// means the entity was just created and goes straight to dispatch when it has
// content. The skip override wins over a semantic change.
func Classify(prev *model.TranslationRecord, next Fingerprint, skipRequested bool) Decision {
	if prev == nil {
		if skipOverride(skipRequested) {
			return DecisionSkip
		}
		return DecisionDispatch
	}
	if prev.SourceRawHash == next.RawHash {
		return DecisionNone
	}
	if isCosmetic(prev, next) {
		return DecisionCosmetic
	}
	if skipOverride(skipRequested) {
		return DecisionSkip
	}
	return DecisionDispatch
}
