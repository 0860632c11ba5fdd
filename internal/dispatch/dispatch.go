// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package dispatch executes translation jobs. The inline dispatcher runs the
// provider call in the request path; the queued dispatcher hands jobs to a
// queue consumed by a worker. Both paths persist results through the same
// guarded store operation, so a stale job can never overwrite newer content.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/olegiv/transync/internal/model"
	"github.com/olegiv/transync/internal/provider"
	"github.com/olegiv/transync/internal/store"
)

// Job is one unit of translation work. SourceTextHash is the idempotency key:
// it names the exact source revision the job was cut from, and the result is
// only committed while the stored record still carries that hash.
type Job struct {
	ID             string            `json:"id"`
	TranslationID  int64             `json:"translation_id"`
	EntityType     string            `json:"entity_type"`
	EntityID       int64             `json:"entity_id"`
	SourceLang     string            `json:"source_lang"`
	TargetLang     string            `json:"target_lang"`
	Fields         map[string]string `json:"fields"`
	ProtectedTerms []string          `json:"protected_terms"`
	SourceTextHash string            `json:"source_text_hash"`
	EnqueuedAt     time.Time         `json:"enqueued_at"`
}

// Outcome reports what happened to a dispatched job.
type Outcome int

const (
	// OutcomeSynced means the translation was produced and committed.
	OutcomeSynced Outcome = iota
	// OutcomeFailed means the provider call or the commit failed and the
	// record was marked failed.
	OutcomeFailed
	// OutcomeEnqueued means the job was handed to the queue for a worker.
	OutcomeEnqueued
	// OutcomeDropped means the job was superseded by a newer edit and its
	// result was discarded.
	OutcomeDropped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSynced:
		return "synced"
	case OutcomeFailed:
		return "failed"
	case OutcomeEnqueued:
		return "enqueued"
	case OutcomeDropped:
		return "dropped"
	}
	return "unknown"
}

// Dispatcher routes a translation job toward execution.
type Dispatcher interface {
	Dispatch(ctx context.Context, job Job) (Outcome, error)
}

// process runs one job to completion: provider call, then the guarded commit.
// A stale commit drops the job without error; every other failure marks the
// translation record failed with the error detail.
func process(ctx context.Context, st *store.Store, tr provider.Translator, job Job, logger *slog.Logger) (Outcome, error) {
	req := provider.Request{
		Direction:      model.Direction{Source: job.SourceLang, Target: job.TargetLang},
		RecordType:     job.EntityType,
		Fields:         job.Fields,
		ProtectedTerms: job.ProtectedTerms,
	}

	out, err := tr.Translate(ctx, req)
	if err != nil {
		if markErr := st.MarkTranslationFailed(ctx, job.TranslationID, err.Error()); markErr != nil {
			logger.Error("failed to record translation failure",
				"job_id", job.ID, "translation_id", job.TranslationID, "error", markErr)
		}
		logger.Warn("translation job failed",
			"job_id", job.ID,
			"entity_type", job.EntityType,
			"entity_id", job.EntityID,
			"direction", job.SourceLang+"-to-"+job.TargetLang,
			"error", err)
		return OutcomeFailed, err
	}

	err = st.CompleteTranslation(ctx, store.CompleteTranslationParams{
		TranslationID:  job.TranslationID,
		EntityID:       job.EntityID,
		TargetLang:     job.TargetLang,
		ExpectTextHash: job.SourceTextHash,
		Fields:         out,
	})
	if errors.Is(err, store.ErrStaleDispatch) {
		logger.Info("translation result dropped, source changed since dispatch",
			"job_id", job.ID,
			"entity_type", job.EntityType,
			"entity_id", job.EntityID)
		return OutcomeDropped, nil
	}
	if err != nil {
		if markErr := st.MarkTranslationFailed(ctx, job.TranslationID, err.Error()); markErr != nil {
			logger.Error("failed to record translation failure",
				"job_id", job.ID, "translation_id", job.TranslationID, "error", markErr)
		}
		return OutcomeFailed, err
	}

	logger.Info("translation synced",
		"job_id", job.ID,
		"entity_type", job.EntityType,
		"entity_id", job.EntityID,
		"direction", job.SourceLang+"-to-"+job.TargetLang,
		"fields", len(out))
	return OutcomeSynced, nil
}
