// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package sync drives translation state from content writes. The engine hooks
// into the store's save path, fingerprints the source-language fields,
// classifies the edit and either advances hashes silently or marks the
// translation outdated and hands a job to the dispatcher.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/olegiv/transync/internal/dispatch"
	"github.com/olegiv/transync/internal/fingerprint"
	"github.com/olegiv/transync/internal/model"
	"github.com/olegiv/transync/internal/store"
)

// Config holds engine configuration.
type Config struct {
	// Direction is the translation direction driven by saves.
	Direction model.Direction

	// AutoTranslate enables dispatching on semantic change. When disabled,
	// records still go outdated and wait for a bulk run or a forced
	// re-dispatch.
	AutoTranslate bool
}

// Engine classifies content saves and keeps translation records in step.
type Engine struct {
	store      *store.Store
	dispatcher dispatch.Dispatcher
	direction  model.Direction
	auto       bool
	logger     *slog.Logger
}

// New creates a sync engine. Call Register to attach it to the store.
func New(st *store.Store, d dispatch.Dispatcher, cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:      st,
		dispatcher: d,
		direction:  cfg.Direction,
		auto:       cfg.AutoTranslate,
		logger:     logger,
	}
}

// Register attaches the engine to the store's save path.
func (e *Engine) Register() {
	e.store.OnSave(e.recordSaved)
}

// recordSaved is the save hook. Hooks have no error return; failures here
// must not undo the committed source write, so they are logged and the
// translation record is left for the retry scheduler or a bulk run.
func (e *Engine) recordSaved(ctx context.Context, ev store.SaveEvent) {
	decision, outcome, err := e.SyncRecord(ctx, &ev.Record, ev.SkipTranslation)
	if err != nil {
		e.logger.Error("translation sync failed after save",
			"entity_type", ev.Record.Type,
			"entity_id", ev.Record.ID,
			"error", err)
		return
	}
	if decision != fingerprint.DecisionNone {
		e.logger.Debug("save classified",
			"entity_type", ev.Record.Type,
			"entity_id", ev.Record.ID,
			"decision", decision.String(),
			"outcome", outcome.String())
	}
}

// SyncRecord classifies the record's current source content against stored
// translation state and applies the transition: advance hashes for cosmetic
// edits and skips, mark outdated and dispatch for semantic ones.
func (e *Engine) SyncRecord(ctx context.Context, rec *model.ContentRecord, skipRequested bool) (fingerprint.Decision, dispatch.Outcome, error) {
	rt, ok := model.RecordTypeFor(rec.Type)
	if !ok {
		return fingerprint.DecisionNone, dispatch.OutcomeDropped, nil
	}
	if !rec.HasContent(e.direction.Source) {
		return fingerprint.DecisionNone, dispatch.OutcomeDropped, nil
	}

	values := rec.FieldsFor(e.direction.Source)
	fp := fingerprint.Compute(fingerprint.FieldsForRecord(rt, values))

	var prev *model.TranslationRecord
	stored, err := e.store.GetTranslation(ctx, store.GetTranslationParams{
		EntityType: rec.Type,
		EntityID:   rec.ID,
		SourceLang: e.direction.Source,
		TargetLang: e.direction.Target,
	})
	switch {
	case err == nil:
		prev = &stored
	case errors.Is(err, store.ErrNotFound):
	default:
		return fingerprint.DecisionNone, dispatch.OutcomeDropped, err
	}

	decision := fingerprint.Classify(prev, fp, skipRequested)
	if decision == fingerprint.DecisionNone {
		return decision, dispatch.OutcomeDropped, nil
	}

	tr := stored
	if prev == nil {
		tr, err = e.store.EnsureTranslation(ctx, store.CreateTranslationParams{
			EntityType: rec.Type,
			EntityID:   rec.ID,
			SourceLang: e.direction.Source,
			TargetLang: e.direction.Target,
		})
		if err != nil {
			return decision, dispatch.OutcomeDropped, err
		}
	}

	switch decision {
	case fingerprint.DecisionCosmetic:
		err := e.store.AdvanceTranslationHashes(ctx, store.AdvanceTranslationHashesParams{
			ID:            tr.ID,
			TextHash:      fp.TextHash,
			RawHash:       fp.RawHash,
			SkipRequested: tr.SkipRequested,
		})
		return decision, dispatch.OutcomeDropped, err

	case fingerprint.DecisionSkip:
		err := e.store.AdvanceTranslationHashes(ctx, store.AdvanceTranslationHashesParams{
			ID:            tr.ID,
			TextHash:      fp.TextHash,
			RawHash:       fp.RawHash,
			SkipRequested: true,
		})
		return decision, dispatch.OutcomeDropped, err

	case fingerprint.DecisionDispatch:
		if err := e.store.MarkTranslationOutdated(ctx, store.MarkTranslationOutdatedParams{
			ID:       tr.ID,
			TextHash: fp.TextHash,
			RawHash:  fp.RawHash,
		}); err != nil {
			return decision, dispatch.OutcomeDropped, err
		}
		if !e.auto {
			return decision, dispatch.OutcomeDropped, nil
		}
		outcome, err := e.dispatcher.Dispatch(ctx, e.buildJob(tr.ID, rec, rt, fp))
		return decision, outcome, err
	}

	return decision, dispatch.OutcomeDropped, nil
}

// ForceRedispatch recomputes the fingerprint from current source content and
// dispatches regardless of stored hashes or the auto-translate setting. It
// clears a previous skip. Used for retrying failed records and for manual
// re-translation.
func (e *Engine) ForceRedispatch(ctx context.Context, translationID int64) (dispatch.Outcome, error) {
	tr, err := e.store.GetTranslationByID(ctx, translationID)
	if err != nil {
		return dispatch.OutcomeDropped, err
	}
	rt, ok := model.RecordTypeFor(tr.EntityType)
	if !ok {
		return dispatch.OutcomeDropped, fmt.Errorf("unknown entity type %q", tr.EntityType)
	}
	rec, err := e.store.GetContentRecord(ctx, tr.EntityID)
	if err != nil {
		return dispatch.OutcomeDropped, err
	}
	if !rec.HasContent(tr.SourceLang) {
		return dispatch.OutcomeDropped, fmt.Errorf("entity %s/%d has no %s content", tr.EntityType, tr.EntityID, tr.SourceLang)
	}

	values := rec.FieldsFor(tr.SourceLang)
	fp := fingerprint.Compute(fingerprint.FieldsForRecord(rt, values))

	if err := e.store.MarkTranslationOutdated(ctx, store.MarkTranslationOutdatedParams{
		ID:       tr.ID,
		TextHash: fp.TextHash,
		RawHash:  fp.RawHash,
	}); err != nil {
		return dispatch.OutcomeDropped, err
	}

	return e.dispatcher.Dispatch(ctx, e.buildJob(tr.ID, &rec, rt, fp))
}

// buildJob assembles the dispatch payload: non-empty translatable fields plus
// the protected-term list for the record.
func (e *Engine) buildJob(translationID int64, rec *model.ContentRecord, rt model.RecordType, fp fingerprint.Fingerprint) dispatch.Job {
	values := rec.FieldsFor(e.direction.Source)
	fields := make(map[string]string, len(rt.TranslatableFields))
	for _, name := range rt.TranslatableFields {
		if v := values[name]; v != "" {
			fields[name] = v
		}
	}
	return dispatch.Job{
		TranslationID:  translationID,
		EntityType:     rec.Type,
		EntityID:       rec.ID,
		SourceLang:     e.direction.Source,
		TargetLang:     e.direction.Target,
		Fields:         fields,
		ProtectedTerms: model.ProtectedTermsFor(rec),
		SourceTextHash: fp.TextHash,
	}
}
