// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package bulk walks the content catalog and translates everything that needs
// it. Records are processed strictly one at a time in id order, each result
// committed before the next provider call, so an interrupted run loses at
// most the in-flight record and can resume from the last reported id.
package bulk

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/olegiv/transync/internal/dispatch"
	"github.com/olegiv/transync/internal/fingerprint"
	"github.com/olegiv/transync/internal/model"
	"github.com/olegiv/transync/internal/store"
)

const pageSize = 100

// Options control one bulk run.
type Options struct {
	// RecordTypes restricts the run to the named entity types. Empty means
	// every registered type.
	RecordTypes []string

	// IDs restricts the run to specific content record ids.
	IDs []int64

	// ResumeAfter skips content records with id <= ResumeAfter. Pass the
	// LastID of an interrupted run to continue where it stopped.
	ResumeAfter int64

	// Limit caps the number of dispatch attempts. Zero means no cap.
	Limit int

	// Force re-translates records that are already synced and ignores a
	// requested skip.
	Force bool

	// DryRun reports what would be dispatched without writing anything or
	// calling the provider.
	DryRun bool

	// Pause waits this long between provider calls.
	Pause time.Duration

	// RequestsPerMinute paces provider calls as a rate. Takes precedence
	// over Pause. Zero disables pacing.
	RequestsPerMinute float64
}

// Result summarizes a bulk run.
type Result struct {
	Examined   int   // content records looked at
	Dispatched int   // provider calls attempted (or counted, in dry-run)
	Synced     int   // successful commits
	Failed     int   // provider, store or commit failures
	Dropped    int   // results superseded mid-run
	UpToDate   int   // already synced against current content
	Skipped    int   // skip requested, left alone
	NoContent  int   // nothing translatable in the source language
	LastID     int64 // highest content record id processed, resume cursor
}

// Progress is called after each examined record with the action taken.
type Progress func(rec model.ContentRecord, action string)

// Runner executes bulk translation runs.
type Runner struct {
	store      *store.Store
	dispatcher dispatch.Dispatcher
	direction  model.Direction
	logger     *slog.Logger
}

// NewRunner creates a bulk runner. The dispatcher should execute inline:
// the point of a bulk run is that it finishes, not that it enqueues.
func NewRunner(st *store.Store, d dispatch.Dispatcher, direction model.Direction, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{store: st, dispatcher: d, direction: direction, logger: logger}
}

// Run walks the catalog and translates what needs it. Cancellation is
// honored between records; the in-flight provider call also sees it through
// its context. The returned Result is valid even when err is non-nil.
func (r *Runner) Run(ctx context.Context, opts Options, progress Progress) (Result, error) {
	if progress == nil {
		progress = func(model.ContentRecord, string) {}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	switch {
	case opts.RequestsPerMinute > 0:
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerMinute/60.0), 1)
	case opts.Pause > 0:
		limiter = rate.NewLimiter(rate.Every(opts.Pause), 1)
	}

	types := opts.RecordTypes
	if len(types) == 0 {
		types = model.RecordTypeNames()
	}

	var res Result
	r.logger.Info("bulk run starting",
		"types", types,
		"force", opts.Force,
		"dry_run", opts.DryRun,
		"resume_after", opts.ResumeAfter)

	for _, recordType := range types {
		if _, ok := model.RecordTypeFor(recordType); !ok {
			return res, errors.New("unknown record type: " + recordType)
		}
	}

	for _, recordType := range types {
		cursor := opts.ResumeAfter
		for {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			page, err := r.store.ListContentRecords(ctx, store.ListContentRecordsParams{
				RecordType: recordType,
				IDs:        opts.IDs,
				AfterID:    cursor,
				Limit:      pageSize,
			})
			if err != nil {
				return res, err
			}
			if len(page) == 0 {
				break
			}
			for i := range page {
				rec := page[i]
				cursor = rec.ID

				if err := ctx.Err(); err != nil {
					return res, err
				}
				if opts.Limit > 0 && res.Dispatched >= opts.Limit {
					r.logger.Info("bulk run reached dispatch limit", "limit", opts.Limit)
					return res, nil
				}

				action, err := r.processRecord(ctx, &rec, opts, limiter, &res)
				res.Examined++
				res.LastID = rec.ID
				progress(rec, action)
				if err != nil && ctx.Err() != nil {
					return res, ctx.Err()
				}
				// Store errors never reach processRecord's own failure
				// accounting, so they are counted here.
				if action == "error" {
					res.Failed++
					r.logger.Error("bulk record store error",
						"entity_type", rec.Type,
						"entity_id", rec.ID,
						"error", err)
				}
			}
		}
	}

	r.logger.Info("bulk run finished",
		"examined", res.Examined,
		"dispatched", res.Dispatched,
		"synced", res.Synced,
		"failed", res.Failed,
		"up_to_date", res.UpToDate)
	return res, nil
}

// processRecord handles one content record and returns the action taken for
// the progress callback. Provider failures are counted, not returned: one bad
// record must not stop the run.
func (r *Runner) processRecord(ctx context.Context, rec *model.ContentRecord, opts Options, limiter *rate.Limiter, res *Result) (string, error) {
	rt, _ := model.RecordTypeFor(rec.Type)
	if !rec.HasContent(r.direction.Source) {
		res.NoContent++
		return "no_content", nil
	}

	values := rec.FieldsFor(r.direction.Source)
	fp := fingerprint.Compute(fingerprint.FieldsForRecord(rt, values))

	tr, err := r.store.GetTranslation(ctx, store.GetTranslationParams{
		EntityType: rec.Type,
		EntityID:   rec.ID,
		SourceLang: r.direction.Source,
		TargetLang: r.direction.Target,
	})
	known := err == nil
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "error", err
	}

	if known && !opts.Force {
		if tr.SkipRequested {
			res.Skipped++
			return "skipped", nil
		}
		if !tr.NeedsTranslation(fp.TextHash) {
			res.UpToDate++
			return "up_to_date", nil
		}
	}

	if opts.DryRun {
		res.Dispatched++
		return "would_dispatch", nil
	}

	if !known {
		tr, err = r.store.EnsureTranslation(ctx, store.CreateTranslationParams{
			EntityType: rec.Type,
			EntityID:   rec.ID,
			SourceLang: r.direction.Source,
			TargetLang: r.direction.Target,
		})
		if err != nil {
			return "error", err
		}
	}

	if err := limiter.Wait(ctx); err != nil {
		return "cancelled", err
	}

	if err := r.store.MarkTranslationOutdated(ctx, store.MarkTranslationOutdatedParams{
		ID:       tr.ID,
		TextHash: fp.TextHash,
		RawHash:  fp.RawHash,
	}); err != nil {
		return "error", err
	}

	res.Dispatched++
	job := dispatch.Job{
		TranslationID:  tr.ID,
		EntityType:     rec.Type,
		EntityID:       rec.ID,
		SourceLang:     r.direction.Source,
		TargetLang:     r.direction.Target,
		Fields:         translatableValues(rt, values),
		ProtectedTerms: model.ProtectedTermsFor(rec),
		SourceTextHash: fp.TextHash,
	}
	outcome, err := r.dispatcher.Dispatch(ctx, job)
	switch outcome {
	case dispatch.OutcomeSynced, dispatch.OutcomeEnqueued:
		res.Synced++
		return "synced", nil
	case dispatch.OutcomeDropped:
		res.Dropped++
		return "dropped", nil
	default:
		res.Failed++
		r.logger.Warn("bulk record failed",
			"entity_type", rec.Type,
			"entity_id", rec.ID,
			"error", err)
		return "failed", err
	}
}

func translatableValues(rt model.RecordType, values map[string]string) map[string]string {
	fields := make(map[string]string, len(rt.TranslatableFields))
	for _, name := range rt.TranslatableFields {
		if v := values[name]; v != "" {
			fields[name] = v
		}
	}
	return fields
}
