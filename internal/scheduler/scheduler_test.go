// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/olegiv/transync/internal/dispatch"
	"github.com/olegiv/transync/internal/model"
	"github.com/olegiv/transync/internal/store"
	"github.com/olegiv/transync/internal/sync"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "transync-test.db")
	db, err := store.NewDB(dbPath)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := store.Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return store.NewStore(db)
}

type recordingDispatcher struct {
	jobs []dispatch.Job
}

func (d *recordingDispatcher) Dispatch(_ context.Context, job dispatch.Job) (dispatch.Outcome, error) {
	d.jobs = append(d.jobs, job)
	return dispatch.OutcomeEnqueued, nil
}

// seedFailed creates n strain records whose translations are in failed state.
func seedFailed(t *testing.T, s *store.Store, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		rec := model.ContentRecord{
			Type: model.EntityTypeStrain,
			Slug: fmt.Sprintf("strain-%d", i),
			Name: fmt.Sprintf("Strain %d", i),
		}
		rec.SetField("en", "title", fmt.Sprintf("Strain %d guide", i))
		if err := s.SaveContent(ctx, &rec, store.SaveOptions{}); err != nil {
			t.Fatalf("SaveContent: %v", err)
		}
		tr, err := s.EnsureTranslation(ctx, store.CreateTranslationParams{
			EntityType: rec.Type,
			EntityID:   rec.ID,
			SourceLang: "en",
			TargetLang: "es",
		})
		if err != nil {
			t.Fatalf("EnsureTranslation: %v", err)
		}
		if err := s.MarkTranslationFailed(ctx, tr.ID, "provider timeout"); err != nil {
			t.Fatalf("MarkTranslationFailed: %v", err)
		}
	}
}

func TestRetryFailedRedispatches(t *testing.T) {
	s := testStore(t)
	seedFailed(t, s, 3)

	d := &recordingDispatcher{}
	engine := sync.New(s, d, sync.Config{
		Direction:     model.Direction{Source: "en", Target: "es"},
		AutoTranslate: true,
	}, nil)

	sched := New(s, engine, "@hourly", 10, nil)
	retried, err := sched.RetryFailed(context.Background(), "")
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if retried != 3 {
		t.Fatalf("retried = %d, want 3", retried)
	}
	if len(d.jobs) != 3 {
		t.Fatalf("jobs = %d, want 3", len(d.jobs))
	}

	counts, err := s.CountTranslationsByStatus(context.Background())
	if err != nil {
		t.Fatalf("CountTranslationsByStatus: %v", err)
	}
	if counts[model.StatusFailed] != 0 {
		t.Errorf("failed = %d, want 0", counts[model.StatusFailed])
	}
	if counts[model.StatusOutdated] != 3 {
		t.Errorf("outdated = %d, want 3", counts[model.StatusOutdated])
	}
}

func TestRetryFailedHonorsBatchMax(t *testing.T) {
	s := testStore(t)
	seedFailed(t, s, 5)

	d := &recordingDispatcher{}
	engine := sync.New(s, d, sync.Config{
		Direction:     model.Direction{Source: "en", Target: "es"},
		AutoTranslate: true,
	}, nil)

	retried, err := New(s, engine, "@hourly", 2, nil).RetryFailed(context.Background(), "")
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if retried != 2 {
		t.Fatalf("retried = %d, want 2", retried)
	}
}

func TestRetryFailedFiltersByEntityType(t *testing.T) {
	s := testStore(t)
	seedFailed(t, s, 2)

	d := &recordingDispatcher{}
	engine := sync.New(s, d, sync.Config{
		Direction:     model.Direction{Source: "en", Target: "es"},
		AutoTranslate: true,
	}, nil)
	sched := New(s, engine, "@hourly", 10, nil)

	retried, err := sched.RetryFailed(context.Background(), model.EntityTypeArticle)
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if retried != 0 {
		t.Fatalf("retried = %d, want 0 for non-matching type", retried)
	}

	retried, err = sched.RetryFailed(context.Background(), model.EntityTypeStrain)
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if retried != 2 {
		t.Fatalf("retried = %d, want 2", retried)
	}
}

func TestRetryFailedNoopWhenNothingFailed(t *testing.T) {
	s := testStore(t)
	d := &recordingDispatcher{}
	engine := sync.New(s, d, sync.Config{
		Direction: model.Direction{Source: "en", Target: "es"},
	}, nil)

	retried, err := New(s, engine, "@hourly", 10, nil).RetryFailed(context.Background(), "")
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if retried != 0 || len(d.jobs) != 0 {
		t.Fatalf("expected no-op, retried = %d, jobs = %d", retried, len(d.jobs))
	}
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := testStore(t)
	engine := sync.New(s, &recordingDispatcher{}, sync.Config{
		Direction: model.Direction{Source: "en", Target: "es"},
	}, nil)

	sched := New(s, engine, "not a cron spec", 10, nil)
	if err := sched.Start(); err == nil {
		sched.Stop()
		t.Fatal("expected error for invalid cron spec")
	}
}
