// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package dispatch

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/olegiv/transync/internal/model"
	"github.com/olegiv/transync/internal/provider"
	"github.com/olegiv/transync/internal/store"
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

// seedJob creates a strain record with an outdated en-to-es translation and
// returns a job matching the stored source hash.
func seedJob(t *testing.T, s *store.Store) Job {
	t.Helper()
	ctx := context.Background()

	rec := model.ContentRecord{Type: model.EntityTypeStrain, Slug: "northern-lights", Name: "Northern Lights"}
	rec.SetField("en", "title", "Northern Lights strain guide")
	if err := s.SaveContent(ctx, &rec, store.SaveOptions{}); err != nil {
		t.Fatalf("SaveContent: %v", err)
	}

	tr, err := s.EnsureTranslation(ctx, store.CreateTranslationParams{
		EntityType: model.EntityTypeStrain,
		EntityID:   rec.ID,
		SourceLang: "en",
		TargetLang: "es",
	})
	if err != nil {
		t.Fatalf("EnsureTranslation: %v", err)
	}
	if err := s.MarkTranslationOutdated(ctx, store.MarkTranslationOutdatedParams{
		ID:       tr.ID,
		TextHash: "hash-v1",
		RawHash:  "raw-v1",
	}); err != nil {
		t.Fatalf("MarkTranslationOutdated: %v", err)
	}

	return Job{
		TranslationID:  tr.ID,
		EntityType:     model.EntityTypeStrain,
		EntityID:       rec.ID,
		SourceLang:     "en",
		TargetLang:     "es",
		Fields:         map[string]string{"title": "Northern Lights strain guide"},
		SourceTextHash: "hash-v1",
	}
}

// stubTranslator returns a fixed result or error.
type stubTranslator struct {
	mu    sync.Mutex
	calls int
	out   map[string]string
	err   error
}

func (s *stubTranslator) Translate(_ context.Context, _ provider.Request) (map[string]string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.out, nil
}

func (s *stubTranslator) Ping(context.Context) error { return nil }

func (s *stubTranslator) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestInlineDispatchSyncs(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	job := seedJob(t, s)

	tr := &stubTranslator{out: map[string]string{"title": "Guía de Northern Lights"}}
	outcome, err := NewInline(s, tr, 0, nil).Dispatch(ctx, job)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if outcome != OutcomeSynced {
		t.Fatalf("outcome = %s, want synced", outcome)
	}

	rec, err := s.GetTranslationByID(ctx, job.TranslationID)
	if err != nil {
		t.Fatalf("GetTranslationByID: %v", err)
	}
	if rec.Status != model.StatusSynced {
		t.Errorf("status = %s, want synced", rec.Status)
	}

	content, err := s.GetContentRecord(ctx, job.EntityID)
	if err != nil {
		t.Fatalf("GetContentRecord: %v", err)
	}
	if got := content.FieldsFor("es")["title"]; got != "Guía de Northern Lights" {
		t.Errorf("es title = %q", got)
	}
}

func TestInlineDispatchFailureMarksFailed(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	job := seedJob(t, s)

	tr := &stubTranslator{err: &provider.StructuralError{Kind: provider.KindMalformedOutput, Detail: "not json"}}
	outcome, err := NewInline(s, tr, 0, nil).Dispatch(ctx, job)
	if err == nil {
		t.Fatal("expected error")
	}
	if outcome != OutcomeFailed {
		t.Fatalf("outcome = %s, want failed", outcome)
	}

	rec, err := s.GetTranslationByID(ctx, job.TranslationID)
	if err != nil {
		t.Fatalf("GetTranslationByID: %v", err)
	}
	if rec.Status != model.StatusFailed {
		t.Errorf("status = %s, want failed", rec.Status)
	}
	if rec.ErrorDetail == "" {
		t.Error("error detail must be recorded")
	}
}

func TestInlineDispatchStaleDropped(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	job := seedJob(t, s)

	// The source moved on after the job was cut.
	if err := s.MarkTranslationOutdated(ctx, store.MarkTranslationOutdatedParams{
		ID:       job.TranslationID,
		TextHash: "hash-v2",
		RawHash:  "raw-v2",
	}); err != nil {
		t.Fatalf("MarkTranslationOutdated: %v", err)
	}

	tr := &stubTranslator{out: map[string]string{"title": "Guía vieja"}}
	outcome, err := NewInline(s, tr, 0, nil).Dispatch(ctx, job)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if outcome != OutcomeDropped {
		t.Fatalf("outcome = %s, want dropped", outcome)
	}

	content, err := s.GetContentRecord(ctx, job.EntityID)
	if err != nil {
		t.Fatalf("GetContentRecord: %v", err)
	}
	if got := content.FieldsFor("es")["title"]; got != "" {
		t.Errorf("stale result must not be written, got es title %q", got)
	}
}

func TestMemoryQueueFIFO(t *testing.T) {
	q := NewMemoryQueue(10)
	defer q.Close()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := q.Enqueue(ctx, Job{ID: id}); err != nil {
			t.Fatalf("Enqueue(%s): %v", id, err)
		}
	}

	n, err := q.Len(ctx)
	if err != nil || n != 3 {
		t.Fatalf("Len = %d, %v, want 3", n, err)
	}

	for _, want := range []string{"a", "b", "c"} {
		job, err := q.Dequeue(ctx)
		if err != nil {
			t.Fatalf("Dequeue: %v", err)
		}
		if job.ID != want {
			t.Errorf("job.ID = %s, want %s", job.ID, want)
		}
	}
}

func TestMemoryQueueClose(t *testing.T) {
	q := NewMemoryQueue(1)
	if err := q.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if err := q.Enqueue(context.Background(), Job{ID: "x"}); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Enqueue after close = %v, want ErrQueueClosed", err)
	}
	if _, err := q.Dequeue(context.Background()); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Dequeue after close = %v, want ErrQueueClosed", err)
	}
}

func TestMemoryQueueDequeueContextCancel(t *testing.T) {
	q := NewMemoryQueue(1)
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := q.Dequeue(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Dequeue = %v, want deadline exceeded", err)
	}
}

func TestQueuedDispatchEnqueues(t *testing.T) {
	q := NewMemoryQueue(10)
	defer q.Close()
	ctx := context.Background()

	outcome, err := NewQueued(q, nil).Dispatch(ctx, Job{TranslationID: 1, EntityType: model.EntityTypeStrain})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if outcome != OutcomeEnqueued {
		t.Fatalf("outcome = %s, want enqueued", outcome)
	}

	job, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if job.ID == "" {
		t.Error("dispatch must assign a job id")
	}
	if job.EnqueuedAt.IsZero() {
		t.Error("dispatch must stamp enqueue time")
	}
}

func TestWorkerProcessesJob(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	job := seedJob(t, s)

	q := NewMemoryQueue(10)
	defer q.Close()
	tr := &stubTranslator{out: map[string]string{"title": "Guía de Northern Lights"}}

	w := NewWorker(q, s, tr, WorkerConfig{JobTimeout: 10 * time.Second}, nil)
	w.Start(ctx)
	defer w.Stop()

	if _, err := NewQueued(q, nil).Dispatch(ctx, job); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	waitFor(t, func() bool {
		rec, err := s.GetTranslationByID(ctx, job.TranslationID)
		return err == nil && rec.Status == model.StatusSynced
	})
}

func TestWorkerDropsSupersededJob(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	job := seedJob(t, s)

	q := NewMemoryQueue(10)
	defer q.Close()
	tr := &stubTranslator{out: map[string]string{"title": "no importa"}}

	// Supersede before the worker starts.
	if err := s.MarkTranslationOutdated(ctx, store.MarkTranslationOutdatedParams{
		ID:       job.TranslationID,
		TextHash: "hash-v2",
		RawHash:  "raw-v2",
	}); err != nil {
		t.Fatalf("MarkTranslationOutdated: %v", err)
	}
	if err := q.Enqueue(ctx, job); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	w := NewWorker(q, s, tr, WorkerConfig{JobTimeout: 10 * time.Second}, nil)
	w.Start(ctx)

	waitFor(t, func() bool {
		n, err := q.Len(ctx)
		return err == nil && n == 0
	})
	w.Stop()

	if tr.callCount() != 0 {
		t.Errorf("superseded job must not reach the provider, calls = %d", tr.callCount())
	}
	rec, err := s.GetTranslationByID(ctx, job.TranslationID)
	if err != nil {
		t.Fatalf("GetTranslationByID: %v", err)
	}
	if rec.Status != model.StatusOutdated {
		t.Errorf("status = %s, want outdated", rec.Status)
	}
}

func TestWorkerStopIsIdempotent(t *testing.T) {
	q := NewMemoryQueue(1)
	defer q.Close()

	w := NewWorker(q, testStore(t), &stubTranslator{}, DefaultWorkerConfig(), nil)
	w.Start(context.Background())
	w.Stop()
	w.Stop()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
