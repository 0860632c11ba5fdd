// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/olegiv/transync/internal/provider"
	"github.com/olegiv/transync/internal/store"
)

// WorkerConfig holds worker configuration.
type WorkerConfig struct {
	// JobTimeout bounds one provider call plus commit.
	JobTimeout time.Duration

	// RequestsPerMinute paces provider calls. Zero disables pacing.
	RequestsPerMinute float64
}

// DefaultWorkerConfig returns default worker configuration.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		JobTimeout:        2 * time.Minute,
		RequestsPerMinute: 30,
	}
}

// Worker consumes translation jobs from a queue, one at a time. Jobs for the
// same entity are serialized by the single consumer, so two in-flight
// translations can never race on one record.
type Worker struct {
	queue      Queue
	store      *store.Store
	translator provider.Translator
	limiter    *rate.Limiter
	jobTimeout time.Duration
	logger     *slog.Logger

	wg      sync.WaitGroup
	done    chan struct{}
	mu      sync.Mutex
	running bool
}

// NewWorker creates a worker over a queue.
func NewWorker(queue Queue, st *store.Store, tr provider.Translator, cfg WorkerConfig, logger *slog.Logger) *Worker {
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 2 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60.0), 1)
	}

	return &Worker{
		queue:      queue,
		store:      st,
		translator: tr,
		limiter:    limiter,
		jobTimeout: cfg.JobTimeout,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Start starts the consumer goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("starting translation worker")

	w.wg.Add(1)
	go w.run(ctx)
}

// Stop stops the worker and waits for the in-flight job to finish.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.logger.Info("stopping translation worker")
	close(w.done)
	w.wg.Wait()
	w.logger.Info("translation worker stopped")
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	// Dequeue blocks, so give it a context that ends when Stop is called.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-w.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrQueueClosed) {
				return
			}
			w.logger.Error("dequeue failed", "error", err)
			select {
			case <-time.After(time.Second):
				continue
			case <-ctx.Done():
				return
			}
		}

		if err := w.limiter.Wait(ctx); err != nil {
			return
		}
		w.handle(ctx, job)
	}
}

// handle runs one job. The record is re-read first: if the source moved on or
// the translation is no longer wanted, the job is dropped before spending a
// provider call on it.
func (w *Worker) handle(ctx context.Context, job Job) {
	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	rec, err := w.store.GetTranslationByID(jobCtx, job.TranslationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			w.logger.Info("translation record gone, dropping job",
				"job_id", job.ID, "translation_id", job.TranslationID)
			return
		}
		w.logger.Error("failed to load translation record",
			"job_id", job.ID, "translation_id", job.TranslationID, "error", err)
		return
	}
	if rec.SourceTextHash != job.SourceTextHash {
		w.logger.Info("translation job superseded before execution, dropping",
			"job_id", job.ID,
			"entity_type", job.EntityType,
			"entity_id", job.EntityID)
		return
	}

	outcome, err := process(jobCtx, w.store, w.translator, job, w.logger)
	if err != nil {
		// Already logged and persisted by process.
		return
	}
	w.logger.Debug("job processed", "job_id", job.ID, "outcome", outcome.String())
}
