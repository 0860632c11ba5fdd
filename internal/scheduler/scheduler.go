// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler periodically re-dispatches failed translations. Transient
// provider outages leave records in the failed state; the cron job picks them
// up again without manual intervention.
package scheduler

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/transync/internal/model"
	"github.com/olegiv/transync/internal/store"
	"github.com/olegiv/transync/internal/sync"
)

// Scheduler runs the failed-translation retry job on a cron schedule.
type Scheduler struct {
	store    *store.Store
	engine   *sync.Engine
	cron     *cron.Cron
	spec     string
	batchMax int
	logger   *slog.Logger
}

// New creates a scheduler. spec is a cron expression ("@hourly", "*/10 * * * *");
// batchMax bounds the number of records retried per tick.
func New(st *store.Store, engine *sync.Engine, spec string, batchMax int, logger *slog.Logger) *Scheduler {
	if batchMax <= 0 {
		batchMax = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:    st,
		engine:   engine,
		cron:     cron.New(),
		spec:     spec,
		batchMax: batchMax,
		logger:   logger,
	}
}

// Start registers the retry job and starts the cron loop.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		if _, err := s.RetryFailed(context.Background(), ""); err != nil {
			s.logger.Error("failed-translation retry run errored", "error", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "schedule", s.spec, "batch_max", s.batchMax)
	return nil
}

// Stop gracefully stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// RetryFailed re-dispatches up to batchMax failed translation records, oldest
// first, optionally restricted to one entity type. One record failing again
// does not stop the batch. Returns the number of records re-dispatched.
func (s *Scheduler) RetryFailed(ctx context.Context, entityType string) (int, error) {
	failed, err := s.store.ListTranslations(ctx, store.ListTranslationsParams{
		EntityType: entityType,
		Status:     model.StatusFailed,
		Limit:      int64(s.batchMax),
	})
	if err != nil {
		return 0, err
	}
	if len(failed) == 0 {
		return 0, nil
	}

	s.logger.Info("retrying failed translations", "count", len(failed))

	retried := 0
	for _, rec := range failed {
		if err := ctx.Err(); err != nil {
			return retried, err
		}
		outcome, err := s.engine.ForceRedispatch(ctx, rec.ID)
		if err != nil {
			s.logger.Warn("retry dispatch failed",
				"translation_id", rec.ID,
				"entity_type", rec.EntityType,
				"entity_id", rec.EntityID,
				"error", err)
			continue
		}
		retried++
		s.logger.Info("failed translation re-dispatched",
			"translation_id", rec.ID,
			"entity_type", rec.EntityType,
			"entity_id", rec.EntityID,
			"outcome", outcome.String())
	}
	return retried, nil
}
