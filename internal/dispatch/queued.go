// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Queued hands jobs to a queue for asynchronous execution by a worker. The
// content save returns as soon as the job is enqueued.
type Queued struct {
	queue  Queue
	logger *slog.Logger
}

// NewQueued creates a queued dispatcher.
func NewQueued(queue Queue, logger *slog.Logger) *Queued {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queued{queue: queue, logger: logger}
}

// Dispatch implements Dispatcher.
func (d *Queued) Dispatch(ctx context.Context, job Job) (Outcome, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.EnqueuedAt = time.Now().UTC()

	if err := d.queue.Enqueue(ctx, job); err != nil {
		d.logger.Error("failed to enqueue translation job",
			"job_id", job.ID,
			"entity_type", job.EntityType,
			"entity_id", job.EntityID,
			"error", err)
		return OutcomeFailed, err
	}

	d.logger.Debug("translation job enqueued",
		"job_id", job.ID,
		"entity_type", job.EntityType,
		"entity_id", job.EntityID,
		"direction", job.SourceLang+"-to-"+job.TargetLang)
	return OutcomeEnqueued, nil
}

var _ Dispatcher = (*Queued)(nil)
