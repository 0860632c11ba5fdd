// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/transync/internal/provider"
	"github.com/olegiv/transync/internal/store"
)

const defaultInlineTimeout = 2 * time.Minute

// Inline executes translation jobs synchronously in the caller's goroutine.
// This is the single-process mode: no queue, no worker, the save call blocks
// until the provider answers or the timeout fires.
type Inline struct {
	store      *store.Store
	translator provider.Translator
	timeout    time.Duration
	logger     *slog.Logger
}

// NewInline creates an inline dispatcher.
func NewInline(st *store.Store, tr provider.Translator, timeout time.Duration, logger *slog.Logger) *Inline {
	if timeout <= 0 {
		timeout = defaultInlineTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Inline{store: st, translator: tr, timeout: timeout, logger: logger}
}

// Dispatch implements Dispatcher.
func (d *Inline) Dispatch(ctx context.Context, job Job) (Outcome, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	return process(ctx, d.store, d.translator, job, d.logger)
}

var _ Dispatcher = (*Inline)(nil)
