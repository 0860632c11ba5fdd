// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	gosync "sync"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/transync/internal/bulk"
	"github.com/olegiv/transync/internal/model"
	"github.com/olegiv/transync/internal/store"
	"github.com/olegiv/transync/internal/sync"
)

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	store  *store.Store
	engine *sync.Engine
	runner *bulk.Runner
	logger *slog.Logger

	mu          gosync.Mutex
	bulkRunning bool
}

// NewHandler creates a new API handler.
func NewHandler(st *store.Store, engine *sync.Engine, runner *bulk.Runner, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: st, engine: engine, runner: runner, logger: logger}
}

// Routes returns the API route tree, mounted by main under /api/v1.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", h.Health)
	r.Get("/translations", h.ListTranslations)
	r.Get("/translations/status", h.StatusCounts)
	r.Post("/translations/{id}/redispatch", h.Redispatch)
	r.Post("/bulk", h.TriggerBulk)
	r.Get("/events", h.ListEvents)
	return r
}

// Health reports database reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DB().PingContext(r.Context()); err != nil {
		WriteError(w, http.StatusServiceUnavailable, "unavailable", "database unreachable")
		return
	}
	WriteSuccess(w, map[string]string{"status": "ok"}, nil)
}

// ListTranslations returns translation records, filterable by status and
// entity type.
func (h *Handler) ListTranslations(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && !model.ValidStatus(status) {
		WriteBadRequest(w, "unknown status "+strconv.Quote(status))
		return
	}

	limit := int64(100)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			WriteBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := h.store.ListTranslations(r.Context(), store.ListTranslationsParams{
		EntityType: r.URL.Query().Get("type"),
		Status:     status,
		Limit:      limit,
	})
	if err != nil {
		h.logger.Error("listing translations failed", "error", err)
		WriteInternalError(w, "listing translations failed")
		return
	}
	WriteSuccess(w, records, &Meta{Total: len(records)})
}

// StatusCounts returns per-status translation record counts.
func (h *Handler) StatusCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.CountTranslationsByStatus(r.Context())
	if err != nil {
		h.logger.Error("counting translations failed", "error", err)
		WriteInternalError(w, "counting translations failed")
		return
	}
	WriteSuccess(w, counts, nil)
}

// Redispatch forces re-translation of one translation record, bypassing hash
// comparison and clearing a requested skip.
func (h *Handler) Redispatch(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		WriteBadRequest(w, "id must be an integer")
		return
	}

	outcome, err := h.engine.ForceRedispatch(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteNotFound(w, "translation record not found")
			return
		}
		h.logger.Error("forced re-dispatch failed", "translation_id", id, "error", err)
		WriteInternalError(w, "re-dispatch failed")
		return
	}
	WriteSuccess(w, map[string]string{"outcome": outcome.String()}, nil)
}

// bulkRequest is the POST /bulk body. All fields are optional.
type bulkRequest struct {
	RecordTypes []string `json:"record_types"`
	IDs         []int64  `json:"ids"`
	Limit       int      `json:"limit"`
	Force       bool     `json:"force"`
	DryRun      bool     `json:"dry_run"`
	ResumeAfter int64    `json:"resume_after"`
}

// TriggerBulk starts a bulk run in the background. Only one run may be active
// at a time; a second trigger returns 409. Dry runs execute synchronously and
// return the result.
func (h *Handler) TriggerBulk(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteBadRequest(w, "invalid JSON body")
		return
	}

	opts := bulk.Options{
		RecordTypes: req.RecordTypes,
		IDs:         req.IDs,
		Limit:       req.Limit,
		Force:       req.Force,
		DryRun:      req.DryRun,
		ResumeAfter: req.ResumeAfter,
	}

	if req.DryRun {
		res, err := h.runner.Run(r.Context(), opts, nil)
		if err != nil {
			h.logger.Error("bulk dry run failed", "error", err)
			WriteInternalError(w, "bulk dry run failed")
			return
		}
		WriteSuccess(w, res, nil)
		return
	}

	h.mu.Lock()
	if h.bulkRunning {
		h.mu.Unlock()
		WriteConflict(w, "a bulk run is already active")
		return
	}
	h.bulkRunning = true
	h.mu.Unlock()

	go func() {
		defer func() {
			h.mu.Lock()
			h.bulkRunning = false
			h.mu.Unlock()
		}()
		// Detached from the request: the run outlives the HTTP response.
		res, err := h.runner.Run(context.Background(), opts, nil)
		if err != nil {
			h.logger.Error("bulk run failed", "error", err, "result", res)
			return
		}
		h.logger.Info("bulk run completed",
			"examined", res.Examined,
			"synced", res.Synced,
			"failed", res.Failed)
	}()

	WriteJSON(w, http.StatusAccepted, Response{Data: map[string]string{"status": "started"}})
}

// ListEvents returns recent event log entries, newest first.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit := int64(50)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			WriteBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	events, err := h.store.ListRecentEvents(r.Context(), limit)
	if err != nil {
		h.logger.Error("listing events failed", "error", err)
		WriteInternalError(w, "listing events failed")
		return
	}
	WriteSuccess(w, events, &Meta{Total: len(events)})
}
