// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package logging

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/olegiv/transync/internal/model"
	"github.com/olegiv/transync/internal/store"
)

func testDB(t *testing.T) *sql.DB {
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
	return db
}

func recentEvents(t *testing.T, db *sql.DB) []model.Event {
	t.Helper()
	events, err := store.New(db).ListRecentEvents(context.Background(), 100)
	if err != nil {
		t.Fatalf("ListRecentEvents: %v", err)
	}
	return events
}

func TestHandlerWritesWarnAndAbove(t *testing.T) {
	db := testDB(t)
	logger := slog.New(NewEventLogHandler(slog.NewTextHandler(io.Discard, nil), db))

	logger.Info("just info, stays out of the log")
	logger.Warn("provider throttled", "status", 429)
	logger.Error("translation job failed", "entity_id", 7)

	events := recentEvents(t, db)
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	// Newest first.
	if events[0].Level != model.EventLevelError {
		t.Errorf("level = %s, want error", events[0].Level)
	}
	if events[1].Level != model.EventLevelWarning {
		t.Errorf("level = %s, want warning", events[1].Level)
	}
	if !strings.Contains(events[0].Metadata, `"entity_id":"7"`) {
		t.Errorf("metadata = %s", events[0].Metadata)
	}
}

func TestHandlerCategoryExtraction(t *testing.T) {
	db := testDB(t)
	logger := slog.New(NewEventLogHandler(slog.NewTextHandler(io.Discard, nil), db))

	logger.Warn("bulk run stopped early")
	logger.Warn("anything at all", "category", model.EventCategoryConfig)
	logger.Warn("worker dequeue stalled")

	events := recentEvents(t, db)
	if len(events) != 3 {
		t.Fatalf("events = %d, want 3", len(events))
	}
	if events[2].Category != model.EventCategoryBulk {
		t.Errorf("category = %s, want bulk", events[2].Category)
	}
	if events[1].Category != model.EventCategoryConfig {
		t.Errorf("category = %s, want config", events[1].Category)
	}
	if events[0].Category != model.EventCategoryDispatch {
		t.Errorf("category = %s, want dispatch", events[0].Category)
	}
}

func TestHandlerCustomLevel(t *testing.T) {
	db := testDB(t)
	handler := NewEventLogHandlerWithLevel(slog.NewTextHandler(io.Discard, nil), db, slog.LevelInfo)
	logger := slog.New(handler)

	logger.Info("translation synced", "entity_id", 3)

	events := recentEvents(t, db)
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].Level != model.EventLevelInfo {
		t.Errorf("level = %s, want info", events[0].Level)
	}
	if events[0].Category != model.EventCategoryTranslation {
		t.Errorf("category = %s, want translation", events[0].Category)
	}
}

func TestEscapeJSON(t *testing.T) {
	got := escapeJSON("a\"b\\c\nd")
	want := `a\"b\\c\nd`
	if got != want {
		t.Errorf("escapeJSON = %q, want %q", got, want)
	}
}
