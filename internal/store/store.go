// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/olegiv/transync/internal/model"
	"github.com/olegiv/transync/internal/util"
)

// SaveEvent carries the old and new snapshots of a committed content write.
// Old is nil when the record was just created.
type SaveEvent struct {
	Record          model.ContentRecord
	Old             *model.ContentRecord
	SkipTranslation bool
}

// SaveHook runs synchronously after a content write commits. The sync engine
// registers itself here; there is no ambient signal mechanism.
type SaveHook func(ctx context.Context, ev SaveEvent)

// Store combines row-level queries with transactional operations and the
// post-commit save hook registry.
type Store struct {
	*Queries
	db *sql.DB

	mu    sync.RWMutex
	hooks []SaveHook
}

// NewStore creates a Store over an open database.
func NewStore(db *sql.DB) *Store {
	return &Store{Queries: New(db), db: db}
}

// DB exposes the underlying connection for collaborators that manage their
// own statements (event log handler, health checks).
func (s *Store) DB() *sql.DB { return s.db }

// OnSave registers a hook invoked after every committed content write.
func (s *Store) OnSave(hook SaveHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// SaveOptions control a content write.
type SaveOptions struct {
	// SkipTranslation requests that this write does not dispatch a
	// translation job even when the change is semantic.
	SkipTranslation bool
}

// SaveContent commits a content record and then notifies registered hooks
// with the old and new snapshots. The hook runs outside the transaction: the
// source-language write stands regardless of what translation dispatch does.
func (s *Store) SaveContent(ctx context.Context, rec *model.ContentRecord, opts SaveOptions) error {
	if rec.Slug == "" {
		rec.Slug = util.Slugify(rec.Name)
	}
	if rec.Slug == "" {
		return errors.New("content record needs a slug or a name to derive one from")
	}

	var old *model.ContentRecord
	if rec.ID != 0 {
		prev, err := s.GetContentRecord(ctx, rec.ID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		if err == nil {
			old = &prev
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("saving content: %w", err)
	}
	if err := s.Queries.WithTx(tx).upsertContentRecord(ctx, rec); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("saving content: %w", err)
	}

	ev := SaveEvent{Record: *rec, Old: old, SkipTranslation: opts.SkipTranslation}
	s.mu.RLock()
	hooks := make([]SaveHook, len(s.hooks))
	copy(hooks, s.hooks)
	s.mu.RUnlock()
	for _, hook := range hooks {
		hook(ctx, ev)
	}
	return nil
}

// EnsureTranslation returns the translation record for an entity and
// direction, creating a pending one on first use.
func (s *Store) EnsureTranslation(ctx context.Context, arg CreateTranslationParams) (model.TranslationRecord, error) {
	rec, err := s.GetTranslation(ctx, GetTranslationParams{
		EntityType: arg.EntityType,
		EntityID:   arg.EntityID,
		SourceLang: arg.SourceLang,
		TargetLang: arg.TargetLang,
	})
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return model.TranslationRecord{}, err
	}
	return s.CreateTranslation(ctx, arg)
}

// CompleteTranslationParams persist a successful provider result.
type CompleteTranslationParams struct {
	TranslationID  int64
	EntityID       int64
	TargetLang     string
	ExpectTextHash string
	Fields         map[string]string
}

// CompleteTranslation writes the translated target fields and flips the
// record to synced in one transaction. The stored source text hash must still
// equal ExpectTextHash; otherwise nothing is written and ErrStaleDispatch is
// returned, so a result computed against superseded content can never
// overwrite a newer edit.
func (s *Store) CompleteTranslation(ctx context.Context, arg CompleteTranslationParams) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("completing translation: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	q := s.Queries.WithTx(tx)
	now := time.Now().UTC()

	n, err := q.markTranslationSynced(ctx, arg.TranslationID, arg.ExpectTextHash, now)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStaleDispatch
	}
	if err := q.updateContentFields(ctx, arg.EntityID, arg.TargetLang, arg.Fields, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("completing translation: %w", err)
	}
	return nil
}
