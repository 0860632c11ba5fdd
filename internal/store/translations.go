// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/olegiv/transync/internal/model"
)

// maxErrorDetailLen bounds stored failure messages.
const maxErrorDetailLen = 1000

const translationColumns = `id, entity_type, entity_id, source_lang, target_lang, status,
	source_text_hash, source_raw_hash, last_translated_at, error_detail, skip_requested,
	created_at, updated_at`

func scanTranslation(row interface{ Scan(...any) error }) (model.TranslationRecord, error) {
	var rec model.TranslationRecord
	var lastTranslated sql.NullTime
	err := row.Scan(
		&rec.ID, &rec.EntityType, &rec.EntityID, &rec.SourceLang, &rec.TargetLang, &rec.Status,
		&rec.SourceTextHash, &rec.SourceRawHash, &lastTranslated, &rec.ErrorDetail, &rec.SkipRequested,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return model.TranslationRecord{}, err
	}
	if lastTranslated.Valid {
		t := lastTranslated.Time
		rec.LastTranslatedAt = &t
	}
	return rec, nil
}

// GetTranslationParams identifies one translation record.
type GetTranslationParams struct {
	EntityType string
	EntityID   int64
	SourceLang string
	TargetLang string
}

// GetTranslation fetches the translation record for an entity and direction.
func (q *Queries) GetTranslation(ctx context.Context, arg GetTranslationParams) (model.TranslationRecord, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+translationColumns+`
		FROM translation_records
		WHERE entity_type = ? AND entity_id = ? AND source_lang = ? AND target_lang = ?`,
		arg.EntityType, arg.EntityID, arg.SourceLang, arg.TargetLang)
	rec, err := scanTranslation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.TranslationRecord{}, ErrNotFound
	}
	if err != nil {
		return model.TranslationRecord{}, fmt.Errorf("getting translation: %w", err)
	}
	return rec, nil
}

// GetTranslationByID fetches a translation record by primary key.
func (q *Queries) GetTranslationByID(ctx context.Context, id int64) (model.TranslationRecord, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+translationColumns+`
		FROM translation_records WHERE id = ?`, id)
	rec, err := scanTranslation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.TranslationRecord{}, ErrNotFound
	}
	if err != nil {
		return model.TranslationRecord{}, fmt.Errorf("getting translation by id: %w", err)
	}
	return rec, nil
}

// CreateTranslationParams creates a new pending translation record.
type CreateTranslationParams struct {
	EntityType    string
	EntityID      int64
	SourceLang    string
	TargetLang    string
	SkipRequested bool
}

// CreateTranslation inserts a pending record for an entity and direction.
func (q *Queries) CreateTranslation(ctx context.Context, arg CreateTranslationParams) (model.TranslationRecord, error) {
	now := time.Now().UTC()
	res, err := q.db.ExecContext(ctx, `INSERT INTO translation_records
		(entity_type, entity_id, source_lang, target_lang, status, skip_requested, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.EntityType, arg.EntityID, arg.SourceLang, arg.TargetLang,
		model.StatusPending, arg.SkipRequested, now, now)
	if err != nil {
		return model.TranslationRecord{}, fmt.Errorf("creating translation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.TranslationRecord{}, fmt.Errorf("creating translation: %w", err)
	}
	return q.GetTranslationByID(ctx, id)
}

// AdvanceTranslationHashesParams updates hashes without dispatching, used for
// cosmetic-only changes and for explicit skips.
type AdvanceTranslationHashesParams struct {
	ID            int64
	TextHash      string
	RawHash       string
	SkipRequested bool
}

// AdvanceTranslationHashes moves the stored hashes forward and leaves the
// status untouched. After a skip, later cosmetic-only edits compare against
// the skipped content rather than the last translated content.
func (q *Queries) AdvanceTranslationHashes(ctx context.Context, arg AdvanceTranslationHashesParams) error {
	_, err := q.db.ExecContext(ctx, `UPDATE translation_records
		SET source_text_hash = ?, source_raw_hash = ?, skip_requested = ?, updated_at = ?
		WHERE id = ?`,
		arg.TextHash, arg.RawHash, arg.SkipRequested, time.Now().UTC(), arg.ID)
	if err != nil {
		return fmt.Errorf("advancing translation hashes: %w", err)
	}
	return nil
}

// MarkTranslationOutdatedParams transitions a record to outdated ahead of a
// dispatch.
type MarkTranslationOutdatedParams struct {
	ID       int64
	TextHash string
	RawHash  string
}

// MarkTranslationOutdated records the new source hashes and flags the target
// as stale.
func (q *Queries) MarkTranslationOutdated(ctx context.Context, arg MarkTranslationOutdatedParams) error {
	_, err := q.db.ExecContext(ctx, `UPDATE translation_records
		SET status = ?, source_text_hash = ?, source_raw_hash = ?, skip_requested = 0, updated_at = ?
		WHERE id = ?`,
		model.StatusOutdated, arg.TextHash, arg.RawHash, time.Now().UTC(), arg.ID)
	if err != nil {
		return fmt.Errorf("marking translation outdated: %w", err)
	}
	return nil
}

// markTranslationSynced flips a record to synced, guarded by the expected
// source text hash. Returns the number of rows updated; zero means the source
// moved on since the job was computed.
func (q *Queries) markTranslationSynced(ctx context.Context, id int64, expectTextHash string, now time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE translation_records
		SET status = ?, last_translated_at = ?, error_detail = '', updated_at = ?
		WHERE id = ? AND source_text_hash = ?`,
		model.StatusSynced, now, now, id, expectTextHash)
	if err != nil {
		return 0, fmt.Errorf("marking translation synced: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("marking translation synced: %w", err)
	}
	return n, nil
}

// MarkTranslationFailed records a failed dispatch attempt. Long messages are
// truncated on a rune boundary; provider errors often quote non-ASCII text.
func (q *Queries) MarkTranslationFailed(ctx context.Context, id int64, errDetail string) error {
	if len(errDetail) > maxErrorDetailLen {
		cut := maxErrorDetailLen
		for cut > 0 && !utf8.RuneStart(errDetail[cut]) {
			cut--
		}
		errDetail = errDetail[:cut]
	}
	_, err := q.db.ExecContext(ctx, `UPDATE translation_records
		SET status = ?, error_detail = ?, updated_at = ?
		WHERE id = ?`,
		model.StatusFailed, errDetail, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("marking translation failed: %w", err)
	}
	return nil
}

// ListTranslationsParams filters translation record listings.
type ListTranslationsParams struct {
	EntityType string // empty = all
	Status     string // empty = all
	Limit      int64  // 0 = no limit
}

// ListTranslations returns translation records matching the filter, oldest
// first.
func (q *Queries) ListTranslations(ctx context.Context, arg ListTranslationsParams) ([]model.TranslationRecord, error) {
	query := `SELECT ` + translationColumns + ` FROM translation_records WHERE 1=1`
	args := []any{}
	if arg.EntityType != "" {
		query += ` AND entity_type = ?`
		args = append(args, arg.EntityType)
	}
	if arg.Status != "" {
		query += ` AND status = ?`
		args = append(args, arg.Status)
	}
	query += ` ORDER BY id`
	if arg.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, arg.Limit)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing translations: %w", err)
	}
	defer rows.Close()

	var records []model.TranslationRecord
	for rows.Next() {
		rec, err := scanTranslation(rows)
		if err != nil {
			return nil, fmt.Errorf("listing translations: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing translations: %w", err)
	}
	return records, nil
}

// CountTranslationsByStatus returns per-status record counts.
func (q *Queries) CountTranslationsByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM translation_records GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting translations: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("counting translations: %w", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("counting translations: %w", err)
	}
	return counts, nil
}
