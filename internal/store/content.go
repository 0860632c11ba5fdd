// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/olegiv/transync/internal/model"
)

const contentColumns = `id, record_type, slug, name, fields, created_at, updated_at`

func scanContent(row interface{ Scan(...any) error }) (model.ContentRecord, error) {
	var rec model.ContentRecord
	var fieldsJSON string
	err := row.Scan(&rec.ID, &rec.Type, &rec.Slug, &rec.Name, &fieldsJSON, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return model.ContentRecord{}, err
	}
	if err := json.Unmarshal([]byte(fieldsJSON), &rec.Fields); err != nil {
		return model.ContentRecord{}, fmt.Errorf("decoding content fields: %w", err)
	}
	return rec, nil
}

// GetContentRecord fetches a content record by id.
func (q *Queries) GetContentRecord(ctx context.Context, id int64) (model.ContentRecord, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+contentColumns+` FROM content_records WHERE id = ?`, id)
	rec, err := scanContent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ContentRecord{}, ErrNotFound
	}
	if err != nil {
		return model.ContentRecord{}, fmt.Errorf("getting content record: %w", err)
	}
	return rec, nil
}

// GetContentRecordBySlug fetches a content record by type and slug.
func (q *Queries) GetContentRecordBySlug(ctx context.Context, recordType, slug string) (model.ContentRecord, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+contentColumns+` FROM content_records WHERE record_type = ? AND slug = ?`,
		recordType, slug)
	rec, err := scanContent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ContentRecord{}, ErrNotFound
	}
	if err != nil {
		return model.ContentRecord{}, fmt.Errorf("getting content record by slug: %w", err)
	}
	return rec, nil
}

// ListContentRecordsParams filters content listings for the bulk runner.
// AfterID implements the resume cursor: only records with a larger id are
// returned.
type ListContentRecordsParams struct {
	RecordType string // empty = all types
	IDs        []int64
	AfterID    int64
	Limit      int64 // 0 = no limit
}

// ListContentRecords returns content records ordered by id.
func (q *Queries) ListContentRecords(ctx context.Context, arg ListContentRecordsParams) ([]model.ContentRecord, error) {
	query := `SELECT ` + contentColumns + ` FROM content_records WHERE id > ?`
	args := []any{arg.AfterID}
	if arg.RecordType != "" {
		query += ` AND record_type = ?`
		args = append(args, arg.RecordType)
	}
	if len(arg.IDs) > 0 {
		query += ` AND id IN (`
		for i, id := range arg.IDs {
			if i > 0 {
				query += `,`
			}
			query += `?`
			args = append(args, id)
		}
		query += `)`
	}
	query += ` ORDER BY id`
	if arg.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, arg.Limit)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing content records: %w", err)
	}
	defer rows.Close()

	var records []model.ContentRecord
	for rows.Next() {
		rec, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("listing content records: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing content records: %w", err)
	}
	return records, nil
}

// upsertContentRecord inserts or updates a content record and fills in the
// record's id and timestamps.
func (q *Queries) upsertContentRecord(ctx context.Context, rec *model.ContentRecord) error {
	fieldsJSON, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("encoding content fields: %w", err)
	}
	if rec.Fields == nil {
		fieldsJSON = []byte(`{}`)
	}

	now := time.Now().UTC()
	if rec.ID == 0 {
		res, err := q.db.ExecContext(ctx, `INSERT INTO content_records
			(record_type, slug, name, fields, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			rec.Type, rec.Slug, rec.Name, string(fieldsJSON), now, now)
		if err != nil {
			return fmt.Errorf("inserting content record: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("inserting content record: %w", err)
		}
		rec.ID = id
		rec.CreatedAt = now
	} else {
		res, err := q.db.ExecContext(ctx, `UPDATE content_records
			SET record_type = ?, slug = ?, name = ?, fields = ?, updated_at = ?
			WHERE id = ?`,
			rec.Type, rec.Slug, rec.Name, string(fieldsJSON), now, rec.ID)
		if err != nil {
			return fmt.Errorf("updating content record: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("updating content record: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
	}
	rec.UpdatedAt = now
	return nil
}

// updateContentFields replaces the field map for one language of a record.
func (q *Queries) updateContentFields(ctx context.Context, id int64, lang string, fields map[string]string, now time.Time) error {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+contentColumns+` FROM content_records WHERE id = ?`, id)
	rec, err := scanContent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("updating content fields: %w", err)
	}

	rec.SetFields(lang, fields)
	fieldsJSON, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("encoding content fields: %w", err)
	}
	_, err = q.db.ExecContext(ctx,
		`UPDATE content_records SET fields = ?, updated_at = ? WHERE id = ?`,
		string(fieldsJSON), now, id)
	if err != nil {
		return fmt.Errorf("updating content fields: %w", err)
	}
	return nil
}
