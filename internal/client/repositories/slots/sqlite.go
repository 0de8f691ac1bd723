package slots

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/dbx"
)

const columns = `id, start_at, end_at, tag_ids, note, created_at, updated_at, deleted_at, version, synced_version`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(sc scanner) (*models.TimeSlot, error) {
	var (
		s                            models.TimeSlot
		start, end, created, updated int64
		tagIDs                       string
		deleted                      sql.NullInt64
	)
	err := sc.Scan(&s.ID, &start, &end, &tagIDs, &s.Note, &created, &updated, &deleted, &s.Version, &s.SyncedVersion)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tagIDs), &s.TagIDs); err != nil {
		return nil, fmt.Errorf("malformed tag_ids of slot %s: %w", s.ID, err)
	}
	if s.TagIDs == nil {
		s.TagIDs = []string{}
	}
	s.Start = dbx.FromNanos(start)
	s.End = dbx.FromNanos(end)
	s.CreatedAt = dbx.FromNanos(created)
	s.UpdatedAt = dbx.FromNanos(updated)
	s.DeletedAt = dbx.FromNullNanos(deleted)
	return &s, nil
}

func encodeTagIDs(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("failed to encode tag ids: %w", err)
	}
	return string(b), nil
}

func (r *SQLiteRepository) list(ctx context.Context, where string, args ...any) ([]models.TimeSlot, error) {
	query := `SELECT ` + columns + ` FROM time_slots WHERE ` + where + ` ORDER BY start_at, id`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select slots: %w", err)
	}
	defer rows.Close()

	result := []models.TimeSlot{}
	for rows.Next() {
		s, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate slots: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.TimeSlot, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM time_slots WHERE id = ?`, id)
	s, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get slot %s: %w", id, err)
	}
	return s, nil
}

func (r *SQLiteRepository) ListActive(ctx context.Context) ([]models.TimeSlot, error) {
	return r.list(ctx, `deleted_at IS NULL`)
}

func (r *SQLiteRepository) ListInRange(ctx context.Context, from, to time.Time) ([]models.TimeSlot, error) {
	return r.list(ctx, `deleted_at IS NULL AND start_at < ? AND end_at > ?`, dbx.ToNanos(to), dbx.ToNanos(from))
}

func (r *SQLiteRepository) ListDirty(ctx context.Context) ([]models.TimeSlot, error) {
	return r.list(ctx, `version > synced_version`)
}

func (r *SQLiteRepository) Insert(ctx context.Context, s *models.TimeSlot) error {
	tagIDs, err := encodeTagIDs(s.TagIDs)
	if err != nil {
		return err
	}
	query := `INSERT INTO time_slots (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		s.ID, dbx.ToNanos(s.Start), dbx.ToNanos(s.End), tagIDs, s.Note,
		dbx.ToNanos(s.CreatedAt), dbx.ToNanos(s.UpdatedAt), dbx.NullNanos(s.DeletedAt),
		s.Version, s.SyncedVersion)
	if err != nil {
		return fmt.Errorf("failed to insert slot: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, s *models.TimeSlot) error {
	tagIDs, err := encodeTagIDs(s.TagIDs)
	if err != nil {
		return err
	}
	query := `UPDATE time_slots SET start_at = ?, end_at = ?, tag_ids = ?, note = ?,
			updated_at = ?, deleted_at = ?, version = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		dbx.ToNanos(s.Start), dbx.ToNanos(s.End), tagIDs, s.Note,
		dbx.ToNanos(s.UpdatedAt), dbx.NullNanos(s.DeletedAt), s.Version, s.ID)
	if err != nil {
		return fmt.Errorf("failed to update slot: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return &common.NotFoundError{Kind: string(models.KindSlot), ID: s.ID}
	}
	return nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, s *models.TimeSlot) error {
	tagIDs, err := encodeTagIDs(s.TagIDs)
	if err != nil {
		return err
	}
	query := `INSERT INTO time_slots (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET start_at = excluded.start_at,
			end_at = excluded.end_at,
			tag_ids = excluded.tag_ids,
			note = excluded.note,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			deleted_at = excluded.deleted_at,
			version = excluded.version,
			synced_version = excluded.synced_version`
	_, err = r.db.ExecContext(ctx, query,
		s.ID, dbx.ToNanos(s.Start), dbx.ToNanos(s.End), tagIDs, s.Note,
		dbx.ToNanos(s.CreatedAt), dbx.ToNanos(s.UpdatedAt), dbx.NullNanos(s.DeletedAt),
		s.Version, s.SyncedVersion)
	if err != nil {
		return fmt.Errorf("failed to upsert slot: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, version int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE time_slots SET synced_version = ? WHERE id = ? AND version = ?`, version, id, version)
	if err != nil {
		return false, fmt.Errorf("failed to mark slot synced: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return ra == 1, nil
}

func (r *SQLiteRepository) PurgeDeleted(ctx context.Context, cutoff time.Time, requireSynced bool) (int64, error) {
	query := `DELETE FROM time_slots WHERE deleted_at IS NOT NULL AND deleted_at <= ?`
	if requireSynced {
		query += ` AND synced_version >= version`
	}
	res, err := r.db.ExecContext(ctx, query, dbx.ToNanos(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to purge slots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) CountUnsyncedTombstones(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM time_slots WHERE deleted_at IS NOT NULL AND deleted_at <= ? AND synced_version < version`,
		dbx.ToNanos(cutoff)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count slot tombstones: %w", err)
	}
	return n, nil
}
