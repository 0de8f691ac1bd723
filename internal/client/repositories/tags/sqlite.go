package tags

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/dbx"
)

const columns = `id, domain_id, name, color, created_at, updated_at, deleted_at, archived_at, version, synced_version`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*models.Tag, error) {
	var (
		t                 models.Tag
		created, updated  int64
		deleted, archived sql.NullInt64
	)
	err := s.Scan(&t.ID, &t.DomainID, &t.Name, &t.Color, &created, &updated, &deleted, &archived, &t.Version, &t.SyncedVersion)
	if err != nil {
		return nil, err
	}
	t.CreatedAt = dbx.FromNanos(created)
	t.UpdatedAt = dbx.FromNanos(updated)
	t.DeletedAt = dbx.FromNullNanos(deleted)
	t.ArchivedAt = dbx.FromNullNanos(archived)
	return &t, nil
}

func (r *SQLiteRepository) list(ctx context.Context, where string, args ...any) ([]models.Tag, error) {
	query := `SELECT ` + columns + ` FROM tags WHERE ` + where + ` ORDER BY name, id`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select tags: %w", err)
	}
	defer rows.Close()

	result := []models.Tag{}
	for rows.Next() {
		t, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		result = append(result, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tags: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Tag, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM tags WHERE id = ?`, id)
	t, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tag %s: %w", id, err)
	}
	return t, nil
}

func (r *SQLiteRepository) ListActive(ctx context.Context) ([]models.Tag, error) {
	return r.list(ctx, `deleted_at IS NULL AND archived_at IS NULL`)
}

func (r *SQLiteRepository) ListArchived(ctx context.Context) ([]models.Tag, error) {
	return r.list(ctx, `deleted_at IS NULL AND archived_at IS NOT NULL`)
}

func (r *SQLiteRepository) ListByDomain(ctx context.Context, domainID string) ([]models.Tag, error) {
	return r.list(ctx, `domain_id = ? AND deleted_at IS NULL AND archived_at IS NULL`, domainID)
}

func (r *SQLiteRepository) ListDirty(ctx context.Context) ([]models.Tag, error) {
	return r.list(ctx, `version > synced_version`)
}

func (r *SQLiteRepository) Insert(ctx context.Context, t *models.Tag) error {
	query := `INSERT INTO tags (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.DomainID, t.Name, t.Color,
		dbx.ToNanos(t.CreatedAt), dbx.ToNanos(t.UpdatedAt),
		dbx.NullNanos(t.DeletedAt), dbx.NullNanos(t.ArchivedAt),
		t.Version, t.SyncedVersion)
	if err != nil {
		return fmt.Errorf("failed to insert tag: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, t *models.Tag) error {
	query := `UPDATE tags SET domain_id = ?, name = ?, color = ?, updated_at = ?,
			deleted_at = ?, archived_at = ?, version = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		t.DomainID, t.Name, t.Color, dbx.ToNanos(t.UpdatedAt),
		dbx.NullNanos(t.DeletedAt), dbx.NullNanos(t.ArchivedAt), t.Version, t.ID)
	if err != nil {
		return fmt.Errorf("failed to update tag: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return &common.NotFoundError{Kind: string(models.KindTag), ID: t.ID}
	}
	return nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, t *models.Tag) error {
	query := `INSERT INTO tags (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET domain_id = excluded.domain_id,
			name = excluded.name,
			color = excluded.color,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			deleted_at = excluded.deleted_at,
			archived_at = excluded.archived_at,
			version = excluded.version,
			synced_version = excluded.synced_version`
	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.DomainID, t.Name, t.Color,
		dbx.ToNanos(t.CreatedAt), dbx.ToNanos(t.UpdatedAt),
		dbx.NullNanos(t.DeletedAt), dbx.NullNanos(t.ArchivedAt),
		t.Version, t.SyncedVersion)
	if err != nil {
		return fmt.Errorf("failed to upsert tag: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, version int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tags SET synced_version = ? WHERE id = ? AND version = ?`, version, id, version)
	if err != nil {
		return false, fmt.Errorf("failed to mark tag synced: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return ra == 1, nil
}

func (r *SQLiteRepository) PurgeDeleted(ctx context.Context, cutoff time.Time, requireSynced bool) (int64, error) {
	query := `DELETE FROM tags WHERE deleted_at IS NOT NULL AND deleted_at <= ?`
	if requireSynced {
		query += ` AND synced_version >= version`
	}
	res, err := r.db.ExecContext(ctx, query, dbx.ToNanos(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to purge tags: %w", err)
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
		`SELECT COUNT(*) FROM tags WHERE deleted_at IS NOT NULL AND deleted_at <= ? AND synced_version < version`,
		dbx.ToNanos(cutoff)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count tag tombstones: %w", err)
	}
	return n, nil
}
