package domains

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

const columns = `id, name, color, sort_order, created_at, updated_at, deleted_at, archived_at, version, synced_version`

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*models.Domain, error) {
	var (
		d                 models.Domain
		created, updated  int64
		deleted, archived sql.NullInt64
	)
	err := s.Scan(&d.ID, &d.Name, &d.Color, &d.Order, &created, &updated, &deleted, &archived, &d.Version, &d.SyncedVersion)
	if err != nil {
		return nil, err
	}
	d.CreatedAt = dbx.FromNanos(created)
	d.UpdatedAt = dbx.FromNanos(updated)
	d.DeletedAt = dbx.FromNullNanos(deleted)
	d.ArchivedAt = dbx.FromNullNanos(archived)
	return &d, nil
}

func (r *SQLiteRepository) list(ctx context.Context, where string, args ...any) ([]models.Domain, error) {
	query := `SELECT ` + columns + ` FROM domains WHERE ` + where + ` ORDER BY sort_order, name, id`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select domains: %w", err)
	}
	defer rows.Close()

	result := []models.Domain{}
	for rows.Next() {
		d, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan domain: %w", err)
		}
		result = append(result, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate domains: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Domain, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM domains WHERE id = ?`, id)
	d, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get domain %s: %w", id, err)
	}
	return d, nil
}

func (r *SQLiteRepository) ListActive(ctx context.Context) ([]models.Domain, error) {
	return r.list(ctx, `deleted_at IS NULL AND archived_at IS NULL`)
}

func (r *SQLiteRepository) ListArchived(ctx context.Context) ([]models.Domain, error) {
	return r.list(ctx, `deleted_at IS NULL AND archived_at IS NOT NULL`)
}

func (r *SQLiteRepository) ListDirty(ctx context.Context) ([]models.Domain, error) {
	return r.list(ctx, `version > synced_version`)
}

func (r *SQLiteRepository) Insert(ctx context.Context, d *models.Domain) error {
	query := `INSERT INTO domains (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		d.ID, d.Name, d.Color, d.Order,
		dbx.ToNanos(d.CreatedAt), dbx.ToNanos(d.UpdatedAt),
		dbx.NullNanos(d.DeletedAt), dbx.NullNanos(d.ArchivedAt),
		d.Version, d.SyncedVersion)
	if err != nil {
		return fmt.Errorf("failed to insert domain: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, d *models.Domain) error {
	query := `UPDATE domains SET name = ?, color = ?, sort_order = ?, updated_at = ?,
			deleted_at = ?, archived_at = ?, version = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		d.Name, d.Color, d.Order, dbx.ToNanos(d.UpdatedAt),
		dbx.NullNanos(d.DeletedAt), dbx.NullNanos(d.ArchivedAt), d.Version, d.ID)
	if err != nil {
		return fmt.Errorf("failed to update domain: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return &common.NotFoundError{Kind: string(models.KindDomain), ID: d.ID}
	}
	return nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, d *models.Domain) error {
	query := `INSERT INTO domains (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name,
			color = excluded.color,
			sort_order = excluded.sort_order,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			deleted_at = excluded.deleted_at,
			archived_at = excluded.archived_at,
			version = excluded.version,
			synced_version = excluded.synced_version`
	_, err := r.db.ExecContext(ctx, query,
		d.ID, d.Name, d.Color, d.Order,
		dbx.ToNanos(d.CreatedAt), dbx.ToNanos(d.UpdatedAt),
		dbx.NullNanos(d.DeletedAt), dbx.NullNanos(d.ArchivedAt),
		d.Version, d.SyncedVersion)
	if err != nil {
		return fmt.Errorf("failed to upsert domain: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, version int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE domains SET synced_version = ? WHERE id = ? AND version = ?`, version, id, version)
	if err != nil {
		return false, fmt.Errorf("failed to mark domain synced: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return ra == 1, nil
}

func (r *SQLiteRepository) PurgeDeleted(ctx context.Context, cutoff time.Time, requireSynced bool) (int64, error) {
	query := `DELETE FROM domains WHERE deleted_at IS NOT NULL AND deleted_at <= ?`
	if requireSynced {
		query += ` AND synced_version >= version`
	}
	res, err := r.db.ExecContext(ctx, query, dbx.ToNanos(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to purge domains: %w", err)
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
		`SELECT COUNT(*) FROM domains WHERE deleted_at IS NOT NULL AND deleted_at <= ? AND synced_version < version`,
		dbx.ToNanos(cutoff)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count domain tombstones: %w", err)
	}
	return n, nil
}
