package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/dbx"
	"github.com/dmitrijs2005/timekeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) LockUser(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1));`, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const selectColumns = `user_id, kind, id, version, updated_at, deleted_at, fingerprint, payload, modified_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*models.Record, error) {
	var (
		rec                   models.Record
		updatedAt, modifiedAt int64
		deletedAt             sql.NullInt64
		payload               []byte
	)
	err := s.Scan(&rec.UserID, &rec.Kind, &rec.ID, &rec.Version, &updatedAt, &deletedAt,
		&rec.Fingerprint, &payload, &modifiedAt)
	if err != nil {
		return nil, err
	}
	rec.UpdatedAt = dbx.FromNanos(updatedAt)
	rec.DeletedAt = dbx.FromNullNanos(deletedAt)
	rec.ModifiedAt = dbx.FromNanos(modifiedAt)
	rec.Payload = payload
	return &rec, nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID, kind, id string) (*models.Record, error) {
	query := `SELECT ` + selectColumns + ` FROM records
		WHERE user_id = $1 AND kind = $2 AND id = $3;`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, userID, kind, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) Put(ctx context.Context, rec *models.Record) error {
	query := `INSERT INTO records (` + selectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, kind, id) DO UPDATE SET
			version = EXCLUDED.version,
			updated_at = EXCLUDED.updated_at,
			deleted_at = EXCLUDED.deleted_at,
			fingerprint = EXCLUDED.fingerprint,
			payload = EXCLUDED.payload,
			modified_at = EXCLUDED.modified_at;`

	_, err := r.db.ExecContext(ctx, query,
		rec.UserID, rec.Kind, rec.ID, rec.Version,
		dbx.ToNanos(rec.UpdatedAt), dbx.NullNanos(rec.DeletedAt),
		rec.Fingerprint, string(rec.Payload), dbx.ToNanos(rec.ModifiedAt),
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListModifiedSince(ctx context.Context, userID string, since time.Time) ([]models.Record, error) {
	query := `SELECT ` + selectColumns + ` FROM records
		WHERE user_id = $1 AND modified_at > $2
		ORDER BY modified_at, kind, id;`

	rows, err := r.db.QueryContext(ctx, query, userID, dbx.ToNanos(since))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) CountModifiedSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE user_id = $1 AND modified_at > $2;`,
		userID, dbx.ToNanos(since)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) LatestModifiedAt(ctx context.Context, userID string) (time.Time, error) {
	var latest sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(modified_at) FROM records WHERE user_id = $1;`, userID).Scan(&latest)
	if err != nil {
		return time.Time{}, fmt.Errorf("db error: %w", err)
	}
	if !latest.Valid {
		return time.Time{}, nil
	}
	return dbx.FromNanos(latest.Int64), nil
}
