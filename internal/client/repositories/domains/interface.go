// Package domains persists domains in the local SQLite store.
package domains

import (
	"context"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
)

type Repository interface {
	// GetByID returns (nil, nil) when no row exists. Soft-deleted rows are
	// returned; callers decide what a tombstone means to them.
	GetByID(ctx context.Context, id string) (*models.Domain, error)

	// ListActive returns rows that are neither deleted nor archived.
	ListActive(ctx context.Context) ([]models.Domain, error)
	// ListArchived returns archived rows that are not deleted.
	ListArchived(ctx context.Context) ([]models.Domain, error)

	Insert(ctx context.Context, d *models.Domain) error
	// Update overwrites the mutable columns of an existing row, version
	// included. synced_version is left alone.
	Update(ctx context.Context, d *models.Domain) error
	// Upsert writes a row exactly as given, synced_version included. Used
	// when applying remote records.
	Upsert(ctx context.Context, d *models.Domain) error

	// ListDirty returns rows whose version is ahead of synced_version,
	// tombstones included.
	ListDirty(ctx context.Context) ([]models.Domain, error)
	// MarkSynced records that the remote holds version. It only applies when
	// the row is still at that version and reports whether it did.
	MarkSynced(ctx context.Context, id string, version int64) (bool, error)

	// PurgeDeleted erases tombstones deleted at or before cutoff. With
	// requireSynced only tombstones the remote already holds are erased.
	PurgeDeleted(ctx context.Context, cutoff time.Time, requireSynced bool) (int64, error)
	// CountUnsyncedTombstones counts tombstones older than cutoff that have
	// not reached the remote yet.
	CountUnsyncedTombstones(ctx context.Context, cutoff time.Time) (int64, error)
}
