// Package records stores pushed entity envelopes per user.
package records

import (
	"context"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/server/models"
)

// Repository is the storage used by the sync service. Implementations bound
// to a transaction see their own writes.
type Repository interface {
	// LockUser serializes writers of one user until the surrounding
	// transaction ends.
	LockUser(ctx context.Context, userID string) error
	// Get returns nil, nil when the record has never been pushed.
	Get(ctx context.Context, userID, kind, id string) (*models.Record, error)
	// Put inserts or replaces the record.
	Put(ctx context.Context, r *models.Record) error
	// ListModifiedSince returns records with ModifiedAt > since, oldest first.
	ListModifiedSince(ctx context.Context, userID string, since time.Time) ([]models.Record, error)
	CountModifiedSince(ctx context.Context, userID string, since time.Time) (int64, error)
	// LatestModifiedAt returns the zero time for a user with no records.
	LatestModifiedAt(ctx context.Context, userID string) (time.Time, error)
}
