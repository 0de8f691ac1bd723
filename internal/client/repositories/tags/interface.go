// Package tags persists tags in the local SQLite store.
package tags

import (
	"context"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
)

// Repository mirrors domains.Repository; see there for the semantics of
// each method.
type Repository interface {
	GetByID(ctx context.Context, id string) (*models.Tag, error)
	ListActive(ctx context.Context) ([]models.Tag, error)
	ListArchived(ctx context.Context) ([]models.Tag, error)
	// ListByDomain returns the active tags of one domain.
	ListByDomain(ctx context.Context, domainID string) ([]models.Tag, error)

	Insert(ctx context.Context, t *models.Tag) error
	Update(ctx context.Context, t *models.Tag) error
	Upsert(ctx context.Context, t *models.Tag) error

	ListDirty(ctx context.Context) ([]models.Tag, error)
	MarkSynced(ctx context.Context, id string, version int64) (bool, error)

	PurgeDeleted(ctx context.Context, cutoff time.Time, requireSynced bool) (int64, error)
	CountUnsyncedTombstones(ctx context.Context, cutoff time.Time) (int64, error)
}
