// Package slots persists time slots in the local SQLite store.
package slots

import (
	"context"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
)

// Repository mirrors domains.Repository. Slots have no archived state.
type Repository interface {
	GetByID(ctx context.Context, id string) (*models.TimeSlot, error)
	ListActive(ctx context.Context) ([]models.TimeSlot, error)
	// ListInRange returns active slots overlapping [from, to), by start time.
	ListInRange(ctx context.Context, from, to time.Time) ([]models.TimeSlot, error)

	Insert(ctx context.Context, s *models.TimeSlot) error
	Update(ctx context.Context, s *models.TimeSlot) error
	Upsert(ctx context.Context, s *models.TimeSlot) error

	ListDirty(ctx context.Context) ([]models.TimeSlot, error)
	MarkSynced(ctx context.Context, id string, version int64) (bool, error)

	PurgeDeleted(ctx context.Context, cutoff time.Time, requireSynced bool) (int64, error)
	CountUnsyncedTombstones(ctx context.Context, cutoff time.Time) (int64, error)
}
