package records

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/server/models"
)

type memKey struct {
	user string
	key  models.Key
}

// MemoryRepository keeps records in a map. It backs development servers
// started without a DSN and the service tests.
type MemoryRepository struct {
	mu   sync.RWMutex
	data map[memKey]models.Record
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{data: make(map[memKey]models.Record)}
}

// LockUser is a no-op; callers serialize through the repository manager.
func (r *MemoryRepository) LockUser(ctx context.Context, userID string) error {
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, userID, kind, id string) (*models.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.data[memKey{user: userID, key: models.Key{Kind: kind, ID: id}}]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (r *MemoryRepository) Put(ctx context.Context, rec *models.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.data[memKey{user: rec.UserID, key: rec.Key()}] = *rec
	return nil
}

func (r *MemoryRepository) ListModifiedSince(ctx context.Context, userID string, since time.Time) ([]models.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Record
	for k, rec := range r.data {
		if k.user == userID && rec.ModifiedAt.After(since) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.ModifiedAt.Equal(b.ModifiedAt) {
			return a.ModifiedAt.Before(b.ModifiedAt)
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (r *MemoryRepository) CountModifiedSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	recs, _ := r.ListModifiedSince(ctx, userID, since)
	return int64(len(recs)), nil
}

func (r *MemoryRepository) LatestModifiedAt(ctx context.Context, userID string) (time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest time.Time
	for k, rec := range r.data {
		if k.user == userID && rec.ModifiedAt.After(latest) {
			latest = rec.ModifiedAt
		}
	}
	return latest, nil
}

// Clone returns an independent copy used as a transaction scratch space.
func (r *MemoryRepository) Clone() *MemoryRepository {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c := NewMemoryRepository()
	for k, v := range r.data {
		c.data[k] = v
	}
	return c
}

// ReplaceWith adopts the contents of other, committing a scratch copy.
func (r *MemoryRepository) ReplaceWith(other *MemoryRepository) {
	other.mu.RLock()
	data := other.data
	other.mu.RUnlock()

	r.mu.Lock()
	r.data = data
	r.mu.Unlock()
}
