// Package services is the client's query layer and its background jobs.
//
// Reads are cache-first: a miss loads from SQLite and populates the cache
// under a "<entity>:<qualifier>" key. Every mutation runs in one SQLite
// transaction and, once committed, evicts the whole "<entity>:" prefix so no
// stale list view can be served. The sync engine and the garbage collector
// write the same tables and evict through the same cache.
package services

import (
	"context"
	"database/sql"
	"slices"
	"strconv"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/cache"
	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/client/repositories"
	"github.com/dmitrijs2005/timekeeper/internal/dbx"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"github.com/google/uuid"
)

// Store bundles the collaborators every service shares.
type Store struct {
	DB     *sql.DB
	Repos  repositories.Manager
	Cache  *cache.Cache
	Logger logging.Logger
	Now    func() time.Time
	NewID  func() string
}

// NewStore fills the clock, id generator and repositories with their
// production defaults.
func NewStore(db *sql.DB, c *cache.Cache, logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Store{
		DB:     db,
		Repos:  repositories.NewSQLiteManager(),
		Cache:  c,
		Logger: logger,
		Now:    func() time.Time { return time.Now().UTC() },
		NewID:  uuid.NewString,
	}
}

func (s *Store) inTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return dbx.WithTx(ctx, s.DB, nil, fn)
}

func (s *Store) invalidate(kinds ...models.Kind) {
	for _, k := range kinds {
		s.Cache.InvalidatePattern(k.CachePrefix())
	}
}

// Cache keys.
const (
	keyDomainsActive   = "domains:all:active"
	keyDomainsArchived = "domains:archived"
	keyTagsActive      = "tags:all:active"
	keyTagsArchived    = "tags:archived"
	keySlotsActive     = "slots:all:active"
)

func keyTagsByDomain(domainID string) string {
	return "tags:by-domain:" + domainID
}

func keySlotsRange(from, to time.Time) string {
	return "slots:range:" + strconv.FormatInt(from.UnixNano(), 10) + ":" + strconv.FormatInt(to.UnixNano(), 10)
}

// cachedList serves key from the cache or loads and stores it. Callers get
// their own copy of the slice. A load that overlapped an invalidation is
// returned but not cached.
func cachedList[T any](c *cache.Cache, key string, load func() ([]T, error)) ([]T, error) {
	if v, ok := cache.GetAs[[]T](c, key); ok {
		return slices.Clone(v), nil
	}
	gen := c.Generation()
	v, err := load()
	if err != nil {
		return nil, err
	}
	c.SetIfGeneration(key, v, gen)
	return slices.Clone(v), nil
}
