package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/timekeeper/internal/dbx"
)

// DefaultRetention is how long a tombstone is kept before it may be erased.
const DefaultRetention = 7 * 24 * time.Hour

type GCResult struct {
	Erased map[models.Kind]int64
	// Deferred counts expired tombstones kept because the remote has not
	// received them yet.
	Deferred int64
}

func (r *GCResult) Total() int64 {
	var n int64
	for _, v := range r.Erased {
		n += v
	}
	return n
}

type GCService interface {
	Run(ctx context.Context) (*GCResult, error)
}

type gcService struct {
	*Store
	retention     time.Duration
	requireSynced bool
}

// NewGCService erases tombstones older than retention. With requireSynced
// only tombstones already pushed to the remote are erased.
func NewGCService(st *Store, retention time.Duration, requireSynced bool) GCService {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &gcService{Store: st, retention: retention, requireSynced: requireSynced}
}

type tombstoneRepo interface {
	PurgeDeleted(ctx context.Context, cutoff time.Time, requireSynced bool) (int64, error)
	CountUnsyncedTombstones(ctx context.Context, cutoff time.Time) (int64, error)
}

func (s *gcService) repo(tx dbx.DBTX, kind models.Kind) tombstoneRepo {
	switch kind {
	case models.KindDomain:
		return s.Repos.Domains(tx)
	case models.KindTag:
		return s.Repos.Tags(tx)
	default:
		return s.Repos.Slots(tx)
	}
}

// Run sweeps every kind in one transaction.
func (s *gcService) Run(ctx context.Context) (*GCResult, error) {
	now := s.Now()
	cutoff := now.Add(-s.retention)
	res := &GCResult{Erased: make(map[models.Kind]int64, len(models.Kinds))}

	err := s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		for _, kind := range models.Kinds {
			repo := s.repo(tx, kind)

			n, err := repo.PurgeDeleted(ctx, cutoff, s.requireSynced)
			if err != nil {
				return fmt.Errorf("failed to purge %s tombstones: %w", kind, err)
			}
			res.Erased[kind] = n

			if s.requireSynced {
				pending, err := repo.CountUnsyncedTombstones(ctx, cutoff)
				if err != nil {
					return fmt.Errorf("failed to count %s tombstones: %w", kind, err)
				}
				res.Deferred += pending
			}
		}
		return s.Repos.Metadata(tx).SetTime(ctx, metadata.KeyLastGCAt, now)
	})
	if err != nil {
		s.Logger.Error(ctx, "garbage collection failed", "error", err)
		return nil, err
	}

	for kind, n := range res.Erased {
		if n > 0 {
			s.invalidate(kind)
		}
	}

	s.Logger.Info(ctx, "garbage collection finished",
		"erased", res.Total(), "deferred", res.Deferred, "cutoff", cutoff)
	return res, nil
}
