// Package services implements the sync server's record exchange.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/cryptox"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"github.com/dmitrijs2005/timekeeper/internal/server/models"
	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/records"
	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/repomanager"
)

// Ack confirms a pushed record, either newly written or already stored
// with the same version and content.
type Ack struct {
	Kind            string
	ID              string
	AcceptedVersion int64
	ModifiedAt      time.Time
}

type PushResult struct {
	Accepted  []Ack
	Conflicts []common.Conflict
	Cursor    time.Time
}

type RecordService struct {
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	now         func() time.Time
}

func NewRecordService(rm repomanager.RepositoryManager, logger logging.Logger) *RecordService {
	return &RecordService{
		repomanager: rm,
		logger:      logger.With("module", "record_service"),
		now:         time.Now,
	}
}

// Pull returns the user's records modified after since, oldest first.
func (s *RecordService) Pull(ctx context.Context, userID string, since time.Time) ([]models.Record, error) {
	recs, err := s.repomanager.Records().ListModifiedSince(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("pull: %w", err)
	}
	return recs, nil
}

func validateRecord(r *models.Record) error {
	switch {
	case r.Kind == "":
		return &common.ValidationError{Field: "kind", Reason: "empty"}
	case r.ID == "":
		return &common.ValidationError{Field: "id", Reason: "empty"}
	case r.Version < 1:
		return &common.ValidationError{Field: "version", Reason: "must be positive"}
	}
	return nil
}

// stamp returns the server time, moved past latest when the clock has not
// advanced, so ModifiedAt is strictly increasing per user.
func (s *RecordService) stamp(latest time.Time) time.Time {
	t := s.now().UTC()
	if !t.After(latest) {
		t = latest.Add(time.Nanosecond)
	}
	return t
}

// Push stores every record that is new or carries a higher version than the
// stored copy. A record with the stored version and fingerprint is
// acknowledged without a rewrite; anything else is reported as a conflict.
// The whole batch runs in one transaction.
func (s *RecordService) Push(ctx context.Context, userID string, since time.Time, recs []models.Record) (*PushResult, error) {
	for i := range recs {
		if err := validateRecord(&recs[i]); err != nil {
			return nil, err
		}
	}

	var res *PushResult
	err := s.repomanager.InTx(ctx, func(ctx context.Context, repo records.Repository) error {
		var err error
		res, err = s.push(ctx, repo, userID, since, recs)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("push: %w", err)
	}

	s.logger.Info(ctx, "push handled",
		"user", userID, "accepted", len(res.Accepted), "conflicts", len(res.Conflicts))
	return res, nil
}

func (s *RecordService) push(ctx context.Context, repo records.Repository, userID string, since time.Time, recs []models.Record) (*PushResult, error) {
	res := &PushResult{Cursor: since}

	if err := repo.LockUser(ctx, userID); err != nil {
		return nil, err
	}
	latest, err := repo.LatestModifiedAt(ctx, userID)
	if err != nil {
		return nil, err
	}

	accepted := make(map[models.Key]time.Time, len(recs))
	for _, r := range recs {
		stored, err := repo.Get(ctx, userID, r.Kind, r.ID)
		if err != nil {
			return nil, err
		}

		if stored != nil {
			if r.Version == stored.Version && cryptox.Equal(r.Fingerprint, stored.Fingerprint) {
				res.Accepted = append(res.Accepted, Ack{
					Kind: r.Kind, ID: r.ID, AcceptedVersion: stored.Version, ModifiedAt: stored.ModifiedAt,
				})
				accepted[stored.Key()] = stored.ModifiedAt
				continue
			}
			if r.Version <= stored.Version {
				res.Conflicts = append(res.Conflicts, common.Conflict{
					Kind: r.Kind, ID: r.ID, RemoteVersion: stored.Version,
				})
				continue
			}
		}

		latest = s.stamp(latest)
		r.UserID = userID
		r.ModifiedAt = latest
		if err := repo.Put(ctx, &r); err != nil {
			return nil, err
		}
		res.Accepted = append(res.Accepted, Ack{
			Kind: r.Kind, ID: r.ID, AcceptedVersion: r.Version, ModifiedAt: r.ModifiedAt,
		})
		accepted[r.Key()] = r.ModifiedAt
	}

	// The cursor may only move past since when every record modified after
	// it is one this push accepted.
	var (
		cursor = since
		after  int64
	)
	for _, mod := range accepted {
		if !mod.After(since) {
			continue
		}
		after++
		if mod.After(cursor) {
			cursor = mod
		}
	}
	if after == 0 {
		return res, nil
	}
	total, err := repo.CountModifiedSince(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	if total == after {
		res.Cursor = cursor
	}
	return res, nil
}
