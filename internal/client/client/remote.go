package client

import (
	"context"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/common"
)

// RemoteStore is the source of truth a sync cycle reconciles against.
type RemoteStore interface {
	// Pull returns every record of userID (tombstones included) modified
	// after since, oldest first.
	Pull(ctx context.Context, userID string, since time.Time) (*PullResult, error)
	// Push offers records to the remote. Records the remote holds a newer or
	// divergent copy of come back as conflicts; the rest are acknowledged.
	Push(ctx context.Context, userID string, since time.Time, records []models.Record) (*PushResult, error)
	Ping(ctx context.Context) error
	Close() error
}

type PullResult struct {
	Records []models.Record
}

// Ack confirms that the remote now holds AcceptedVersion of a record.
type Ack struct {
	Kind            models.Kind
	ID              string
	AcceptedVersion int64
	ModifiedAt      time.Time
}

type PushResult struct {
	Accepted  []Ack
	Conflicts []common.Conflict
	// Cursor is the checkpoint the client may advance to. It equals the
	// since passed to Push unless nothing but this push changed remotely.
	Cursor time.Time
}

// Err reports the conflicts of the push, if any, as a *common.ConflictError.
func (r *PushResult) Err() error {
	if r == nil || len(r.Conflicts) == 0 {
		return nil
	}
	return &common.ConflictError{Conflicts: r.Conflicts}
}
