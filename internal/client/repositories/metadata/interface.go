package metadata

import (
	"context"
	"time"
)

// Keys used by the client.
const (
	// KeyCheckpoint holds the last successful sync cursor in the remote's clock.
	KeyCheckpoint = "sync.checkpoint"
	// KeyLastSyncAt holds the local time the last sync cycle succeeded.
	KeyLastSyncAt = "sync.last_success_at"
	// KeyAccessToken holds the signed-in user's token.
	KeyAccessToken = "auth.access_token"
	// KeyLastGCAt holds the local time of the last tombstone sweep.
	KeyLastGCAt = "gc.last_run_at"
	// KeyLastUserID names the user the sync keys belong to.
	KeyLastUserID = "auth.last_user_id"

	// SyncPrefix groups the keys that describe sync progress.
	SyncPrefix = "sync."
)

// Repository is a small key/value store kept next to the entity tables.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error

	// GetTime returns the zero time when key is absent.
	GetTime(ctx context.Context, key string) (time.Time, error)
	SetTime(ctx context.Context, key string, t time.Time) error
}
