package metadata

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/repotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	return NewSQLiteRepository(repotest.NewDB(t))
}

func TestSetGetDelete(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	v, err := r.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	assert.Nil(t, v, "absent key reads as nil")

	require.NoError(t, r.Set(ctx, KeyAccessToken, []byte("old")))
	require.NoError(t, r.Set(ctx, KeyAccessToken, []byte("new")))
	v, err = r.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), v)

	require.NoError(t, r.Delete(ctx, KeyAccessToken))
	require.NoError(t, r.Delete(ctx, KeyAccessToken), "deleting twice is fine")
	v, err = r.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestDeletePrefix_KeepsOtherKeys(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	require.NoError(t, r.SetTime(ctx, KeyCheckpoint, time.Unix(10, 0)))
	require.NoError(t, r.SetTime(ctx, KeyLastSyncAt, time.Unix(20, 0)))
	require.NoError(t, r.Set(ctx, "syncx", []byte("unrelated")))
	require.NoError(t, r.SetTime(ctx, KeyLastGCAt, time.Unix(30, 0)))

	require.NoError(t, r.DeletePrefix(ctx, SyncPrefix))

	cp, err := r.GetTime(ctx, KeyCheckpoint)
	require.NoError(t, err)
	assert.True(t, cp.IsZero())
	last, err := r.GetTime(ctx, KeyLastSyncAt)
	require.NoError(t, err)
	assert.True(t, last.IsZero())

	v, err := r.Get(ctx, "syncx")
	require.NoError(t, err)
	assert.Equal(t, []byte("unrelated"), v)
	gc, err := r.GetTime(ctx, KeyLastGCAt)
	require.NoError(t, err)
	assert.Equal(t, int64(30), gc.Unix())
}

func TestErrorsAreWrapped(t *testing.T) {
	db := repotest.NewDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	require.NoError(t, db.Close())

	_, err := r.Get(ctx, "k")
	assert.ErrorContains(t, err, "failed to get metadata[k]")
	assert.ErrorContains(t, r.Set(ctx, "k", []byte("v")), "failed to set metadata[k]")
	assert.ErrorContains(t, r.Delete(ctx, "k"), "failed to delete metadata[k]")
	assert.ErrorContains(t, r.DeletePrefix(ctx, "sync."), "failed to delete metadata[sync.*]")
}

func TestTime_RoundTripAndAbsent(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	got, err := r.GetTime(ctx, KeyCheckpoint)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	ts := time.Date(2025, 2, 3, 4, 5, 6, 789, time.UTC)
	require.NoError(t, r.SetTime(ctx, KeyCheckpoint, ts))

	got, err = r.GetTime(ctx, KeyCheckpoint)
	require.NoError(t, err)
	assert.True(t, ts.Equal(got))
}

func TestGetTime_Malformed(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, KeyCheckpoint, []byte("yesterday")))
	_, err := r.GetTime(ctx, KeyCheckpoint)
	assert.ErrorContains(t, err, "malformed metadata")
}
