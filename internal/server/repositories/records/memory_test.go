package records

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func put(t *testing.T, r *MemoryRepository, user, kind, id string, mod int64) {
	t.Helper()
	require.NoError(t, r.Put(context.Background(), &models.Record{
		UserID: user, Kind: kind, ID: id, Version: 1, ModifiedAt: time.Unix(0, mod),
	}))
}

func TestMemoryRepository_QueriesArePerUser(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	put(t, r, "u1", "tag", "b", 20)
	put(t, r, "u1", "domain", "a", 10)
	put(t, r, "u2", "domain", "x", 30)

	got, err := r.Get(ctx, "u1", "tag", "b")
	require.NoError(t, err)
	require.NotNil(t, got)

	missing, err := r.Get(ctx, "u2", "tag", "b")
	require.NoError(t, err)
	assert.Nil(t, missing)

	recs, err := r.ListModifiedSince(ctx, "u1", time.Unix(0, 5))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "a", recs[0].ID)
	assert.Equal(t, "b", recs[1].ID)

	n, err := r.CountModifiedSince(ctx, "u1", time.Unix(0, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	latest, err := r.LatestModifiedAt(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, time.Unix(0, 20), latest)

	latest, err = r.LatestModifiedAt(ctx, "nobody")
	require.NoError(t, err)
	assert.True(t, latest.IsZero())
}

func TestMemoryRepository_CloneIsIsolatedUntilReplaced(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	put(t, r, "u1", "tag", "a", 1)

	scratch := r.Clone()
	put(t, scratch, "u1", "tag", "b", 2)

	got, _ := r.Get(ctx, "u1", "tag", "b")
	assert.Nil(t, got)

	r.ReplaceWith(scratch)
	got, _ = r.Get(ctx, "u1", "tag", "b")
	assert.NotNil(t, got)
}
