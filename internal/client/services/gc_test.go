package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGC_ErasesOnlyExpiredTombstones(t *testing.T) {
	e := newEnv(t)
	domains := NewDomainService(e.store)
	ctx := context.Background()

	old, err := domains.Create(ctx, "Old", "#000000", 0)
	require.NoError(t, err)
	require.NoError(t, domains.SoftDelete(ctx, old.ID))

	e.clock.Advance(3 * 24 * time.Hour)
	recent, err := domains.Create(ctx, "Recent", "#000000", 0)
	require.NoError(t, err)
	require.NoError(t, domains.SoftDelete(ctx, recent.ID))
	_, err = domains.Create(ctx, "Live", "#000000", 0)
	require.NoError(t, err)

	e.clock.Advance(4 * 24 * time.Hour)
	res, err := NewGCService(e.store, DefaultRetention, false).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Erased[models.KindDomain])
	assert.Equal(t, int64(1), res.Total())

	repo := e.store.Repos.Domains(e.store.DB)
	gone, err := repo.GetByID(ctx, old.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
	kept, err := repo.GetByID(ctx, recent.ID)
	require.NoError(t, err)
	assert.NotNil(t, kept)

	last, err := e.store.Repos.Metadata(e.store.DB).GetTime(ctx, metadata.KeyLastGCAt)
	require.NoError(t, err)
	assert.True(t, e.clock.Now().Equal(last))
}

func TestGC_DefersUnsyncedTombstones(t *testing.T) {
	e := newEnv(t)
	_, tg := seedTag(t, e)
	tags := NewTagService(e.store)
	ctx := context.Background()

	require.NoError(t, tags.SoftDelete(ctx, tg.ID))
	e.clock.Advance(8 * 24 * time.Hour)

	gc := NewGCService(e.store, DefaultRetention, true)
	res, err := gc.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Total())
	assert.Equal(t, int64(1), res.Deferred)

	ok, err := e.store.Repos.Tags(e.store.DB).MarkSynced(ctx, tg.ID, 2)
	require.NoError(t, err)
	require.True(t, ok)

	res, err = gc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Erased[models.KindTag])
	assert.Zero(t, res.Deferred)
}

func TestGC_EvictsAffectedPrefixes(t *testing.T) {
	e := newEnv(t)
	domains := NewDomainService(e.store)
	slots := NewSlotService(e.store)
	ctx := context.Background()

	d, err := domains.Create(ctx, "Old", "#000000", 0)
	require.NoError(t, err)
	require.NoError(t, domains.SoftDelete(ctx, d.ID))

	_, err = slots.GetAllActive(ctx)
	require.NoError(t, err)
	_, err = domains.GetArchived(ctx)
	require.NoError(t, err)

	e.clock.Advance(8 * 24 * time.Hour)
	e.store.Cache.InvalidateAll()
	_, err = slots.GetAllActive(ctx)
	require.NoError(t, err)
	_, err = domains.GetArchived(ctx)
	require.NoError(t, err)

	_, err = NewGCService(e.store, 0, false).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"slots:all:active"}, e.store.Cache.Keys())
}
