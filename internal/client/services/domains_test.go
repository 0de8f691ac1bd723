package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainService_CreateSoftDeleteHidesFromActive(t *testing.T) {
	e := newEnv(t)
	svc := NewDomainService(e.store)
	ctx := context.Background()

	d, err := svc.Create(ctx, "  Work ", "#ff0000", 1)
	require.NoError(t, err)
	assert.Equal(t, "Work", d.Name)
	assert.Equal(t, "#FF0000", d.Color)
	assert.Equal(t, int64(1), d.Version)
	assert.True(t, t0.Equal(d.CreatedAt))

	list, err := svc.GetAllActive(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	e.clock.Advance(time.Minute)
	require.NoError(t, svc.SoftDelete(ctx, d.ID))

	list, err = svc.GetAllActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	row, err := e.store.Repos.Domains(e.store.DB).GetByID(ctx, d.ID)
	require.NoError(t, err)
	require.NotNil(t, row, "soft delete keeps the row")
	assert.Equal(t, int64(2), row.Version)
	require.NotNil(t, row.DeletedAt)
	assert.True(t, t0.Add(time.Minute).Equal(*row.DeletedAt))
}

func TestDomainService_SecondSoftDeleteIsNotFound(t *testing.T) {
	e := newEnv(t)
	svc := NewDomainService(e.store)
	ctx := context.Background()

	d, err := svc.Create(ctx, "Work", "#000000", 0)
	require.NoError(t, err)
	require.NoError(t, svc.SoftDelete(ctx, d.ID))

	err = svc.SoftDelete(ctx, d.ID)
	var nf *common.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, d.ID, nf.ID)

	_, err = svc.Update(ctx, d.ID, models.DomainPatch{})
	require.ErrorIs(t, err, common.ErrNotFound)
	_, err = svc.GetByID(ctx, d.ID)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestDomainService_ReadsAreCachedUntilMutation(t *testing.T) {
	e := newEnv(t)
	svc := NewDomainService(e.store)
	ctx := context.Background()

	_, err := svc.Create(ctx, "Work", "#000000", 0)
	require.NoError(t, err)

	_, err = svc.GetAllActive(ctx)
	require.NoError(t, err)
	_, err = svc.GetAllActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), e.store.Cache.Stats().Hits)

	// A row written behind the cache's back stays invisible until the TTL runs out.
	other := &models.Domain{ID: "sneaky", Name: "Sneaky", Color: "#111111", Lifecycle: models.NewLifecycle(t0)}
	require.NoError(t, e.store.Repos.Domains(e.store.DB).Insert(ctx, other))
	list, err := svc.GetAllActive(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	e.clock.Advance(6 * time.Second)
	list, err = svc.GetAllActive(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = svc.Create(ctx, "Home", "#222222", 0)
	require.NoError(t, err)
	assert.Empty(t, e.store.Cache.Keys(), "create evicts every domains: key")
}

func TestDomainService_ReturnedSliceIsACopy(t *testing.T) {
	e := newEnv(t)
	svc := NewDomainService(e.store)
	ctx := context.Background()

	_, err := svc.Create(ctx, "Work", "#000000", 0)
	require.NoError(t, err)

	list, err := svc.GetAllActive(ctx)
	require.NoError(t, err)
	list[0].Name = "mutated"

	again, err := svc.GetAllActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Work", again[0].Name)
}

func TestDomainService_UpdateAndValidation(t *testing.T) {
	e := newEnv(t)
	svc := NewDomainService(e.store)
	ctx := context.Background()

	_, err := svc.Create(ctx, "", "#000000", 0)
	require.ErrorIs(t, err, common.ErrValidation)
	_, err = svc.Create(ctx, "Work", "red", 0)
	require.ErrorIs(t, err, common.ErrValidation)

	d, err := svc.Create(ctx, "Work", "#000000", 0)
	require.NoError(t, err)

	name := "Job"
	order := 5
	e.clock.Advance(time.Second)
	got, err := svc.Update(ctx, d.ID, models.DomainPatch{Name: &name, Order: &order})
	require.NoError(t, err)
	assert.Equal(t, "Job", got.Name)
	assert.Equal(t, 5, got.Order)
	assert.Equal(t, int64(2), got.Version)
	assert.True(t, t0.Add(time.Second).Equal(got.UpdatedAt))

	bad := "#12"
	_, err = svc.Update(ctx, d.ID, models.DomainPatch{Color: &bad})
	require.ErrorIs(t, err, common.ErrValidation)

	stored, err := svc.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "#000000", stored.Color, "failed update is not persisted")
	assert.Equal(t, int64(2), stored.Version)
}

func TestDomainService_ArchiveUnarchive(t *testing.T) {
	e := newEnv(t)
	svc := NewDomainService(e.store)
	ctx := context.Background()

	d, err := svc.Create(ctx, "Work", "#000000", 0)
	require.NoError(t, err)

	got, err := svc.Archive(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateArchived, got.State())
	assert.Equal(t, int64(2), got.Version)

	got, err = svc.Archive(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version, "archiving twice changes nothing")

	active, err := svc.GetAllActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
	archived, err := svc.GetArchived(ctx)
	require.NoError(t, err)
	require.Len(t, archived, 1)

	got, err = svc.Unarchive(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateActive, got.State())
	assert.Equal(t, int64(3), got.Version)

	archived, err = svc.GetArchived(ctx)
	require.NoError(t, err)
	assert.Empty(t, archived)

	require.NoError(t, svc.SoftDelete(ctx, d.ID))
	_, err = svc.Archive(ctx, d.ID)
	require.ErrorIs(t, err, common.ErrNotFound)
}
