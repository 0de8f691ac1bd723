package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsService_FreshReadIncludesArchived(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	domains := NewDomainService(e.store)
	tags := NewTagService(e.store)
	slots := NewSlotService(e.store)

	work, err := domains.Create(ctx, "Work", "#000000", 0)
	require.NoError(t, err)
	life, err := domains.Create(ctx, "Life", "#FFFFFF", 1)
	require.NoError(t, err)
	coding, err := tags.Create(ctx, work.ID, "Coding", "#00FF00")
	require.NoError(t, err)
	gym, err := tags.Create(ctx, life.ID, "Gym", "#0000FF")
	require.NoError(t, err)

	_, err = slots.Create(ctx, t0, t0.Add(time.Hour), []string{coding.ID, gym.ID}, "")
	require.NoError(t, err)
	_, err = slots.Create(ctx, t0.Add(time.Hour), t0.Add(2*time.Hour), []string{coding.ID}, "")
	require.NoError(t, err)

	_, err = tags.Archive(ctx, coding.ID)
	require.NoError(t, err)

	svc := NewStatsService(e.store)

	rep, err := svc.DomainStats(ctx, stats.ModeSplit, nil)
	require.NoError(t, err)
	require.Len(t, rep.Domains, 2)
	assert.Equal(t, "Work", rep.Domains[0].Name)
	assert.InDelta(t, 90, rep.Domains[0].Minutes, 1e-9)
	assert.InDelta(t, 75, rep.Domains[0].Percentage, 1e-9)
	assert.InDelta(t, 25, rep.Domains[1].Percentage, 1e-9)
	assert.InDelta(t, 120, rep.TotalMinutes, 1e-9)

	rep, err = svc.DomainStats(ctx, stats.ModePrimary, nil)
	require.NoError(t, err)
	assert.InDelta(t, 120, rep.Domains[0].Minutes, 1e-9)
	assert.InDelta(t, 0, rep.Domains[1].Minutes, 1e-9)

	rep, err = svc.DomainStats(ctx, stats.ModePrimary, &Window{From: t0.Add(90 * time.Minute), To: t0.Add(3 * time.Hour)})
	require.NoError(t, err)
	assert.InDelta(t, 30, rep.TotalMinutes, 1e-9, "slot is clipped to the window")
}
