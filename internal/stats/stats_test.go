package stats

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

func slot(id string, minutes int, tagIDs ...string) models.TimeSlot {
	return models.TimeSlot{
		ID:     id,
		Start:  base,
		End:    base.Add(time.Duration(minutes) * time.Minute),
		TagIDs: tagIDs,
	}
}

func catalog() ([]models.Tag, []models.Domain) {
	domains := []models.Domain{
		{ID: "work", Name: "Work", Color: "#0000FF"},
		{ID: "health", Name: "Health", Color: "#00FF00"},
	}
	tags := []models.Tag{
		{ID: "code", DomainID: "work", Name: "Coding"},
		{ID: "mail", DomainID: "work", Name: "Email"},
		{ID: "run", DomainID: "health", Name: "Running"},
	}
	return tags, domains
}

func find(t *testing.T, stats []DomainStat, id string) DomainStat {
	t.Helper()
	for _, s := range stats {
		if s.DomainID == id {
			return s
		}
	}
	t.Fatalf("domain %s not in stats", id)
	return DomainStat{}
}

func TestSplit_DividesEvenlyAcrossTags(t *testing.T) {
	tags, domains := catalog()
	stats := CalculateDomainStats([]models.TimeSlot{slot("s1", 60, "code", "run")}, tags, domains, ModeSplit)

	assert.InDelta(t, 30, find(t, stats, "work").Minutes, 1e-9)
	assert.InDelta(t, 30, find(t, stats, "health").Minutes, 1e-9)
	assert.InDelta(t, 60, TotalMinutes(stats), 1e-9, "split must conserve the slot duration")
}

func TestPrimary_CreditsFirstTagOnly(t *testing.T) {
	tags, domains := catalog()
	stats := CalculateDomainStats([]models.TimeSlot{slot("s1", 60, "code", "run")}, tags, domains, ModePrimary)

	assert.InDelta(t, 60, find(t, stats, "work").Minutes, 1e-9)
	assert.InDelta(t, 0, find(t, stats, "health").Minutes, 1e-9)
	assert.Empty(t, find(t, stats, "health").Subtags)
}

func TestUntaggedSlot_ContributesNothing(t *testing.T) {
	tags, domains := catalog()
	for _, mode := range []Mode{ModeSplit, ModePrimary} {
		stats := CalculateDomainStats([]models.TimeSlot{slot("s1", 120)}, tags, domains, mode)
		require.Len(t, stats, 2, "every domain is reported")
		for _, s := range stats {
			assert.Zero(t, s.Minutes)
			assert.Zero(t, s.Percentage, "no division by zero")
		}
	}
}

func TestPercentages_SumTo100(t *testing.T) {
	tags, domains := catalog()
	slots := []models.TimeSlot{
		slot("s1", 30, "run"),
		slot("s2", 90, "code"),
	}
	stats := CalculateDomainStats(slots, tags, domains, ModeSplit)

	require.Equal(t, "work", stats[0].DomainID, "sorted by minutes desc")
	assert.InDelta(t, 75.0, stats[0].Percentage, 1e-9)
	assert.InDelta(t, 25.0, stats[1].Percentage, 1e-9)
}

func TestSubtags_FilteredAndSorted(t *testing.T) {
	tags, domains := catalog()
	slots := []models.TimeSlot{
		slot("s1", 20, "code"),
		slot("s2", 40, "mail"),
	}
	stats := CalculateDomainStats(slots, tags, domains, ModeSplit)

	work := find(t, stats, "work")
	require.Len(t, work.Subtags, 2)
	assert.Equal(t, "mail", work.Subtags[0].TagID)
	assert.Equal(t, "code", work.Subtags[1].TagID)
	assert.Equal(t, "Work", work.Subtags[0].DomainName)
}

func TestDomainTies_KeepInputOrder(t *testing.T) {
	tags, domains := catalog()
	stats := CalculateDomainStats(nil, tags, domains, ModeSplit)

	require.Len(t, stats, 2)
	assert.Equal(t, "work", stats[0].DomainID)
	assert.Equal(t, "health", stats[1].DomainID)
}

func TestTagsOfMissingOrDeletedDomains_AreExcluded(t *testing.T) {
	tags, domains := catalog()
	tags = append(tags, models.Tag{ID: "orphan", DomainID: "gone", Name: "Orphan"})
	del := base
	domains[1].DeletedAt = &del

	stats := CalculateDomainStats([]models.TimeSlot{
		slot("s1", 60, "orphan"),
		slot("s2", 60, "run"),
		slot("s3", 60, "code"),
	}, tags, domains, ModeSplit)

	require.Len(t, stats, 1)
	assert.Equal(t, "work", stats[0].DomainID)
	assert.InDelta(t, 60, stats[0].Minutes, 1e-9)
	assert.InDelta(t, 100, stats[0].Percentage, 1e-9)
}

func TestDeletedSlotsAndTags_AreIgnored(t *testing.T) {
	tags, domains := catalog()
	del := base
	tags[1].DeletedAt = &del
	s := slot("s2", 60, "code")
	s.DeletedAt = &del

	stats := CalculateDomainStats([]models.TimeSlot{s, slot("s1", 60, "mail")}, tags, domains, ModeSplit)
	assert.Zero(t, find(t, stats, "work").Minutes)
}

func TestGetTopSubtags(t *testing.T) {
	tags, domains := catalog()
	slots := []models.TimeSlot{
		slot("s1", 10, "code"),
		slot("s2", 50, "run"),
		slot("s3", 10, "mail"),
	}
	stats := CalculateDomainStats(slots, tags, domains, ModeSplit)

	top := GetTopSubtags(stats, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "run", top[0].TagID)
	assert.Equal(t, "code", top[1].TagID, "ties keep encounter order")

	assert.Len(t, GetTopSubtags(stats, 10), 3)
	assert.Empty(t, GetTopSubtags(stats, 0))
	assert.Empty(t, GetTopSubtags(nil, 3))
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0m"},
		{45, "45m"},
		{59.4, "59m"},
		{59.6, "1h"},
		{60, "1h"},
		{90, "1h 30m"},
		{125.2, "2h 5m"},
		{119.6, "2h"},
		{600, "10h"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.in), "FormatDuration(%v)", tt.in)
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("Primary")
	require.NoError(t, err)
	assert.Equal(t, ModePrimary, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeSplit, m)

	_, err = ParseMode("weighted")
	assert.Error(t, err)
}
