package cli

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct{ id, name string }

func pickItem(items []item, ref string) (item, error) {
	return pick("item", items, func(i item) string { return i.id }, func(i item) string { return i.name }, ref)
}

func TestPick(t *testing.T) {
	items := []item{
		{id: "3f2a9c00", name: "Work"},
		{id: "3f7b1100", name: "Life"},
		{id: "a1000000", name: "3f2a9c00x"},
		{id: "b2000000", name: "Twin"},
		{id: "c3000000", name: "twin"},
	}

	got, err := pickItem(items, "3f2a9c00")
	require.NoError(t, err)
	assert.Equal(t, "Work", got.name, "exact id wins")

	got, err = pickItem(items, "3f7")
	require.NoError(t, err)
	assert.Equal(t, "Life", got.name)

	got, err = pickItem(items, "WORK")
	require.NoError(t, err)
	assert.Equal(t, "3f2a9c00", got.id)

	_, err = pickItem(items, "3f")
	assert.ErrorContains(t, err, "ambiguous")

	_, err = pickItem(items, "twin")
	assert.ErrorContains(t, err, "several")

	_, err = pickItem(items, "nope")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = pickItem(items, "")
	assert.ErrorIs(t, err, errUsage)
}

func TestSplitRef(t *testing.T) {
	ref, rest, ok := splitRef("rename", []string{"work", "Deep", "Work"}, "rename")
	require.True(t, ok)
	assert.Equal(t, "work", ref)
	assert.Equal(t, []string{"Deep", "Work"}, rest)

	ref, rest, ok = splitRef("archive", []string{"Deep", "Work"}, "rename")
	require.True(t, ok)
	assert.Equal(t, "Deep Work", ref)
	assert.Empty(t, rest)

	_, _, ok = splitRef("archive", nil, "rename")
	assert.False(t, ok)
	_, _, ok = splitRef("explode", []string{"x"}, "rename")
	assert.False(t, ok)
}

func TestParseWhen(t *testing.T) {
	loc := time.FixedZone("test", 2*3600)
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, loc)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"09:30", time.Date(2025, 3, 10, 9, 30, 0, 0, loc)},
		{"2025-03-01", time.Date(2025, 3, 1, 0, 0, 0, 0, loc)},
		{"2025-03-01T18:45", time.Date(2025, 3, 1, 18, 45, 0, 0, loc)},
		{"2025-03-01T18:45:00Z", time.Date(2025, 3, 1, 18, 45, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseWhen(tt.in, now)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
		})
	}

	_, err := parseWhen("yesterday-ish", now)
	assert.Error(t, err)
}

func TestParseRange(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	_, _, ok, err := parseRange(nil, now)
	require.NoError(t, err)
	assert.False(t, ok)

	from, to, ok, err := parseRange([]string{"today"}, now)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, day, from)
	assert.Equal(t, day.AddDate(0, 0, 1), to)

	from, to, _, err = parseRange([]string{"week"}, now)
	require.NoError(t, err)
	assert.Equal(t, day.AddDate(0, 0, -6), from)
	assert.Equal(t, day.AddDate(0, 0, 1), to)

	from, to, _, err = parseRange([]string{"2025-03-01", "2025-03-05"}, now)
	require.NoError(t, err)
	assert.Equal(t, 4*24*time.Hour, to.Sub(from))

	_, _, _, err = parseRange([]string{"2025-03-05", "2025-03-01"}, now)
	assert.Error(t, err)

	_, _, _, err = parseRange([]string{"a", "b", "c"}, now)
	assert.ErrorIs(t, err, errUsage)
}
