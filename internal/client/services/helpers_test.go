package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/cache"
	"github.com/dmitrijs2005/timekeeper/internal/client/client"
	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/repotest"
	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/cryptox"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type env struct {
	store *Store
	clock *testClock
}

func newEnv(t *testing.T) *env {
	t.Helper()
	clock := &testClock{now: t0}
	st := NewStore(repotest.NewDB(t), cache.New(cache.WithClock(clock.Now)), logging.NewNopLogger())
	st.Now = clock.Now
	n := 0
	st.NewID = func() string {
		n++
		return fmt.Sprintf("id-%03d", n)
	}
	return &env{store: st, clock: clock}
}

type signedIn string

func (u signedIn) CurrentUserID() (string, bool) { return string(u), u != "" }

// fakeRemote implements client.RemoteStore in memory with the server's
// acceptance and cursor rules.
type fakeRemote struct {
	mu      sync.Mutex
	records map[string]models.Record
	clock   time.Time

	pullErr error
	pushErr error
	pulls   int
	pushes  int
	// beforePush runs once per push before records are examined.
	beforePush func()
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{records: map[string]models.Record{}, clock: t0}
}

func recordKey(kind models.Kind, id string) string {
	return string(kind) + "/" + id
}

func (f *fakeRemote) tick() time.Time {
	f.clock = f.clock.Add(time.Millisecond)
	return f.clock
}

// put stores e as if another device had pushed it.
func (f *fakeRemote) put(e models.Entity) models.Record {
	r, err := models.NewRecord(e)
	if err != nil {
		panic(err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ModifiedAt = f.tick()
	f.records[recordKey(r.Kind, r.ID)] = r
	return r
}

func (f *fakeRemote) get(kind models.Kind, id string) (models.Record, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[recordKey(kind, id)]
	return r, ok
}

func (f *fakeRemote) changedSince(since time.Time) []models.Record {
	var out []models.Record
	for _, r := range f.records {
		if r.ModifiedAt.After(since) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModifiedAt.Before(out[j].ModifiedAt) })
	return out
}

func (f *fakeRemote) Pull(ctx context.Context, userID string, since time.Time) (*client.PullResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulls++
	if f.pullErr != nil {
		return nil, f.pullErr
	}
	return &client.PullResult{Records: f.changedSince(since)}, nil
}

func (f *fakeRemote) Push(ctx context.Context, userID string, since time.Time, records []models.Record) (*client.PushResult, error) {
	if f.beforePush != nil {
		f.beforePush()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes++
	if f.pushErr != nil {
		return nil, f.pushErr
	}

	res := &client.PushResult{Cursor: since}
	mine := map[string]bool{}
	for _, r := range records {
		key := recordKey(r.Kind, r.ID)
		stored, ok := f.records[key]
		switch {
		case ok && r.Version == stored.Version && cryptox.Equal(r.Fingerprint, stored.Fingerprint):
			res.Accepted = append(res.Accepted, client.Ack{Kind: r.Kind, ID: r.ID, AcceptedVersion: r.Version, ModifiedAt: stored.ModifiedAt})
		case ok && r.Version <= stored.Version:
			res.Conflicts = append(res.Conflicts, common.Conflict{Kind: string(r.Kind), ID: r.ID, RemoteVersion: stored.Version})
		default:
			r.ModifiedAt = f.tick()
			f.records[key] = r
			mine[key] = true
			res.Accepted = append(res.Accepted, client.Ack{Kind: r.Kind, ID: r.ID, AcceptedVersion: r.Version, ModifiedAt: r.ModifiedAt})
		}
	}

	cursor := since
	for _, r := range f.changedSince(since) {
		if !mine[recordKey(r.Kind, r.ID)] {
			return res, nil
		}
		cursor = r.ModifiedAt
	}
	res.Cursor = cursor
	return res, nil
}

func (f *fakeRemote) Ping(ctx context.Context) error { return nil }
func (f *fakeRemote) Close() error                   { return nil }
