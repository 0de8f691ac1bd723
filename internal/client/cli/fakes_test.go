package cli

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/client"
	"github.com/dmitrijs2005/timekeeper/internal/client/config"
	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/repotest"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// acceptingRemote takes every push and never has anything to pull.
type acceptingRemote struct {
	mu      sync.Mutex
	pingErr error
	pings   int
	pulls   int
	pushed  []models.Record
	closed  bool
}

func (r *acceptingRemote) Pull(ctx context.Context, userID string, since time.Time) (*client.PullResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pulls++
	return &client.PullResult{}, nil
}

func (r *acceptingRemote) Push(ctx context.Context, userID string, since time.Time, records []models.Record) (*client.PushResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := &client.PushResult{Cursor: since}
	for _, rec := range records {
		r.pushed = append(r.pushed, rec)
		res.Accepted = append(res.Accepted, client.Ack{Kind: rec.Kind, ID: rec.ID, AcceptedVersion: rec.Version, ModifiedAt: time.Now()})
	}
	return res, nil
}

func (r *acceptingRemote) Ping(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pings++
	return r.pingErr
}

func (r *acceptingRemote) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *acceptingRemote) setPingErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pingErr = err
}

type testApp struct {
	*App
	out  *bytes.Buffer
	logs *bytes.Buffer
}

// newTestApp builds an App over an in-memory database. A nil remote means
// the "none" remote.
func newTestApp(t *testing.T, remote client.RemoteStore) *testApp {
	t.Helper()

	cfg := config.Defaults()
	cfg.Remote = config.RemoteNone
	var dial dialer
	if remote != nil {
		cfg.Remote = config.RemoteGRPC
		dial = func(context.Context, client.TokenSource) (client.RemoteStore, error) { return remote, nil }
	}

	var out, logs bytes.Buffer
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))

	app, err := newApp(context.Background(), cfg, repotest.NewDB(t), logger, dial, &out, strings.NewReader(""))
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return &testApp{App: app, out: &out, logs: &logs}
}

// run executes one command line the way the REPL would and returns what it
// printed.
func (ta *testApp) run(t *testing.T, line string) string {
	t.Helper()
	ta.out.Reset()
	parts := strings.Fields(line)
	ctx := context.Background()

	var err error
	switch parts[0] {
	case "domains":
		err = ta.Domains(ctx, parts[1:])
	case "tags":
		err = ta.Tags(ctx, parts[1:])
	case "slots":
		err = ta.Slots(ctx, parts[1:])
	case "stats":
		err = ta.Stats(ctx, parts[1:])
	case "top":
		err = ta.Top(ctx, parts[1:])
	case "sync":
		err = ta.Sync(ctx)
	case "gc":
		err = ta.GC(ctx)
	case "signin":
		err = ta.SignIn(ctx, parts[1:])
	case "signout":
		err = ta.SignOut(ctx)
	case "status":
		err = ta.Status(ctx)
	default:
		t.Fatalf("unknown command %q", parts[0])
	}
	require.NoError(t, err, line)
	return ta.out.String()
}

func signedToken(t *testing.T, userID string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}
