package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/cache"
	"github.com/dmitrijs2005/timekeeper/internal/client/auth"
	"github.com/dmitrijs2005/timekeeper/internal/client/client"
	"github.com/dmitrijs2005/timekeeper/internal/client/config"
	"github.com/dmitrijs2005/timekeeper/internal/client/services"
	"github.com/dmitrijs2005/timekeeper/internal/filex"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
)

type Mode string

const (
	ModeOffline  Mode = "offline"
	ModeOnline   Mode = "online"
	ModeDisabled Mode = "disabled"
)

// dialer opens the configured remote store once the session exists, since
// the gRPC transport reads its access token from it.
type dialer func(ctx context.Context, tokens client.TokenSource) (client.RemoteStore, error)

type App struct {
	cfg *config.Config
	log logging.Logger

	db      *sql.DB
	store   *services.Store
	domains services.DomainService
	tags    services.TagService
	slots   services.SlotService
	stats   services.StatsService
	gc      services.GCService
	sync    services.SyncService
	session *auth.Session
	remote  client.RemoteStore

	out    io.Writer
	reader *bufio.Reader

	mu          sync.RWMutex
	mode        Mode
	workers     sync.WaitGroup
	closers     []func() error
	unsubscribe func()
}

// NewApp opens the local database and log file named by cfg and connects
// the configured remote.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	if _, err := filex.EnsureParentDir(cfg.LogPath); err != nil {
		return nil, err
	}
	logger, logFile := logging.NewFileLogger(logging.FileOptions{
		Path:       cfg.LogPath,
		Level:      slog.LevelInfo,
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 28,
	})

	if _, err := filex.EnsureParentDir(cfg.DBPath); err != nil {
		_ = logFile.Close()
		return nil, err
	}
	db, err := client.InitDatabase(ctx, cfg.DBPath)
	if err != nil {
		logger.Error(ctx, "error initializing database", "path", cfg.DBPath, "error", err)
		_ = logFile.Close()
		return nil, err
	}

	app, err := newApp(ctx, cfg, db, logger, remoteDialer(cfg), os.Stdout, os.Stdin)
	if err != nil {
		_ = db.Close()
		_ = logFile.Close()
		return nil, err
	}
	app.closers = append(app.closers, db.Close, logFile.Close)
	return app, nil
}

func remoteDialer(cfg *config.Config) dialer {
	return func(ctx context.Context, tokens client.TokenSource) (client.RemoteStore, error) {
		switch cfg.Remote {
		case config.RemoteGRPC:
			return client.NewGRPCClient(cfg.ServerAddr, tokens, cfg.RPCTimeout)
		case config.RemoteS3:
			return client.NewS3Client(ctx, client.S3Options{
				Region:    cfg.S3Region,
				Endpoint:  cfg.S3Endpoint,
				AccessKey: cfg.S3AccessKey,
				SecretKey: cfg.S3SecretKey,
				Bucket:    cfg.S3Bucket,
				Lookback:  cfg.S3Lookback,
			})
		default:
			return nil, nil
		}
	}
}

// newApp wires services over an already migrated database. The caller
// keeps ownership of db and logger.
func newApp(ctx context.Context, cfg *config.Config, db *sql.DB, logger logging.Logger, dial dialer, out io.Writer, in io.Reader) (*App, error) {
	c := cache.New(cache.WithTTL(cfg.CacheTTL))
	store := services.NewStore(db, c, logger)

	session, err := auth.NewSession(ctx, store.Repos.Metadata(db))
	if err != nil {
		return nil, err
	}

	var remote client.RemoteStore
	if cfg.SyncEnabled() && dial != nil {
		remote, err = dial(ctx, session)
		if err != nil {
			return nil, fmt.Errorf("failed to connect %s remote: %w", cfg.Remote, err)
		}
	}

	a := &App{
		cfg:     cfg,
		log:     logger.With("module", "cli"),
		db:      db,
		store:   store,
		domains: services.NewDomainService(store),
		tags:    services.NewTagService(store),
		slots:   services.NewSlotService(store),
		stats:   services.NewStatsService(store),
		gc:      services.NewGCService(store, cfg.GCRetention, cfg.GCRequireSynced && remote != nil),
		session: session,
		remote:  remote,
		out:     out,
		reader:  bufio.NewReader(in),
		mode:    ModeDisabled,
	}
	if remote != nil {
		a.sync = services.NewSyncService(store, remote, session, cfg.MaxConflictRetries)
		a.mode = ModeOffline
		a.closers = append(a.closers, remote.Close)
	} else {
		a.sync = services.NewSyncService(store, nil, session, cfg.MaxConflictRetries)
	}

	a.unsubscribe = session.OnAuthStateChange(func(userID string, signedIn bool) {
		a.log.Info(context.Background(), "auth state changed", "user", userID, "signed_in", signedIn)
		c.InvalidateAll()
	})
	return a, nil
}

// Close waits for the background workers, which stop with the context
// given to Start, then releases the remote, the database and the log file.
func (a *App) Close() error {
	a.workers.Wait()
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	var errs []error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Start sweeps old tombstones and launches the background workers. The
// workers stop when ctx is done.
func (a *App) Start(ctx context.Context) {
	if _, err := a.gc.Run(ctx); err != nil {
		a.log.Warn(ctx, "startup garbage collection failed", "error", err)
	}

	if a.remote == nil {
		return
	}
	a.workers.Add(1)
	go func() {
		defer a.workers.Done()
		a.StartOnlineStatusWatcher(ctx, a.cfg.OnlineCheckInterval)
	}()

	if a.cfg.SyncInterval > 0 {
		done := a.sync.Start(ctx, a.cfg.SyncInterval)
		a.workers.Add(1)
		go func() {
			defer a.workers.Done()
			<-done
		}()
	}
}

func (a *App) Mode() Mode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.mode
}

// setMode reports whether the mode actually changed.
func (a *App) setMode(mode Mode) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mode == mode {
		return false
	}
	a.mode = mode
	a.log.Info(context.Background(), "switched mode", "mode", mode)
	return true
}

// StartOnlineStatusWatcher pings the remote every interval. Coming back
// online triggers a sync so edits made offline go out promptly.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := a.remote.Ping(pingCtx)
			cancel()

			if err != nil {
				a.setMode(ModeOffline)
				continue
			}
			if a.setMode(ModeOnline) {
				if _, err := a.sync.Sync(ctx); err != nil && !errors.Is(err, context.Canceled) {
					a.log.Debug(ctx, "sync after reconnect failed", "error", err)
				}
			}

		case <-ctx.Done():
			return
		}
	}
}

func (a *App) getStatus() string {
	s := ""
	if userID, ok := a.session.CurrentUserID(); ok {
		s = shortID(userID) + " "
	}
	s += string(a.Mode())
	return fmt.Sprintf("(%s)", s)
}
