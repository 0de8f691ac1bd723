// Package server wires the sync server together: configuration, storage,
// tracing and the gRPC endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"github.com/dmitrijs2005/timekeeper/internal/server/auth"
	"github.com/dmitrijs2005/timekeeper/internal/server/config"
	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/timekeeper/internal/server/services"
	"github.com/dmitrijs2005/timekeeper/internal/telemetry"

	gs "github.com/dmitrijs2005/timekeeper/internal/server/grpc"
)

const serviceName = "timekeeper-server"

type App struct {
	config  *config.Config
	logger  logging.Logger
	repos   repomanager.RepositoryManager
	records *services.RecordService
}

// openPostgres is a seam for tests.
var openPostgres = func(ctx context.Context, dsn string) (repomanager.RepositoryManager, error) {
	return repomanager.OpenPostgres(ctx, dsn)
}

func openRepositories(ctx context.Context, c *config.Config, logger logging.Logger) (repomanager.RepositoryManager, error) {
	if c.DatabaseDSN == "" {
		logger.Warn(ctx, "no database DSN configured, records are kept in memory")
		return repomanager.NewMemoryRepositoryManager(), nil
	}

	rm, err := openPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := rm.RunMigrations(ctx); err != nil {
		_ = rm.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}
	return rm, nil
}

// NewApp logs JSON to stdout.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	return newApp(ctx, c, os.Stdout)
}

func newApp(ctx context.Context, c *config.Config, logOut io.Writer) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(logOut, nil)))

	rm, err := openRepositories(ctx, c, logger)
	if err != nil {
		return nil, err
	}

	return &App{
		config:  c,
		logger:  logger,
		repos:   rm,
		records: services.NewRecordService(rm, logger),
	}, nil
}

// Run serves until ctx is done and then releases storage.
func (app *App) Run(ctx context.Context) error {
	app.logger.Info(ctx, "Starting app...")

	shutdown, err := telemetry.Setup(ctx, serviceName, app.config.OTelEndpoint)
	if err != nil {
		app.logger.Warn(ctx, "tracing disabled", "error", err)
	}

	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.records, app.config.SecretKey)
	runErr := s.Run(ctx)
	if runErr != nil {
		app.logger.Error(ctx, runErr.Error())
	}

	stopCtx := context.WithoutCancel(ctx)
	return errors.Join(runErr, shutdown(stopCtx), app.repos.Close())
}

// IssueToken writes a signed access token for c.IssueFor to w. The token is
// the credential a client signs in with.
func IssueToken(w io.Writer, c *config.Config) error {
	tok, err := auth.GenerateToken(c.IssueFor, []byte(c.SecretKey), c.AccessTokenValidityDuration)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, tok)
	return err
}
