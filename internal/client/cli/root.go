package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/timekeeper/internal/client/config"
	"github.com/dmitrijs2005/timekeeper/internal/telemetry"
	"github.com/spf13/cobra"
)

// invocation holds what PersistentPreRunE opened for one command run.
type invocation struct {
	app      *App
	shutdown telemetry.Shutdown
}

func (s *invocation) open(cmd *cobra.Command) error {
	ctx := cmd.Context()
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}

	shutdown, err := telemetry.Setup(ctx, "timekeeper-cli", cfg.OTelEndpoint)
	if err != nil {
		return err
	}
	s.shutdown = shutdown

	app, err := NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	app.out = cmd.OutOrStdout()
	app.reader.Reset(cmd.InOrStdin())
	s.app = app
	return nil
}

// run executes fn and then releases what open set up, even when fn
// fails. Background workers started by fn stop with the context.
func (s *invocation) run(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	err := fn(ctx)
	cancel()
	return errors.Join(err, s.close(ctx))
}

func (s *invocation) close(ctx context.Context) error {
	var errs []error
	if s.app != nil {
		errs = append(errs, s.app.Close())
	}
	if s.shutdown != nil {
		errs = append(errs, s.shutdown(context.WithoutCancel(ctx)))
	}
	return errors.Join(errs...)
}

// NewRootCommand builds the timekeeper command tree. Without a sub-command
// it opens the interactive shell with background sync.
func NewRootCommand() *cobra.Command {
	s := &invocation{}

	root := &cobra.Command{
		Use:           "timekeeper",
		Short:         "Local-first time tracking with optional sync",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return s.open(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.run(cmd.Context(), func(ctx context.Context) error {
				s.app.Start(ctx)
				s.app.Root(ctx)
				return nil
			})
		},
	}
	config.RegisterFlags(root.PersistentFlags())

	withArgs := func(use, short string, run func(a *App, ctx context.Context, args []string) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			RunE: func(cmd *cobra.Command, args []string) error {
				return s.run(cmd.Context(), func(ctx context.Context) error {
					return run(s.app, ctx, args)
				})
			},
		}
	}
	noArgs := func(use, short string, run func(a *App, ctx context.Context) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return s.run(cmd.Context(), func(ctx context.Context) error {
					return run(s.app, ctx)
				})
			},
		}
	}

	root.AddCommand(
		withArgs("domains [sub-command]", "List and edit domains", (*App).Domains),
		withArgs("tags [sub-command]", "List and edit tags", (*App).Tags),
		withArgs("slots [sub-command]", "List and log time slots", (*App).Slots),
		withArgs("stats [split|primary] [range]", "Show time per domain", (*App).Stats),
		withArgs("top [n] [split|primary] [range]", "Show the busiest tags", (*App).Top),
		withArgs("signin [token]", "Sign in with a token issued by the sync server", (*App).SignIn),
		noArgs("signout", "Forget the stored token", (*App).SignOut),
		noArgs("sync", "Run one sync cycle", (*App).Sync),
		noArgs("gc", "Erase expired deleted records", (*App).GC),
		noArgs("status", "Show sign-in and sync status", (*App).Status),
	)

	// Sub-commands take free-form arguments such as "add Deep Work".
	for _, c := range root.Commands() {
		c.Flags().SetInterspersed(false)
	}
	return root
}
