package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/timekeeper/internal/client/services"
	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/stats"
)

// statsArgs reads "[split|primary] [range...]".
func (a *App) statsArgs(args []string) (stats.Mode, *services.Window, error) {
	mode := stats.ModeSplit
	if len(args) > 0 {
		if m, err := stats.ParseMode(args[0]); err == nil {
			mode, args = m, args[1:]
		}
	}
	from, to, ok, err := parseRange(args, a.now())
	if err != nil || !ok {
		return mode, nil, err
	}
	return mode, &services.Window{From: from, To: to}, nil
}

// Stats prints time per domain with the tags that made it up.
func (a *App) Stats(ctx context.Context, args []string) error {
	mode, window, err := a.statsArgs(args)
	if err != nil {
		return err
	}
	report, err := a.stats.DomainStats(ctx, mode, window)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	for _, d := range report.Domains {
		fmt.Fprintf(w, "%s\t%s\t%.1f%%\n", d.Name, stats.FormatDuration(d.Minutes), d.Percentage)
		for _, st := range d.Subtags {
			fmt.Fprintf(w, "  %s\t%s\t\n", st.Name, stats.FormatDuration(st.Minutes))
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Total: %s (%s attribution)\n", stats.FormatDuration(report.TotalMinutes), report.Mode)
	return nil
}

// Top prints the n tags with the most time.
func (a *App) Top(ctx context.Context, args []string) error {
	n := 5
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v <= 0 {
			return usage("top <n> [split|primary] [range]")
		}
		n, args = v, args[1:]
	}
	mode, window, err := a.statsArgs(args)
	if err != nil {
		return err
	}
	report, err := a.stats.DomainStats(ctx, mode, window)
	if err != nil {
		return err
	}

	top := stats.GetTopSubtags(report.Domains, n)
	if len(top) == 0 {
		fmt.Fprintln(a.out, "Nothing tracked yet.")
		return nil
	}
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	for i, st := range top {
		fmt.Fprintf(w, "%d.\t%s\t%s\t%s\n", i+1, st.Name, st.DomainName, stats.FormatDuration(st.Minutes))
	}
	return w.Flush()
}

// Sync runs one sync cycle in the foreground.
func (a *App) Sync(ctx context.Context) error {
	res, err := a.sync.Sync(ctx)
	switch {
	case errors.Is(err, common.ErrSyncDisabled):
		fmt.Fprintln(a.out, "Sync is disabled: no remote is configured.")
		return nil
	case errors.Is(err, common.ErrNotSignedIn):
		fmt.Fprintln(a.out, "Sign in first (signin <token>).")
		return nil
	case err != nil:
		return fmt.Errorf("sync failed: %w", err)
	case res.Skipped:
		fmt.Fprintln(a.out, "A sync is already running.")
		return nil
	}
	fmt.Fprintf(a.out, "Synced: pulled %d, applied %d, pushed %d", res.Pulled, res.Applied, res.Pushed)
	if res.Retries > 0 {
		fmt.Fprintf(a.out, ", %d conflict retries", res.Retries)
	}
	fmt.Fprintln(a.out)
	return nil
}

// GC erases expired tombstones now.
func (a *App) GC(ctx context.Context) error {
	res, err := a.gc.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Erased %d deleted records", res.Total())
	if res.Deferred > 0 {
		fmt.Fprintf(a.out, ", kept %d not yet synced", res.Deferred)
	}
	fmt.Fprintln(a.out)
	return nil
}

// SignIn stores an access token issued by the sync server. Without an
// argument the token is read from the terminal.
func (a *App) SignIn(ctx context.Context, args []string) error {
	var token string
	if len(args) > 0 {
		token = args[0]
	} else {
		secret, err := GetSecret(a.reader, "Access token", a.out)
		if err != nil {
			return err
		}
		token = secret
	}

	userID, err := a.session.SignIn(ctx, token)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed in as %s\n", userID)

	if a.remote != nil {
		return a.Sync(ctx)
	}
	return nil
}

func (a *App) SignOut(ctx context.Context) error {
	if _, ok := a.session.CurrentUserID(); !ok {
		fmt.Fprintln(a.out, "Not signed in.")
		return nil
	}
	if err := a.session.SignOut(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out. Local data stays on this device.")
	return nil
}

// Status prints who is signed in, the sync state and unsynced changes.
func (a *App) Status(ctx context.Context) error {
	meta := a.store.Repos.Metadata(a.db)
	lastSync, err := meta.GetTime(ctx, metadata.KeyLastSyncAt)
	if err != nil {
		return err
	}
	lastGC, err := meta.GetTime(ctx, metadata.KeyLastGCAt)
	if err != nil {
		return err
	}

	pending := 0
	for _, kind := range models.Kinds {
		n, err := a.countDirty(ctx, kind)
		if err != nil {
			return err
		}
		pending += n
	}

	user := "-"
	if id, ok := a.session.CurrentUserID(); ok {
		user = id
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "User:\t%s\n", user)
	fmt.Fprintf(w, "Remote:\t%s (%s)\n", a.cfg.Remote, a.Mode())
	fmt.Fprintf(w, "Sync:\t%s\n", a.sync.State())
	if lastErr := a.sync.LastError(); lastErr != nil {
		fmt.Fprintf(w, "Last error:\t%v\n", lastErr)
	}
	fmt.Fprintf(w, "Last sync:\t%s\n", formatStamp(lastSync))
	fmt.Fprintf(w, "Last cleanup:\t%s\n", formatStamp(lastGC))
	fmt.Fprintf(w, "Unsynced changes:\t%d\n", pending)
	fmt.Fprintf(w, "Cached lists:\t%d\n", a.store.Cache.Len())
	return w.Flush()
}

func (a *App) countDirty(ctx context.Context, kind models.Kind) (int, error) {
	switch kind {
	case models.KindDomain:
		l, err := a.store.Repos.Domains(a.db).ListDirty(ctx)
		return len(l), err
	case models.KindTag:
		l, err := a.store.Repos.Tags(a.db).ListDirty(ctx)
		return len(l), err
	default:
		l, err := a.store.Repos.Slots(a.db).ListDirty(ctx)
		return len(l), err
	}
}

func formatStamp(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
