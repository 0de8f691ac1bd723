package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/client"
	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/dbx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxConflictRetries bounds how often a cycle re-pulls after the
// remote rejected a push.
const DefaultMaxConflictRetries = 3

type SyncState int32

const (
	SyncIdle SyncState = iota
	SyncPulling
	SyncReconciling
	SyncPushing
	SyncFailed
)

func (s SyncState) String() string {
	switch s {
	case SyncIdle:
		return "idle"
	case SyncPulling:
		return "pulling"
	case SyncReconciling:
		return "reconciling"
	case SyncPushing:
		return "pushing"
	case SyncFailed:
		return "failed"
	default:
		return fmt.Sprintf("SyncState(%d)", int32(s))
	}
}

// UserSource tells the sync engine who is signed in.
type UserSource interface {
	CurrentUserID() (string, bool)
}

type SyncResult struct {
	// Skipped is set when another cycle was already running.
	Skipped    bool
	Pulled     int
	Applied    int
	Pushed     int
	Retries    int
	Checkpoint time.Time

	// changed collects kinds whose local rows a committed step rewrote.
	changed map[models.Kind]bool
}

func (r *SyncResult) markChanged(kind models.Kind) {
	if r.changed == nil {
		r.changed = make(map[models.Kind]bool)
	}
	r.changed[kind] = true
}

// changedKinds returns the rewritten kinds in models.Kinds order.
func (r *SyncResult) changedKinds() []models.Kind {
	var out []models.Kind
	for _, k := range models.Kinds {
		if r.changed[k] {
			out = append(out, k)
		}
	}
	return out
}

type SyncService interface {
	Sync(ctx context.Context) (*SyncResult, error)
	// Start triggers Sync every interval until ctx is done. The returned
	// channel is closed when the loop has exited.
	Start(ctx context.Context, interval time.Duration) <-chan struct{}
	State() SyncState
	LastError() error
}

type syncService struct {
	*Store
	remote     client.RemoteStore
	users      UserSource
	maxRetries int
	tracer     trace.Tracer

	busy    atomic.Bool
	state   atomic.Int32
	lastErr atomic.Pointer[error]
}

// NewSyncService returns an engine that refuses to run with
// common.ErrSyncDisabled when remote is nil.
func NewSyncService(st *Store, remote client.RemoteStore, users UserSource, maxRetries int) SyncService {
	if maxRetries < 0 {
		maxRetries = DefaultMaxConflictRetries
	}
	return &syncService{
		Store:      st,
		remote:     remote,
		users:      users,
		maxRetries: maxRetries,
		tracer:     otel.Tracer("github.com/dmitrijs2005/timekeeper/internal/client/services"),
	}
}

func (s *syncService) State() SyncState {
	return SyncState(s.state.Load())
}

func (s *syncService) setState(st SyncState) {
	s.state.Store(int32(st))
}

func (s *syncService) LastError() error {
	if p := s.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

func (s *syncService) Sync(ctx context.Context) (*SyncResult, error) {
	if s.remote == nil {
		return nil, common.ErrSyncDisabled
	}
	userID, ok := s.users.CurrentUserID()
	if !ok {
		return nil, common.ErrNotSignedIn
	}
	if !s.busy.CompareAndSwap(false, true) {
		return &SyncResult{Skipped: true}, nil
	}
	defer s.busy.Store(false)

	ctx, span := s.tracer.Start(ctx, "sync.cycle")
	defer span.End()

	log := s.Logger.With("module", "sync")
	started := s.Now()

	res, err := s.cycle(ctx, span, userID)
	if err != nil {
		s.setState(SyncFailed)
		s.lastErr.Store(&err)
		// Rows committed before the failure must not be hidden by cached views.
		s.invalidate(res.changedKinds()...)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Warn(ctx, "sync cycle failed", "error", err, "retries", res.Retries)
		return res, err
	}

	s.setState(SyncIdle)
	s.lastErr.Store(nil)
	s.Cache.InvalidateAll()

	log.Info(ctx, "sync cycle finished",
		"pulled", res.Pulled, "applied", res.Applied, "pushed", res.Pushed,
		"retries", res.Retries, "checkpoint", res.Checkpoint, "took", s.Now().Sub(started))
	return res, nil
}

func (s *syncService) cycle(ctx context.Context, span trace.Span, userID string) (*SyncResult, error) {
	res := &SyncResult{}

	checkpoint, err := s.Repos.Metadata(s.DB).GetTime(ctx, metadata.KeyCheckpoint)
	if err != nil {
		return res, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	res.Checkpoint = checkpoint

	for attempt := 0; ; attempt++ {
		s.setState(SyncPulling)
		pulled, err := s.remote.Pull(ctx, userID, checkpoint)
		if err != nil {
			return res, fmt.Errorf("pull: %w", err)
		}
		res.Pulled += len(pulled.Records)
		span.AddEvent("pulled", trace.WithAttributes(attribute.Int("records", len(pulled.Records))))

		s.setState(SyncReconciling)
		applied, err := s.reconcile(ctx, res, pulled.Records)
		if err != nil {
			return res, fmt.Errorf("reconcile: %w", err)
		}
		res.Applied += applied
		span.AddEvent("reconciled", trace.WithAttributes(attribute.Int("applied", applied)))

		highWater := checkpoint
		for _, r := range pulled.Records {
			if r.ModifiedAt.After(highWater) {
				highWater = r.ModifiedAt
			}
		}

		s.setState(SyncPushing)
		dirty, err := s.collectDirty(ctx)
		if err != nil {
			return res, fmt.Errorf("collect dirty: %w", err)
		}
		if len(dirty) == 0 {
			res.Checkpoint = highWater
			break
		}

		pushed, err := s.remote.Push(ctx, userID, highWater, dirty)
		if err != nil {
			return res, fmt.Errorf("push: %w", err)
		}
		if err := s.applyAcks(ctx, res, pushed.Accepted); err != nil {
			return res, fmt.Errorf("apply acks: %w", err)
		}
		res.Pushed += len(pushed.Accepted)
		span.AddEvent("pushed", trace.WithAttributes(
			attribute.Int("accepted", len(pushed.Accepted)),
			attribute.Int("conflicts", len(pushed.Conflicts)),
		))

		if err := pushed.Err(); err != nil {
			if attempt >= s.maxRetries {
				return res, err
			}
			res.Retries++
			continue
		}

		res.Checkpoint = highWater
		if pushed.Cursor.After(res.Checkpoint) {
			res.Checkpoint = pushed.Cursor
		}
		break
	}

	err = s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		meta := s.Repos.Metadata(tx)
		if err := meta.SetTime(ctx, metadata.KeyCheckpoint, res.Checkpoint); err != nil {
			return err
		}
		return meta.SetTime(ctx, metadata.KeyLastSyncAt, s.Now())
	})
	if err != nil {
		return res, fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return res, nil
}

// reconcile applies pulled records in one transaction and reports how many
// local rows it overwrote or inserted. Once committed, every pulled kind is
// marked changed on res.
func (s *syncService) reconcile(ctx context.Context, res *SyncResult, records []models.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	applied := 0
	err := s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		for _, r := range records {
			remote, err := r.Entity()
			if err != nil {
				return err
			}
			local, err := s.load(ctx, tx, r.Kind, r.ID)
			if err != nil {
				return err
			}

			ok, err := s.reconcileOne(ctx, tx, local, remote, r)
			if err != nil {
				return fmt.Errorf("%s %s: %w", r.Kind, r.ID, err)
			}
			if ok {
				applied++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	for _, r := range records {
		res.markChanged(r.Kind)
	}
	return applied, nil
}

func (s *syncService) reconcileOne(ctx context.Context, tx dbx.DBTX, local, remote models.Entity, r models.Record) (bool, error) {
	takeRemote := func() (bool, error) {
		remote.Meta().SyncedVersion = r.Version
		return true, s.upsert(ctx, tx, remote)
	}

	if local == nil {
		return takeRemote()
	}

	lm := local.Meta()
	switch {
	case r.Version > lm.Version:
		return takeRemote()
	case r.Version < lm.Version:
		// Local is ahead; it goes out with the next push.
		return false, nil
	case local.Fingerprint() == remote.Fingerprint():
		_, err := s.markSynced(ctx, tx, r.Kind, r.ID, r.Version)
		return false, err
	case !lm.UpdatedAt.After(remote.Meta().UpdatedAt):
		return takeRemote()
	default:
		// Local wins a divergent edit at the same version. Jump past the
		// remote version so the push is accepted.
		lm.Version = r.Version + 1
		return false, s.update(ctx, tx, local)
	}
}

func (s *syncService) load(ctx context.Context, tx dbx.DBTX, kind models.Kind, id string) (models.Entity, error) {
	switch kind {
	case models.KindDomain:
		d, err := s.Repos.Domains(tx).GetByID(ctx, id)
		if err != nil || d == nil {
			return nil, err
		}
		return d, nil
	case models.KindTag:
		t, err := s.Repos.Tags(tx).GetByID(ctx, id)
		if err != nil || t == nil {
			return nil, err
		}
		return t, nil
	case models.KindSlot:
		sl, err := s.Repos.Slots(tx).GetByID(ctx, id)
		if err != nil || sl == nil {
			return nil, err
		}
		return sl, nil
	default:
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
}

func (s *syncService) upsert(ctx context.Context, tx dbx.DBTX, e models.Entity) error {
	switch v := e.(type) {
	case *models.Domain:
		return s.Repos.Domains(tx).Upsert(ctx, v)
	case *models.Tag:
		return s.Repos.Tags(tx).Upsert(ctx, v)
	case *models.TimeSlot:
		return s.Repos.Slots(tx).Upsert(ctx, v)
	default:
		return fmt.Errorf("unsupported entity %T", e)
	}
}

func (s *syncService) update(ctx context.Context, tx dbx.DBTX, e models.Entity) error {
	switch v := e.(type) {
	case *models.Domain:
		return s.Repos.Domains(tx).Update(ctx, v)
	case *models.Tag:
		return s.Repos.Tags(tx).Update(ctx, v)
	case *models.TimeSlot:
		return s.Repos.Slots(tx).Update(ctx, v)
	default:
		return fmt.Errorf("unsupported entity %T", e)
	}
}

func (s *syncService) markSynced(ctx context.Context, tx dbx.DBTX, kind models.Kind, id string, version int64) (bool, error) {
	switch kind {
	case models.KindDomain:
		return s.Repos.Domains(tx).MarkSynced(ctx, id, version)
	case models.KindTag:
		return s.Repos.Tags(tx).MarkSynced(ctx, id, version)
	case models.KindSlot:
		return s.Repos.Slots(tx).MarkSynced(ctx, id, version)
	default:
		return false, fmt.Errorf("unknown kind %q", kind)
	}
}

// collectDirty gathers every row ahead of the remote, domains first so a
// remote that checks references sees parents before children.
func (s *syncService) collectDirty(ctx context.Context) ([]models.Record, error) {
	var entities []models.Entity

	domains, err := s.Repos.Domains(s.DB).ListDirty(ctx)
	if err != nil {
		return nil, err
	}
	for i := range domains {
		entities = append(entities, &domains[i])
	}

	tags, err := s.Repos.Tags(s.DB).ListDirty(ctx)
	if err != nil {
		return nil, err
	}
	for i := range tags {
		entities = append(entities, &tags[i])
	}

	slots, err := s.Repos.Slots(s.DB).ListDirty(ctx)
	if err != nil {
		return nil, err
	}
	for i := range slots {
		entities = append(entities, &slots[i])
	}

	records := make([]models.Record, 0, len(entities))
	for _, e := range entities {
		r, err := models.NewRecord(e)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

func (s *syncService) applyAcks(ctx context.Context, res *SyncResult, acks []client.Ack) error {
	if len(acks) == 0 {
		return nil
	}
	err := s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		for _, a := range acks {
			ok, err := s.markSynced(ctx, tx, a.Kind, a.ID, a.AcceptedVersion)
			if err != nil {
				return err
			}
			if !ok {
				s.Logger.Debug(ctx, "ack for outdated version ignored", "kind", a.Kind, "id", a.ID, "version", a.AcceptedVersion)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, a := range acks {
		res.markChanged(a.Kind)
	}
	return nil
}

func (s *syncService) Start(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if interval <= 0 {
			return
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.Sync(ctx); err != nil && !errors.Is(err, common.ErrNotSignedIn) && !errors.Is(err, common.ErrSyncDisabled) {
					s.Logger.Debug(ctx, "background sync failed", "error", err)
				}
			}
		}
	}()
	return done
}
