package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/dbx"
)

type SlotService interface {
	GetAllActive(ctx context.Context) ([]models.TimeSlot, error)
	// GetArchived always returns an empty list: slots cannot be archived.
	GetArchived(ctx context.Context) ([]models.TimeSlot, error)
	GetInRange(ctx context.Context, from, to time.Time) ([]models.TimeSlot, error)
	GetByID(ctx context.Context, id string) (*models.TimeSlot, error)
	Create(ctx context.Context, start, end time.Time, tagIDs []string, note string) (*models.TimeSlot, error)
	Update(ctx context.Context, id string, patch models.SlotPatch) (*models.TimeSlot, error)
	SoftDelete(ctx context.Context, id string) error
}

type slotService struct {
	*Store
}

func NewSlotService(st *Store) SlotService {
	return &slotService{Store: st}
}

func (s *slotService) GetAllActive(ctx context.Context) ([]models.TimeSlot, error) {
	return cachedList(s.Cache, keySlotsActive, func() ([]models.TimeSlot, error) {
		return s.Repos.Slots(s.DB).ListActive(ctx)
	})
}

func (s *slotService) GetArchived(ctx context.Context) ([]models.TimeSlot, error) {
	return []models.TimeSlot{}, nil
}

func (s *slotService) GetInRange(ctx context.Context, from, to time.Time) ([]models.TimeSlot, error) {
	if !from.Before(to) {
		return nil, &common.ValidationError{Field: "range", Reason: "from must be before to"}
	}
	return cachedList(s.Cache, keySlotsRange(from, to), func() ([]models.TimeSlot, error) {
		return s.Repos.Slots(s.DB).ListInRange(ctx, from, to)
	})
}

func (s *slotService) GetByID(ctx context.Context, id string) (*models.TimeSlot, error) {
	sl, err := s.Repos.Slots(s.DB).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sl == nil || sl.IsDeleted() {
		return nil, &common.NotFoundError{Kind: string(models.KindSlot), ID: id}
	}
	return sl, nil
}

// checkTags rejects references to missing or deleted tags. Archived tags
// are accepted so historical slots stay editable.
func checkTags(ctx context.Context, st *Store, tx dbx.DBTX, ids []string) error {
	repo := st.Repos.Tags(tx)
	for _, id := range ids {
		t, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if t == nil || t.IsDeleted() {
			return &common.ValidationError{Field: "tagIds", Reason: fmt.Sprintf("tag %q does not exist", id)}
		}
	}
	return nil
}

func (s *slotService) Create(ctx context.Context, start, end time.Time, tagIDs []string, note string) (*models.TimeSlot, error) {
	sl := &models.TimeSlot{
		ID:        s.NewID(),
		Start:     start.UTC(),
		End:       end.UTC(),
		TagIDs:    append([]string{}, tagIDs...),
		Note:      note,
		Lifecycle: models.NewLifecycle(s.Now()),
	}
	if err := sl.Validate(); err != nil {
		return nil, err
	}

	err := s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := checkTags(ctx, s.Store, tx, sl.TagIDs); err != nil {
			return err
		}
		return s.Repos.Slots(tx).Insert(ctx, sl)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create slot: %w", err)
	}

	s.invalidate(models.KindSlot)
	return sl, nil
}

func (s *slotService) mutate(ctx context.Context, id string, fn func(ctx context.Context, tx dbx.DBTX, sl *models.TimeSlot) error) (*models.TimeSlot, error) {
	var out *models.TimeSlot
	err := s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.Repos.Slots(tx)

		sl, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if sl == nil || sl.IsDeleted() {
			return &common.NotFoundError{Kind: string(models.KindSlot), ID: id}
		}
		if err := fn(ctx, tx, sl); err != nil {
			return err
		}
		sl.Touch(s.Now())
		out = sl
		return repo.Update(ctx, sl)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(models.KindSlot)
	return out, nil
}

func (s *slotService) Update(ctx context.Context, id string, patch models.SlotPatch) (*models.TimeSlot, error) {
	return s.mutate(ctx, id, func(ctx context.Context, tx dbx.DBTX, sl *models.TimeSlot) error {
		patch.Apply(sl)
		if err := sl.Validate(); err != nil {
			return err
		}
		if patch.TagIDs != nil {
			return checkTags(ctx, s.Store, tx, sl.TagIDs)
		}
		return nil
	})
}

func (s *slotService) SoftDelete(ctx context.Context, id string) error {
	_, err := s.mutate(ctx, id, func(_ context.Context, _ dbx.DBTX, sl *models.TimeSlot) error {
		sl.MarkDeleted(s.Now())
		return nil
	})
	return err
}
