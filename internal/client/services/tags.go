package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/dbx"
)

type TagService interface {
	GetAllActive(ctx context.Context) ([]models.Tag, error)
	GetArchived(ctx context.Context) ([]models.Tag, error)
	GetByDomain(ctx context.Context, domainID string) ([]models.Tag, error)
	GetByID(ctx context.Context, id string) (*models.Tag, error)
	Create(ctx context.Context, domainID, name, color string) (*models.Tag, error)
	Update(ctx context.Context, id string, patch models.TagPatch) (*models.Tag, error)
	SoftDelete(ctx context.Context, id string) error
	Archive(ctx context.Context, id string) (*models.Tag, error)
	Unarchive(ctx context.Context, id string) (*models.Tag, error)
}

type tagService struct {
	*Store
}

func NewTagService(st *Store) TagService {
	return &tagService{Store: st}
}

func (s *tagService) GetAllActive(ctx context.Context) ([]models.Tag, error) {
	return cachedList(s.Cache, keyTagsActive, func() ([]models.Tag, error) {
		return s.Repos.Tags(s.DB).ListActive(ctx)
	})
}

func (s *tagService) GetArchived(ctx context.Context) ([]models.Tag, error) {
	return cachedList(s.Cache, keyTagsArchived, func() ([]models.Tag, error) {
		return s.Repos.Tags(s.DB).ListArchived(ctx)
	})
}

func (s *tagService) GetByDomain(ctx context.Context, domainID string) ([]models.Tag, error) {
	return cachedList(s.Cache, keyTagsByDomain(domainID), func() ([]models.Tag, error) {
		return s.Repos.Tags(s.DB).ListByDomain(ctx, domainID)
	})
}

func (s *tagService) GetByID(ctx context.Context, id string) (*models.Tag, error) {
	t, err := s.Repos.Tags(s.DB).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil || t.IsDeleted() {
		return nil, &common.NotFoundError{Kind: string(models.KindTag), ID: id}
	}
	return t, nil
}

// checkDomain rejects a reference to a missing or deleted domain.
func checkDomain(ctx context.Context, st *Store, tx dbx.DBTX, domainID string) error {
	d, err := st.Repos.Domains(tx).GetByID(ctx, domainID)
	if err != nil {
		return err
	}
	if d == nil || d.IsDeleted() {
		return &common.ValidationError{Field: "domainId", Reason: fmt.Sprintf("domain %q does not exist", domainID)}
	}
	return nil
}

func (s *tagService) Create(ctx context.Context, domainID, name, color string) (*models.Tag, error) {
	t := &models.Tag{
		ID:        s.NewID(),
		DomainID:  domainID,
		Name:      name,
		Color:     color,
		Lifecycle: models.NewLifecycle(s.Now()),
	}
	models.NormalizeTag(t)
	if err := t.Validate(); err != nil {
		return nil, err
	}

	err := s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := checkDomain(ctx, s.Store, tx, t.DomainID); err != nil {
			return err
		}
		return s.Repos.Tags(tx).Insert(ctx, t)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}

	s.invalidate(models.KindTag)
	return t, nil
}

func (s *tagService) mutate(ctx context.Context, id string, fn func(ctx context.Context, tx dbx.DBTX, t *models.Tag) (bool, error)) (*models.Tag, error) {
	var out *models.Tag
	err := s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.Repos.Tags(tx)

		t, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if t == nil || t.IsDeleted() {
			return &common.NotFoundError{Kind: string(models.KindTag), ID: id}
		}

		changed, err := fn(ctx, tx, t)
		if err != nil {
			return err
		}
		out = t
		if !changed {
			return nil
		}
		t.Touch(s.Now())
		return repo.Update(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(models.KindTag)
	return out, nil
}

func (s *tagService) Update(ctx context.Context, id string, patch models.TagPatch) (*models.Tag, error) {
	return s.mutate(ctx, id, func(ctx context.Context, tx dbx.DBTX, t *models.Tag) (bool, error) {
		patch.Apply(t)
		if err := t.Validate(); err != nil {
			return false, err
		}
		if patch.DomainID != nil {
			if err := checkDomain(ctx, s.Store, tx, t.DomainID); err != nil {
				return false, err
			}
		}
		return true, nil
	})
}

func (s *tagService) SoftDelete(ctx context.Context, id string) error {
	_, err := s.mutate(ctx, id, func(_ context.Context, _ dbx.DBTX, t *models.Tag) (bool, error) {
		t.MarkDeleted(s.Now())
		return true, nil
	})
	return err
}

func (s *tagService) Archive(ctx context.Context, id string) (*models.Tag, error) {
	return s.mutate(ctx, id, func(_ context.Context, _ dbx.DBTX, t *models.Tag) (bool, error) {
		if t.ArchivedAt != nil {
			return false, nil
		}
		now := s.Now()
		t.ArchivedAt = &now
		return true, nil
	})
}

func (s *tagService) Unarchive(ctx context.Context, id string) (*models.Tag, error) {
	return s.mutate(ctx, id, func(_ context.Context, _ dbx.DBTX, t *models.Tag) (bool, error) {
		if t.ArchivedAt == nil {
			return false, nil
		}
		t.ArchivedAt = nil
		return true, nil
	})
}
