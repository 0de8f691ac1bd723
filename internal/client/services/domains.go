package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/dbx"
)

type DomainService interface {
	GetAllActive(ctx context.Context) ([]models.Domain, error)
	GetArchived(ctx context.Context) ([]models.Domain, error)
	GetByID(ctx context.Context, id string) (*models.Domain, error)
	Create(ctx context.Context, name, color string, order int) (*models.Domain, error)
	Update(ctx context.Context, id string, patch models.DomainPatch) (*models.Domain, error)
	SoftDelete(ctx context.Context, id string) error
	Archive(ctx context.Context, id string) (*models.Domain, error)
	Unarchive(ctx context.Context, id string) (*models.Domain, error)
}

type domainService struct {
	*Store
}

func NewDomainService(st *Store) DomainService {
	return &domainService{Store: st}
}

func (s *domainService) GetAllActive(ctx context.Context) ([]models.Domain, error) {
	return cachedList(s.Cache, keyDomainsActive, func() ([]models.Domain, error) {
		return s.Repos.Domains(s.DB).ListActive(ctx)
	})
}

func (s *domainService) GetArchived(ctx context.Context) ([]models.Domain, error) {
	return cachedList(s.Cache, keyDomainsArchived, func() ([]models.Domain, error) {
		return s.Repos.Domains(s.DB).ListArchived(ctx)
	})
}

// GetByID returns an active or archived domain.
func (s *domainService) GetByID(ctx context.Context, id string) (*models.Domain, error) {
	d, err := s.Repos.Domains(s.DB).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil || d.IsDeleted() {
		return nil, &common.NotFoundError{Kind: string(models.KindDomain), ID: id}
	}
	return d, nil
}

func (s *domainService) Create(ctx context.Context, name, color string, order int) (*models.Domain, error) {
	d := &models.Domain{
		ID:        s.NewID(),
		Name:      name,
		Color:     color,
		Order:     order,
		Lifecycle: models.NewLifecycle(s.Now()),
	}
	models.NormalizeDomain(d)
	if err := d.Validate(); err != nil {
		return nil, err
	}

	if err := s.Repos.Domains(s.DB).Insert(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to create domain: %w", err)
	}

	s.invalidate(models.KindDomain)
	return d, nil
}

// mutate loads a live domain, applies fn and persists the result with a
// bumped version. fn returning false means nothing changed.
func (s *domainService) mutate(ctx context.Context, id string, fn func(d *models.Domain) (bool, error)) (*models.Domain, error) {
	var out *models.Domain
	err := s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.Repos.Domains(tx)

		d, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if d == nil || d.IsDeleted() {
			return &common.NotFoundError{Kind: string(models.KindDomain), ID: id}
		}

		changed, err := fn(d)
		if err != nil {
			return err
		}
		out = d
		if !changed {
			return nil
		}
		d.Touch(s.Now())
		return repo.Update(ctx, d)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(models.KindDomain)
	return out, nil
}

func (s *domainService) Update(ctx context.Context, id string, patch models.DomainPatch) (*models.Domain, error) {
	return s.mutate(ctx, id, func(d *models.Domain) (bool, error) {
		patch.Apply(d)
		return true, d.Validate()
	})
}

func (s *domainService) SoftDelete(ctx context.Context, id string) error {
	_, err := s.mutate(ctx, id, func(d *models.Domain) (bool, error) {
		d.MarkDeleted(s.Now())
		return true, nil
	})
	return err
}

// Archive is a no-op on an already archived domain.
func (s *domainService) Archive(ctx context.Context, id string) (*models.Domain, error) {
	return s.mutate(ctx, id, func(d *models.Domain) (bool, error) {
		if d.ArchivedAt != nil {
			return false, nil
		}
		now := s.Now()
		d.ArchivedAt = &now
		return true, nil
	})
}

func (s *domainService) Unarchive(ctx context.Context, id string) (*models.Domain, error) {
	return s.mutate(ctx, id, func(d *models.Domain) (bool, error) {
		if d.ArchivedAt == nil {
			return false, nil
		}
		d.ArchivedAt = nil
		return true, nil
	})
}
