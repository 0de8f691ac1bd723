package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/stats"
)

// Window bounds a stats query to [From, To).
type Window struct {
	From time.Time
	To   time.Time
}

type StatsReport struct {
	Mode         stats.Mode
	Domains      []stats.DomainStat
	TotalMinutes float64
}

type StatsService interface {
	// DomainStats reads straight from the store, bypassing the cache. With a
	// window, slots crossing its edges only count the part inside it.
	DomainStats(ctx context.Context, mode stats.Mode, window *Window) (*StatsReport, error)
}

type statsService struct {
	*Store
}

func NewStatsService(st *Store) StatsService {
	return &statsService{Store: st}
}

func (s *statsService) DomainStats(ctx context.Context, mode stats.Mode, window *Window) (*StatsReport, error) {
	slotRepo := s.Repos.Slots(s.DB)

	var (
		slots []models.TimeSlot
		err   error
	)
	if window != nil {
		slots, err = slotRepo.ListInRange(ctx, window.From, window.To)
		for i := range slots {
			clip(&slots[i], window)
		}
	} else {
		slots, err = slotRepo.ListActive(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read slots: %w", err)
	}

	domainRepo := s.Repos.Domains(s.DB)
	domains, err := domainRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read domains: %w", err)
	}
	archivedDomains, err := domainRepo.ListArchived(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read domains: %w", err)
	}

	tagRepo := s.Repos.Tags(s.DB)
	tags, err := tagRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read tags: %w", err)
	}
	archivedTags, err := tagRepo.ListArchived(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read tags: %w", err)
	}

	result := stats.CalculateDomainStats(slots, append(tags, archivedTags...), append(domains, archivedDomains...), mode)
	return &StatsReport{Mode: mode, Domains: result, TotalMinutes: stats.TotalMinutes(result)}, nil
}

func clip(sl *models.TimeSlot, w *Window) {
	if sl.Start.Before(w.From) {
		sl.Start = w.From
	}
	if sl.End.After(w.To) {
		sl.End = w.To
	}
}
