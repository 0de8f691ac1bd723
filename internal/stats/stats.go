// Package stats aggregates tracked time per domain and tag. Everything here
// is a pure function of its inputs.
package stats

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
)

// Mode decides how a slot's duration is attributed to its tags.
type Mode string

const (
	// ModeSplit divides the duration evenly across all tags of the slot.
	ModeSplit Mode = "split"
	// ModePrimary credits the full duration to the first tag only.
	ModePrimary Mode = "primary"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeSplit, ModePrimary:
		return m, nil
	case "":
		return ModeSplit, nil
	default:
		return "", fmt.Errorf("unknown attribution mode %q", s)
	}
}

type SubtagStat struct {
	TagID      string
	Name       string
	Color      string
	DomainID   string
	DomainName string
	Minutes    float64
}

type DomainStat struct {
	DomainID   string
	Name       string
	Color      string
	Minutes    float64
	Percentage float64
	Subtags    []SubtagStat
}

// CalculateDomainStats credits every tagged slot to its tags and their
// domains under mode.
//
// Every non-deleted domain passed in appears in the result, including those
// with no time. Tags that are deleted or whose domain is not among domains
// are ignored, as is the share of a slot attributed to them. Untagged slots
// contribute nothing. Domains are ordered by minutes descending; ties keep
// input order. Subtags with zero minutes are dropped and the rest are
// ordered the same way.
func CalculateDomainStats(slots []models.TimeSlot, tags []models.Tag, domains []models.Domain, mode Mode) []DomainStat {
	type tagAcc struct {
		tag     *models.Tag
		minutes float64
	}
	type domainAcc struct {
		domain  *models.Domain
		minutes float64
		tags    []*tagAcc
	}

	accs := make([]*domainAcc, 0, len(domains))
	byDomain := make(map[string]*domainAcc, len(domains))
	for i := range domains {
		d := &domains[i]
		if d.IsDeleted() {
			continue
		}
		if _, dup := byDomain[d.ID]; dup {
			continue
		}
		acc := &domainAcc{domain: d}
		accs = append(accs, acc)
		byDomain[d.ID] = acc
	}

	byTag := make(map[string]*tagAcc, len(tags))
	for i := range tags {
		t := &tags[i]
		if t.IsDeleted() {
			continue
		}
		d, ok := byDomain[t.DomainID]
		if !ok {
			continue
		}
		if _, dup := byTag[t.ID]; dup {
			continue
		}
		ta := &tagAcc{tag: t}
		byTag[t.ID] = ta
		d.tags = append(d.tags, ta)
	}

	credit := func(tagID string, minutes float64) {
		ta, ok := byTag[tagID]
		if !ok {
			return
		}
		ta.minutes += minutes
		byDomain[ta.tag.DomainID].minutes += minutes
	}

	for i := range slots {
		s := &slots[i]
		if s.IsDeleted() || len(s.TagIDs) == 0 {
			continue
		}
		minutes := s.Minutes()
		if minutes <= 0 {
			continue
		}
		switch mode {
		case ModePrimary:
			credit(s.TagIDs[0], minutes)
		default:
			share := minutes / float64(len(s.TagIDs))
			for _, id := range s.TagIDs {
				credit(id, share)
			}
		}
	}

	var total float64
	for _, acc := range accs {
		total += acc.minutes
	}

	result := make([]DomainStat, 0, len(accs))
	for _, acc := range accs {
		ds := DomainStat{
			DomainID: acc.domain.ID,
			Name:     acc.domain.Name,
			Color:    acc.domain.Color,
			Minutes:  acc.minutes,
			Subtags:  []SubtagStat{},
		}
		if total > 0 {
			ds.Percentage = acc.minutes / total * 100
		}
		for _, ta := range acc.tags {
			if ta.minutes <= 0 {
				continue
			}
			ds.Subtags = append(ds.Subtags, SubtagStat{
				TagID:      ta.tag.ID,
				Name:       ta.tag.Name,
				Color:      ta.tag.Color,
				DomainID:   acc.domain.ID,
				DomainName: acc.domain.Name,
				Minutes:    ta.minutes,
			})
		}
		slices.SortStableFunc(ds.Subtags, bySubtagMinutesDesc)
		result = append(result, ds)
	}

	slices.SortStableFunc(result, func(a, b DomainStat) int {
		return cmpDesc(a.Minutes, b.Minutes)
	})
	return result
}

// GetTopSubtags flattens the subtags of stats in order and returns the n
// largest. Ties keep encounter order.
func GetTopSubtags(stats []DomainStat, n int) []SubtagStat {
	if n <= 0 {
		return []SubtagStat{}
	}
	var all []SubtagStat
	for _, ds := range stats {
		all = append(all, ds.Subtags...)
	}
	slices.SortStableFunc(all, bySubtagMinutesDesc)
	if len(all) > n {
		all = all[:n]
	}
	if all == nil {
		all = []SubtagStat{}
	}
	return all
}

// TotalMinutes sums the domain totals.
func TotalMinutes(stats []DomainStat) float64 {
	var total float64
	for _, ds := range stats {
		total += ds.Minutes
	}
	return total
}

// FormatDuration renders minutes as "45m", "2h" or "1h 30m". A remainder
// that rounds up to a full hour is carried into the hour count.
func FormatDuration(minutes float64) string {
	if minutes < 60 {
		m := math.Round(minutes)
		if m >= 60 {
			return "1h"
		}
		return fmt.Sprintf("%dm", int64(m))
	}
	hours := int64(math.Floor(minutes / 60))
	rem := math.Round(minutes - float64(hours)*60)
	if rem >= 60 {
		hours++
		rem = 0
	}
	if rem == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh %dm", hours, int64(rem))
}

func bySubtagMinutesDesc(a, b SubtagStat) int {
	return cmpDesc(a.Minutes, b.Minutes)
}

func cmpDesc(a, b float64) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	default:
		return 0
	}
}
