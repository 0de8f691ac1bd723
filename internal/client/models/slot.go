package models

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/cryptox"
)

// TimeSlot is a span of tracked time. TagIDs is ordered: the first tag is
// the primary one for attribution.
type TimeSlot struct {
	ID     string    `json:"id"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	TagIDs []string  `json:"tagIds"`
	Note   string    `json:"note,omitempty"`
	Lifecycle
}

func (s *TimeSlot) EntityKind() Kind { return KindSlot }
func (s *TimeSlot) EntityID() string { return s.ID }

// State never reports archived: slots have no archive flag.
func (s *TimeSlot) State() State {
	if s.DeletedAt != nil {
		return StateSoftDeleted
	}
	return StateActive
}

func (s *TimeSlot) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

func (s *TimeSlot) Minutes() float64 {
	return s.Duration().Minutes()
}

// Overlaps reports whether the slot intersects [from, to).
func (s *TimeSlot) Overlaps(from, to time.Time) bool {
	return s.Start.Before(to) && s.End.After(from)
}

func (s *TimeSlot) Fingerprint() string {
	return cryptox.Fingerprint(string(KindSlot),
		strconv.FormatInt(s.Start.UnixNano(), 10),
		strconv.FormatInt(s.End.UnixNano(), 10),
		strings.Join(s.TagIDs, ","), s.Note, flag(s.DeletedAt != nil))
}

func (s *TimeSlot) Validate() error {
	if s.Start.IsZero() || s.End.IsZero() {
		return &common.ValidationError{Field: "start", Reason: "start and end are required"}
	}
	if !s.Start.Before(s.End) {
		return &common.ValidationError{Field: "end", Reason: "must be after start"}
	}
	seen := make(map[string]struct{}, len(s.TagIDs))
	for _, id := range s.TagIDs {
		if id == "" {
			return &common.ValidationError{Field: "tagIds", Reason: "empty tag id"}
		}
		if _, dup := seen[id]; dup {
			return &common.ValidationError{Field: "tagIds", Reason: "duplicate tag " + id}
		}
		seen[id] = struct{}{}
	}
	return nil
}

type SlotPatch struct {
	Start  *time.Time
	End    *time.Time
	TagIDs *[]string
	Note   *string
}

func (p SlotPatch) Apply(s *TimeSlot) {
	if p.Start != nil {
		s.Start = p.Start.UTC()
	}
	if p.End != nil {
		s.End = p.End.UTC()
	}
	if p.TagIDs != nil {
		s.TagIDs = slices.Clone(*p.TagIDs)
	}
	if p.Note != nil {
		s.Note = *p.Note
	}
}
