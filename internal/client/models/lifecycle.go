package models

import (
	"fmt"
	"time"
)

// Kind names an entity collection.
type Kind string

const (
	KindDomain Kind = "domain"
	KindTag    Kind = "tag"
	KindSlot   Kind = "slot"
)

// Kinds lists every syncable kind in dependency order (a tag references a
// domain, a slot references tags).
var Kinds = []Kind{KindDomain, KindTag, KindSlot}

func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindDomain, KindTag, KindSlot:
		return k, nil
	default:
		return "", fmt.Errorf("unknown kind %q", s)
	}
}

// CachePrefix is the cache namespace shared by every view of the kind.
func (k Kind) CachePrefix() string {
	return string(k) + "s:"
}

// State is the derived lifecycle state of a record.
type State int

const (
	StateActive State = iota
	StateArchived
	StateSoftDeleted
	// StateErased is never observed on a loaded record; GC removes the row.
	StateErased
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateArchived:
		return "archived"
	case StateSoftDeleted:
		return "deleted"
	case StateErased:
		return "erased"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Lifecycle carries the fields every entity shares.
//
// Version starts at 1 and grows by exactly one per mutation. SyncedVersion
// is the version the remote is known to hold (0 = never pushed or pulled);
// a row with Version > SyncedVersion is dirty and is pushed by the next sync.
type Lifecycle struct {
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	DeletedAt     *time.Time `json:"deletedAt,omitempty"`
	Version       int64      `json:"version"`
	SyncedVersion int64      `json:"-"`
}

// NewLifecycle returns the lifecycle of a freshly created record.
func NewLifecycle(now time.Time) Lifecycle {
	now = now.UTC()
	return Lifecycle{CreatedAt: now, UpdatedAt: now, Version: 1}
}

func (l *Lifecycle) IsDeleted() bool { return l.DeletedAt != nil }

func (l *Lifecycle) IsDirty() bool { return l.Version > l.SyncedVersion }

// Touch records one mutation.
func (l *Lifecycle) Touch(now time.Time) {
	l.Version++
	l.UpdatedAt = now.UTC()
}

// MarkDeleted turns the record into a tombstone. The caller records the
// mutation itself with Touch.
func (l *Lifecycle) MarkDeleted(now time.Time) {
	now = now.UTC()
	l.DeletedAt = &now
}

// Meta exposes the lifecycle of any entity that embeds it.
func (l *Lifecycle) Meta() *Lifecycle { return l }

// Entity is implemented by *Domain, *Tag and *TimeSlot.
type Entity interface {
	EntityKind() Kind
	EntityID() string
	Meta() *Lifecycle
	State() State
	// Fingerprint digests the content fields only, so two copies at the same
	// version can be compared without looking at timestamps.
	Fingerprint() string
	Validate() error
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
