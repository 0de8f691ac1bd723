package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record is the envelope a remote store keeps for every entity. Payload is
// the JSON encoding of the entity itself; the surrounding fields duplicate
// what reconciliation needs so it never has to decode a payload just to
// compare versions.
type Record struct {
	Kind        Kind            `json:"kind"`
	ID          string          `json:"id"`
	Version     int64           `json:"version"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	DeletedAt   *time.Time      `json:"deletedAt,omitempty"`
	Fingerprint string          `json:"fingerprint"`
	Payload     json.RawMessage `json:"payload"`
	// ModifiedAt is stamped by the remote on accept and drives pull cursors.
	// It is zero on records the client is about to push.
	ModifiedAt time.Time `json:"modifiedAt"`
}

// NewRecord wraps e for pushing.
func NewRecord(e Entity) (Record, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return Record{}, fmt.Errorf("failed to encode %s %s: %w", e.EntityKind(), e.EntityID(), err)
	}
	m := e.Meta()
	return Record{
		Kind:        e.EntityKind(),
		ID:          e.EntityID(),
		Version:     m.Version,
		UpdatedAt:   m.UpdatedAt,
		DeletedAt:   m.DeletedAt,
		Fingerprint: e.Fingerprint(),
		Payload:     payload,
	}, nil
}

// Entity decodes the payload into a *Domain, *Tag or *TimeSlot. The
// envelope's version and deletion state win over the payload copies.
func (r Record) Entity() (Entity, error) {
	var e Entity
	switch r.Kind {
	case KindDomain:
		e = &Domain{}
	case KindTag:
		e = &Tag{}
	case KindSlot:
		e = &TimeSlot{}
	default:
		return nil, fmt.Errorf("unknown record kind %q", r.Kind)
	}
	if err := json.Unmarshal(r.Payload, e); err != nil {
		return nil, fmt.Errorf("failed to decode %s %s: %w", r.Kind, r.ID, err)
	}
	if e.EntityID() != r.ID {
		return nil, fmt.Errorf("record %s/%s carries payload for %q", r.Kind, r.ID, e.EntityID())
	}
	m := e.Meta()
	m.Version = r.Version
	m.DeletedAt = r.DeletedAt
	if !r.UpdatedAt.IsZero() {
		m.UpdatedAt = r.UpdatedAt
	}
	return e, nil
}
