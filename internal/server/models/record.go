// Package models holds the server-side storage types.
package models

import (
	"encoding/json"
	"time"
)

// Record is one entity envelope as stored for a user. The server never
// decodes Payload; it compares versions and fingerprints only.
type Record struct {
	UserID      string
	Kind        string
	ID          string
	Version     int64
	UpdatedAt   time.Time
	DeletedAt   *time.Time
	Fingerprint string
	Payload     json.RawMessage
	// ModifiedAt is the server clock at the time the record was accepted.
	ModifiedAt time.Time
}

// Key identifies a record within one user's data set.
type Key struct {
	Kind string
	ID   string
}

func (r *Record) Key() Key {
	return Key{Kind: r.Kind, ID: r.ID}
}
