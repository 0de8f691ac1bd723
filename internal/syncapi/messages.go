package syncapi

import (
	"encoding/json"
	"time"
)

// Record is the wire form of one entity envelope.
type Record struct {
	Kind        string          `json:"kind"`
	ID          string          `json:"id"`
	Version     int64           `json:"version"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	DeletedAt   *time.Time      `json:"deletedAt,omitempty"`
	Fingerprint string          `json:"fingerprint"`
	Payload     json.RawMessage `json:"payload"`
	ModifiedAt  time.Time       `json:"modifiedAt"`
}

type PullRequest struct {
	Since time.Time `json:"since"`
}

type PullResponse struct {
	Records []Record `json:"records"`
}

type PushRequest struct {
	Since   time.Time `json:"since"`
	Records []Record  `json:"records"`
}

type Ack struct {
	Kind            string    `json:"kind"`
	ID              string    `json:"id"`
	AcceptedVersion int64     `json:"acceptedVersion"`
	ModifiedAt      time.Time `json:"modifiedAt"`
}

type Conflict struct {
	Kind          string `json:"kind"`
	ID            string `json:"id"`
	RemoteVersion int64  `json:"remoteVersion"`
}

type PushResponse struct {
	Accepted  []Ack      `json:"accepted"`
	Conflicts []Conflict `json:"conflicts,omitempty"`
	// Cursor is where the client may move its checkpoint after this push.
	Cursor time.Time `json:"cursor"`
}
