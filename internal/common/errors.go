package common

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Store / query layer errors.
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")

	// Sync errors.
	ErrConflict     = errors.New("version conflict")
	ErrTransport    = errors.New("transport error")
	ErrNotSignedIn  = errors.New("not signed in")
	ErrSyncDisabled = errors.New("sync disabled")

	// Auth errors.
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// NotFoundError reports a mutation against a record that is missing or
// already soft-deleted.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ValidationError reports malformed entity fields. It is always returned
// before anything is persisted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Conflict describes one record the remote refused because its stored
// version is newer than (or diverges from) the pushed one.
type Conflict struct {
	Kind          string
	ID            string
	RemoteVersion int64
}

// ConflictError is returned by a remote push that rejected stale records.
type ConflictError struct {
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	ids := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		ids = append(ids, c.Kind+"/"+c.ID)
	}
	return fmt.Sprintf("push rejected, stale records: %s", strings.Join(ids, ", "))
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// TransportError wraps a network failure during pull or push.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }
