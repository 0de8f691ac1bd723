package dbx

import (
	"database/sql"
	"time"
)

// Timestamps are stored as INTEGER unix nanoseconds (UTC) so ordering and
// range comparisons happen in SQL without string parsing.

// ToNanos encodes t for storage.
func ToNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

// FromNanos decodes a stored timestamp.
func FromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// NullNanos encodes an optional timestamp.
func NullNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: ToNanos(*t), Valid: true}
}

// FromNullNanos decodes an optional timestamp.
func FromNullNanos(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := FromNanos(n.Int64)
	return &t
}
