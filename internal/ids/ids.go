// Package ids generates the opaque 128-bit identifiers used throughout the
// resolver: query-uids and source-uids. Both are string-rendered UUIDv4s,
// globally unique within a process lifetime, never reused.
package ids

import "github.com/google/uuid"

// QID is a query identifier.
type QID string

// SID is a source identifier.
type SID string

// NewQID issues a fresh, unique query identifier.
func NewQID() QID {
	return QID(uuid.New().String())
}

// NewSID issues a fresh, unique source identifier.
func NewSID() SID {
	return SID(uuid.New().String())
}

// Valid reports whether s parses as a UUID, the shape all qids/sids take.
func Valid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
