package storage

import (
	"encoding/json"
	"time"
)

// SnapshotInfo describes a stored crawl snapshot without its payload.
type SnapshotInfo struct {
	Key     string    `json:"key"`
	Size    int       `json:"size"`
	SavedAt time.Time `json:"saved_at"`
}

// LocalRecord is one short-lived cached payload.
type LocalRecord struct {
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	StoredAt  time.Time       `json:"stored_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Expired reports whether the record is past its expiry at now.
func (r *LocalRecord) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// Selection is a named, saved set of chosen sections.
type Selection struct {
	Name      string          `json:"name"`
	Sections  json.RawMessage `json:"sections"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// snapshotEnvelope wraps snapshot bytes so listings can report when they were saved.
type snapshotEnvelope struct {
	SavedAt time.Time       `json:"saved_at"`
	Data    json.RawMessage `json:"data"`
}
