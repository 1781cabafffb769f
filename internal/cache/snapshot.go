package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pders01/planr/internal/debuglog"
)

// SnapshotVersion is bumped whenever the snapshot layout changes. Older
// snapshots are ignored rather than migrated.
const SnapshotVersion = 1

// Persister is the durable substrate snapshots are written to.
type Persister interface {
	SaveSnapshot(key string, data []byte) error
	LoadSnapshot(key string) ([]byte, error)
}

// Snapshot is the serialized form of a Cache.
type Snapshot struct {
	Version   int       `json:"version"`
	SavedAt   time.Time `json:"saved_at"`
	Entries   []Entry   `json:"entries"`
	Processed []string  `json:"processed"`
}

// Snapshot writes all entries and visited URLs under key. Failures are
// logged and reported as false; the cache is an optimization, never the
// source of truth.
func (c *Cache) Snapshot(p Persister, key string) bool {
	if p == nil {
		return false
	}
	snap := Snapshot{
		Version:   SnapshotVersion,
		SavedAt:   c.now(),
		Entries:   c.Entries(),
		Processed: c.VisitedURLs(),
	}
	data, err := json.Marshal(snap)
	if err != nil {
		debuglog.Warnf("cache: encoding snapshot %q: %v", key, err)
		return false
	}
	if err := p.SaveSnapshot(key, data); err != nil {
		debuglog.Warnf("cache: saving snapshot %q: %v", key, err)
		return false
	}
	debuglog.Infof("cache: saved snapshot %q (%d entries, %d bytes)", key, len(snap.Entries), len(data))
	return true
}

// Restore replaces the cache contents with the snapshot stored under key.
// On any failure it returns false and leaves the cache untouched.
func (c *Cache) Restore(p Persister, key string) bool {
	if p == nil {
		return false
	}
	data, err := p.LoadSnapshot(key)
	if err != nil {
		debuglog.Debugf("cache: no snapshot %q: %v", key, err)
		return false
	}
	snap, err := decodeSnapshot(data)
	if err != nil {
		debuglog.Warnf("cache: discarding snapshot %q: %v", key, err)
		return false
	}
	c.replace(snap.Entries, snap.Processed)
	debuglog.Infof("cache: restored snapshot %q (%d entries)", key, len(snap.Entries))
	return true
}

func decodeSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snap.Version, SnapshotVersion)
	}
	for i, e := range snap.Entries {
		if e.URL == "" {
			return nil, fmt.Errorf("snapshot entry %d has no url", i)
		}
	}
	return &snap, nil
}
