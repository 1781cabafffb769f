package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/pders01/planr/internal/debuglog"
	"github.com/pders01/planr/internal/storage"
)

// LocalStore is the durable backing of a Local cache.
type LocalStore interface {
	PutLocal(key string, data []byte, ttl time.Duration) error
	GetLocal(key string) (*storage.LocalRecord, error)
	DeleteLocal(key string) error
	PurgeLocal() (int, error)
}

// Local is the short-TTL cache the typed catalog client keeps next to the
// deep-fetch cache. Each value carries its own TTL.
type Local struct {
	store LocalStore
	now   func() time.Time
}

func NewLocal(store LocalStore) *Local {
	return &Local{store: store, now: time.Now}
}

// Get returns the stored payload if present and unexpired.
func (l *Local) Get(key string) ([]byte, bool) {
	if l == nil || l.store == nil {
		return nil, false
	}
	rec, err := l.store.GetLocal(key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			debuglog.Warnf("local cache: reading %q: %v", key, err)
		}
		return nil, false
	}
	if rec.Expired(l.now()) {
		return nil, false
	}
	return rec.Data, true
}

func (l *Local) Set(key string, data []byte, ttl time.Duration) {
	if l == nil || l.store == nil {
		return
	}
	if err := l.store.PutLocal(key, data, ttl); err != nil {
		debuglog.Warnf("local cache: writing %q: %v", key, err)
	}
}

func (l *Local) Delete(key string) {
	if l == nil || l.store == nil {
		return
	}
	if err := l.store.DeleteLocal(key); err != nil {
		debuglog.Warnf("local cache: deleting %q: %v", key, err)
	}
}

// Purge drops expired records and returns how many were removed.
func (l *Local) Purge() (int, error) {
	if l == nil || l.store == nil {
		return 0, nil
	}
	n, err := l.store.PurgeLocal()
	if err != nil {
		return n, fmt.Errorf("local cache: purge: %w", err)
	}
	if n > 0 {
		debuglog.Infof("local cache: purged %d expired records", n)
	}
	return n, nil
}
