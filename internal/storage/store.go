package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	snapshotsBucket  = []byte("snapshots")
	localBucket      = []byte("local")
	selectionsBucket = []byte("selections")
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("not found")

type Store struct {
	db  *bolt.DB
	now func() time.Time
}

func NewStore(dbPath string) (*Store, error) {
	return NewStoreWithTimeout(dbPath, 1*time.Second)
}

func NewStoreWithTimeout(dbPath string, timeout time.Duration) (*Store, error) {
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{snapshotsBucket, localBucket, selectionsBucket} {
			if _, createErr := tx.CreateBucketIfNotExists(bucket); createErr != nil {
				return createErr
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSnapshot stores a serialized cache snapshot under key.
func (s *Store) SaveSnapshot(key string, data []byte) error {
	env, err := json.Marshal(snapshotEnvelope{SavedAt: s.now(), Data: data})
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(snapshotsBucket).Put([]byte(key), env)
	})
}

// LoadSnapshot returns the snapshot bytes stored under key.
func (s *Store) LoadSnapshot(key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(snapshotsBucket).Get([]byte(key))
		if raw == nil {
			return fmt.Errorf("snapshot %q: %w", key, ErrNotFound)
		}
		var env snapshotEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return fmt.Errorf("decoding snapshot %q: %w", key, err)
		}
		out = append([]byte(nil), env.Data...)
		return nil
	})
	return out, err
}

func (s *Store) DeleteSnapshot(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(snapshotsBucket).Delete([]byte(key))
	})
}

// ListSnapshots reports every stored snapshot, sorted by key.
func (s *Store) ListSnapshots() ([]SnapshotInfo, error) {
	var infos []SnapshotInfo
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(snapshotsBucket).ForEach(func(k, v []byte) error {
			var env snapshotEnvelope
			if err := json.Unmarshal(v, &env); err != nil {
				// Unreadable snapshots are still listed so they can be cleared.
				infos = append(infos, SnapshotInfo{Key: string(k), Size: len(v)})
				return nil
			}
			infos = append(infos, SnapshotInfo{Key: string(k), Size: len(env.Data), SavedAt: env.SavedAt})
			return nil
		})
	})
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, err
}

// PutLocal stores a short-lived record that expires after ttl.
func (s *Store) PutLocal(key string, data []byte, ttl time.Duration) error {
	now := s.now()
	rec := LocalRecord{Key: key, Data: data, StoredAt: now}
	if ttl > 0 {
		rec.ExpiresAt = now.Add(ttl)
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(localBucket).Put([]byte(key), raw)
	})
}

// GetLocal returns the record under key, expired or not.
func (s *Store) GetLocal(key string) (*LocalRecord, error) {
	var rec LocalRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(localBucket).Get([]byte(key))
		if raw == nil {
			return fmt.Errorf("local record %q: %w", key, ErrNotFound)
		}
		return json.Unmarshal(raw, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) DeleteLocal(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(localBucket).Delete([]byte(key))
	})
}

// PurgeLocal deletes expired records and returns how many were removed.
func (s *Store) PurgeLocal() (int, error) {
	now := s.now()
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(localBucket)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var rec LocalRecord
			if err := json.Unmarshal(v, &rec); err != nil || rec.Expired(now) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}

// ClearLocal removes every local record.
func (s *Store) ClearLocal() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(localBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(localBucket)
		return err
	})
}

func (s *Store) SaveSelection(name string, sections []byte) error {
	raw, err := json.Marshal(Selection{Name: name, Sections: sections, UpdatedAt: s.now()})
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(selectionsBucket).Put([]byte(name), raw)
	})
}

func (s *Store) LoadSelection(name string) (*Selection, error) {
	var sel Selection
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(selectionsBucket).Get([]byte(name))
		if raw == nil {
			return fmt.Errorf("selection %q: %w", name, ErrNotFound)
		}
		return json.Unmarshal(raw, &sel)
	})
	if err != nil {
		return nil, err
	}
	return &sel, nil
}

func (s *Store) DeleteSelection(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(selectionsBucket).Delete([]byte(name))
	})
}
