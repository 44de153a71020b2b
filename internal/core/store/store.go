// Package store persists Context-level state that should survive process
// restarts: the registered plugin-directory set and a running ledger of
// lifecycle events. Wraps bbolt with typed, bucket-per-concern accessors
// (SPEC_FULL.md's domain-stack disposition for go.etcd.io/bbolt).
package store

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var (
	bucketPluginDirs = []byte("plugin_dirs")
	bucketEvents     = []byte("events")
)

// Store wraps a BoltDB instance with typed accessor methods.
type Store struct {
	bolt *bbolt.DB
}

// Open opens (or creates) the store database at the given path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open store db %q: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketPluginDirs, bucketEvents} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %q: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}

	return &Store{bolt: db}, nil
}

// Close closes the underlying BoltDB file.
func (s *Store) Close() error {
	return s.bolt.Close()
}

// ─────────────────────────────────────────────────────────────────────────────
// Plugin directory registry
// ─────────────────────────────────────────────────────────────────────────────

// AddPluginDir persists path as a registered plugin directory.
func (s *Store) AddPluginDir(path string) error {
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPluginDirs).Put([]byte(path), []byte{1})
	})
}

// RemovePluginDir removes path from the persisted set.
func (s *Store) RemovePluginDir(path string) error {
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPluginDirs).Delete([]byte(path))
	})
}

// ListPluginDirs returns every persisted plugin directory, e.g. to
// repopulate a Context's in-memory set on startup.
func (s *Store) ListPluginDirs() ([]string, error) {
	var dirs []string
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPluginDirs).ForEach(func(k, _ []byte) error {
			dirs = append(dirs, string(k))
			return nil
		})
	})
	return dirs, err
}

// ─────────────────────────────────────────────────────────────────────────────
// Lifecycle event ledger
// ─────────────────────────────────────────────────────────────────────────────

// Event is one recorded plug-in state transition.
type Event struct {
	PluginID  string
	OldState  int
	NewState  int
	Timestamp time.Time
}

// AppendEvent appends ev to the ledger, keyed by a monotonically increasing
// bucket sequence number so ListEvents returns them in occurrence order.
func (s *Store) AppendEvent(ev Event) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEvents)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(itob(seq), data)
	})
}

// ListEvents returns every recorded event, optionally filtered to a single
// plugin id (pass "" for all).
func (s *Store) ListEvents(pluginID string) ([]Event, error) {
	var out []Event
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEvents).ForEach(func(_, v []byte) error {
			var ev Event
			if err := json.Unmarshal(v, &ev); err != nil {
				return err
			}
			if pluginID == "" || ev.PluginID == pluginID {
				out = append(out, ev)
			}
			return nil
		})
	})
	return out, err
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}
