// Package crdtstore is a reference implementation of crdt.LWWRegister
// backed by BadgerDB, giving the query core something concrete to run
// against. It is deliberately outside the query core's import graph:
// the core reads only a K->V snapshot and never knows Badger or HLC
// exist.
package crdtstore

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/wbrown/kvqueryengine/crdt"
	"github.com/wbrown/kvqueryengine/hlc"
)

// Store is a BadgerDB-backed last-writer-wins register keyed by HLC
// timestamp. It satisfies crdt.LWWRegister.
type Store struct {
	db    *badger.DB
	clock *hlc.Clock
}

// record is the on-disk envelope: the live value (nil if tombstoned)
// plus the HLC timestamp of its last write, so a later Set/Tombstone
// can decide whether to apply.
type record struct {
	Value     map[string]interface{} `json:"value,omitempty"`
	Tombstone bool                    `json:"tombstone,omitempty"`
	Timestamp hlc.Timestamp           `json:"ts"`
}

// Open creates or opens a BadgerDB-backed Store at path, using clock
// for local writes.
func Open(path string, clock *hlc.Clock) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("crdtstore: failed to open badger: %w", err)
	}
	return &Store{db: db, clock: clock}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Get returns the current value for key if it is live (not
// tombstoned).
func (s *Store) Get(key string) (map[string]interface{}, bool) {
	var rec *record
	_ = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var r record
			if err := json.Unmarshal(val, &r); err != nil {
				return err
			}
			rec = &r
			return nil
		})
	})
	if rec == nil || rec.Tombstone {
		return nil, false
	}
	return rec.Value, true
}

// Set writes value for key at ts, applying last-writer-wins: the
// write is discarded (returns false) if a later timestamp has already
// been recorded for key.
func (s *Store) Set(key string, value map[string]interface{}, ts hlc.Timestamp) bool {
	applied := false
	_ = s.db.Update(func(txn *badger.Txn) error {
		existing, ok := s.readLocked(txn, key)
		if ok && hlc.Less(ts, existing.Timestamp) {
			return nil
		}
		rec := record{Value: value, Timestamp: ts}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := txn.Set([]byte(key), data); err != nil {
			return err
		}
		applied = true
		return nil
	})
	return applied
}

// Tombstone marks key removed as of ts, subject to the same
// last-writer-wins rule as Set.
func (s *Store) Tombstone(key string, ts hlc.Timestamp) bool {
	applied := false
	_ = s.db.Update(func(txn *badger.Txn) error {
		existing, ok := s.readLocked(txn, key)
		if ok && hlc.Less(ts, existing.Timestamp) {
			return nil
		}
		rec := record{Tombstone: true, Timestamp: ts}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := txn.Set([]byte(key), data); err != nil {
			return err
		}
		applied = true
		return nil
	})
	return applied
}

func (s *Store) readLocked(txn *badger.Txn, key string) (record, bool) {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return record{}, false
	}
	var rec record
	err = item.Value(func(val []byte) error { return json.Unmarshal(val, &rec) })
	if err != nil {
		return record{}, false
	}
	return rec, true
}

// Snapshot returns every live key->value pair, the K->V view the
// query core's executor reads from.
func (s *Store) Snapshot() map[string]map[string]interface{} {
	out := make(map[string]map[string]interface{})
	_ = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.KeyCopy(nil))
			err := item.Value(func(val []byte) error {
				var rec record
				if err := json.Unmarshal(val, &rec); err != nil {
					return err
				}
				if !rec.Tombstone {
					out[key] = rec.Value
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return out
}

var _ crdt.LWWRegister = (*Store)(nil)

// SetLocal is a convenience wrapper over Set that stamps the write
// with a fresh local HLC tick.
func (s *Store) SetLocal(key string, value map[string]interface{}) bool {
	return s.Set(key, value, s.clock.Tick())
}

// TombstoneLocal is a convenience wrapper over Tombstone using a fresh
// local HLC tick.
func (s *Store) TombstoneLocal(key string) bool {
	return s.Tombstone(key, s.clock.Tick())
}
