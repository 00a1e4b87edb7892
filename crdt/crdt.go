// Package crdt declares the external collaborator interfaces the
// query core consumes but never implements: the CRDT registers that
// own record state and notify the index registries after each
// successful apply. Only interfaces live here; concrete
// implementations are out of the core's scope.
package crdt

import "github.com/wbrown/kvqueryengine/hlc"

// Listener is what a CRDT register notifies after applying a mutation.
// The query core's registries implement this to stay in sync.
type Listener interface {
	OnRecordAdded(key string, record map[string]interface{})
	OnRecordUpdated(key string, oldRecord, newRecord map[string]interface{})
	OnRecordRemoved(key string, record map[string]interface{})
}

// LWWRegister is a last-writer-wins register keyed by HLC timestamp:
// the host CRDT the query core reads its K->V snapshot from.
type LWWRegister interface {
	// Get returns the current value for key, if any live value exists.
	Get(key string) (value map[string]interface{}, ok bool)
	// Set applies a write at ts, discarding it if a later write has
	// already been observed for key (last-writer-wins).
	Set(key string, value map[string]interface{}, ts hlc.Timestamp) bool
	// Tombstone marks key removed as of ts.
	Tombstone(key string, ts hlc.Timestamp) bool
	// Snapshot returns every live key->value pair.
	Snapshot() map[string]map[string]interface{}
}

// ORMap is an observed-remove map: multiple concurrent writers may add
// the same key and removal only retracts observed additions.
type ORMap interface {
	Add(key string, value map[string]interface{}, ts hlc.Timestamp)
	Remove(key string, ts hlc.Timestamp)
	Get(key string) (value map[string]interface{}, ok bool)
	Snapshot() map[string]map[string]interface{}
}

// PNCounter is a positive-negative counter CRDT. The query core never
// indexes counter records directly (scenario 5): this interface exists
// only so a host can type-check a counter collaborator. Like
// LWWRegister and ORMap it declares no notification methods; those
// belong to Listener.
type PNCounter interface {
	Increment(nodeID string, delta int64)
	Decrement(nodeID string, delta int64)
	Value() int64
}
