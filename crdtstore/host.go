package crdtstore

import "github.com/wbrown/kvqueryengine/crdt"

// Host wires a Store's mutations into one or more crdt.Listener
// implementations (typically registry.Registry and standing.Registry),
// the role the teacher's Database plays for its storage-backed
// matchers: a single write path that both persists and notifies.
type Host struct {
	store     *Store
	listeners []crdt.Listener
}

// NewHost creates a Host over store, notifying listeners after every
// successful write.
func NewHost(store *Store, listeners ...crdt.Listener) *Host {
	return &Host{store: store, listeners: listeners}
}

// Put writes value for key, using the existing value (if any) as
// oldRecord so listeners can distinguish add from update.
func (h *Host) Put(key string, value map[string]interface{}) bool {
	oldRecord, existed := h.store.Get(key)
	if !h.store.SetLocal(key, value) {
		return false
	}
	if existed {
		h.notifyUpdated(key, oldRecord, value)
	} else {
		h.notifyAdded(key, value)
	}
	return true
}

// Delete tombstones key and notifies listeners if a live value existed.
func (h *Host) Delete(key string) bool {
	oldRecord, existed := h.store.Get(key)
	if !existed {
		return false
	}
	if !h.store.TombstoneLocal(key) {
		return false
	}
	h.notifyRemoved(key, oldRecord)
	return true
}

func (h *Host) notifyAdded(key string, record map[string]interface{}) {
	for _, l := range h.listeners {
		safeCall(func() { l.OnRecordAdded(key, record) })
	}
}

func (h *Host) notifyUpdated(key string, oldRecord, newRecord map[string]interface{}) {
	for _, l := range h.listeners {
		safeCall(func() { l.OnRecordUpdated(key, oldRecord, newRecord) })
	}
}

func (h *Host) notifyRemoved(key string, record map[string]interface{}) {
	for _, l := range h.listeners {
		safeCall(func() { l.OnRecordRemoved(key, record) })
	}
}

// safeCall isolates a single listener's panic so one failing
// subscriber cannot prevent sibling notifications.
func safeCall(fn func()) {
	defer func() { recover() }()
	fn()
}
