// Package hlc implements a hybrid logical clock (millis, counter,
// nodeId), the ordering primitive the external CRDT collaborator uses
// and that crdtstore exercises concretely.
package hlc

import (
	"fmt"
	"sync"
)

// Timestamp is a single HLC reading: wall-clock millis, a
// same-millisecond tiebreak counter, and the originating node.
type Timestamp struct {
	Millis  int64
	Counter uint32
	NodeID  string
}

// Compare orders timestamps by (millis, counter, nodeId), total order.
func Compare(a, b Timestamp) int {
	switch {
	case a.Millis != b.Millis:
		if a.Millis < b.Millis {
			return -1
		}
		return 1
	case a.Counter != b.Counter:
		if a.Counter < b.Counter {
			return -1
		}
		return 1
	case a.NodeID != b.NodeID:
		if a.NodeID < b.NodeID {
			return -1
		}
		return 1
	default:
		return 0
	}
}

// Less reports whether a happened-before b under HLC order.
func Less(a, b Timestamp) bool { return Compare(a, b) < 0 }

// String renders a Timestamp for logging/debugging.
func (t Timestamp) String() string {
	return fmt.Sprintf("%d.%d@%s", t.Millis, t.Counter, t.NodeID)
}

// NowFunc supplies wall-clock millis; overridable in tests.
type NowFunc func() int64

// Clock generates monotonically increasing Timestamps for one node.
type Clock struct {
	mu      sync.Mutex
	nodeID  string
	now     NowFunc
	lastMs  int64
	counter uint32
}

// NewClock creates a Clock for nodeID using now to read wall-clock
// millis.
func NewClock(nodeID string, now NowFunc) *Clock {
	return &Clock{nodeID: nodeID, now: now}
}

// Tick produces the next Timestamp, bumping the counter within the
// same millisecond and resetting it when wall-clock time advances.
func (c *Clock) Tick() Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()

	ms := c.now()
	if ms <= c.lastMs {
		c.counter++
		ms = c.lastMs
	} else {
		c.lastMs = ms
		c.counter = 0
	}
	return Timestamp{Millis: ms, Counter: c.counter, NodeID: c.nodeID}
}

// Observe merges an externally-received timestamp into the clock so a
// subsequent Tick always sorts after it, the HLC receive rule.
func (c *Clock) Observe(remote Timestamp) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ms := c.now()
	maxMs := ms
	if remote.Millis > maxMs {
		maxMs = remote.Millis
	}
	if c.lastMs > maxMs {
		maxMs = c.lastMs
	}

	switch {
	case maxMs == c.lastMs && maxMs == remote.Millis:
		if remote.Counter >= c.counter {
			c.counter = remote.Counter + 1
		} else {
			c.counter++
		}
	case maxMs == remote.Millis:
		c.counter = remote.Counter + 1
	case maxMs == c.lastMs:
		c.counter++
	default:
		c.counter = 0
	}
	c.lastMs = maxMs
}
