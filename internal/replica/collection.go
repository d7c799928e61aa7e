// Package replica provides the authority-owned replicated collection: an
// ordered, id-keyed container mutated by a single writer, whose changes are
// delivered as discrete events to observers. Late attachers receive a full
// snapshot rather than a replay of historical events.
package replica

import (
	"errors"
	"sync"
)

// ErrExists is returned by Insert when the key is already present.
var ErrExists = errors.New("record already exists")

// ChangeKind identifies the kind of a change event.
type ChangeKind string

const (
	Added   ChangeKind = "added"
	Removed ChangeKind = "removed"
	Updated ChangeKind = "updated"
)

// Event is one discrete change. Value carries the record's post-mutation
// (or, for Removed, pre-removal) state. Version increases by one per mutation.
type Event[V any] struct {
	Kind    ChangeKind
	Version uint64
	Value   V
}

// Observer receives change events in mutation order. Observers are invoked
// synchronously on the mutating goroutine, outside the collection's lock.
type Observer[V any] func(Event[V])

// Collection is the replicated container. Mutations must come from a single
// authority goroutine; reads and observer registration are safe from any
// goroutine at any time.
type Collection[K comparable, V any] struct {
	mu      sync.RWMutex
	order   []K
	records map[K]V
	version uint64

	obsMu     sync.Mutex
	observers map[uint64]observerEntry[V]
	nextObs   uint64
}

// observerEntry pairs an observer with the version its snapshot was taken at.
// Events at or below that version are already reflected in the snapshot and
// must not be delivered again.
type observerEntry[V any] struct {
	fn    Observer[V]
	after uint64
}

// New creates an empty collection.
func New[K comparable, V any]() *Collection[K, V] {
	return &Collection[K, V]{
		records:   make(map[K]V),
		observers: make(map[uint64]observerEntry[V]),
	}
}

// Insert appends a record at the end and emits an Added event.
func (c *Collection[K, V]) Insert(key K, value V) error {
	c.mu.Lock()
	if _, ok := c.records[key]; ok {
		c.mu.Unlock()
		return ErrExists
	}
	c.order = append(c.order, key)
	c.records[key] = value
	c.version++
	ev := Event[V]{Kind: Added, Version: c.version, Value: value}
	c.mu.Unlock()

	c.dispatch(ev)
	return nil
}

// Update replaces a record's value in place, preserving its position, and
// emits an Updated event. It reports whether the key was present.
func (c *Collection[K, V]) Update(key K, value V) bool {
	c.mu.Lock()
	if _, ok := c.records[key]; !ok {
		c.mu.Unlock()
		return false
	}
	c.records[key] = value
	c.version++
	ev := Event[V]{Kind: Updated, Version: c.version, Value: value}
	c.mu.Unlock()

	c.dispatch(ev)
	return true
}

// Remove deletes a record and emits a Removed event carrying its final value.
func (c *Collection[K, V]) Remove(key K) (V, bool) {
	c.mu.Lock()
	value, ok := c.records[key]
	if !ok {
		c.mu.Unlock()
		var zero V
		return zero, false
	}
	delete(c.records, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.version++
	ev := Event[V]{Kind: Removed, Version: c.version, Value: value}
	c.mu.Unlock()

	c.dispatch(ev)
	return value, true
}

// RemoveFirst removes the first record, in insertion order, matching pred.
func (c *Collection[K, V]) RemoveFirst(pred func(V) bool) (V, bool) {
	c.mu.RLock()
	var match K
	found := false
	for _, k := range c.order {
		if pred(c.records[k]) {
			match = k
			found = true
			break
		}
	}
	c.mu.RUnlock()

	if !found {
		var zero V
		return zero, false
	}
	return c.Remove(match)
}

// Get returns the record stored under key.
func (c *Collection[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.records[key]
	return value, ok
}

// Find returns the first record, in insertion order, matching pred.
func (c *Collection[K, V]) Find(pred func(V) bool) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, k := range c.order {
		if v := c.records[k]; pred(v) {
			return v, true
		}
	}
	var zero V
	return zero, false
}

// Snapshot returns all records in insertion order.
func (c *Collection[K, V]) Snapshot() []V {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]V, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.records[k])
	}
	return out
}

// Len returns the record count.
func (c *Collection[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Version returns the current mutation counter.
func (c *Collection[K, V]) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Subscribe registers an observer and returns a snapshot of the state it will
// observe changes from, plus a cancel function. The observer misses no event
// that postdates the snapshot and never receives one the snapshot already
// reflects: the snapshot's version is recorded and earlier events are dropped
// before delivery, covering the window between a mutation releasing the
// collection lock and its dispatch reaching the observer list.
func (c *Collection[K, V]) Subscribe(fn Observer[V]) ([]V, func()) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()

	snapshot, version := c.snapshotVersioned()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = observerEntry[V]{fn: fn, after: version}

	return snapshot, func() {
		c.obsMu.Lock()
		defer c.obsMu.Unlock()
		delete(c.observers, id)
	}
}

func (c *Collection[K, V]) snapshotVersioned() ([]V, uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]V, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.records[k])
	}
	return out, c.version
}

func (c *Collection[K, V]) dispatch(ev Event[V]) {
	c.obsMu.Lock()
	fns := make([]Observer[V], 0, len(c.observers))
	for _, entry := range c.observers {
		if ev.Version > entry.after {
			fns = append(fns, entry.fn)
		}
	}
	c.obsMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
