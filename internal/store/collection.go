package store

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNoRecord is returned when a keyed record does not exist
var ErrNoRecord = errors.New("store: no record")

// Collection is an in-memory keyed table that remembers insertion order.
// The RWMutex only guards the map itself; read-modify-write cycles go
// through Update, or UpdateLocked when the caller already holds the key lock.
type Collection[T any] struct {
	name   string
	locker *Locker

	mu    sync.RWMutex
	seq   int64
	items map[int64]T
	order []int64
}

func newCollection[T any](name string, locker *Locker) *Collection[T] {
	return &Collection[T]{
		name:   name,
		locker: locker,
		items:  make(map[int64]T),
	}
}

// Name returns the collection name used as lock key prefix
func (c *Collection[T]) Name() string {
	return c.name
}

// Key returns the lock key of a record
func (c *Collection[T]) Key(id int64) string {
	return fmt.Sprintf("%s:%d", c.name, id)
}

// Lock acquires the key locks of the given records
func (c *Collection[T]) Lock(ids ...int64) func() {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.Key(id)
	}
	return c.locker.Lock(keys...)
}

// NextID reserves the next sequence value
func (c *Collection[T]) NextID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Insert assigns a fresh id, builds the record with it and stores it
func (c *Collection[T]) Insert(build func(id int64) T) T {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	id := c.seq
	v := build(id)
	c.items[id] = v
	c.order = append(c.order, id)
	return v
}

// Put stores a record under an explicit id, replacing any previous value
func (c *Collection[T]) Put(id int64, v T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[id]; !ok {
		c.order = append(c.order, id)
	}
	c.items[id] = v
}

// Get returns a copy of a record
func (c *Collection[T]) Get(id int64) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[id]
	return v, ok
}

// Find returns the first record in insertion order matching pred
func (c *Collection[T]) Find(pred func(T) bool) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, id := range c.order {
		if v := c.items[id]; pred(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// List returns every record matching pred in insertion order. A nil pred matches all.
func (c *Collection[T]) List(pred func(T) bool) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]T, 0, len(c.order))
	for _, id := range c.order {
		v := c.items[id]
		if pred == nil || pred(v) {
			out = append(out, v)
		}
	}
	return out
}

// Len returns the number of records
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Update applies fn to a copy of the record under its key lock and stores
// the result unless fn fails.
func (c *Collection[T]) Update(id int64, fn func(*T) error) (T, error) {
	unlock := c.Lock(id)
	defer unlock()
	return c.UpdateLocked(id, fn)
}

// UpdateLocked is Update for callers that already hold the record's key lock.
func (c *Collection[T]) UpdateLocked(id int64, fn func(*T) error) (T, error) {
	v, ok := c.Get(id)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s %d: %w", c.name, id, ErrNoRecord)
	}

	if err := fn(&v); err != nil {
		var zero T
		return zero, err
	}

	c.mu.Lock()
	c.items[id] = v
	c.mu.Unlock()
	return v, nil
}
