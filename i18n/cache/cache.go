// Package cache holds the lock-guarded cells backing every cache tier of the
// localization engine.
//
// Reads of a populated cell never take a lock. A miss takes the cell's mutex,
// checks again and computes the value at most once; concurrent readers block
// on the mutex and then observe the stored value. Clearing takes the same
// mutex, so a reader never sees a half-cleared tier and an in-flight fill
// always completes before the clear that follows it.
package cache

import (
	"sync"
	"sync/atomic"
)

// Cell holds one lazily computed value.
type Cell[T any] struct {
	mu     sync.Mutex
	v      atomic.Pointer[T]
	fills  atomic.Int64
	clears atomic.Int64
}

// Get returns the cached value, computing it with fill when the cell is
// empty. A failed fill leaves the cell empty.
func (c *Cell[T]) Get(fill func() (T, error)) (T, error) {
	if p := c.v.Load(); p != nil {
		return *p, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if p := c.v.Load(); p != nil {
		return *p, nil
	}

	v, err := fill()
	if err != nil {
		var zero T
		return zero, err
	}
	c.v.Store(&v)
	c.fills.Add(1)
	return v, nil
}

// Peek returns the cached value without computing it.
func (c *Cell[T]) Peek() (T, bool) {
	if p := c.v.Load(); p != nil {
		return *p, true
	}
	var zero T
	return zero, false
}

// Clear empties the cell.
func (c *Cell[T]) Clear() {
	c.ClearWith(nil)
}

// ClearWith runs fn while holding the cell's lock and then empties the cell.
// Upstream state that a fill reads from can be reset inside fn without racing
// a concurrent fill.
func (c *Cell[T]) ClearWith(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fn != nil {
		fn()
	}
	c.v.Store(nil)
	c.clears.Add(1)
}

// Fills reports how many times the cell has been populated.
func (c *Cell[T]) Fills() int64 { return c.fills.Load() }

// Clears reports how many times the cell has been cleared.
func (c *Cell[T]) Clears() int64 { return c.clears.Load() }

// Map is a keyed cache tier. Entries are created lazily and cleared
// wholesale; Delete exists for tiers that evict a single key.
type Map[K comparable, V any] struct {
	mu     sync.Mutex
	m      atomic.Pointer[sync.Map]
	fills  atomic.Int64
	clears atomic.Int64
}

func (c *Map[K, V]) entries() *sync.Map {
	if m := c.m.Load(); m != nil {
		return m
	}
	c.m.CompareAndSwap(nil, new(sync.Map))
	return c.m.Load()
}

// Get returns the value for k, computing it with fill on a miss. Only one
// fill runs at a time per tier. A failed fill stores nothing.
func (c *Map[K, V]) Get(k K, fill func() (V, error)) (V, error) {
	if v, ok := c.entries().Load(k); ok {
		return v.(V), nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.entries()
	if v, ok := m.Load(k); ok {
		return v.(V), nil
	}

	v, err := fill()
	if err != nil {
		var zero V
		return zero, err
	}
	m.Store(k, v)
	c.fills.Add(1)
	return v, nil
}

// Load returns the value for k without computing it.
func (c *Map[K, V]) Load(k K) (V, bool) {
	if v, ok := c.entries().Load(k); ok {
		return v.(V), true
	}
	var zero V
	return zero, false
}

// Store sets the value for k.
func (c *Map[K, V]) Store(k K, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries().Store(k, v)
	c.fills.Add(1)
}

// Delete evicts k and reports whether it was present.
func (c *Map[K, V]) Delete(k K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries().LoadAndDelete(k)
	return ok
}

// Clear drops every entry.
func (c *Map[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m.Store(new(sync.Map))
	c.clears.Add(1)
}

// Len counts the cached entries.
func (c *Map[K, V]) Len() int {
	n := 0
	c.entries().Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Fills reports how many entries have been populated since creation.
func (c *Map[K, V]) Fills() int64 { return c.fills.Load() }

// Clears reports how many times the tier has been cleared.
func (c *Map[K, V]) Clears() int64 { return c.clears.Load() }
