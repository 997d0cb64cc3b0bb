package syncutil

import "sync"

// Package syncutil provides small mutation-safe primitives so the fetch
// orchestrator and trackers can be driven from multiple goroutines without
// callers holding their own locks.

// Counter is a mutex-guarded int64 counter.
type Counter struct {
	mu sync.Mutex
	n  int64
}

// Increment adds one and returns the new value.
func (c *Counter) Increment() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return c.n
}

// Decrement subtracts one and returns the new value.
func (c *Counter) Decrement() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n--
	return c.n
}

// Value returns the current count.
func (c *Counter) Value() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// CountMap is a mutex-guarded string-keyed counter map. Missing keys read as zero.
type CountMap struct {
	mu     sync.Mutex
	counts map[string]int64
}

// NewCountMap builds an empty CountMap.
func NewCountMap() *CountMap {
	return &CountMap{counts: make(map[string]int64)}
}

// Get returns the count for key, zero when absent.
func (m *CountMap) Get(key string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[key]
}

// Set stores value under key.
func (m *CountMap) Set(key string, value int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key] = value
}

// Increment adds delta to key and returns the new value.
func (m *CountMap) Increment(key string, delta int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key] += delta
	return m.counts[key]
}

// GetAll returns a defensive copy of the counts.
func (m *CountMap) GetAll() map[string]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.counts))
	for k, v := range m.counts {
		out[k] = v
	}
	return out
}

// Map is a mutex-guarded generic map.
type Map[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]V
}

// NewMap builds an empty Map.
func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{entries: make(map[K]V)}
}

// Get returns the value for key and whether it was present.
func (m *Map[K, V]) Get(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	return v, ok
}

// Set stores value under key.
func (m *Map[K, V]) Set(key K, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// GetAll returns a defensive copy of the entries.
func (m *Map[K, V]) GetAll() map[K]V {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[K]V, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out
}

// Queue is a mutex-guarded FIFO queue. TotalPut counts every Put ever made and
// is unaffected by consumption.
type Queue[T any] struct {
	mu       sync.Mutex
	items    []T
	totalPut int64
}

// Put appends item to the queue.
func (q *Queue[T]) Put(item T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
	q.totalPut++
}

// Get pops the oldest item, reporting false when the queue is empty.
func (q *Queue[T]) Get() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// GetAll drains the queue atomically and returns the items in insertion order.
func (q *Queue[T]) GetAll() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// TotalPut returns the running count of items ever enqueued.
func (q *Queue[T]) TotalPut() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.totalPut
}
