// Package dedup remembers recently seen keys so repeated webhook deliveries are processed once.
package dedup

import (
	"container/list"
	"sync"
	"time"
)

// Defaults for New.
const (
	DefaultTTL      = 5 * time.Minute
	DefaultCapacity = 10000
)

// Set is a bounded, time-windowed set of keys. When full, the oldest key is evicted.
type Set struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	now      func() time.Time
	order    *list.List
	items    map[string]*list.Element
}

type entry struct {
	key  string
	seen time.Time
}

// Option configures a Set.
type Option func(*Set)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Set) {
		s.now = now
	}
}

// New creates a set. Non-positive ttl or capacity use the defaults.
func New(ttl time.Duration, capacity int, opts ...Option) *Set {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	s := &Set{
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seen records key and reports whether it was already recorded within the TTL.
// A repeated sighting does not extend the window.
func (s *Set) Seen(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.expire(now)
	if _, ok := s.items[key]; ok {
		return true
	}
	s.items[key] = s.order.PushBack(&entry{key: key, seen: now})
	for s.order.Len() > s.capacity {
		s.remove(s.order.Front())
	}
	return false
}

// Forget drops key so the next Seen for it reports false.
func (s *Set) Forget(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.items[key]; ok {
		s.remove(e)
	}
}

// Len returns the number of live keys.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expire(s.now())
	return s.order.Len()
}

// expire drops keys older than the TTL. Keys are kept in insertion order.
func (s *Set) expire(now time.Time) {
	for e := s.order.Front(); e != nil; e = s.order.Front() {
		if now.Sub(e.Value.(*entry).seen) < s.ttl {
			return
		}
		s.remove(e)
	}
}

func (s *Set) remove(e *list.Element) {
	s.order.Remove(e)
	delete(s.items, e.Value.(*entry).key)
}
