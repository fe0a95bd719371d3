// Package store provides the capacity-bounded, identity-keyed entity map used
// for every cache collection. A store never owns the lifetime of entities it
// only references; it holds at most one live instance per id.
package store

import (
	"container/list"
	"sync"

	"ex-otogi-gateway/pkg/gateway"
)

// Factory constructs a new entity from a raw payload.
type Factory[T any] func(raw gateway.Payload) T

// KeyFunc derives the store key from a raw payload.
type KeyFunc func(raw gateway.Payload) string

// DefaultKey reads the top-level "id" key.
func DefaultKey(raw gateway.Payload) string {
	return raw.String("id")
}

type config struct {
	limit   int
	cache   bool
	key     KeyFunc
	onEvict func(id string)
}

// Option mutates store construction configuration.
type Option func(*config)

// WithLimit bounds the store to limit entries. Zero or negative means unbounded.
func WithLimit(limit int) Option {
	return func(cfg *config) {
		cfg.limit = limit
	}
}

// WithCaching controls whether Ensure inserts newly built entities.
func WithCaching(enabled bool) Option {
	return func(cfg *config) {
		cfg.cache = enabled
	}
}

// WithKey overrides how Ensure derives ids from payloads.
func WithKey(key KeyFunc) Option {
	return func(cfg *config) {
		if key != nil {
			cfg.key = key
		}
	}
}

// WithOnEvict registers a callback invoked for every capacity eviction.
func WithOnEvict(onEvict func(id string)) Option {
	return func(cfg *config) {
		cfg.onEvict = onEvict
	}
}

// Store is a bounded identity map of entities.
//
// Capacity evictions drop the least recently inserted entry. Reads are safe
// from any goroutine; writes are expected from the dispatch goroutine only.
type Store[T gateway.Model[T]] struct {
	factory Factory[T]
	cfg     config

	mu    sync.RWMutex
	items map[string]*list.Element
	order *list.List
}

type entry[T any] struct {
	id    string
	value T
}

// New creates an empty store. The factory backs Ensure for unseen ids.
func New[T gateway.Model[T]](factory Factory[T], options ...Option) *Store[T] {
	cfg := config{
		cache: true,
		key:   DefaultKey,
	}
	for _, option := range options {
		option(&cfg)
	}

	return &Store[T]{
		factory: factory,
		cfg:     cfg,
		items:   make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Get returns the entity stored under id.
func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	element, exists := s.items[id]
	if !exists {
		var zero T
		return zero, false
	}

	return element.Value.(*entry[T]).value, true
}

// Has reports whether id is stored.
func (s *Store[T]) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.items[id]

	return exists
}

// Set stores value under id, replacing any previous value and evicting the
// oldest entries once the limit is exceeded.
func (s *Store[T]) Set(id string, value T) {
	if id == "" {
		return
	}

	evicted := s.setLocked(id, value)
	if s.cfg.onEvict == nil {
		return
	}
	for _, evictedID := range evicted {
		s.cfg.onEvict(evictedID)
	}
}

func (s *Store[T]) setLocked(id string, value T) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if element, exists := s.items[id]; exists {
		element.Value.(*entry[T]).value = value
		s.order.MoveToFront(element)
		return nil
	}

	s.items[id] = s.order.PushFront(&entry[T]{id: id, value: value})

	var evicted []string
	for s.cfg.limit > 0 && len(s.items) > s.cfg.limit {
		back := s.order.Back()
		if back == nil {
			break
		}
		oldest := back.Value.(*entry[T])
		s.order.Remove(back)
		delete(s.items, oldest.id)
		evicted = append(evicted, oldest.id)
	}

	return evicted
}

// Delete removes id and reports whether it was present.
func (s *Store[T]) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	element, exists := s.items[id]
	if !exists {
		return false
	}
	s.order.Remove(element)
	delete(s.items, id)

	return true
}

// Ensure upserts raw: an existing entity is patched in place and returned,
// otherwise a new entity is built and inserted when caching is enabled.
func (s *Store[T]) Ensure(raw gateway.Payload) T {
	id := s.cfg.key(raw)
	if existing, found := s.Get(id); found {
		return existing.Patch(raw)
	}

	var built T
	if s.factory == nil {
		return built
	}
	built = s.factory(raw)
	if s.cfg.cache {
		s.Set(id, built)
	}

	return built
}

// Len returns the number of stored entities.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.items)
}

// Limit returns the configured capacity, zero when unbounded.
func (s *Store[T]) Limit() int {
	if s.cfg.limit < 0 {
		return 0
	}

	return s.cfg.limit
}

// CacheEnabled reports whether Ensure inserts built entities.
func (s *Store[T]) CacheEnabled() bool {
	return s.cfg.cache
}

// Keys returns ids in insertion order, oldest first.
func (s *Store[T]) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.items))
	for element := s.order.Back(); element != nil; element = element.Prev() {
		keys = append(keys, element.Value.(*entry[T]).id)
	}

	return keys
}

// Values returns entities in insertion order, oldest first.
func (s *Store[T]) Values() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values := make([]T, 0, len(s.items))
	for element := s.order.Back(); element != nil; element = element.Prev() {
		values = append(values, element.Value.(*entry[T]).value)
	}

	return values
}

// Each visits entities oldest first until fn returns false.
//
// fn runs on a snapshot, so it may mutate the store.
func (s *Store[T]) Each(fn func(id string, value T) bool) {
	s.mu.RLock()
	snapshot := make([]entry[T], 0, len(s.items))
	for element := s.order.Back(); element != nil; element = element.Prev() {
		snapshot = append(snapshot, *element.Value.(*entry[T]))
	}
	s.mu.RUnlock()

	for _, item := range snapshot {
		if !fn(item.id, item.value) {
			return
		}
	}
}

// Find returns the first entity accepted by match, oldest first.
func (s *Store[T]) Find(match func(T) bool) (T, bool) {
	var found T
	var ok bool
	s.Each(func(_ string, value T) bool {
		if match(value) {
			found, ok = value, true
			return false
		}
		return true
	})

	return found, ok
}

// Filter returns every entity accepted by match, oldest first.
func (s *Store[T]) Filter(match func(T) bool) []T {
	var matched []T
	s.Each(func(_ string, value T) bool {
		if match(value) {
			matched = append(matched, value)
		}
		return true
	})

	return matched
}

// Clear removes every entity.
func (s *Store[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[string]*list.Element)
	s.order.Init()
}
