// Package cache holds short-lived, process-local copies of upstream results.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/riskibarqy/match-aggregator/internal/platform/resilience"
)

const defaultLoadTimeout = 30 * time.Second

// Store is a TTL map whose misses are loaded once per key, however many
// callers are waiting. A non-positive TTL keeps entries forever.
type Store[V any] struct {
	ttl         time.Duration
	loadTimeout time.Duration
	now         func() time.Time
	flight      resilience.SingleFlight[V]

	mu        sync.Mutex
	values    map[string]V
	expires   map[string]time.Time
	nextSweep time.Time
}

// NewStore builds a store. loadTimeout bounds a shared load, which runs
// detached from the callers waiting on it; non-positive means 30s.
func NewStore[V any](ttl, loadTimeout time.Duration) *Store[V] {
	if loadTimeout <= 0 {
		loadTimeout = defaultLoadTimeout
	}
	return &Store[V]{
		ttl:         ttl,
		loadTimeout: loadTimeout,
		now:         time.Now,
		values:      make(map[string]V),
		expires:     make(map[string]time.Time),
	}
}

// Get returns a live entry. Expired entries are evicted on read.
func (s *Store[V]) Get(key string) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[key]
	if !ok {
		return v, false
	}
	if deadline, ok := s.expires[key]; ok && !s.now().Before(deadline) {
		delete(s.values, key)
		delete(s.expires, key)
		var zero V
		return zero, false
	}
	return v, true
}

// Set stores value. At most once per TTL it also drops every expired entry,
// so keys that are never read again do not pile up.
func (s *Store[V]) Set(key string, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	if s.ttl <= 0 {
		return
	}
	now := s.now()
	s.expires[key] = now.Add(s.ttl)
	if !now.Before(s.nextSweep) {
		s.sweep(now)
		s.nextSweep = now.Add(s.ttl)
	}
}

func (s *Store[V]) sweep(now time.Time) {
	for key, deadline := range s.expires {
		if !now.Before(deadline) {
			delete(s.values, key)
			delete(s.expires, key)
		}
	}
}

func (s *Store[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}

// GetOrLoad serves key from the store or from one shared call to load.
// Failed loads are not stored. An empty key bypasses the store entirely.
// A caller whose ctx ends stops waiting without failing the others.
func (s *Store[V]) GetOrLoad(ctx context.Context, key string, load func(context.Context) (V, error)) (V, error) {
	if load == nil {
		var zero V
		return zero, errors.New("cache: nil loader")
	}
	if key == "" {
		return load(ctx)
	}
	if v, ok := s.Get(key); ok {
		return v, nil
	}

	v, err, _ := s.flight.Do(ctx, key, func() (V, error) {
		if v, ok := s.Get(key); ok {
			return v, nil
		}
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
		defer cancel()
		v, err := load(loadCtx)
		if err == nil {
			s.Set(key, v)
		}
		return v, err
	})
	return v, err
}
