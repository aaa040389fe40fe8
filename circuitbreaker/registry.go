package circuitbreaker

import (
	"sync"

	"golang.org/x/sync/errgroup"
)

// Registry manages a collection of named Circuit Breaker Strategies
// sharing a result type R, building each lazily on first Get via the
// supplied build func. It is safe for concurrent use.
type Registry[R any] struct {
	mu         sync.RWMutex
	strategies map[string]*Strategy[R]
	build      func(name string) (*Strategy[R], error)
}

// NewRegistry creates a Registry that builds a strategy for a given name
// via build the first time that name is requested.
func NewRegistry[R any](build func(name string) (*Strategy[R], error)) *Registry[R] {
	return &Registry[R]{strategies: make(map[string]*Strategy[R]), build: build}
}

// Get returns the strategy registered under name, building and caching one
// via the registry's build func if it does not exist yet.
func (r *Registry[R]) Get(name string) (*Strategy[R], error) {
	r.mu.RLock()
	s, ok := r.strategies[name]
	r.mu.RUnlock()
	if ok {
		return s, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring the write lock.
	if s, ok = r.strategies[name]; ok {
		return s, nil
	}

	s, err := r.build(name)
	if err != nil {
		return nil, err
	}
	r.strategies[name] = s
	return s, nil
}

// Preload builds a strategy for every name concurrently via an
// errgroup.Group, so a fleet of named breakers can be warmed up at startup
// without paying for their builds one at a time. Names already registered
// are left untouched. Every build runs to completion even if another
// fails; Preload returns the first build error.
func (r *Registry[R]) Preload(names []string) error {
	var g errgroup.Group
	for _, name := range names {
		name := name
		g.Go(func() error {
			_, err := r.Get(name)
			return err
		})
	}
	return g.Wait()
}

// All returns a snapshot of every registered strategy keyed by name.
func (r *Registry[R]) All() map[string]*Strategy[R] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*Strategy[R], len(r.strategies))
	for k, v := range r.strategies {
		out[k] = v
	}
	return out
}

// Close stops every registered strategy's dispatch goroutine. Call it once
// the registry itself is being torn down.
func (r *Registry[R]) Close() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.strategies {
		s.Close()
	}
}
