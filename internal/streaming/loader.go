// Package streaming holds the adaptive-streaming helper used by the rich
// engine and the process-wide loader that initialises it once.
package streaming

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Resolver turns a manifest URL into the URL a media element should load
type Resolver interface {
	Resolve(ctx context.Context, manifestURL string) (string, error)
}

// Factory builds a Resolver. It runs at most once per successful load.
type Factory func(ctx context.Context) (Resolver, error)

// Loader lazily initialises the streaming helper.
//
// The first successful Load caches the helper for the life of the process;
// concurrent callers share one in-flight initialisation. A failed
// initialisation is not cached, so a later Load tries again. Create one
// Loader per process and inject it into every engine that needs it.
type Loader struct {
	factory Factory
	group   singleflight.Group

	mu       sync.RWMutex
	resolver Resolver
}

// NewLoader creates a loader around factory
func NewLoader(factory Factory) *Loader {
	return &Loader{factory: factory}
}

// Load returns the helper, initialising it on first use. Cancelling ctx
// abandons the wait but not the shared initialisation.
func (l *Loader) Load(ctx context.Context) (Resolver, error) {
	l.mu.RLock()
	r := l.resolver
	l.mu.RUnlock()
	if r != nil {
		return r, nil
	}

	ch := l.group.DoChan("helper", func() (any, error) {
		l.mu.RLock()
		cached := l.resolver
		l.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		resolver, err := l.factory(context.WithoutCancel(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to load streaming helper: %w", err)
		}

		l.mu.Lock()
		l.resolver = resolver
		l.mu.Unlock()
		return resolver, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Resolver), nil
	}
}

// Loaded reports whether the helper has been initialised
func (l *Loader) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.resolver != nil
}
