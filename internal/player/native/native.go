// Package native is the plain engine: it assigns the source to its element
// and relays the element's own events unchanged.
package native

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/noediv/mediaplay/internal/player"
)

// ErrDisposed is returned when Start is called on a disposed engine
var ErrDisposed = errors.New("engine disposed")

// Engine implements player.Engine over a single element
type Engine struct {
	mu       sync.Mutex
	el       player.Element
	listener func(player.Event)
	started  bool
	disposed bool
}

// New creates a native engine bound to el
func New(el player.Element) *Engine {
	return &Engine{el: el}
}

// Kind implements player.Engine
func (e *Engine) Kind() player.EngineKind {
	return player.EngineNative
}

// OnEvent implements player.Engine
func (e *Engine) OnEvent(listener func(player.Event)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = listener
}

// Start implements player.Engine
func (e *Engine) Start(ctx context.Context, url string, _ string) error {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return ErrDisposed
	}
	if e.started {
		e.mu.Unlock()
		return fmt.Errorf("native engine already started")
	}
	e.started = true
	e.mu.Unlock()

	e.el.SetListener(e.relay)
	if err := e.el.Load(ctx, url); err != nil {
		return fmt.Errorf("native element rejected source: %w", err)
	}
	return nil
}

// Dispose implements player.Engine
func (e *Engine) Dispose() {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	e.disposed = true
	e.listener = nil
	e.mu.Unlock()

	e.el.SetListener(nil)
	e.el.Clear()
}

func (e *Engine) relay(ev player.ElementEvent) {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	listener := e.listener
	e.mu.Unlock()

	out, ok := player.Translate(ev)
	if ok && listener != nil {
		listener(out)
	}
}
