package playertest

import (
	"context"
	"sync"

	"github.com/noediv/mediaplay/internal/player"
)

// Engine is a scriptable player.Engine
type Engine struct {
	kind player.EngineKind

	mu       sync.Mutex
	listener func(player.Event)
	url      string
	mimeHint string
	startErr error
	started  bool
	disposed bool
}

// NewEngine creates a fake engine of the given kind
func NewEngine(kind player.EngineKind) *Engine {
	return &Engine{kind: kind}
}

// FailStart makes Start return err
func (e *Engine) FailStart(err error) *Engine {
	e.startErr = err
	return e
}

// Kind implements player.Engine
func (e *Engine) Kind() player.EngineKind {
	return e.kind
}

// Start implements player.Engine
func (e *Engine) Start(_ context.Context, url string, mimeHint string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.started = true
	e.url = url
	e.mimeHint = mimeHint
	return e.startErr
}

// Dispose implements player.Engine
func (e *Engine) Dispose() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disposed = true
	e.listener = nil
}

// OnEvent implements player.Engine
func (e *Engine) OnEvent(listener func(player.Event)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = listener
}

// Emit delivers ev to the listener unless the engine was disposed
func (e *Engine) Emit(ev player.Event) {
	e.mu.Lock()
	listener := e.listener
	disposed := e.disposed
	e.mu.Unlock()
	if listener != nil && !disposed {
		listener(ev)
	}
}

// EmitError delivers an error event
func (e *Engine) EmitError(code player.ErrorCode, msg string) {
	e.Emit(player.ErrorEvent(&player.MediaError{Code: code, Message: msg}))
}

// URL returns the source passed to Start
func (e *Engine) URL() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.url
}

// MIMEHint returns the hint passed to Start
func (e *Engine) MIMEHint() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mimeHint
}

// Started reports whether Start was called
func (e *Engine) Started() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.started
}

// Disposed reports whether Dispose was called
func (e *Engine) Disposed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.disposed
}
