// Package rich is the feature-rich engine. It drives a media element through
// per-container handlers: adaptive manifests go through the streaming
// helper, and mkv gets one in-engine retry on the converted endpoint.
package rich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"sync"

	"github.com/noediv/mediaplay/internal/gateway"
	"github.com/noediv/mediaplay/internal/media"
	"github.com/noediv/mediaplay/internal/player"
	"github.com/noediv/mediaplay/internal/streaming"
)

// ErrDisposed is returned when Start is called on a disposed engine
var ErrDisposed = errors.New("engine disposed")

// Handler attaches url to the engine's element for one container type
type Handler func(ctx context.Context, e *Engine, url string) error

// Config wires a rich engine
type Config struct {
	Element player.Element
	// Loader provides the streaming helper. nil disables manifest resolution.
	Loader *streaming.Loader
	// Rewrite maps a raw-endpoint URL to its converted form. Defaults to gateway.ToConverted.
	Rewrite func(string) (string, bool)
	Logger  *slog.Logger
}

// Engine implements player.Engine
type Engine struct {
	mu       sync.Mutex
	el       player.Element
	loader   *streaming.Loader
	rewrite  func(string) (string, bool)
	logger   *slog.Logger
	handlers map[string]Handler

	listener func(player.Event)
	url      string
	started  bool
	disposed bool
	ctx      context.Context
	cancel   context.CancelFunc

	// elMu serializes element loads against the final Clear in Dispose
	elMu sync.Mutex

	// mkv recovery: armed by the mkv handler, spent on first element error
	recoverArmed bool
	recovered    bool
}

// New creates a rich engine with the default container handlers
func New(cfg Config) *Engine {
	if cfg.Rewrite == nil {
		cfg.Rewrite = gateway.ToConverted
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	e := &Engine{
		el:      cfg.Element,
		loader:  cfg.Loader,
		rewrite: cfg.Rewrite,
		logger:  cfg.Logger,
	}
	e.handlers = map[string]Handler{
		"m3u8": handleAdaptive,
		"mkv":  handleMatroska,
	}
	return e
}

// Register installs or replaces the handler for a container extension
func (e *Engine) Register(container string, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[container] = h
}

// Kind implements player.Engine
func (e *Engine) Kind() player.EngineKind {
	return player.EngineRich
}

// OnEvent implements player.Engine
func (e *Engine) OnEvent(listener func(player.Event)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = listener
}

// Start implements player.Engine
func (e *Engine) Start(ctx context.Context, sourceURL string, mimeHint string) error {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return ErrDisposed
	}
	if e.started {
		e.mu.Unlock()
		return fmt.Errorf("rich engine already started")
	}
	e.started = true
	runCtx, cancel := context.WithCancel(ctx)
	e.ctx, e.cancel = runCtx, cancel
	e.url = sourceURL
	handler, ok := e.handlers[containerOf(sourceURL, mimeHint)]
	e.mu.Unlock()

	if !ok {
		handler = handleDirect
	}

	e.el.SetListener(e.onElementEvent)
	return handler(runCtx, e, sourceURL)
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
	if e.cancel != nil {
		e.cancel()
	}
	e.mu.Unlock()

	// Waits for an in-flight attach so its source is the one cleared
	e.elMu.Lock()
	defer e.elMu.Unlock()
	e.el.SetListener(nil)
	e.el.Clear()
}

// URL returns the source currently attached to the element
func (e *Engine) URL() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.url
}

// attach assigns u to the element unless the engine was disposed meanwhile.
// Dispose cannot complete while a load is in flight.
func (e *Engine) attach(ctx context.Context, u string) error {
	e.elMu.Lock()
	defer e.elMu.Unlock()

	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return ErrDisposed
	}
	e.url = u
	e.mu.Unlock()

	if err := e.el.Load(ctx, u); err != nil {
		if ctx.Err() != nil {
			return ErrDisposed
		}
		return err
	}
	return nil
}

func (e *Engine) emit(ev player.Event) {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	listener := e.listener
	e.mu.Unlock()

	if listener != nil {
		listener(ev)
	}
}

func (e *Engine) onElementEvent(ev player.ElementEvent) {
	if ev.Type == player.ElementError && e.tryRecover(ev.Error) {
		return
	}
	if out, ok := player.Translate(ev); ok {
		e.emit(out)
	}
}

// tryRecover performs the one-shot raw->converted retry for mkv sources.
// It reports whether the error was absorbed.
func (e *Engine) tryRecover(cause *player.MediaError) bool {
	e.mu.Lock()
	if e.disposed || !e.recoverArmed || e.recovered {
		e.mu.Unlock()
		return false
	}
	converted, ok := e.rewrite(e.url)
	if !ok {
		e.mu.Unlock()
		return false
	}
	e.recovered = true
	ctx := e.ctx
	e.mu.Unlock()

	e.logger.Info("raw mkv playback failed, retrying on converted endpoint",
		"cause", cause, "url", converted)

	if err := e.attach(ctx, converted); err != nil && !errors.Is(err, ErrDisposed) {
		e.emit(player.ErrorEvent(player.NewMediaError(player.CodeSourceNotSupported,
			"converted retry could not start: %v", err)))
	}
	return true
}

func handleDirect(ctx context.Context, e *Engine, u string) error {
	return e.attach(ctx, u)
}

func handleMatroska(ctx context.Context, e *Engine, u string) error {
	e.mu.Lock()
	e.recoverArmed = true
	e.mu.Unlock()
	return e.attach(ctx, u)
}

// handleAdaptive resolves the manifest through the streaming helper in the
// background; Start returns immediately. Without a helper, or when resolution
// fails, the manifest URL is assigned directly.
func handleAdaptive(ctx context.Context, e *Engine, u string) error {
	if e.loader == nil {
		return e.attach(ctx, u)
	}

	go func() {
		target := u
		resolver, err := e.loader.Load(ctx)
		if err == nil {
			var resolved string
			resolved, err = resolver.Resolve(ctx, u)
			if err == nil {
				target = resolved
			}
		}
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			e.logger.Warn("manifest resolution failed, assigning manifest directly", "url", u, "error", err)
		}
		if err := e.attach(ctx, target); err != nil && !errors.Is(err, ErrDisposed) {
			e.emit(player.ErrorEvent(player.NewMediaError(player.CodeSourceNotSupported,
				"could not attach stream: %v", err)))
		}
	}()
	return nil
}

// containerOf picks the handler key from the MIME hint or the URL's extension
func containerOf(sourceURL, mimeHint string) string {
	if media.IsAdaptiveMIME(mimeHint) {
		return "m3u8"
	}
	if u, err := url.Parse(sourceURL); err == nil {
		if ext := media.DecodedExtension(path.Base(u.Path)); ext != "" {
			return ext
		}
	}
	if mimeHint == "video/x-matroska" {
		return "mkv"
	}
	return ""
}
