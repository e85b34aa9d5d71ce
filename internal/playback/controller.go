// Package playback implements the playback resilience controller: it probes
// a source, binds one engine to it, watches for failure and escalates
// through engine, source and cache-busted retries.
package playback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/noediv/mediaplay/internal/gateway"
	"github.com/noediv/mediaplay/internal/media"
	"github.com/noediv/mediaplay/internal/player"
	"github.com/noediv/mediaplay/internal/probe"
)

// EngineFactory constructs a fresh, unstarted engine of the given kind
type EngineFactory func(kind player.EngineKind) (player.Engine, error)

// Config wires a controller to its collaborators
type Config struct {
	Endpoints     *gateway.Endpoints
	Prober        probe.Prober
	Engines       EngineFactory
	DefaultEngine player.EngineKind
	// AutoEngineFallback switches rich to native once when the rich engine
	// cannot be initialised
	AutoEngineFallback bool
	// LoadTimeout fails a load that produces neither ready nor error. Zero disables it.
	LoadTimeout time.Duration
	Logger      *slog.Logger
}

type commandKind int

const (
	cmdStart commandKind = iota
	cmdRetry
	cmdSwitchEngine
	cmdSwitchSource
	cmdFormatOverride
)

func (k commandKind) String() string {
	switch k {
	case cmdStart:
		return "start"
	case cmdRetry:
		return "retry"
	case cmdSwitchEngine:
		return "switch-engine"
	case cmdSwitchSource:
		return "switch-source"
	case cmdFormatOverride:
		return "format-override"
	default:
		return "unknown"
	}
}

type command struct {
	kind  commandKind
	arg   string
	reply chan error
}

type engineEvent struct {
	gen uint64
	ev  player.Event
}

type probeOutcome struct {
	gen uint64
	url string
	res probe.Result
}

// session is owned by the event loop goroutine
type session struct {
	status   Status
	source   SourceMode
	engine   player.EngineKind
	override string
	attempt  int
	url      string
	lastErr  *Error
	history  *history

	gen         uint64
	handle      player.Engine
	probeCancel context.CancelFunc
	watchdog    *time.Timer

	autoEscalated  bool
	engineFellBack bool
}

// Controller owns one playback session.
//
// All session state is mutated by a single event loop goroutine; commands
// are synchronous and return once the loop has applied them. Engine events
// and probe results carry the generation they were created under and are
// dropped once superseded.
type Controller struct {
	id     string
	cfg    Config
	req    Request
	name   string
	format media.Format
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup

	cmds     chan command
	events   chan engineEvent
	probes   chan probeOutcome
	timeouts chan uint64

	s session

	mu       sync.RWMutex
	snapshot Snapshot
	subs     []chan Snapshot
	closed   bool
}

// New creates an idle session for req and starts its event loop.
// Cancelling ctx destroys the session.
func New(ctx context.Context, cfg Config, req Request) (*Controller, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid playback request: %w", err)
	}
	if cfg.Endpoints == nil {
		return nil, fmt.Errorf("gateway endpoints are required")
	}
	if cfg.Prober == nil {
		return nil, fmt.Errorf("prober is required")
	}
	if cfg.Engines == nil {
		return nil, fmt.Errorf("engine factory is required")
	}
	if cfg.DefaultEngine == "" {
		cfg.DefaultEngine = player.EngineRich
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	name := media.DecodeName(req.Filename)
	format := media.ClassifyDecoded(name)
	if req.Kind != nil {
		format = format.WithKind(*req.Kind)
	}

	id := uuid.NewString()
	runCtx, cancel := context.WithCancel(ctx)
	c := &Controller{
		id:       id,
		cfg:      cfg,
		req:      req,
		name:     name,
		format:   format,
		logger:   cfg.Logger.With("session", id, "file", name),
		ctx:      runCtx,
		cancel:   cancel,
		done:     make(chan struct{}),
		cmds:     make(chan command),
		events:   make(chan engineEvent, 32),
		probes:   make(chan probeOutcome, 1),
		timeouts: make(chan uint64, 1),
		s: session{
			status:   StatusIdle,
			source:   initialSource(format, req.FormatOverride),
			engine:   cfg.DefaultEngine,
			override: req.FormatOverride,
			history:  newHistory(),
		},
	}
	c.snapshot = c.buildSnapshot()

	go c.run()
	return c, nil
}

// initialSource prefers the converted endpoint for containers that need
// conversion unless an override says otherwise
func initialSource(format media.Format, override string) SourceMode {
	switch override {
	case "":
		if format.NeedsConversion {
			return SourceConverted
		}
		return SourceRaw
	case OverrideRaw:
		return SourceRaw
	default:
		return SourceConverted
	}
}

// ID returns the session identifier
func (c *Controller) ID() string {
	return c.id
}

// Format returns the classification the session is working with
func (c *Controller) Format() media.Format {
	return c.format
}

// Start leaves Idle and probes the initial source
func (c *Controller) Start() error {
	return c.do(cmdStart, "")
}

// Retry re-attempts the current pair with a fresh cache-busting attempt
func (c *Controller) Retry() error {
	return c.do(cmdRetry, "")
}

// SwitchEngine flips the engine kind and reloads
func (c *Controller) SwitchEngine() error {
	return c.do(cmdSwitchEngine, "")
}

// SwitchSource flips the source mode and reloads
func (c *Controller) SwitchSource() error {
	return c.do(cmdSwitchSource, "")
}

// SetFormatOverride forces the override's source (and format parameter)
// and reloads. An empty override clears it without changing the source.
func (c *Controller) SetFormatOverride(format string) error {
	return c.do(cmdFormatOverride, format)
}

// Destroy tears the session down and waits for its goroutines. Idempotent.
func (c *Controller) Destroy() {
	c.cancel()
	<-c.done
	c.wg.Wait()
}

// Done is closed once the session is destroyed
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Snapshot returns the current observable state
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Subscribe returns a stream of snapshots, primed with the current one.
// A slow reader only ever sees the latest snapshot. The channel is closed
// when the session is destroyed.
func (c *Controller) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, 1)

	c.mu.Lock()
	defer c.mu.Unlock()
	ch <- c.snapshot
	if c.closed {
		close(ch)
		return ch
	}
	c.subs = append(c.subs, ch)
	return ch
}

func (c *Controller) do(kind commandKind, arg string) error {
	cmd := command{kind: kind, arg: arg, reply: make(chan error, 1)}
	select {
	case c.cmds <- cmd:
	case <-c.done:
		return ErrDestroyed
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-c.done:
		return ErrDestroyed
	}
}

func (c *Controller) run() {
	defer close(c.done)
	for {
		select {
		case <-c.ctx.Done():
			c.teardown()
			return
		case cmd := <-c.cmds:
			cmd.reply <- c.handleCommand(cmd)
		case out := <-c.probes:
			c.handleProbe(out)
		case ev := <-c.events:
			c.handleEvent(ev)
		case gen := <-c.timeouts:
			c.handleLoadTimeout(gen)
		}
	}
}

func (c *Controller) handleCommand(cmd command) error {
	if c.ctx.Err() != nil {
		return ErrDestroyed
	}
	if cmd.kind == cmdStart {
		if c.s.status != StatusIdle {
			return ErrAlreadyStarted
		}
		c.logger.Info("starting playback session",
			"kind", c.format.Kind, "source", c.s.source, "engine", c.s.engine)
		c.beginProbe()
		return nil
	}
	if c.s.status == StatusIdle {
		return ErrNotStarted
	}

	reprobe := c.s.status == StatusProbing
	switch cmd.kind {
	case cmdRetry:
		if c.s.lastErr != nil && c.s.lastErr.Kind == KindResourceUnavailable {
			reprobe = true
		}
	case cmdSwitchEngine:
		c.s.engine = c.s.engine.Other()
	case cmdSwitchSource:
		c.s.source = c.s.source.Other()
	case cmdFormatOverride:
		c.s.override = cmd.arg
		if cmd.arg != "" {
			c.s.source = initialSource(c.format, cmd.arg)
		}
	}

	c.s.attempt++
	c.logger.Info("manual fallback command",
		"command", cmd.kind, "source", c.s.source, "engine", c.s.engine, "attempt", c.s.attempt)

	if reprobe {
		c.beginProbe()
	} else {
		c.load()
	}
	return nil
}

// beginProbe supersedes whatever is running and probes the current source
func (c *Controller) beginProbe() {
	c.release()
	c.s.gen++
	gen := c.s.gen
	url := c.sourceURL()

	probeCtx, cancel := context.WithCancel(c.ctx)
	c.s.probeCancel = cancel
	c.s.url = url
	c.s.status = StatusProbing
	c.publish()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		res := c.cfg.Prober.Probe(probeCtx, url)
		select {
		case c.probes <- probeOutcome{gen: gen, url: url, res: res}:
		case <-probeCtx.Done():
		}
	}()
}

func (c *Controller) handleProbe(out probeOutcome) {
	if c.ctx.Err() != nil || out.gen != c.s.gen || c.s.status != StatusProbing || out.res.Canceled {
		return
	}
	c.s.probeCancel()
	c.s.probeCancel = nil

	res := out.res
	if !res.Reachable {
		c.logger.Warn("source unavailable", "url", out.url, "status", res.StatusCode)
		c.s.status = StatusErrored
		c.s.lastErr = &Error{
			Kind:    KindResourceUnavailable,
			Message: fmt.Sprintf("gateway answered %d for %s", res.StatusCode, out.url),
		}
		c.publish()
		return
	}

	if res.Err != nil {
		c.logger.Debug("probe inconclusive, loading anyway", "class", res.StatusClass, "error", res.Err)
	}
	c.load()
}

// load disposes the previous handle, then creates and starts a new engine
// for the current pair
func (c *Controller) load() {
	c.release()
	c.s.gen++
	gen := c.s.gen
	c.s.url = c.sourceURL()
	c.s.status = StatusLoading
	c.publish()

	engine, err := c.cfg.Engines(c.s.engine)
	if err != nil {
		c.fail(&Error{Kind: KindInitializationFailure, Message: err.Error()})
		return
	}
	c.s.handle = engine
	engine.OnEvent(func(ev player.Event) {
		select {
		case c.events <- engineEvent{gen: gen, ev: ev}:
		case <-c.done:
		}
	})

	c.logger.Debug("starting engine", "engine", c.s.engine, "source", c.s.source, "url", c.s.url, "attempt", c.s.attempt)
	if err := engine.Start(c.ctx, c.s.url, c.mimeHint()); err != nil {
		c.fail(&Error{Kind: KindInitializationFailure, Message: err.Error()})
		return
	}

	if c.cfg.LoadTimeout > 0 {
		c.s.watchdog = time.AfterFunc(c.cfg.LoadTimeout, func() {
			select {
			case c.timeouts <- gen:
			case <-c.done:
			}
		})
	}
}

func (c *Controller) handleEvent(e engineEvent) {
	if c.ctx.Err() != nil || e.gen != c.s.gen || !c.s.status.Active() {
		return
	}

	switch e.ev.Type {
	case player.EventReady:
		if c.s.status == StatusLoading {
			c.ready()
			c.publish()
		}
	case player.EventPlaying:
		if c.s.status == StatusLoading {
			c.ready()
		}
		if c.s.status != StatusPlaying {
			c.s.status = StatusPlaying
			c.publish()
		}
	case player.EventPaused:
		if c.s.status == StatusPlaying {
			c.s.status = StatusReady
			c.publish()
		}
	case player.EventError:
		c.fail(fromMediaError(e.ev.Error))
	}
}

func (c *Controller) ready() {
	c.stopWatchdog()
	c.s.status = StatusReady
	c.s.lastErr = nil
	c.logger.Info("source ready", "engine", c.s.engine, "source", c.s.source, "attempt", c.s.attempt)
}

func (c *Controller) handleLoadTimeout(gen uint64) {
	if c.ctx.Err() != nil || gen != c.s.gen || c.s.status != StatusLoading {
		return
	}
	c.fail(&Error{
		Kind:    KindNetwork,
		Message: fmt.Sprintf("load timed out after %s", c.cfg.LoadTimeout),
		Code:    player.CodeNetwork,
	})
}

// fail records the current pair, disposes the handle and escalates
// automatically where allowed
func (c *Controller) fail(err *Error) {
	pair := Pair{Source: c.s.source, Engine: c.s.engine}
	c.s.history.add(pair)
	c.s.attempt++
	c.release()

	c.s.status = StatusErrored
	c.s.lastErr = err
	c.logger.Warn("playback failed", "pair", pair, "kind", err.Kind, "error", err.Message, "attempt", c.s.attempt)
	c.publish()

	c.escalate(err)
}

func (c *Controller) escalate(err *Error) {
	if err.Kind == KindInitializationFailure && c.cfg.AutoEngineFallback &&
		!c.s.engineFellBack && c.s.engine == player.EngineRich &&
		!c.s.history.has(Pair{Source: c.s.source, Engine: player.EngineNative}) {
		c.s.engineFellBack = true
		c.s.engine = player.EngineNative
		c.logger.Info("engine could not initialise, falling back", "engine", c.s.engine)
		c.load()
		return
	}

	if c.format.NeedsConversion && c.format.Kind == media.KindVideo && !c.s.autoEscalated &&
		c.s.history.hasSource(SourceRaw) && !c.s.history.hasSource(SourceConverted) {
		c.s.autoEscalated = true
		c.s.source = SourceConverted
		c.logger.Info("escalating to converted source", "engine", c.s.engine, "attempt", c.s.attempt)
		c.load()
		return
	}

	c.logger.Debug("waiting for a manual command", "history", c.s.history.list())
}

// release cancels the probe, stops the watchdog and disposes the handle.
// The handle is fully disposed before this returns.
func (c *Controller) release() {
	if c.s.probeCancel != nil {
		c.s.probeCancel()
		c.s.probeCancel = nil
	}
	c.stopWatchdog()
	if c.s.handle != nil {
		c.s.handle.OnEvent(nil)
		c.s.handle.Dispose()
		c.s.handle = nil
	}
}

func (c *Controller) stopWatchdog() {
	if c.s.watchdog != nil {
		c.s.watchdog.Stop()
		c.s.watchdog = nil
	}
}

func (c *Controller) teardown() {
	c.release()
	c.s.gen++
	c.s.status = StatusDestroyed
	c.logger.Info("playback session destroyed", "attempt", c.s.attempt)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = c.buildSnapshot()
	for _, ch := range c.subs {
		replace(ch, c.snapshot)
		close(ch)
	}
	c.subs = nil
	c.closed = true
}

// sourceURL builds the URL for the current source, override and attempt
func (c *Controller) sourceURL() string {
	var u string
	if c.s.source == SourceRaw {
		u = c.cfg.Endpoints.Raw(c.req.Filename)
	} else {
		u = c.cfg.Endpoints.Converted(c.req.Filename, c.formatParam())
	}
	return gateway.WithAttempt(u, c.s.attempt)
}

func (c *Controller) formatParam() string {
	return FormatParam(c.s.override)
}

// mimeHint describes what the engine should expect at the current URL
func (c *Controller) mimeHint() string {
	if c.s.source == SourceConverted {
		if f := c.formatParam(); f != "" {
			return media.ClassifyDecoded("source." + f).WithKind(c.format.Kind).MIMEHint
		}
	}
	return c.format.MIMEHint
}

func (c *Controller) buildSnapshot() Snapshot {
	snap := Snapshot{
		SessionID: c.id,
		Filename:  c.name,
		Status:    c.s.status,
		Source:    c.s.source,
		Engine:    c.s.engine,
		Attempt:   c.s.attempt,
		URL:       c.s.url,
		History:   c.s.history.list(),
	}
	if c.s.lastErr != nil {
		e := *c.s.lastErr
		snap.Err = &e
	}
	return snap
}

func (c *Controller) publish() {
	snap := c.buildSnapshot()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = snap
	for _, ch := range c.subs {
		replace(ch, snap)
	}
}

// replace delivers snap to a one-slot channel, dropping a stale unread value
func replace(ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}
