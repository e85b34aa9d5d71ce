// Package playertest provides in-memory elements and engines for tests.
package playertest

import (
	"context"
	"sync"

	"github.com/noediv/mediaplay/internal/player"
)

// Element is a scriptable player.Element
type Element struct {
	mu       sync.Mutex
	listener func(player.ElementEvent)
	loads    []string
	clears   int
	loadErr  error
	loaded   chan string
	ops      []string

	// hold pauses the next Load after it is entered
	hold    chan struct{}
	entered chan string
}

// NewElement creates a fake element
func NewElement() *Element {
	return &Element{loaded: make(chan string, 16)}
}

// FailLoads makes every subsequent Load return err
func (e *Element) FailLoads(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loadErr = err
}

// HoldNextLoad pauses the next Load until release is called. entered
// receives the URL once that Load is blocked.
func (e *Element) HoldNextLoad() (entered <-chan string, release func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	hold := make(chan struct{})
	e.hold = hold
	e.entered = make(chan string, 1)
	var once sync.Once
	return e.entered, func() { once.Do(func() { close(hold) }) }
}

// Load implements player.Element
func (e *Element) Load(_ context.Context, url string) error {
	e.mu.Lock()
	if hold := e.hold; hold != nil {
		e.hold = nil
		e.entered <- url
		e.mu.Unlock()
		<-hold
		e.mu.Lock()
	}
	if e.loadErr != nil {
		err := e.loadErr
		e.mu.Unlock()
		return err
	}
	e.loads = append(e.loads, url)
	e.ops = append(e.ops, "load "+url)
	e.mu.Unlock()

	select {
	case e.loaded <- url:
	default:
	}
	return nil
}

// Clear implements player.Element
func (e *Element) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clears++
	e.ops = append(e.ops, "clear")
}

// Ops returns loads and clears in the order they completed
func (e *Element) Ops() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.ops...)
}

// SetListener implements player.Element
func (e *Element) SetListener(listener func(player.ElementEvent)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = listener
}

// Fire delivers ev to the current listener, if any
func (e *Element) Fire(ev player.ElementEvent) {
	e.mu.Lock()
	listener := e.listener
	e.mu.Unlock()
	if listener != nil {
		listener(ev)
	}
}

// FireError delivers an element error
func (e *Element) FireError(code player.ErrorCode, msg string) {
	e.Fire(player.ElementEvent{Type: player.ElementError, Error: &player.MediaError{Code: code, Message: msg}})
}

// Loaded returns a channel that receives each successfully loaded URL
func (e *Element) Loaded() <-chan string {
	return e.loaded
}

// Loads returns every URL assigned so far
func (e *Element) Loads() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.loads...)
}

// Clears returns how many times Clear was called
func (e *Element) Clears() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clears
}

// HasListener reports whether a listener is attached
func (e *Element) HasListener() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.listener != nil
}

// Recorder collects engine events
type Recorder struct {
	mu     sync.Mutex
	events []player.Event
	ch     chan player.Event
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{ch: make(chan player.Event, 64)}
}

// Record is a player.Engine listener
func (r *Recorder) Record(ev player.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	select {
	case r.ch <- ev:
	default:
	}
}

// Events returns what was recorded so far
func (r *Recorder) Events() []player.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]player.Event(nil), r.events...)
}

// C returns a channel carrying each recorded event
func (r *Recorder) C() <-chan player.Event {
	return r.ch
}
