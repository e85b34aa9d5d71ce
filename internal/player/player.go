package player

import (
	"context"
	"fmt"
	"strings"
)

// Engine is a playback engine bound to one media element.
//
// Start may be called once. Dispose is idempotent and safe to call even if
// Start never ran or failed; after Dispose returns no further events are
// delivered.
type Engine interface {
	Kind() EngineKind
	Start(ctx context.Context, url string, mimeHint string) error
	Dispose()
	// OnEvent sets the single event listener. nil detaches it.
	OnEvent(listener func(Event))
}

// Element is the render surface an engine drives: a media element that
// accepts a source and reports its own lifecycle.
type Element interface {
	// Load assigns url as the element's source
	Load(ctx context.Context, url string) error
	// Clear drops the current source and releases underlying resources. Idempotent.
	Clear()
	// SetListener sets the single element listener. nil detaches it.
	SetListener(listener func(ElementEvent))
}

// EngineKind selects which adapter drives playback
type EngineKind string

const (
	EngineRich   EngineKind = "rich"
	EngineNative EngineKind = "native"
)

// String returns the string representation of EngineKind
func (k EngineKind) String() string {
	return string(k)
}

// Other returns the opposite engine kind
func (k EngineKind) Other() EngineKind {
	if k == EngineRich {
		return EngineNative
	}
	return EngineRich
}

// ParseEngineKind parses "rich" or "native"
func ParseEngineKind(s string) (EngineKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rich", "mpv":
		return EngineRich, nil
	case "native", "ffplay":
		return EngineNative, nil
	default:
		return "", fmt.Errorf("unknown engine %q (want rich or native)", s)
	}
}

// EventType is an engine lifecycle event
type EventType string

const (
	EventReady   EventType = "ready"
	EventPlaying EventType = "playing"
	EventPaused  EventType = "paused"
	EventError   EventType = "error"
)

// Event is delivered by an engine to its listener
type Event struct {
	Type  EventType
	Error *MediaError // set for EventError
}

// ElementEventType mirrors the events a media element raises
type ElementEventType string

const (
	ElementCanPlay ElementEventType = "canplay"
	ElementPlaying ElementEventType = "playing"
	ElementPause   ElementEventType = "pause"
	ElementError   ElementEventType = "error"
)

// ElementEvent is delivered by an element to its listener
type ElementEvent struct {
	Type  ElementEventType
	Error *MediaError // set for ElementError
}

// ErrorCode follows the standard media element error taxonomy
type ErrorCode string

const (
	CodeAborted            ErrorCode = "aborted"
	CodeNetwork            ErrorCode = "network"
	CodeDecode             ErrorCode = "decode"
	CodeSourceNotSupported ErrorCode = "source-not-supported"
	CodeUnknown            ErrorCode = "unknown"
)

// MediaError describes why an element or engine failed
type MediaError struct {
	Code    ErrorCode
	Message string
}

func (e *MediaError) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewMediaError builds a MediaError, defaulting an empty code to unknown
func NewMediaError(code ErrorCode, format string, args ...any) *MediaError {
	if code == "" {
		code = CodeUnknown
	}
	return &MediaError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ErrorEvent wraps err as an engine error event
func ErrorEvent(err *MediaError) Event {
	return Event{Type: EventError, Error: err}
}

// PlayerInfo contains information about a player binary
type PlayerInfo struct {
	Name string `json:"name"` // mpv, ffplay
	Path string `json:"path"` // Full path to binary
}

// Translate maps an element event onto the engine event it implies
func Translate(ev ElementEvent) (Event, bool) {
	switch ev.Type {
	case ElementCanPlay:
		return Event{Type: EventReady}, true
	case ElementPlaying:
		return Event{Type: EventPlaying}, true
	case ElementPause:
		return Event{Type: EventPaused}, true
	case ElementError:
		err := ev.Error
		if err == nil {
			err = &MediaError{Code: CodeUnknown}
		}
		return ErrorEvent(err), true
	default:
		return Event{}, false
	}
}
