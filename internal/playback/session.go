package playback

import (
	"errors"
	"fmt"
	"strings"

	"github.com/noediv/mediaplay/internal/media"
	"github.com/noediv/mediaplay/internal/player"
)

var (
	// ErrDestroyed is returned by commands issued after Destroy
	ErrDestroyed = errors.New("playback session destroyed")
	// ErrNotStarted is returned by fallback commands issued before Start
	ErrNotStarted = errors.New("playback session not started")
	// ErrAlreadyStarted is returned by a second Start
	ErrAlreadyStarted = errors.New("playback session already started")
)

// Override values with a fixed meaning. Any other non-empty value names a
// converted rendition format, sent as ?format=<value>.
const (
	OverrideRaw       = "raw"
	OverrideConverted = "converted"
)

// FormatParam is the ?format= value an override implies on the converted
// endpoint, empty when it implies none
func FormatParam(override string) string {
	switch override {
	case "", OverrideRaw, OverrideConverted:
		return ""
	default:
		return override
	}
}

// Request is the immutable input of a session
type Request struct {
	Filename       string      // may be percent-encoded
	Kind           *media.Kind // nil: derived from the extension
	FormatOverride string
}

// Validate checks the request
func (r Request) Validate() error {
	if strings.TrimSpace(r.Filename) == "" {
		return fmt.Errorf("filename is required")
	}
	return nil
}

// SourceMode selects the gateway endpoint
type SourceMode string

const (
	SourceRaw       SourceMode = "raw"
	SourceConverted SourceMode = "converted"
)

func (m SourceMode) String() string {
	return string(m)
}

// Other returns the opposite source mode
func (m SourceMode) Other() SourceMode {
	if m == SourceRaw {
		return SourceConverted
	}
	return SourceRaw
}

// Status is the session's lifecycle state
type Status string

const (
	StatusIdle      Status = "idle"
	StatusProbing   Status = "probing"
	StatusLoading   Status = "loading"
	StatusReady     Status = "ready"
	StatusPlaying   Status = "playing"
	StatusErrored   Status = "errored"
	StatusDestroyed Status = "destroyed"
)

func (s Status) String() string {
	return string(s)
}

// Active reports whether an engine handle may be alive in this state
func (s Status) Active() bool {
	return s == StatusLoading || s == StatusReady || s == StatusPlaying
}

// ErrorKind classifies a session failure
type ErrorKind string

const (
	KindResourceUnavailable   ErrorKind = "resource-unavailable"
	KindNetwork               ErrorKind = "network"
	KindDecode                ErrorKind = "decode"
	KindSourceNotSupported    ErrorKind = "source-not-supported"
	KindInitializationFailure ErrorKind = "initialization-failure"
	KindUnknown               ErrorKind = "unknown"
)

// Error is the structured last error of a session
type Error struct {
	Kind    ErrorKind
	Message string
	Code    player.ErrorCode // engine error code, empty when not from an engine
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// KindFromCode maps an engine error code onto a session error kind
func KindFromCode(code player.ErrorCode) ErrorKind {
	switch code {
	case player.CodeNetwork:
		return KindNetwork
	case player.CodeDecode:
		return KindDecode
	case player.CodeSourceNotSupported:
		return KindSourceNotSupported
	default:
		return KindUnknown
	}
}

func fromMediaError(err *player.MediaError) *Error {
	if err == nil {
		return &Error{Kind: KindUnknown, Code: player.CodeUnknown}
	}
	return &Error{Kind: KindFromCode(err.Code), Message: err.Message, Code: err.Code}
}

// Pair is one (source, engine) combination
type Pair struct {
	Source SourceMode
	Engine player.EngineKind
}

func (p Pair) String() string {
	return fmt.Sprintf("%s/%s", p.Source, p.Engine)
}

// history is the set of attempted pairs, remembering first-insertion order
// for display
type history struct {
	seen  map[Pair]struct{}
	order []Pair
}

func newHistory() *history {
	return &history{seen: make(map[Pair]struct{})}
}

func (h *history) add(p Pair) {
	if _, ok := h.seen[p]; ok {
		return
	}
	h.seen[p] = struct{}{}
	h.order = append(h.order, p)
}

func (h *history) has(p Pair) bool {
	_, ok := h.seen[p]
	return ok
}

func (h *history) hasSource(m SourceMode) bool {
	for p := range h.seen {
		if p.Source == m {
			return true
		}
	}
	return false
}

func (h *history) list() []Pair {
	return append([]Pair(nil), h.order...)
}

// Snapshot is the observable state of a session
type Snapshot struct {
	SessionID string
	Filename  string // decoded
	Status    Status
	Source    SourceMode
	Engine    player.EngineKind
	Attempt   int
	URL       string
	Err       *Error
	History   []Pair
}
