// Package ffplay provides a media element backed by an ffplay process. It is
// the plain, always-available surface used by the native engine.
package ffplay

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/noediv/mediaplay/internal/player"
)

const tailLines = 20

// Options configures how ffplay is launched
type Options struct {
	Executable string // empty: "ffplay" looked up in PATH
	NoDisplay  bool   // audio-only playback
	UserAgent  string
	Title      string
	ExtraArgs  []string

	// Settle is how long ffplay must keep running before the source counts
	// as playable; ffplay has no IPC to report readiness.
	Settle time.Duration
}

// Element is a media element backed by an ffplay process
type Element struct {
	mu       sync.Mutex
	opts     Options
	cmd      *exec.Cmd
	gen      uint64
	url      string
	listener func(player.ElementEvent)
}

// NewElement creates an ffplay-backed element. The binary is resolved on Load.
func NewElement(opts Options) *Element {
	if opts.Executable == "" {
		opts.Executable = "ffplay"
	}
	if opts.Settle <= 0 {
		opts.Settle = 1500 * time.Millisecond
	}
	return &Element{opts: opts}
}

// Lookup resolves the ffplay binary
func Lookup(executable string) (player.PlayerInfo, error) {
	if executable == "" {
		executable = "ffplay"
	}
	path, err := exec.LookPath(executable)
	if err != nil {
		return player.PlayerInfo{}, fmt.Errorf("%s not found in PATH, please install ffmpeg: %w", executable, err)
	}
	return player.PlayerInfo{Name: "ffplay", Path: path}, nil
}

// SetListener sets the element event listener; nil detaches it
func (e *Element) SetListener(listener func(player.ElementEvent)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = listener
}

// URL returns the current source, empty when cleared
func (e *Element) URL() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.url
}

// Load starts ffplay on url, replacing any current source. A cancelled ctx
// leaves the element untouched.
func (e *Element) Load(ctx context.Context, url string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	e.clearLocked()

	if _, err := exec.LookPath(e.opts.Executable); err != nil {
		return fmt.Errorf("ffplay executable not found (%s): %w", e.opts.Executable, err)
	}

	cmd := exec.Command(e.opts.Executable, buildArgs(url, e.opts)...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to capture ffplay output: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", e.opts.Executable, err)
	}

	e.gen++
	e.cmd = cmd
	e.url = url

	tail := &outputTail{}
	exited := make(chan error, 1)
	go func() {
		// Wait closes the pipe, so drain it first
		tail.consume(stderr)
		exited <- cmd.Wait()
	}()
	go e.monitor(e.gen, exited, tail)

	return nil
}

// Clear kills ffplay. Idempotent.
func (e *Element) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clearLocked()
}

func (e *Element) clearLocked() {
	e.gen++
	if e.cmd != nil && e.cmd.Process != nil {
		_ = e.cmd.Process.Kill()
	}
	e.cmd = nil
	e.url = ""
}

func (e *Element) emit(gen uint64, ev player.ElementEvent) {
	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return
	}
	listener := e.listener
	e.mu.Unlock()

	if listener != nil {
		listener(ev)
	}
}

// monitor reports canplay/playing once ffplay has settled and an error or
// pause when it exits
func (e *Element) monitor(gen uint64, exited <-chan error, tail *outputTail) {
	timer := time.NewTimer(e.opts.Settle)
	defer timer.Stop()

	ready := false
	var err error
	select {
	case <-timer.C:
		ready = true
		e.emit(gen, player.ElementEvent{Type: player.ElementCanPlay})
		e.emit(gen, player.ElementEvent{Type: player.ElementPlaying})
		err = <-exited
	case err = <-exited:
	}

	switch {
	case err == nil && ready:
		// -autoexit: the stream ended
		e.emit(gen, player.ElementEvent{Type: player.ElementPause})
	case err == nil:
		e.emit(gen, player.ElementEvent{
			Type:  player.ElementError,
			Error: player.NewMediaError(classifyOutput(tail.lines()), "ffplay exited before the source was ready%s", tail.summary()),
		})
	default:
		e.emit(gen, player.ElementEvent{
			Type:  player.ElementError,
			Error: player.NewMediaError(classifyOutput(tail.lines()), "ffplay failed: %v%s", err, tail.summary()),
		})
	}
}

func buildArgs(url string, opts Options) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-autoexit"}
	if opts.NoDisplay {
		args = append(args, "-nodisp")
	}
	if opts.Title != "" {
		args = append(args, "-window_title", opts.Title)
	}
	if opts.UserAgent != "" {
		args = append(args, "-user_agent", opts.UserAgent)
	}
	args = append(args, opts.ExtraArgs...)
	return append(args, url)
}

// classifyOutput maps ffplay's error output onto the media error taxonomy
func classifyOutput(lines []string) player.ErrorCode {
	out := strings.ToLower(strings.Join(lines, "\n"))
	switch {
	case containsAny(out, "server returned", "connection refused", "connection timed out",
		"connection reset", "network is unreachable", "i/o error", "failed to resolve hostname"):
		return player.CodeNetwork
	case containsAny(out, "invalid data found", "error while decoding", "could not find codec",
		"decoding error", "corrupt"):
		return player.CodeDecode
	case containsAny(out, "protocol not found", "unknown format", "not supported",
		"no such file", "unsupported"):
		return player.CodeSourceNotSupported
	default:
		return player.CodeUnknown
	}
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// outputTail keeps the last lines ffplay wrote to stderr
type outputTail struct {
	mu  sync.Mutex
	buf []string
}

func (t *outputTail) consume(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		t.mu.Lock()
		t.buf = append(t.buf, line)
		if len(t.buf) > tailLines {
			t.buf = t.buf[len(t.buf)-tailLines:]
		}
		t.mu.Unlock()
	}
}

func (t *outputTail) lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.buf...)
}

// summary returns ": <last line>" or ""
func (t *outputTail) summary() string {
	lines := t.lines()
	if len(lines) == 0 {
		return ""
	}
	return ": " + lines[len(lines)-1]
}
