package mpv

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/diniamo/gopv"
	"github.com/noediv/mediaplay/internal/player"
)

// Exit codes documented by mpv
const (
	exitFileNotPlayed      = 2
	exitSomeFilesNotPlayed = 3
)

// Options configures how mpv is launched
type Options struct {
	Executable     string // empty: platform default looked up in PATH
	LoadUserConfig bool
	Debug          bool
	Title          string
	UserAgent      string
	Headers        map[string]string
	ExtraArgs      []string
	PollInterval   time.Duration
	IPCTimeout     time.Duration
}

// Element is a media element backed by an mpv process controlled over IPC
type Element struct {
	mu sync.Mutex

	// mpv process and IPC
	client    *gopv.Client
	cmd       *exec.Cmd
	ipcConfig *IPCConfig
	platform  Platform
	opts      Options

	// Per-source state; gen invalidates goroutines of a previous source
	gen      uint64
	url      string
	loaded   bool
	paused   bool
	listener func(player.ElementEvent)
	cancel   context.CancelFunc
}

// NewElement creates an mpv-backed element. The mpv binary is resolved on Load.
func NewElement(opts Options) *Element {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 250 * time.Millisecond
	}
	if opts.IPCTimeout <= 0 {
		opts.IPCTimeout = 15 * time.Second
	}
	return &Element{
		platform: DetectPlatform(),
		opts:     opts,
	}
}

// SetListener sets the element event listener; nil detaches it
func (e *Element) SetListener(listener func(player.ElementEvent)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = listener
}

// Load starts mpv on url, replacing any current source. It returns after the
// process has started; readiness and failures are reported as events. A
// cancelled ctx leaves the element untouched.
func (e *Element) Load(ctx context.Context, url string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	e.clearLocked()

	mpvExec := e.opts.Executable
	if mpvExec == "" {
		mpvExec = GetMPVExecutable(e.platform)
	}
	if _, err := exec.LookPath(mpvExec); err != nil {
		return fmt.Errorf("mpv executable not found (%s): %w", mpvExec, err)
	}

	ipcConfig, err := GetIPCConfig(e.platform)
	if err != nil {
		return fmt.Errorf("failed to generate IPC config: %w", err)
	}

	cmd := exec.Command(mpvExec, buildArgs(ipcConfig, url, e.opts)...)
	// Detached from the terminal so mpv does not fight the TUI for input
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	setupProcessAttributes(cmd)

	if err := cmd.Start(); err != nil {
		cleanupIPC(ipcConfig)
		return fmt.Errorf("failed to start %s: %w", mpvExec, err)
	}

	e.gen++
	e.cmd = cmd
	e.ipcConfig = ipcConfig
	e.url = url
	e.loaded = false
	e.paused = false

	runCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel

	go e.monitorProcess(e.gen, cmd)
	go e.asyncInitialize(runCtx, e.gen, ipcConfig)

	return nil
}

// Clear stops mpv and removes its IPC endpoint
func (e *Element) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clearLocked()
}

// URL returns the current source, empty when cleared
func (e *Element) URL() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.url
}

// clearLocked must be called with the lock held
func (e *Element) clearLocked() {
	e.gen++

	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}

	// Don't Close() the client: gopv's reader closes it on EOF when mpv exits
	if e.client != nil {
		client := e.client
		e.client = nil
		go func() {
			done := make(chan struct{})
			go func() {
				_, _ = client.Request("quit")
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(500 * time.Millisecond):
			}
		}()
	}

	// monitorProcess owns Wait()
	if e.cmd != nil && e.cmd.Process != nil {
		_ = e.cmd.Process.Kill()
	}
	e.cmd = nil

	cleanupIPC(e.ipcConfig)
	e.ipcConfig = nil
	e.url = ""
	e.loaded = false
	e.paused = false
}

// emit delivers ev if gen is still the current source
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

func (e *Element) emitError(gen uint64, code player.ErrorCode, format string, args ...any) {
	e.emit(gen, player.ElementEvent{
		Type:  player.ElementError,
		Error: player.NewMediaError(code, format, args...),
	})
}

// asyncInitialize connects to the IPC endpoint and starts state polling
func (e *Element) asyncInitialize(ctx context.Context, gen uint64, ipcConfig *IPCConfig) {
	initCtx, cancel := context.WithTimeout(ctx, e.opts.IPCTimeout)
	defer cancel()

	if err := waitForIPC(initCtx, ipcConfig); err != nil {
		if ctx.Err() != nil {
			return
		}
		e.emitError(gen, player.CodeUnknown, "timeout waiting for mpv IPC at %s: %v", ipcConfig.Address, err)
		return
	}

	connStr := GetGopvConnectionString(ipcConfig)
	client, err := gopv.Connect(connStr, func(err error) {
		if ctx.Err() == nil {
			e.emitError(gen, player.CodeUnknown, "mpv IPC error: %v", err)
		}
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		e.emitError(gen, player.CodeUnknown, "failed to connect to mpv IPC at %s: %v", connStr, err)
		return
	}

	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		_, _ = client.Request("quit")
		return
	}
	e.client = client
	e.mu.Unlock()

	e.monitorState(ctx, gen, client)
}

// monitorState polls mpv properties and translates them into element events
func (e *Element) monitorState(ctx context.Context, gen uint64, client *gopv.Client) {
	ticker := time.NewTicker(e.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		state, err := pollState(client)
		if err != nil {
			// Transient while mpv is busy; process exit is reported by monitorProcess
			continue
		}

		e.mu.Lock()
		if gen != e.gen {
			e.mu.Unlock()
			return
		}
		var events []player.ElementEvent
		if !e.loaded && state.duration > 0 {
			e.loaded = true
			e.paused = state.paused
			events = append(events, player.ElementEvent{Type: player.ElementCanPlay})
			if !state.paused {
				events = append(events, player.ElementEvent{Type: player.ElementPlaying})
			}
		} else if e.loaded && (state.paused || state.eof) != e.paused {
			e.paused = state.paused || state.eof
			if e.paused {
				events = append(events, player.ElementEvent{Type: player.ElementPause})
			} else {
				events = append(events, player.ElementEvent{Type: player.ElementPlaying})
			}
		}
		e.mu.Unlock()

		for _, ev := range events {
			e.emit(gen, ev)
		}
	}
}

type mpvState struct {
	duration float64
	paused   bool
	eof      bool
}

func pollState(client *gopv.Client) (mpvState, error) {
	var s mpvState

	result, err := client.Request("get_property", "duration")
	if err != nil {
		// Unavailable until the demuxer has opened the file
		if strings.Contains(err.Error(), "property unavailable") {
			return s, nil
		}
		return s, err
	}
	if val, ok := result.(float64); ok {
		s.duration = val
	}

	if result, err := client.Request("get_property", "pause"); err == nil {
		if val, ok := result.(bool); ok {
			s.paused = val
		}
	}

	if result, err := client.Request("get_property", "eof-reached"); err == nil {
		if val, ok := result.(bool); ok {
			s.eof = val
		}
	}

	return s, nil
}

// monitorProcess waits for mpv to exit and reports unexpected exits
func (e *Element) monitorProcess(gen uint64, cmd *exec.Cmd) {
	err := cmd.Wait()

	e.mu.Lock()
	current := gen == e.gen
	loaded := e.loaded
	e.mu.Unlock()
	if !current {
		return
	}

	if err == nil {
		if loaded {
			e.emit(gen, player.ElementEvent{Type: player.ElementPause})
		} else {
			e.emitError(gen, player.CodeSourceNotSupported, "mpv exited before the source was ready")
		}
		return
	}

	code, msg := classifyExit(err)
	e.emitError(gen, code, "%s", msg)
}

// classifyExit maps an mpv exit status onto the media error taxonomy
func classifyExit(err error) (player.ErrorCode, string) {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return player.CodeUnknown, fmt.Sprintf("mpv process exited unexpectedly: %v", err)
	}
	switch exitErr.ExitCode() {
	case exitFileNotPlayed, exitSomeFilesNotPlayed:
		return player.CodeSourceNotSupported, "mpv could not play the source"
	case -1:
		return player.CodeAborted, "mpv was terminated"
	default:
		return player.CodeUnknown, fmt.Sprintf("mpv exited with status %d", exitErr.ExitCode())
	}
}

// buildArgs builds the command-line arguments for mpv
func buildArgs(ipcConfig *IPCConfig, url string, opts Options) []string {
	args := []string{
		GetMPVIPCArgument(ipcConfig),
		"--keep-open=yes", // stay alive at EOF so the end is observable
		"--no-ytdl",       // direct gateway streams only
		"--force-window=immediate",
	}

	if !opts.LoadUserConfig {
		args = append(args, "--no-config")
	}

	if !opts.Debug {
		args = append(args, "--msg-level=all=warn")
	}

	if opts.UserAgent != "" {
		args = append(args, fmt.Sprintf("--user-agent=%s", opts.UserAgent))
	}

	headersList := []string{}
	for key, value := range opts.Headers {
		if key != "User-Agent" {
			headersList = append(headersList, fmt.Sprintf("%s: %s", key, value))
		}
	}
	if len(headersList) > 0 {
		args = append(args, fmt.Sprintf("--http-header-fields=%s", strings.Join(headersList, ",")))
	}

	if opts.Title != "" {
		args = append(args, fmt.Sprintf("--force-media-title=%s", opts.Title))
	}

	args = append(args, opts.ExtraArgs...)

	// URL must be last
	args = append(args, url)

	return args
}

// cleanupIPC removes the Unix socket file, if any
func cleanupIPC(cfg *IPCConfig) {
	if cfg != nil && cfg.IsSocket {
		_ = os.Remove(cfg.Address)
	}
}

// waitForIPC waits for the IPC endpoint to accept connections
func waitForIPC(ctx context.Context, cfg *IPCConfig) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			switch cfg.Type {
			case IPCUnixSocket:
				if _, err := os.Stat(cfg.Address); err == nil {
					return nil
				}
			case IPCTCP:
				conn, err := net.DialTimeout("tcp", cfg.Address, 200*time.Millisecond)
				if err == nil {
					_ = conn.Close()
					return nil
				}
			case IPCNamedPipe:
				if isPipeReady(cfg.Address) {
					return nil
				}
			}
		}
	}
}
