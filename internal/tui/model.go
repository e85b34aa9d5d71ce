// Package tui is the terminal presentation shell for a playback session. It
// renders the controller's snapshots and turns key presses into fallback
// commands; it never touches engine handles.
package tui

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/noediv/mediaplay/internal/gateway"
	"github.com/noediv/mediaplay/internal/playback"
	"github.com/noediv/mediaplay/internal/tui/styles"
)

// Controller is the part of the playback controller the shell drives
type Controller interface {
	Start() error
	Retry() error
	SwitchEngine() error
	SwitchSource() error
	SetFormatOverride(format string) error
	Destroy()
	Snapshot() playback.Snapshot
	Subscribe() <-chan playback.Snapshot
}

// MetadataFetcher loads descriptive metadata for a file
type MetadataFetcher interface {
	Metadata(ctx context.Context, filename string) (*gateway.Metadata, error)
}

// Clipboard receives the current source URL on the copy key
type Clipboard interface {
	Write(ctx context.Context, text string) error
}

// Options configures the shell
type Options struct {
	Filename        string
	Controller      Controller
	Metadata        MetadataFetcher // nil skips the metadata panel
	Clipboard       Clipboard       // nil disables the copy key
	MetadataTimeout time.Duration
	// ForceFormat is the rendition requested by the format key
	ForceFormat string
	Logger      *slog.Logger
}

// Model is the Bubble Tea model of the player screen
type Model struct {
	opts    Options
	ctrl    Controller
	updates <-chan playback.Snapshot
	logger  *slog.Logger

	snap     playback.Snapshot
	metadata *gateway.Metadata
	metaErr  error
	metaDone bool
	notice   string

	spinner spinner.Model
	help    help.Model
	keys    keyMap

	width    int
	height   int
	quitting bool
}

// New creates the shell model. The controller must not be started yet; the
// shell starts it when it mounts.
func New(opts Options) Model {
	if opts.MetadataTimeout <= 0 {
		opts.MetadataTimeout = 10 * time.Second
	}
	if opts.ForceFormat == "" {
		opts.ForceFormat = "mp4"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.SubtitleStyle

	return Model{
		opts:    opts,
		ctrl:    opts.Controller,
		updates: opts.Controller.Subscribe(),
		logger:  opts.Logger,
		snap:    opts.Controller.Snapshot(),
		spinner: s,
		help:    help.New(),
		keys:    defaultKeyMap(),
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		waitForSnapshot(m.updates),
		m.command("start", m.ctrl.Start),
		m.fetchMetadata(),
	)
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case snapshotMsg:
		m.snap = msg.snap
		return m, waitForSnapshot(m.updates)

	case sessionClosedMsg:
		m.quitting = true
		return m, tea.Quit

	case metadataMsg:
		m.metaDone = true
		m.metadata = msg.meta
		m.metaErr = msg.err
		return m, nil

	case commandResultMsg:
		if msg.err != nil && !errors.Is(msg.err, playback.ErrDestroyed) {
			m.logger.Warn("command rejected", "action", msg.action, "error", msg.err)
			m.notice = msg.action + ": " + msg.err.Error()
		}
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.logger.Warn("copy failed", "error", msg.err)
			m.notice = "copy: " + msg.err.Error()
		} else {
			m.notice = "copied " + msg.url
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		ctrl := m.ctrl
		return m, func() tea.Msg {
			ctrl.Destroy()
			return tea.Quit()
		}
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.Retry):
		m.notice = ""
		return m, m.command("retry", m.ctrl.Retry)
	case key.Matches(msg, m.keys.SwitchEngine):
		m.notice = ""
		return m, m.command("switch engine", m.ctrl.SwitchEngine)
	case key.Matches(msg, m.keys.SwitchSource):
		m.notice = ""
		return m, m.command("switch source", m.ctrl.SwitchSource)
	case key.Matches(msg, m.keys.Format):
		m.notice = ""
		format := m.opts.ForceFormat
		return m, m.command("force "+format, func() error {
			return m.ctrl.SetFormatOverride(format)
		})
	case key.Matches(msg, m.keys.Copy):
		return m, m.copyURL()
	}
	return m, nil
}

// command runs a controller call off the update loop
func (m Model) command(action string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return commandResultMsg{action: action, err: fn()}
	}
}

func (m Model) copyURL() tea.Cmd {
	url := m.snap.URL
	if m.opts.Clipboard == nil || url == "" {
		return nil
	}
	cb := m.opts.Clipboard
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return copiedMsg{url: url, err: cb.Write(ctx, url)}
	}
}

func (m Model) fetchMetadata() tea.Cmd {
	if m.opts.Metadata == nil {
		return nil
	}
	fetcher, name, timeout := m.opts.Metadata, m.opts.Filename, m.opts.MetadataTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		meta, err := fetcher.Metadata(ctx, name)
		return metadataMsg{meta: meta, err: err}
	}
}

// waitForSnapshot blocks for the next snapshot from the controller
func waitForSnapshot(updates <-chan playback.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-updates
		if !ok {
			return sessionClosedMsg{}
		}
		return snapshotMsg{snap: snap}
	}
}

// Snapshot returns the last snapshot the shell rendered
func (m Model) Snapshot() playback.Snapshot {
	return m.snap
}
