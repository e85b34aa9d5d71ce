package mpv

import (
	"context"
	"os/exec"
	"runtime"
	"testing"
	"time"

	"github.com/noediv/mediaplay/internal/player"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewElement_Defaults(t *testing.T) {
	e := NewElement(Options{})
	assert.Equal(t, 250*time.Millisecond, e.opts.PollInterval)
	assert.Equal(t, 15*time.Second, e.opts.IPCTimeout)
	assert.Empty(t, e.URL())
}

func TestBuildArgs(t *testing.T) {
	ipc := &IPCConfig{Type: IPCUnixSocket, Address: "/tmp/test.sock", IsSocket: true}

	tests := []struct {
		name     string
		opts     Options
		expected []string
		absent   []string
	}{
		{
			name:     "defaults",
			opts:     Options{},
			expected: []string{"--input-ipc-server=/tmp/test.sock", "--keep-open=yes", "--no-config", "--msg-level=all=warn"},
		},
		{
			name:     "user config and debug",
			opts:     Options{LoadUserConfig: true, Debug: true},
			expected: []string{"--keep-open=yes"},
			absent:   []string{"--no-config", "--msg-level=all=warn"},
		},
		{
			name: "title, agent and headers",
			opts: Options{
				Title:     "My Movie",
				UserAgent: "mediaplay/1.0",
				Headers:   map[string]string{"X-Token": "abc", "User-Agent": "ignored"},
			},
			expected: []string{
				"--force-media-title=My Movie",
				"--user-agent=mediaplay/1.0",
				"--http-header-fields=X-Token: abc",
			},
		},
		{
			name:     "extra args",
			opts:     Options{ExtraArgs: []string{"--hwdec=auto"}},
			expected: []string{"--hwdec=auto"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := "http://gw/api/raw/movie.mkv"
			args := buildArgs(ipc, url, tt.opts)

			assert.Equal(t, GetMPVIPCArgument(ipc), args[0])
			for _, want := range tt.expected {
				assert.Contains(t, args, want)
			}
			for _, unwanted := range tt.absent {
				assert.NotContains(t, args, unwanted)
			}
			assert.Equal(t, url, args[len(args)-1], "URL must be last")
		})
	}
}

func TestClassifyExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	run := func(code string) error {
		return exec.Command("sh", "-c", "exit "+code).Run()
	}

	c, _ := classifyExit(run("2"))
	assert.Equal(t, player.CodeSourceNotSupported, c)

	c, _ = classifyExit(run("3"))
	assert.Equal(t, player.CodeSourceNotSupported, c)

	c, msg := classifyExit(run("1"))
	assert.Equal(t, player.CodeUnknown, c)
	assert.Contains(t, msg, "status 1")

	c, _ = classifyExit(assert.AnError)
	assert.Equal(t, player.CodeUnknown, c)
}

func TestElement_LoadMissingExecutable(t *testing.T) {
	e := NewElement(Options{Executable: "definitely-not-a-real-mpv-binary"})
	err := e.Load(context.Background(), "http://gw/api/raw/a.mp4")
	require.Error(t, err)
	assert.Empty(t, e.URL())
}

func TestElement_LoadCancelledContext(t *testing.T) {
	e := NewElement(Options{Executable: "sh"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.Load(ctx, "http://gw/api/raw/a.mp4")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, e.URL())
}

func TestElement_ClearIsIdempotent(t *testing.T) {
	e := NewElement(Options{})
	e.Clear()
	e.Clear()
	assert.Empty(t, e.URL())
}

func TestElement_EmitDropsStaleGenerations(t *testing.T) {
	e := NewElement(Options{})
	var got []player.ElementEvent
	e.SetListener(func(ev player.ElementEvent) { got = append(got, ev) })

	gen := e.gen
	e.emit(gen, player.ElementEvent{Type: player.ElementCanPlay})
	e.Clear()
	e.emit(gen, player.ElementEvent{Type: player.ElementPlaying})

	require.Len(t, got, 1)
	assert.Equal(t, player.ElementCanPlay, got[0].Type)
}

func TestElement_DetachedListener(t *testing.T) {
	e := NewElement(Options{})
	called := false
	e.SetListener(func(player.ElementEvent) { called = true })
	e.SetListener(nil)
	e.emit(e.gen, player.ElementEvent{Type: player.ElementCanPlay})
	assert.False(t, called)
}
