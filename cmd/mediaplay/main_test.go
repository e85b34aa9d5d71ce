package main

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noediv/mediaplay/internal/config"
)

func TestReplaceSettings(t *testing.T) {
	saved := cfg
	t.Cleanup(func() { cfg = saved })

	cfg = &config.Config{}
	cfg.Logging.Level = "debug"
	cfg.Player.MPVPath = "/usr/bin/mpv"
	prev := settings()

	next := &config.Config{}
	next.Player.MPVPath = "/opt/mpv"
	next.Logging.Level = "warn"
	replaceSettings(next)

	// Readers holding the old config keep a consistent view
	assert.Equal(t, "/usr/bin/mpv", prev.Player.MPVPath)
	assert.Same(t, next, settings())
	assert.Equal(t, "/opt/mpv", settings().Player.MPVPath)
	// Command-line logging settings survive a reload
	assert.Equal(t, "debug", settings().Logging.Level)
}

func TestReplaceSettingsConcurrentReaders(t *testing.T) {
	saved := cfg
	t.Cleanup(func() { cfg = saved })
	cfg = &config.Config{}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					_ = settings().Player.MPVPath
				}
			}
		}()
	}

	for i := 0; i < 100; i++ {
		next := &config.Config{}
		next.Probe.Timeout = time.Duration(i) * time.Millisecond
		replaceSettings(next)
	}
	close(stop)
	wg.Wait()
	assert.Equal(t, 99*time.Millisecond, settings().Probe.Timeout)
}
