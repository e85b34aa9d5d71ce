package main

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noediv/mediaplay/internal/config"
	"github.com/noediv/mediaplay/internal/gateway"
	"github.com/noediv/mediaplay/internal/media"
	"github.com/noediv/mediaplay/internal/playback"
	"github.com/noediv/mediaplay/internal/player"
	"github.com/noediv/mediaplay/internal/player/native"
	"github.com/noediv/mediaplay/internal/player/rich"
	"github.com/noediv/mediaplay/internal/streaming"
)

func TestEngineFactory(t *testing.T) {
	testCfg := config.Config{}
	testCfg.Player.Engine = "rich"
	loader := streaming.NewLoader(streaming.NewHLSFactory(streaming.HLSConfig{}))
	factory := engineFactory(testCfg, loader, media.Classify("song.mp3"), "song.mp3", slog.New(slog.NewTextHandler(io.Discard, nil)))

	eng, err := factory(player.EngineRich)
	require.NoError(t, err)
	assert.IsType(t, &rich.Engine{}, eng)
	assert.Equal(t, player.EngineRich, eng.Kind())
	eng.Dispose()

	eng, err = factory(player.EngineNative)
	require.NoError(t, err)
	assert.IsType(t, &native.Engine{}, eng)
	eng.Dispose()

	_, err = factory("vlc")
	assert.Error(t, err)
}

func TestBuildRequest(t *testing.T) {
	t.Cleanup(func() { formatFlag, kindFlag = "", "" })

	formatFlag, kindFlag = "mp4", "audio"
	req, err := buildRequest("clip.mkv")
	require.NoError(t, err)
	assert.Equal(t, "clip.mkv", req.Filename)
	assert.Equal(t, "mp4", req.FormatOverride)
	require.NotNil(t, req.Kind)
	assert.Equal(t, media.KindAudio, *req.Kind)

	kindFlag = "picture"
	_, err = buildRequest("clip.mkv")
	assert.Error(t, err)
}

func TestBrowserURL(t *testing.T) {
	endpoints, err := gateway.NewEndpoints("http://gw:8000")
	require.NoError(t, err)

	assert.Equal(t, endpoints.Raw("clip.mp4"), browserURL(endpoints, "clip.mp4", ""))
	assert.Equal(t, endpoints.Converted("movie.mkv", ""), browserURL(endpoints, "movie.mkv", ""))
	assert.Equal(t, endpoints.Raw("movie.mkv"), browserURL(endpoints, "movie.mkv", playback.OverrideRaw))
	assert.Equal(t, endpoints.Converted("clip.mp4", ""), browserURL(endpoints, "clip.mp4", playback.OverrideConverted))
	assert.Equal(t, endpoints.Converted("clip.avi", "mp4"), browserURL(endpoints, "clip.avi", "mp4"))
}
