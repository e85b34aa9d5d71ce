package main

import (
	"fmt"
	"log/slog"

	"github.com/noediv/mediaplay/internal/config"
	"github.com/noediv/mediaplay/internal/media"
	"github.com/noediv/mediaplay/internal/playback"
	"github.com/noediv/mediaplay/internal/player"
	"github.com/noediv/mediaplay/internal/player/ffplay"
	"github.com/noediv/mediaplay/internal/player/mpv"
	"github.com/noediv/mediaplay/internal/player/native"
	"github.com/noediv/mediaplay/internal/player/rich"
	"github.com/noediv/mediaplay/internal/streaming"
)

// engineFactory builds a fresh engine and render surface per load. Each
// engine owns its element; nothing is shared between handles except the
// streaming helper loader. cfg is captured by value so a config reload never
// changes a running session.
func engineFactory(cfg config.Config, loader *streaming.Loader, format media.Format, title string, logger *slog.Logger) playback.EngineFactory {
	return func(kind player.EngineKind) (player.Engine, error) {
		switch kind {
		case player.EngineRich:
			el := mpv.NewElement(mpv.Options{
				Executable:     cfg.Player.MPVPath,
				LoadUserConfig: cfg.Player.LoadUserConfig,
				Debug:          cfg.Advanced.Debug,
				Title:          title,
				UserAgent:      cfg.Gateway.UserAgent,
			})
			return rich.New(rich.Config{
				Element: el,
				Loader:  loader,
				Logger:  logger.With("engine", kind),
			}), nil
		case player.EngineNative:
			el := ffplay.NewElement(ffplay.Options{
				Executable: cfg.Player.FFplayPath,
				NoDisplay:  format.Kind == media.KindAudio,
				UserAgent:  cfg.Gateway.UserAgent,
				Title:      title,
				Settle:     cfg.Player.Settle,
			})
			return native.New(el), nil
		default:
			return nil, fmt.Errorf("unknown engine kind %q", kind)
		}
	}
}
