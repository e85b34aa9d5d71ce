package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/noediv/mediaplay/internal/clipboard"
	"github.com/noediv/mediaplay/internal/config"
	"github.com/noediv/mediaplay/internal/gateway"
	"github.com/noediv/mediaplay/internal/media"
	"github.com/noediv/mediaplay/internal/playback"
	"github.com/noediv/mediaplay/internal/player"
	"github.com/noediv/mediaplay/internal/player/ffplay"
	"github.com/noediv/mediaplay/internal/player/mpv"
	"github.com/noediv/mediaplay/internal/probe"
	"github.com/noediv/mediaplay/internal/streaming"
	"github.com/noediv/mediaplay/internal/tui"
)

var (
	engineFlag string
	formatFlag string
	kindFlag   string
)

// newStreamingLoader builds the streaming helper loader shared by every engine
// of a session. The helper itself is initialised on first use.
func newStreamingLoader(conf *config.Config) *streaming.Loader {
	return streaming.NewLoader(streaming.NewHLSFactory(streaming.HLSConfig{
		Timeout:   conf.Gateway.Timeout,
		UserAgent: conf.Gateway.UserAgent,
	}))
}

func newGatewayClient(conf *config.Config) (*gateway.Client, error) {
	return gateway.NewClient(gateway.ClientConfig{
		BaseURL:    conf.Gateway.BaseURL,
		Timeout:    conf.Gateway.Timeout,
		MaxRetries: conf.Gateway.MaxRetries,
		UserAgent:  conf.Gateway.UserAgent,
		Debug:      conf.Advanced.Debug,
		Logger:     logger,
	})
}

func newProber(conf *config.Config) *probe.HTTPProber {
	return probe.New(probe.Config{
		Timeout:   conf.Probe.Timeout,
		UserAgent: conf.Gateway.UserAgent,
		Logger:    logger,
	})
}

// buildRequest turns the file argument and flags into a playback request
func buildRequest(filename string) (playback.Request, error) {
	req := playback.Request{Filename: filename, FormatOverride: formatFlag}
	if kindFlag != "" {
		kind, ok := media.ParseKind(kindFlag)
		if !ok {
			return req, fmt.Errorf("unknown media kind %q (want audio or video)", kindFlag)
		}
		req.Kind = &kind
	}
	return req, nil
}

var playCmd = &cobra.Command{
	Use:   "play <file>",
	Short: "Play a file from the gateway",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conf := settings()
		req, err := buildRequest(args[0])
		if err != nil {
			return err
		}

		defaultEngine := conf.Player.EngineKind()
		if engineFlag != "" {
			if defaultEngine, err = player.ParseEngineKind(engineFlag); err != nil {
				return err
			}
		}

		client, err := newGatewayClient(conf)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		name := media.DecodeName(req.Filename)
		format := media.ClassifyDecoded(name)
		if req.Kind != nil {
			format = format.WithKind(*req.Kind)
		}

		ctrl, err := playback.New(ctx, playback.Config{
			Endpoints:          client.Endpoints(),
			Prober:             newProber(conf),
			Engines:            engineFactory(*conf, newStreamingLoader(conf), format, name, logger),
			DefaultEngine:      defaultEngine,
			AutoEngineFallback: conf.Playback.AutoEngineFallback,
			LoadTimeout:        conf.Playback.LoadTimeout,
			Logger:             logger,
		}, req)
		if err != nil {
			return err
		}

		return tui.Run(ctx, tui.Options{
			Filename:   req.Filename,
			Controller: ctrl,
			Metadata:   client,
			Clipboard:  clipboard.New(conf.Advanced.ClipboardCommand, logger),
			Logger:     logger,
		})
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe <file>",
	Short: "Check whether the raw and converted sources of a file are reachable",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conf := settings()
		endpoints, err := gateway.NewEndpoints(conf.Gateway.BaseURL)
		if err != nil {
			return err
		}
		prober := newProber(conf)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		format := media.Classify(args[0])
		urls := []struct {
			label string
			url   string
		}{
			{"raw", endpoints.Raw(args[0])},
			{"converted", endpoints.Converted(args[0], playback.FormatParam(formatFlag))},
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SOURCE\tREACHABLE\tSTATUS\tSIZE\tTIME")
		for _, u := range urls {
			res := prober.Probe(ctx, u.url)
			status := string(res.StatusClass)
			if res.StatusCode > 0 {
				status = fmt.Sprintf("%d", res.StatusCode)
			}
			size := "unknown"
			if res.Size >= 0 {
				size = humanize.Bytes(uint64(res.Size))
			}
			fmt.Fprintf(w, "%s\t%t\t%s\t%s\t%s\n", u.label, res.Reachable, status, size, res.Duration.Round(time.Millisecond))
		}
		if err := w.Flush(); err != nil {
			return err
		}

		if format.NeedsConversion {
			fmt.Println("\nThis container usually needs the converted source.")
		}
		return nil
	},
}

// browserURL picks the source a browser should be given for filename
func browserURL(endpoints *gateway.Endpoints, filename, override string) string {
	switch {
	case override == playback.OverrideRaw:
		return endpoints.Raw(filename)
	case override != "":
		return endpoints.Converted(filename, playback.FormatParam(override))
	case media.Classify(filename).NeedsConversion:
		return endpoints.Converted(filename, "")
	default:
		return endpoints.Raw(filename)
	}
}

var openCmd = &cobra.Command{
	Use:   "open <file>",
	Short: "Open a file's stream in the default browser",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conf := settings()
		endpoints, err := gateway.NewEndpoints(conf.Gateway.BaseURL)
		if err != nil {
			return err
		}
		u := browserURL(endpoints, args[0], formatFlag)
		logger.Info("opening in browser", "url", u)
		if err := browser.OpenURL(u); err != nil {
			return fmt.Errorf("failed to open browser: %w", err)
		}
		fmt.Println(u)
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Show classification, metadata and available engines for a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conf := settings()
		name := media.DecodeName(args[0])
		format := media.ClassifyDecoded(name)

		fmt.Printf("File:       %s\n", name)
		fmt.Printf("Kind:       %s\n", format.Kind)
		fmt.Printf("MIME hint:  %s\n", format.MIMEHint)
		fmt.Printf("Conversion: %t\n", format.NeedsConversion)
		fmt.Printf("Adaptive:   %t\n", format.Adaptive)

		client, err := newGatewayClient(conf)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), client.GetTimeout())
		defer cancel()

		meta, err := client.Metadata(ctx, args[0])
		switch {
		case err == nil:
			fmt.Printf("\nTitle:       %s\n", meta.Title)
			if meta.Duration > 0 {
				fmt.Printf("Duration:    %s\n", time.Duration(meta.Duration*float64(time.Second)).Round(time.Second))
			}
			if len(meta.Tags) > 0 {
				fmt.Printf("Tags:        %v\n", meta.Tags)
			}
			if meta.Description != "" {
				fmt.Printf("Description: %s\n", meta.Description)
			}
		default:
			fmt.Printf("\nMetadata unavailable: %v\n", err)
		}

		fmt.Println("\nEngines:")
		if info, err := mpv.Lookup(conf.Player.MPVPath); err == nil {
			fmt.Printf("  %-7s %-6s %s\n", player.EngineRich, info.Name, info.Path)
		} else {
			fmt.Printf("  %-7s unavailable: %v\n", player.EngineRich, err)
		}
		if info, err := ffplay.Lookup(conf.Player.FFplayPath); err == nil {
			fmt.Printf("  %-7s %-6s %s\n", player.EngineNative, info.Name, info.Path)
		} else {
			fmt.Printf("  %-7s unavailable: %v\n", player.EngineNative, err)
		}
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list [query]",
	Short: "List files available on the gateway, optionally fuzzy-filtered",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conf := settings()
		client, err := newGatewayClient(conf)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), client.GetTimeout())
		defer cancel()

		files, err := client.Files(ctx)
		if err != nil {
			return fmt.Errorf("failed to list files: %w", err)
		}
		if len(args) == 1 {
			files = gateway.FilterFiles(files, args[0])
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTYPE\tKIND")
		for _, f := range files {
			fmt.Fprintf(w, "%s\t%s\t%s\n", f.Name, f.Type, media.ClassifyDecoded(f.Name).Kind)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\n%s files\n", humanize.Comma(int64(len(files))))
		return nil
	},
}

func init() {
	playCmd.Flags().StringVar(&engineFlag, "engine", "", "engine to start with (rich, native); default from config")
	playCmd.Flags().StringVar(&formatFlag, "format", "", "delivery override: raw, converted, or a converted format such as mp4")
	playCmd.Flags().StringVar(&kindFlag, "kind", "", "treat the file as audio or video regardless of extension")
	probeCmd.Flags().StringVar(&formatFlag, "format", "", "converted format to probe, such as mp4")
	openCmd.Flags().StringVar(&formatFlag, "format", "", "delivery override: raw, converted, or a converted format such as mp4")
}
