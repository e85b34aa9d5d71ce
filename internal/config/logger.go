package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogToStderr as logging.file sends logs to the console instead of a file
const LogToStderr = "stderr"

const colorReset = "\033[0m"

// ANSI colors per level
var levelColors = []struct {
	token string
	color string
}{
	{"level=DEBUG", "\033[90m"}, // gray
	{"level=INFO", "\033[32m"},  // green
	{"level=WARN", "\033[33m"},  // yellow
	{"level=ERROR", "\033[31m"}, // red
}

// InitLogger builds the application logger and installs it as the slog default
func InitLogger(cfg *LoggingConfig) (*slog.Logger, error) {
	writer, console, err := logWriter(cfg)
	if err != nil {
		return nil, err
	}
	logger := slog.New(newHandler(writer, console, cfg))
	slog.SetDefault(logger)
	return logger, nil
}

// logWriter returns where logs go. The TUI owns the terminal, so logs default
// to a rotated file under the state directory.
func logWriter(cfg *LoggingConfig) (io.Writer, bool, error) {
	if strings.EqualFold(cfg.File, LogToStderr) {
		return os.Stderr, true, nil
	}

	if cfg.File == "" {
		cfg.File = filepath.Join(getStateDir(), appName, appName+".log")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
		return nil, false, fmt.Errorf("failed to create log directory: %w", err)
	}

	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSize, // megabytes
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge, // days
		Compress:   cfg.Compress,
	}, false, nil
}

func newHandler(w io.Writer, console bool, cfg *LoggingConfig) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}

	if strings.EqualFold(cfg.Format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	// Only color the console; escape codes in a log file are noise
	if cfg.Color && console {
		w = colorWriter{w: w}
	}
	return slog.NewTextHandler(w, opts)
}

// colorWriter colors the level field of each text record. The text handler
// writes one record per Write call.
type colorWriter struct {
	w io.Writer
}

func (c colorWriter) Write(p []byte) (int, error) {
	line := string(p)
	for _, lc := range levelColors {
		if i := strings.Index(line, lc.token); i >= 0 {
			line = line[:i] + lc.color + lc.token + colorReset + line[i+len(lc.token):]
			break
		}
	}
	if _, err := io.WriteString(c.w, line); err != nil {
		return 0, err
	}
	return len(p), nil
}

// parseLogLevel parses a log level string, defaulting to info
func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
