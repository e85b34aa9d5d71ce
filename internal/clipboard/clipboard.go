// Package clipboard copies text to the system clipboard, optionally through a
// user-configured command.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/atotto/clipboard"
)

// ErrEmptyCommand is returned when a configured command has no executable
var ErrEmptyCommand = errors.New("empty clipboard command")

// Writer copies text to the clipboard
type Writer struct {
	command []string
	logger  *slog.Logger

	// system is the fallback used when no command is configured
	system func(string) error
}

// New creates a Writer. A non-empty command is run with the text on stdin;
// otherwise the platform clipboard is used.
func New(command string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		command: parseCommand(command),
		logger:  logger,
		system:  clipboard.WriteAll,
	}
}

// Write copies text
func (w *Writer) Write(ctx context.Context, text string) error {
	if len(w.command) == 0 {
		if err := w.system(text); err != nil {
			return fmt.Errorf("failed to copy to clipboard: %w", err)
		}
		w.logger.Debug("copied to clipboard", "length", len(text))
		return nil
	}

	cmd := exec.CommandContext(ctx, w.command[0], w.command[1:]...)
	cmd.Stdin = strings.NewReader(text)
	if out, err := cmd.CombinedOutput(); err != nil {
		w.logger.Warn("clipboard command failed", "command", w.command[0], "error", err, "output", strings.TrimSpace(string(out)))
		return fmt.Errorf("clipboard command %s: %w", w.command[0], err)
	}
	w.logger.Debug("copied to clipboard", "command", w.command[0], "length", len(text))
	return nil
}

// parseCommand splits a command string into arguments, respecting quotes
func parseCommand(command string) []string {
	var parts []string
	var current strings.Builder
	var quote rune
	inPart := false

	for _, char := range command {
		switch {
		case quote != 0:
			if char == quote {
				quote = 0
			} else {
				current.WriteRune(char)
			}
		case char == '\'' || char == '"':
			quote = char
			inPart = true
		case char == ' ' || char == '\t':
			if inPart {
				parts = append(parts, current.String())
				current.Reset()
				inPart = false
			}
		default:
			current.WriteRune(char)
			inPart = true
		}
	}
	if inPart {
		parts = append(parts, current.String())
	}
	return parts
}
