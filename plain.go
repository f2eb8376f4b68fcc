package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/creack/pty"
)

const fallbackColumns = 80

// terminalColumns returns the width of the terminal behind f, or 80 when
// f is not a terminal.
func terminalColumns(f *os.File) int {
	_, cols, err := pty.Getsize(f)
	if err != nil || cols <= 0 {
		return fallbackColumns
	}
	return cols
}

// runPlain renders every snapshot as a text frame on out until the event
// channel closes. It returns the transport error that closed the stream,
// if any. With strict set the first malformed message ends the run.
func runPlain(events <-chan Event, renderer *Renderer, theme Theme, out io.Writer, strict bool, logger *slog.Logger) error {
	var streamErr error
	for event := range events {
		switch {
		case event.Snapshot != nil:
			if err := renderer.Render(event.Snapshot); err != nil {
				return fmt.Errorf("render: %w", err)
			}
			if _, err := fmt.Fprintf(out, "%s\n\n", renderer.View(theme)); err != nil {
				return fmt.Errorf("writing frame: %w", err)
			}
		case !event.IsStateChange():
			// Logged by the subscriber.
			if strict {
				return fmt.Errorf("malformed message: %w", event.Err)
			}
		default:
			logger.Debug("connection state", "state", event.State.String())
			if event.State == StateClosed {
				streamErr = event.Err
			}
		}
	}
	return streamErr
}
