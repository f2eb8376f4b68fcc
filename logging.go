package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// logRecordMsg carries one slog record into the status bar.
type logRecordMsg struct {
	Summary string
	Level   slog.Level
	At      time.Time
}

// logRecordFadeMsg clears a status-bar record once its display time is up.
// Seq matches the record it belongs to so a newer record is not cleared
// early.
type logRecordFadeMsg struct {
	Seq int
}

const logRecordFadeDelay = 5 * time.Second

// statusLogHandler is a slog.Handler that forwards records to a running
// bubbletea program. Writing to stderr would corrupt the alt screen.
// Records logged before setProgram are dropped. Derived handlers share
// the program pointer.
type statusLogHandler struct {
	level   slog.Leveler
	program *atomic.Pointer[tea.Program]
	attrs   []string
	group   string
}

func newStatusLogHandler(level slog.Leveler) *statusLogHandler {
	return &statusLogHandler{
		level:   level,
		program: &atomic.Pointer[tea.Program]{},
	}
}

func (h *statusLogHandler) setProgram(program *tea.Program) {
	h.program.Store(program)
}

func (h *statusLogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *statusLogHandler) Handle(_ context.Context, record slog.Record) error {
	program := h.program.Load()
	if program == nil {
		return nil
	}
	program.Send(logRecordMsg{
		Summary: h.summarize(record),
		Level:   record.Level,
		At:      record.Time,
	})
	return nil
}

// summarize builds "message (key=value, ...)".
func (h *statusLogHandler) summarize(record slog.Record) string {
	parts := append([]string(nil), h.attrs...)
	record.Attrs(func(attr slog.Attr) bool {
		parts = append(parts, h.qualify(attr))
		return true
	})

	if len(parts) == 0 {
		return record.Message
	}
	return record.Message + " (" + strings.Join(parts, ", ") + ")"
}

func (h *statusLogHandler) qualify(attr slog.Attr) string {
	key := attr.Key
	if h.group != "" {
		key = h.group + "." + key
	}
	return fmt.Sprintf("%s=%s", key, attr.Value)
}

// WithAttrs formats attrs immediately so they keep the group that was
// open when they were added.
func (h *statusLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := *h
	derived.attrs = append([]string(nil), h.attrs...)
	for _, attr := range attrs {
		derived.attrs = append(derived.attrs, h.qualify(attr))
	}
	return &derived
}

func (h *statusLogHandler) WithGroup(name string) slog.Handler {
	derived := *h
	if derived.group != "" {
		name = derived.group + "." + name
	}
	derived.group = name
	return &derived
}

// fanoutHandler sends each record to every sub-handler enabled for its
// level.
type fanoutHandler []slog.Handler

func (handlers fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (handlers fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range handlers {
		if handler.Enabled(ctx, record.Level) {
			if err := handler.Handle(ctx, record.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (handlers fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := make(fanoutHandler, len(handlers))
	for i, handler := range handlers {
		derived[i] = handler.WithAttrs(attrs)
	}
	return derived
}

func (handlers fanoutHandler) WithGroup(name string) slog.Handler {
	derived := make(fanoutHandler, len(handlers))
	for i, handler := range handlers {
		derived[i] = handler.WithGroup(name)
	}
	return derived
}

// openFileLogHandler opens path for JSON records at debug level. The file
// is created or truncated.
func openFileLogHandler(path string) (slog.Handler, io.Closer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log output: %w", err)
	}
	return slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug}), file, nil
}
