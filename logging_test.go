package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestStatusLogHandlerSummary(t *testing.T) {
	handler := newStatusLogHandler(slog.LevelWarn)
	derived := handler.WithAttrs([]slog.Attr{slog.String("url", "ws://x")}).WithGroup("sub").(*statusLogHandler)

	record := slog.NewRecord(time.Now(), slog.LevelWarn, "dropping malformed message", 0)
	record.AddAttrs(slog.Int("bytes", 12))

	got := derived.summarize(record)
	want := "dropping malformed message (url=ws://x, sub.bytes=12)"
	if got != want {
		t.Errorf("summary = %q, want %q", got, want)
	}

	plain := slog.NewRecord(time.Now(), slog.LevelWarn, "bare", 0)
	if got := handler.summarize(plain); got != "bare" {
		t.Errorf("summary = %q, want bare", got)
	}

	if derived.program != handler.program {
		t.Error("derived handlers must share the program pointer")
	}
}

func TestStatusLogHandlerLevelAndNoProgram(t *testing.T) {
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	handler := newStatusLogHandler(level)

	ctx := context.Background()
	if handler.Enabled(ctx, slog.LevelInfo) {
		t.Error("info should be disabled at warn")
	}
	if !handler.Enabled(ctx, slog.LevelError) {
		t.Error("error should be enabled at warn")
	}
	level.Set(slog.LevelDebug)
	if !handler.Enabled(ctx, slog.LevelDebug) {
		t.Error("level changes should apply immediately")
	}

	// Without a program the record is dropped rather than blocking.
	record := slog.NewRecord(time.Now(), slog.LevelError, "early", 0)
	if err := handler.Handle(ctx, record); err != nil {
		t.Errorf("Handle: %v", err)
	}
}

func TestFanoutHandler(t *testing.T) {
	var warnBuf, debugBuf bytes.Buffer
	fanout := fanoutHandler{
		slog.NewTextHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn}),
		slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	}
	logger := slog.New(fanout).With("component", "subscriber")

	logger.Debug("frame ignored")
	logger.Warn("dropping malformed message")

	if strings.Contains(warnBuf.String(), "frame ignored") {
		t.Error("warn handler received a debug record")
	}
	if !strings.Contains(warnBuf.String(), "dropping malformed message") {
		t.Error("warn handler missed the warning")
	}
	if strings.Count(debugBuf.String(), "\n") != 2 {
		t.Errorf("debug handler got:\n%s", debugBuf.String())
	}
	if !strings.Contains(debugBuf.String(), `"component":"subscriber"`) {
		t.Error("attrs were not propagated")
	}
	if fanout.Enabled(context.Background(), slog.LevelDebug-4) {
		t.Error("no sub-handler accepts levels below debug")
	}
}

func TestOpenFileLogHandler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sysbars.jsonl")
	handler, closer, err := openFileLogHandler(path)
	if err != nil {
		t.Fatalf("openFileLogHandler: %v", err)
	}
	slog.New(handler).Debug("connected", "url", "ws://127.0.0.1:6969/sync")
	closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"msg":"connected"`) {
		t.Errorf("log file = %s", data)
	}
}
