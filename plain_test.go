package main

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
)

func TestRunPlainWritesOneFramePerSnapshot(t *testing.T) {
	events := make(chan Event, 8)
	events <- Event{State: StateConnecting}
	events <- Event{State: StateConnected}
	events <- Event{Snapshot: &Snapshot{CPUs: []float64{10, 20}, RAM: [2]uint64{1 << 30, 2 << 30}}}
	_, decodeErr := DecodeSnapshot([]byte("{"))
	events <- Event{Err: decodeErr}
	events <- Event{Snapshot: &Snapshot{CPUs: []float64{30, 40}, RAM: [2]uint64{1 << 30, 4 << 30}}}
	events <- Event{State: StateClosed}
	close(events)

	renderer := NewRenderer(FormatRaw)
	renderer.Layout(80)
	var out bytes.Buffer
	if err := runPlain(events, renderer, DefaultTheme, &out, false, discardLogger()); err != nil {
		t.Fatalf("runPlain: %v", err)
	}

	frames := strings.Split(strings.TrimSuffix(out.String(), "\n\n"), "\n\n")
	if len(frames) != 2 {
		t.Fatalf("got %d frames:\n%s", len(frames), out.String())
	}
	if !strings.Contains(frames[0], "10%") || !strings.Contains(frames[0], "1GB / 2GB (50%)") {
		t.Errorf("first frame:\n%s", frames[0])
	}
	if !strings.Contains(frames[1], "40%") || !strings.Contains(frames[1], "1GB / 4GB (25%)") {
		t.Errorf("second frame:\n%s", frames[1])
	}
}

func TestRunPlainReturnsStreamError(t *testing.T) {
	streamErr := errors.New("read: unexpected EOF")
	events := make(chan Event, 2)
	events <- Event{State: StateClosed, Err: streamErr}
	close(events)

	renderer := NewRenderer(FormatRaw)
	renderer.Layout(80)
	err := runPlain(events, renderer, DefaultTheme, &bytes.Buffer{}, false, discardLogger())
	if !errors.Is(err, streamErr) {
		t.Errorf("err = %v, want %v", err, streamErr)
	}
}

func TestRunPlainRenderPreconditionIsFatal(t *testing.T) {
	events := make(chan Event, 1)
	events <- Event{Snapshot: &Snapshot{CPUs: []float64{1}, RAM: [2]uint64{0, 1}}}
	close(events)

	err := runPlain(events, NewRenderer(FormatRaw), DefaultTheme, &bytes.Buffer{}, false, discardLogger())
	if !errors.Is(err, ErrSurfaceNotReady) {
		t.Errorf("err = %v, want ErrSurfaceNotReady", err)
	}
}

func TestRunPlainStrictStopsOnMalformedMessage(t *testing.T) {
	_, decodeErr := DecodeSnapshot([]byte(`{"cpus":[null],"ram":[1,2]}`))
	events := make(chan Event, 3)
	events <- Event{Err: decodeErr}
	events <- Event{Snapshot: &Snapshot{CPUs: []float64{10}, RAM: [2]uint64{1, 2}}}
	close(events)

	renderer := NewRenderer(FormatRaw)
	renderer.Layout(80)
	var out bytes.Buffer
	err := runPlain(events, renderer, DefaultTheme, &out, true, discardLogger())

	var target *DecodeError
	if !errors.As(err, &target) {
		t.Fatalf("err = %v, want a *DecodeError", err)
	}
	if out.Len() != 0 {
		t.Errorf("no frame should be written after the failure:\n%s", out.String())
	}
}

func TestTerminalColumnsFallback(t *testing.T) {
	file, err := os.CreateTemp(t.TempDir(), "not-a-tty")
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	if got := terminalColumns(file); got != fallbackColumns {
		t.Errorf("terminalColumns(regular file) = %d, want %d", got, fallbackColumns)
	}
}
