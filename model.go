package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// subscriberEventMsg delivers one subscriber event to the model.
type subscriberEventMsg struct {
	event Event
}

// eventsClosedMsg is sent once the subscriber channel is closed.
type eventsClosedMsg struct{}

// configReloadMsg carries a freshly loaded and validated config.
type configReloadMsg struct {
	config *Config
}

// Model is the interactive front-end. The bubbletea event loop is the
// only goroutine that touches the renderer, so snapshots are rendered
// strictly one at a time in arrival order.
type Model struct {
	renderer *Renderer
	theme    Theme
	events   <-chan Event
	logger   *slog.Logger
	url      string
	strict   bool

	ready  bool
	width  int
	height int

	state        ConnState
	connErr      error
	received     int
	decodeErrors int
	skipped      int

	// pending is the latest snapshot that arrived before the first
	// layout. It is rendered as soon as the surface has a width.
	pending *Snapshot

	status    *logRecordMsg
	statusSeq int

	err error
}

func NewModel(renderer *Renderer, events <-chan Event, config *Config, logger *slog.Logger) Model {
	return Model{
		renderer: renderer,
		theme:    DefaultTheme,
		events:   events,
		logger:   logger,
		url:      config.URL,
		strict:   config.Strict,
		state:    StateConnecting,
	}
}

// Err returns the error that ended the program, if any.
func (model Model) Err() error {
	return model.err
}

func (model Model) Init() tea.Cmd {
	if model.events == nil {
		return nil
	}
	return listenForEvent(model.events)
}

// listenForEvent blocks for one event. The model re-arms it after each
// delivery so events are consumed strictly in order.
func listenForEvent(events <-chan Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return subscriberEventMsg{event: event}
	}
}

// logCmd logs from a command goroutine. Logging straight from Update would
// deadlock: the status handler sends into the loop that is running Update.
func logCmd(logger *slog.Logger, level slog.Level, message string, args ...any) tea.Cmd {
	return func() tea.Msg {
		logger.Log(context.Background(), level, message, args...)
		return nil
	}
}

func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.ready = true
		model.renderer.Layout(message.Width)
		if model.pending == nil || !model.renderer.Ready() {
			return model, nil
		}
		snap := model.pending
		model.pending = nil
		cmd := model.render(snap)
		if model.err != nil {
			return model, tea.Quit
		}
		return model, cmd

	case tea.KeyMsg:
		switch message.String() {
		case "q", "esc", "ctrl+c":
			return model, tea.Quit
		case "f":
			format := model.renderer.Format().Next()
			model.renderer.SetFormat(format)
			return model, logCmd(model.logger, slog.LevelInfo, "label format changed", "format", string(format))
		}
		return model, nil

	case subscriberEventMsg:
		cmd := model.handleEvent(message.event)
		if model.err != nil {
			return model, tea.Quit
		}
		if cmd == nil {
			return model, listenForEvent(model.events)
		}
		return model, tea.Batch(cmd, listenForEvent(model.events))

	case eventsClosedMsg:
		return model, nil

	case configReloadMsg:
		return model, model.applyConfig(message.config)

	case logRecordMsg:
		model.statusSeq++
		model.status = &message
		seq := model.statusSeq
		return model, tea.Tick(logRecordFadeDelay, func(time.Time) tea.Msg {
			return logRecordFadeMsg{Seq: seq}
		})

	case logRecordFadeMsg:
		if message.Seq == model.statusSeq {
			model.status = nil
		}
		return model, nil
	}
	return model, nil
}

func (model *Model) handleEvent(event Event) tea.Cmd {
	switch {
	case event.Snapshot != nil:
		model.received++
		return model.render(event.Snapshot)

	case !event.IsStateChange():
		// The subscriber already logged the decode error.
		model.decodeErrors++
		if model.strict {
			model.err = fmt.Errorf("malformed message: %w", event.Err)
		}
		return nil

	default:
		model.state = event.State
		if event.State == StateClosed && event.Err != nil {
			model.connErr = event.Err
			return logCmd(model.logger, slog.LevelError, "stream closed", "error", event.Err)
		}
		return nil
	}
}

// render draws snap. Before the first layout the latest snapshot is held
// and drawn by the next positive-width WindowSizeMsg; strict does not
// apply to it.
func (model *Model) render(snap *Snapshot) tea.Cmd {
	err := model.renderer.Render(snap)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrSurfaceNotReady):
		model.pending = snap
		return logCmd(model.logger, slog.LevelDebug, "snapshot held until layout")
	}
	model.skipped++
	if model.strict {
		model.err = fmt.Errorf("render: %w", err)
		return nil
	}
	return logCmd(model.logger, slog.LevelWarn, "snapshot skipped", "error", err)
}

func (model *Model) applyConfig(config *Config) tea.Cmd {
	var cmds []tea.Cmd
	if format := config.LabelFormat(); format != model.renderer.Format() {
		model.renderer.SetFormat(format)
		cmds = append(cmds, logCmd(model.logger, slog.LevelInfo, "config reloaded", "format", string(format)))
	}
	model.strict = config.Strict
	if config.URL != model.url {
		cmds = append(cmds, logCmd(model.logger, slog.LevelWarn, "url change needs a restart", "url", config.URL))
	}
	return tea.Batch(cmds...)
}

func (model Model) View() string {
	if !model.ready {
		return "Loading..."
	}

	sections := []string{model.renderHeader()}

	body := model.renderer.View(model.theme)
	if body == "" {
		body = lipgloss.NewStyle().Foreground(model.theme.FaintText).Render("waiting for the first snapshot...")
	}
	sections = append(sections, "", body)

	content := strings.Join(sections, "\n")
	statusLine := model.renderStatus()

	// Pin the status line to the bottom row when there is room.
	padding := model.height - lipgloss.Height(content) - 1
	if padding > 0 {
		content += strings.Repeat("\n", padding)
	}
	return content + "\n" + statusLine
}

func (model Model) renderHeader() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(model.theme.Header).Render("sysbars")
	faint := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	state := lipgloss.NewStyle().Foreground(model.theme.StateColor(model.state)).Render("● " + model.state.String())

	parts := []string{title, faint.Render(model.url), state}
	if model.received > 0 {
		parts = append(parts, faint.Render(fmt.Sprintf("%d frames", model.received)))
	}
	if model.decodeErrors > 0 {
		warn := lipgloss.NewStyle().Foreground(model.theme.WarnText)
		parts = append(parts, warn.Render(fmt.Sprintf("%d malformed", model.decodeErrors)))
	}
	if model.skipped > 0 {
		parts = append(parts, faint.Render(fmt.Sprintf("%d skipped", model.skipped)))
	}
	return strings.Join(parts, "  ")
}

func (model Model) renderStatus() string {
	if model.status != nil {
		color := model.theme.NormalText
		switch {
		case model.status.Level >= slog.LevelError:
			color = model.theme.ErrorText
		case model.status.Level >= slog.LevelWarn:
			color = model.theme.WarnText
		}
		return truncate(lipgloss.NewStyle().Foreground(color).Render(model.status.Summary), model.width)
	}
	if model.state == StateClosed && model.connErr != nil {
		errStyle := lipgloss.NewStyle().Foreground(model.theme.ErrorText)
		return truncate(errStyle.Render("stream closed: "+model.connErr.Error()), model.width)
	}
	help := fmt.Sprintf("q quit · f format (%s)", model.renderer.Format())
	return lipgloss.NewStyle().Foreground(model.theme.FaintText).Render(help)
}

func truncate(line string, width int) string {
	if width <= 0 {
		return line
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(line)
}
