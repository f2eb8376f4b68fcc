package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

var version = "dev"

type options struct {
	configPath string
	url        string
	token      string
	format     string
	plain      bool
	strict     bool
	logLevel   string
	logOutput  string
	version    bool
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var opts options
	flagSet := pflag.NewFlagSet("sysbars", pflag.ContinueOnError)
	flagSet.StringVar(&opts.configPath, "config", "", "path to config file (default ~/.sysbars/config.yaml)")
	flagSet.StringVar(&opts.url, "url", "", "producer websocket URL (default "+defaultURL+")")
	flagSet.StringVar(&opts.token, "token", "", "bearer token sent on the websocket handshake")
	flagSet.StringVar(&opts.format, "format", "", "label format: raw, fixed or human")
	flagSet.BoolVar(&opts.plain, "plain", false, "print frames to stdout instead of the interactive view")
	flagSet.BoolVar(&opts.strict, "strict", false, "exit on the first malformed or unrenderable snapshot")
	flagSet.StringVar(&opts.logLevel, "log-level", "", "minimum log level: debug, info, warn or error")
	flagSet.StringVar(&opts.logOutput, "log-output", "", "also write JSON log records to this file")
	flagSet.BoolVar(&opts.version, "version", false, "print version and exit")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if opts.version {
		fmt.Println("sysbars", version)
		return nil
	}

	cfgPath := opts.configPath
	if cfgPath == "" {
		cfgPath = defaultConfigPath()
	}

	// Flags win over the file, on startup and on every reload.
	load := func(path string) (*Config, error) {
		cfg, err := loadConfig(path)
		if err != nil {
			return nil, err
		}
		opts.apply(cfg, flagSet)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		return cfg, nil
	}

	cfg, err := load(cfgPath)
	if err != nil {
		return err
	}

	level := new(slog.LevelVar)
	parsed, _ := parseLogLevel(cfg.LogLevel)
	level.Set(parsed)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	renderer := NewRenderer(cfg.LabelFormat())

	if opts.plain || !term.IsTerminal(int(os.Stdout.Fd())) {
		return runPlainMode(ctx, cfg, level, renderer)
	}
	return runInteractive(ctx, cfg, cfgPath, load, level, renderer)
}

func (opts *options) apply(cfg *Config, flagSet *pflag.FlagSet) {
	if opts.url != "" {
		cfg.URL = opts.url
	}
	if opts.token != "" {
		cfg.Token = opts.token
	}
	if opts.format != "" {
		cfg.Format = opts.format
	}
	if flagSet.Changed("strict") {
		cfg.Strict = opts.strict
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.logOutput != "" {
		cfg.LogOutput = opts.logOutput
	}
}

// buildHandler adds the optional JSON file sink next to base.
func buildHandler(cfg *Config, base slog.Handler) (slog.Handler, func(), error) {
	if cfg.LogOutput == "" {
		return base, func() {}, nil
	}
	fileHandler, closer, err := openFileLogHandler(cfg.LogOutput)
	if err != nil {
		return nil, nil, err
	}
	return fanoutHandler{base, fileHandler}, func() { closer.Close() }, nil
}

func runPlainMode(ctx context.Context, cfg *Config, level *slog.LevelVar, renderer *Renderer) error {
	handler, closeLog, err := buildHandler(cfg, slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	if err != nil {
		return err
	}
	defer closeLog()
	logger := slog.New(handler)

	renderer.Layout(terminalColumns(os.Stdout))

	sub := newSubscriber(cfg, logger)
	go sub.Run(ctx)

	return runPlain(sub.Events(), renderer, DefaultTheme, os.Stdout, cfg.Strict, logger)
}

func runInteractive(ctx context.Context, cfg *Config, cfgPath string, load func(string) (*Config, error), level *slog.LevelVar, renderer *Renderer) error {
	statusHandler := newStatusLogHandler(level)
	handler, closeLog, err := buildHandler(cfg, statusHandler)
	if err != nil {
		return err
	}
	defer closeLog()
	logger := slog.New(handler)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sub := newSubscriber(cfg, logger)
	model := NewModel(renderer, sub.Events(), cfg, logger)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	watcher, err := watchConfig(cfgPath, configReloadDebounce, load,
		func(reloaded *Config) {
			if parsed, err := parseLogLevel(reloaded.LogLevel); err == nil {
				level.Set(parsed)
			}
			program.Send(configReloadMsg{config: reloaded})
		},
		func(err error) {
			logger.Warn("config watch", "error", err)
		},
	)
	if err != nil {
		logger.Debug("config reload disabled", "error", err)
	} else {
		defer watcher.Close()
	}

	// Records logged from here on block until the event loop runs, so
	// nothing on this goroutine may log after setProgram.
	statusHandler.setProgram(program)
	go sub.Run(ctx)

	final, err := program.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}
	if m, ok := final.(Model); ok {
		return m.Err()
	}
	return nil
}
