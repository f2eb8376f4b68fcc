package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultURL              = "ws://127.0.0.1:6969/sync"
	defaultQueueSize        = 16
	defaultHandshakeTimeout = 10 * time.Second
	defaultReadLimit        = 1 << 20
)

type Config struct {
	URL              string        `yaml:"url"`
	Token            string        `yaml:"token"`
	Format           string        `yaml:"format"`
	Strict           bool          `yaml:"strict"`
	QueueSize        int           `yaml:"queue_size"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	ReadLimit        int64         `yaml:"read_limit"`
	LogLevel         string        `yaml:"log_level"`
	LogOutput        string        `yaml:"log_output"`
}

func defaultConfig() *Config {
	return &Config{
		URL:              defaultURL,
		Format:           string(FormatRaw),
		QueueSize:        defaultQueueSize,
		HandshakeTimeout: defaultHandshakeTimeout,
		ReadLimit:        defaultReadLimit,
		LogLevel:         "warn",
	}
}

func defaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".sysbars", "config.yaml")
}

func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.URL == "" {
		cfg.URL = defaultURL
	}
	if cfg.Format == "" {
		cfg.Format = string(FormatRaw)
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	if cfg.ReadLimit == 0 {
		cfg.ReadLimit = defaultReadLimit
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "warn"
	}

	return cfg, nil
}

// Validate reports the first invalid field. It does not mutate the config.
func (c *Config) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("url %q: %w", c.URL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("url %q: scheme must be ws or wss", c.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q: missing host", c.URL)
	}
	if _, err := ParseLabelFormat(c.Format); err != nil {
		return err
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("queue_size must be positive, got %d", c.QueueSize)
	}
	if c.HandshakeTimeout < 0 {
		return errors.New("handshake_timeout must not be negative")
	}
	if c.ReadLimit < 0 {
		return errors.New("read_limit must not be negative")
	}
	if _, err := parseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// LabelFormat returns the parsed label format. Call Validate first.
func (c *Config) LabelFormat() LabelFormat {
	format, err := ParseLabelFormat(c.Format)
	if err != nil {
		return FormatRaw
	}
	return format
}

func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", level)
}
