package livegui

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultAddr listens on every interface, port 80.
	DefaultAddr = "0.0.0.0:80"

	// DefaultPath is the websocket endpoint.
	DefaultPath = "/ws"

	// DefaultOutput is the file the rendered page is written to.
	DefaultOutput = "index.html"
)

// Config configures an App.
type Config struct {
	// Addr is the host:port the server listens on
	Addr string `yaml:"addr" validate:"required,hostname_port"`

	// Path is the websocket endpoint the client script connects to
	Path string `yaml:"path" validate:"required,startswith=/"`

	// Output is where the rendered page is written; empty disables the file
	Output string `yaml:"output"`

	// Title is the document title of the rendered page
	Title string `yaml:"title"`

	// OpenBrowser opens the rendered page once the server is up
	OpenBrowser bool `yaml:"open_browser"`

	// Minify minifies the rendered markup
	Minify bool `yaml:"minify"`

	// LogLevel is one of debug, info, warn, error
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	// WriteTimeout bounds a single websocket write; zero disables it
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"gte=0"`

	// DebugEndpoints mounts /debug/metrics and /debug/tree
	DebugEndpoints bool `yaml:"debug_endpoints"`
}

// DefaultConfig returns a new Config with default values
func DefaultConfig() *Config {
	return &Config{
		Addr:         DefaultAddr,
		Path:         DefaultPath,
		Output:       DefaultOutput,
		Title:        "livegui",
		Minify:       true,
		LogLevel:     "info",
		WriteTimeout: 10 * time.Second,
	}
}

// LoadConfig reads a YAML config file on top of the defaults.
// An empty path or a missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveConfig writes the configuration as YAML.
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := defaultValidator().Struct(c); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return err
		}
		return fmt.Errorf("invalid config: %w", ValidationToMultiError(err))
	}
	return nil
}

// Level returns the slog level for LogLevel.
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// NewLogger builds a text logger writing to w at the configured level.
func NewLogger(c *Config, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: c.Level()}))
}
