package livegui

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	require.NoError(t, config.Validate())
	assert.Equal(t, "0.0.0.0:80", config.Addr)
	assert.Equal(t, "/ws", config.Path)
	assert.Equal(t, "index.html", config.Output)
	assert.True(t, config.Minify)
	assert.False(t, config.OpenBrowser)
	assert.Equal(t, slog.LevelInfo, config.Level())
}

func TestLoadConfig(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		config, err := LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), config)
	})

	t.Run("missing file", func(t *testing.T) {
		config, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), config)
	})

	t.Run("overrides", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "livegui.yaml")
		data := []byte(`addr: 127.0.0.1:8080
path: /socket
title: Demo
log_level: debug
write_timeout: 5s
debug_endpoints: true
`)
		require.NoError(t, os.WriteFile(path, data, 0644))

		config, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:8080", config.Addr)
		assert.Equal(t, "/socket", config.Path)
		assert.Equal(t, "Demo", config.Title)
		assert.Equal(t, 5*time.Second, config.WriteTimeout)
		assert.True(t, config.DebugEndpoints)
		assert.Equal(t, slog.LevelDebug, config.Level())

		// untouched keys keep their defaults
		assert.Equal(t, "index.html", config.Output)
		assert.True(t, config.Minify)
	})

	t.Run("bad yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("addr: [unclosed"), 0644))

		_, err := LoadConfig(path)
		assert.ErrorContains(t, err, "failed to parse config file")
	})

	t.Run("invalid values", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "invalid.yaml")
		require.NoError(t, os.WriteFile(path, []byte("log_level: loud\n"), 0644))

		_, err := LoadConfig(path)
		assert.ErrorContains(t, err, "LogLevel must be one of")
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"missing addr", func(c *Config) { c.Addr = "" }, "Addr is required"},
		{"addr without port", func(c *Config) { c.Addr = "localhost" }, "Addr is invalid"},
		{"relative path", func(c *Config) { c.Path = "ws" }, "Path is invalid"},
		{"negative timeout", func(c *Config) { c.WriteTimeout = -time.Second }, "WriteTimeout is invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)

			err := config.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)

			var multi MultiError
			assert.ErrorAs(t, err, &multi)
		})
	}
}

func TestSaveConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")

	config := DefaultConfig()
	config.Addr = "localhost:9000"
	config.Title = "Saved"
	config.WriteTimeout = 3 * time.Second

	require.NoError(t, SaveConfig(path, config))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config, loaded)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	config := DefaultConfig()
	config.LogLevel = "warn"

	logger := NewLogger(config, &buf)
	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
