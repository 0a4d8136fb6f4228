package livegui

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	config := DefaultConfig()
	config.Output = filepath.Join(t.TempDir(), "index.html")
	config.LogLevel = "error"
	return config
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestNew_RendersAndWritesPage(t *testing.T) {
	config := testConfig(t)
	config.Title = "My App"

	app, err := New(config, func(b *Builder) {
		b.Button("button1")
		b.Progress(40)
	})
	require.NoError(t, err)

	assert.Equal(t, KindBody, app.Root().Kind())
	assert.Equal(t, "My App", app.Root().String(PropTitle))
	assert.Equal(t, 3, app.Registry().Len())

	written, err := os.ReadFile(config.Output)
	require.NoError(t, err)
	assert.Equal(t, app.Page(), written)

	page := string(written)
	assert.Contains(t, page, "My App")
	assert.Contains(t, page, "ws://localhost:80/ws")
	assert.Contains(t, page, "button1")
}

func TestNew_NoOutput(t *testing.T) {
	config := testConfig(t)
	config.Output = ""

	app, err := New(config, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, app.Page())
	assert.Equal(t, 1, app.Registry().Len())
}

func TestNew_Errors(t *testing.T) {
	t.Run("invalid config", func(t *testing.T) {
		config := testConfig(t)
		config.Path = "no-slash"
		_, err := New(config, nil)
		assert.ErrorContains(t, err, "invalid config")
	})

	t.Run("build error", func(t *testing.T) {
		_, err := New(testConfig(t), func(b *Builder) {
			b.Body(nil, nil)
		})
		assert.ErrorContains(t, err, "failed to build tree")
	})
}

func TestSocketURL(t *testing.T) {
	tests := map[string]string{
		"0.0.0.0:80":     "ws://localhost:80/ws",
		"[::]:8080":      "ws://localhost:8080/ws",
		":9000":          "ws://localhost:9000/ws",
		"127.0.0.1:8080": "ws://127.0.0.1:8080/ws",
		"example.com:81": "ws://example.com:81/ws",
	}
	for addr, want := range tests {
		config := DefaultConfig()
		config.Addr = addr
		assert.Equal(t, want, SocketURL(config), addr)
	}
}

func TestApp_Handler(t *testing.T) {
	app, err := New(testConfig(t), func(b *Builder) {
		b.Button("button1").OnClick(func(ev *Event) error {
			return ev.Node.Set(PropValue, "clicked")
		})
	})
	require.NoError(t, err)

	ts := httptest.NewServer(app.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestApp_Run(t *testing.T) {
	config := testConfig(t)
	config.Addr = freeAddr(t)

	app, err := New(config, func(b *Builder) {
		b.Button("button1").OnClick(func(ev *Event) error {
			return ev.Node.Set(PropValue, "clicked")
		})
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + config.Addr + "/")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	conn, resp, err := websocket.DefaultDialer.Dial(SocketURL(config), nil)
	require.NoError(t, err)
	resp.Body.Close()
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, `add_event:1->["click"]`, string(data))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("click:1")))
	_, data, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "sync:1->"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
