package livegui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/livefir/livegui/internal/render"
)

// App ties the pieces together: it builds the tree, renders it once, and
// serves the page plus its websocket.
type App struct {
	config     *Config
	registry   *Registry
	dispatcher *Dispatcher
	root       *Node
	page       []byte
	server     *Server
	logger     *slog.Logger
}

// New builds the tree with build and renders it. With a nil config the
// defaults are used. The rendered page is written to config.Output when set.
func New(config *Config, build func(b *Builder), opts ...Option) (*App, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	s := newSettings(append([]Option{WithLogger(NewLogger(config, nil))}, opts...))
	reg := NewRegistry(WithLogger(s.logger), WithMetrics(s.metrics))

	b := NewBuilder(reg)
	root := b.Body(Props{PropTitle: config.Title}, build)
	if err := b.Err(); err != nil {
		return nil, fmt.Errorf("failed to build tree: %w", err)
	}

	renderer, err := render.New(render.Options{
		Title:     config.Title,
		SocketURL: SocketURL(config),
		Minify:    config.Minify,
	})
	if err != nil {
		return nil, err
	}
	page, err := renderer.PageString(root.element())
	if err != nil {
		return nil, fmt.Errorf("failed to render page: %w", err)
	}

	if config.Output != "" {
		if err := os.WriteFile(config.Output, []byte(page), 0644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", config.Output, err)
		}
		s.logger.Info("rendered page", "file", config.Output, "nodes", reg.Len())
	}

	d := NewDispatcher(reg)
	server := NewServer(d, []byte(page),
		WithSocketPath(config.Path),
		WithWriteTimeout(config.WriteTimeout),
		WithDebugEndpoints(config.DebugEndpoints),
	)

	return &App{
		config:     config,
		registry:   reg,
		dispatcher: d,
		root:       root,
		page:       []byte(page),
		server:     server,
		logger:     s.logger,
	}, nil
}

// Root returns the body node.
func (a *App) Root() *Node { return a.root }

// Registry returns the node registry.
func (a *App) Registry() *Registry { return a.registry }

// Dispatcher returns the dispatcher serving the connection.
func (a *App) Dispatcher() *Dispatcher { return a.dispatcher }

// Handler returns the HTTP handler for the page and websocket.
func (a *App) Handler() http.Handler { return a.server }

// Page returns the rendered document.
func (a *App) Page() []byte { return a.page }

// Run serves until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.config.Addr, err)
	}

	srv := &http.Server{
		Handler:           a.server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()
	a.logger.Info("serving", "addr", ln.Addr().String(), "socket", a.config.Path)

	if a.config.OpenBrowser {
		url := "http://" + browserHost(ln.Addr().String()) + "/"
		if err := openBrowser(url); err != nil {
			a.logger.Warn("failed to open browser", "url", url, "error", err)
		}
	}

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.server.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

// SocketURL is the absolute websocket address the rendered page dials.
// Wildcard listen hosts are replaced with localhost.
func SocketURL(config *Config) string {
	return "ws://" + browserHost(config.Addr) + config.Path
}

func browserHost(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}

// openBrowser runs open on Mac, xdg-open on Linux, and start on Windows
func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// element snapshots n and its subtree for rendering.
func (n *Node) element() render.Element {
	el := render.Element{
		ID:    n.id,
		Kind:  string(n.kind),
		Props: n.Properties(),
	}
	for _, c := range n.children {
		el.Children = append(el.Children, c.element())
	}
	return el
}
