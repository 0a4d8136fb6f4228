package livegui

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wsConn is the active connection. Writes are serialized.
type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	mu           sync.Mutex
}

// Send writes msg as one text frame.
func (c *wsConn) Send(msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

func (c *wsConn) close(code int, reason string) {
	c.mu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
	c.mu.Unlock()
	_ = c.conn.Close()
}

// ServerConfig configures a Server.
type ServerConfig struct {
	Path           string
	WriteTimeout   time.Duration
	DebugEndpoints bool
	Upgrader       *websocket.Upgrader
	Logger         *slog.Logger
}

// ServerOption is a functional option for configuring a Server
type ServerOption func(*ServerConfig)

// WithSocketPath sets the websocket endpoint.
func WithSocketPath(path string) ServerOption {
	return func(c *ServerConfig) { c.Path = path }
}

// WithWriteTimeout bounds each websocket write.
func WithWriteTimeout(d time.Duration) ServerOption {
	return func(c *ServerConfig) { c.WriteTimeout = d }
}

// WithDebugEndpoints mounts /debug/metrics and /debug/tree.
func WithDebugEndpoints(enabled bool) ServerOption {
	return func(c *ServerConfig) { c.DebugEndpoints = enabled }
}

// WithServerLogger sets the server's logger.
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(c *ServerConfig) { c.Logger = l }
}

// Server serves the rendered page and the single websocket connection that
// keeps it in sync.
type Server struct {
	config     ServerConfig
	dispatcher *Dispatcher
	page       []byte
	mux        *http.ServeMux
	logger     *slog.Logger

	mu     sync.Mutex
	active *wsConn
}

// NewServer creates a server for d. page is served at "/".
func NewServer(d *Dispatcher, page []byte, opts ...ServerOption) *Server {
	config := ServerConfig{
		Path: DefaultPath,
		Upgrader: &websocket.Upgrader{
			// The page is usually opened from a file, whose origin is "null".
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		Logger: d.logger,
	}
	for _, opt := range opts {
		opt(&config)
	}

	s := &Server{
		config:     config,
		dispatcher: d,
		page:       page,
		mux:        http.NewServeMux(),
		logger:     config.Logger,
	}

	s.mux.HandleFunc("GET /{$}", s.handlePage)
	s.mux.HandleFunc("GET /index.html", s.handlePage)
	s.mux.HandleFunc(config.Path, s.handleWebSocket)
	if config.DebugEndpoints {
		s.mux.HandleFunc("GET /debug/metrics", s.handleMetrics)
		s.mux.HandleFunc("GET /debug/tree", s.handleTree)
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(s.page)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		http.Error(w, "expected a websocket upgrade", http.StatusBadRequest)
		return
	}

	conn, err := s.config.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &wsConn{conn: conn, writeTimeout: s.config.WriteTimeout}
	if prev := s.swap(c); prev != nil {
		s.logger.Info("replacing active connection", "remote", prev.conn.RemoteAddr())
		prev.close(websocket.CloseGoingAway, "replaced by a new connection")
	}

	s.logger.Info("websocket connection open", "remote", conn.RemoteAddr())
	s.dispatcher.Connect(c)

	defer func() {
		s.dispatcher.Disconnect(c)
		s.release(c)
		_ = conn.Close()
		s.logger.Info("connection closed", "remote", conn.RemoteAddr())
	}()

	for {
		typ, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		if typ != websocket.TextMessage {
			continue
		}

		s.logger.Debug("received message", "msg", truncate(string(data), 120))
		// Failures are logged and counted by the dispatcher; the connection stays up.
		_, _ = s.dispatcher.Handle(string(data))
	}
}

func (s *Server) swap(c *wsConn) *wsConn {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.active
	s.active = c
	return prev
}

func (s *Server) release(c *wsConn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == c {
		s.active = nil
	}
}

// Close closes the active connection, if any.
func (s *Server) Close() {
	s.mu.Lock()
	c := s.active
	s.active = nil
	s.mu.Unlock()
	if c != nil {
		c.close(websocket.CloseNormalClosure, "server shutting down")
	}
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	m := s.dispatcher.Metrics()
	writeJSON(w, map[string]any{
		"state":    s.dispatcher.State().String(),
		"metrics":  m.GetMetrics(),
		"events":   m.GetCustomCounters(),
		"delivery": m.GetDeliveryRate(),
	})
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	var tree any
	s.dispatcher.Do(func() {
		if root := s.dispatcher.reg.Root(); root != nil {
			tree = root.element()
		}
	})
	if tree == nil {
		http.Error(w, "no tree", http.StatusNotFound)
		return
	}
	writeJSON(w, tree)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
