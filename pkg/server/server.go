// Package server hosts Arbor component trees over HTTP. Each websocket
// connection gets its own runtime session; when a provider value changes,
// the affected subtree re-renders and the client receives a replace frame.
package server

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arbor-ui/arbor/pkg/metrics"
	"github.com/arbor-ui/arbor/pkg/runtime"
	"github.com/arbor-ui/arbor/pkg/tree"
)

// Config configures the server.
type Config struct {
	// Address is the listen address (default ":8080").
	Address string

	// Root builds the root component for a new session.
	// Required.
	Root func() tree.Component

	// OnSession is called after a live session is created and its root is
	// mounted, before the first frame is pushed. Use it to wire external
	// update sources (e.g. a config watcher) into the session.
	OnSession func(s *LiveSession)

	// CheckOrigin validates websocket upgrade origins.
	// nil allows same-origin only (the websocket package default).
	CheckOrigin func(r *http.Request) bool

	// Logger is the structured logger. If nil, slog.Default() is used.
	Logger *slog.Logger

	// Metrics records runtime metrics when non-nil.
	Metrics *metrics.Metrics

	// ReadTimeout bounds websocket reads (default 60s).
	ReadTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown (default 10s).
	ShutdownTimeout time.Duration
}

func (c *Config) fillDefaults() error {
	if c.Root == nil {
		return fmt.Errorf("server: Config.Root is required")
	}
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 60 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	return nil
}

// Server is the HTTP/websocket server for Arbor applications.
type Server struct {
	config *Config
	logger *slog.Logger
	router chi.Router

	upgrader websocket.Upgrader

	sessions   map[*LiveSession]struct{}
	sessionsMu sync.Mutex

	httpServer *http.Server
}

// New creates a Server from the given configuration.
func New(config *Config) (*Server, error) {
	if err := config.fillDefaults(); err != nil {
		return nil, err
	}

	s := &Server{
		config:   config,
		logger:   config.Logger.With("component", "server"),
		sessions: make(map[*LiveSession]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     config.CheckOrigin,
		},
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", s.handleWebSocket)
	r.Get("/", s.handleIndex)
	s.router = r

	return s, nil
}

// Handler returns the root HTTP handler, for embedding into an existing
// router or for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the server and blocks until ctx is cancelled or
// SIGINT/SIGTERM arrives, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.config.Address,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "address", s.config.Address)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	case sig := <-sigCh:
		s.logger.Info("signal received", "signal", sig.String())
	}

	return s.Shutdown()
}

// Shutdown closes all live sessions and the HTTP listener.
func (s *Server) Shutdown() error {
	s.sessionsMu.Lock()
	sessions := make([]*LiveSession, 0, len(s.sessions))
	for ls := range s.sessions {
		sessions = append(sessions, ls)
	}
	s.sessionsMu.Unlock()

	for _, ls := range sessions {
		ls.Close()
	}

	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// Broadcast queues fn on every live session's runtime and wakes it.
// This is how server-wide update sources (config reload, admin actions)
// reach per-session provider values.
func (s *Server) Broadcast(fn func(rt *runtime.Session)) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()

	for ls := range s.sessions {
		rt := ls.Runtime()
		rt.Dispatch(func() { fn(rt) })
	}
}

// SessionCount returns the number of live sessions.
func (s *Server) SessionCount() int {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	return len(s.sessions)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	ls := newLiveSession(s, conn)

	s.sessionsMu.Lock()
	s.sessions[ls] = struct{}{}
	s.sessionsMu.Unlock()
	if s.config.Metrics != nil {
		s.config.Metrics.SessionOpened()
	}

	s.logger.Info("session opened", "session", ls.ID())
	go ls.run()
}

func (s *Server) removeSession(ls *LiveSession) {
	s.sessionsMu.Lock()
	delete(s.sessions, ls)
	s.sessionsMu.Unlock()
	if s.config.Metrics != nil {
		s.config.Metrics.SessionClosed()
	}
	s.logger.Info("session closed", "session", ls.ID())
}

// handleIndex serves the page shell with the thin client inline.
// The client opens the websocket, swaps in replace frames, and forwards
// clicks on [data-hid] elements back as event frames.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexShell)
}

const indexShell = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Arbor</title></head>
<body>
<div id="app">Connecting…</div>
<script>
(function() {
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(proto + location.host + "/ws");
  var app = document.getElementById("app");
  ws.onmessage = function(msg) {
    var frame = JSON.parse(msg.data);
    if (frame.type === "replace") { app.innerHTML = frame.html; }
  };
  app.addEventListener("click", function(e) {
    var el = e.target.closest("[data-hid]");
    if (!el) return;
    ws.send(JSON.stringify({type: "event", hid: el.dataset.hid, event: "onclick"}));
  });
})();
</script>
</body>
</html>
`

// generateSessionID returns a random URL-safe session identifier.
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("server: session id generation failed: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
