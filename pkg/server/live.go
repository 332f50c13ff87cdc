package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/arbor-ui/arbor/pkg/render"
	"github.com/arbor-ui/arbor/pkg/runtime"
)

// frame is the wire format in both directions.
// Server → client: {"type":"replace","html":...}
// Client → server: {"type":"event","hid":"h1","event":"onclick"}
type frame struct {
	Type  string `json:"type"`
	HTML  string `json:"html,omitempty"`
	HID   string `json:"hid,omitempty"`
	Event string `json:"event,omitempty"`
}

// LiveSession binds one websocket connection to one runtime session.
// Client events are dispatched onto the runtime, a flush re-renders
// whatever became dirty, and the re-rendered tree is pushed back.
type LiveSession struct {
	id     string
	server *Server
	conn   *websocket.Conn
	logger *slog.Logger

	rt       *runtime.Session
	renderer *render.Renderer

	// handlers maps "hid_event" keys from the last push to their funcs.
	handlers   map[string]any
	handlersMu sync.Mutex

	events chan frame

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

func newLiveSession(s *Server, conn *websocket.Conn) *LiveSession {
	id := generateSessionID()
	ls := &LiveSession{
		id:     id,
		server: s,
		conn:   conn,
		logger: s.logger.With("session", id),
		rt: runtime.NewSession(runtime.SessionConfig{
			Logger: s.config.Logger,
		}),
		renderer: render.NewRenderer(render.RendererConfig{}),
		events:   make(chan frame, 64),
		done:     make(chan struct{}),
	}
	ls.rt.MountRoot(s.config.Root())
	if s.config.OnSession != nil {
		s.config.OnSession(ls)
	}
	return ls
}

// ID returns the session identifier.
func (ls *LiveSession) ID() string {
	return ls.id
}

// Runtime returns the underlying runtime session.
func (ls *LiveSession) Runtime() *runtime.Session {
	return ls.rt
}

// run drives the session: one goroutine reads the socket, this one is the
// session's single cooperative loop. All renders happen here.
func (ls *LiveSession) run() {
	defer ls.Close()

	go ls.readLoop()

	// Initial frame for the freshly mounted tree.
	if err := ls.push(); err != nil {
		ls.logger.Error("initial push failed", "error", err)
		return
	}

	for {
		select {
		case <-ls.done:
			return

		case ev := <-ls.events:
			ls.handleEvent(ev)
			ls.flushAndPush()

		case <-ls.rt.Wake():
			ls.flushAndPush()
		}
	}
}

// readLoop reads frames off the websocket and queues events.
func (ls *LiveSession) readLoop() {
	defer ls.Close()

	for {
		ls.conn.SetReadDeadline(time.Now().Add(ls.server.config.ReadTimeout))

		_, msg, err := ls.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				ls.logger.Error("read error", "error", err)
			}
			return
		}

		var f frame
		if err := json.Unmarshal(msg, &f); err != nil {
			ls.logger.Error("frame decode error", "error", err)
			continue
		}
		if f.Type != "event" {
			ls.logger.Warn("unknown frame type", "type", f.Type)
			continue
		}

		select {
		case ls.events <- f:
		default:
			ls.logger.Warn("event queue full, dropping", "hid", f.HID)
		}
	}
}

func (ls *LiveSession) handleEvent(ev frame) {
	ls.handlersMu.Lock()
	handler := ls.handlers[ev.HID+"_"+ev.Event]
	ls.handlersMu.Unlock()

	if handler == nil {
		ls.logger.Warn("no handler for event", "hid", ev.HID, "event", ev.Event)
		return
	}

	fn, ok := handler.(func())
	if !ok {
		ls.logger.Error("handler has unsupported type", "hid", ev.HID)
		return
	}

	// Run on this loop so signal writes land before the flush below.
	ls.rt.Dispatch(fn)
}

// flushAndPush runs one render pass and, if anything re-rendered, pushes
// the new tree.
func (ls *LiveSession) flushAndPush() {
	rendered := ls.rt.Flush(context.Background())
	if m := ls.server.config.Metrics; m != nil {
		m.ObserveFlush(rendered)
	}
	if rendered == 0 {
		return
	}
	if err := ls.push(); err != nil {
		ls.logger.Error("push failed", "error", err)
		ls.Close()
	}
}

// push renders the assembled tree to HTML and sends a replace frame.
func (ls *LiveSession) push() error {
	root := ls.rt.Root()
	if root == nil {
		return nil
	}

	ls.renderer.Reset()
	html, err := ls.renderer.RenderToString(root.Tree())
	if err != nil {
		return err
	}

	ls.handlersMu.Lock()
	ls.handlers = ls.renderer.Handlers()
	ls.handlersMu.Unlock()

	if m := ls.server.config.Metrics; m != nil {
		m.ObserveFrame()
	}
	return ls.send(frame{Type: "replace", HTML: html})
}

func (ls *LiveSession) send(f frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}

	ls.writeMu.Lock()
	defer ls.writeMu.Unlock()
	ls.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return ls.conn.WriteMessage(websocket.TextMessage, data)
}

// Close tears down the session: the runtime tree is disposed, the socket
// closed, and the session removed from the server.
func (ls *LiveSession) Close() {
	ls.closeOnce.Do(func() {
		close(ls.done)
		ls.rt.Close()
		ls.conn.Close()
		ls.server.removeSession(ls)
	})
}
