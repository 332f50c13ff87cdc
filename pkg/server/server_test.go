package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/arbor-ui/arbor/pkg/arbor"
	"github.com/arbor-ui/arbor/pkg/runtime"
	"github.com/arbor-ui/arbor/pkg/tree"
)

// counterRoot is a self-contained interactive component for exercising
// the event round trip.
type counterRoot struct {
	count *arbor.Signal[int]
}

func newCounterRoot() tree.Component {
	return &counterRoot{count: arbor.NewSignal(0)}
}

func (c *counterRoot) Render() *tree.Node {
	n := c.count.Get()
	return tree.Div(
		tree.Span(tree.ID("count"), tree.Textf("%d", n)),
		tree.Button(
			tree.OnClick(func() { c.count.Update(func(v int) int { return v + 1 }) }),
			tree.Text("+"),
		),
	)
}

func newTestServer(t *testing.T, config *Config) (*Server, *httptest.Server) {
	t.Helper()
	if config == nil {
		config = &Config{}
	}
	if config.Root == nil {
		config.Root = newCounterRoot
	}
	srv, err := New(config)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	t.Cleanup(func() { srv.Shutdown() })
	return srv, ts
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var f frame
	if err := json.Unmarshal(msg, &f); err != nil {
		t.Fatalf("decode frame %q: %v", msg, err)
	}
	return f
}

func TestNewRequiresRoot(t *testing.T) {
	if _, err := New(&Config{}); err == nil {
		t.Fatal("expected error without Root")
	}
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if strings.TrimSpace(string(body)) != "ok" {
		t.Errorf("body = %q", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestIndexServesShell(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `id="app"`) {
		t.Errorf("shell missing app mount point: %s", body)
	}
	if !strings.Contains(string(body), "/ws") {
		t.Errorf("shell missing websocket bootstrap: %s", body)
	}
}

func TestInitialFramePush(t *testing.T) {
	_, ts := newTestServer(t, nil)
	conn := dialWS(t, ts)

	f := readFrame(t, conn)
	if f.Type != "replace" {
		t.Fatalf("frame type = %q", f.Type)
	}
	if !strings.Contains(f.HTML, `id="count"`) || !strings.Contains(f.HTML, ">0<") {
		t.Errorf("initial html = %q", f.HTML)
	}
	if !strings.Contains(f.HTML, "data-hid=") {
		t.Errorf("interactive button should carry a hid: %q", f.HTML)
	}
}

var hidPattern = regexp.MustCompile(`data-hid="(h\d+)"`)

func TestEventRoundTrip(t *testing.T) {
	_, ts := newTestServer(t, nil)
	conn := dialWS(t, ts)

	initial := readFrame(t, conn)
	m := hidPattern.FindStringSubmatch(initial.HTML)
	if m == nil {
		t.Fatalf("no hid in initial frame: %q", initial.HTML)
	}

	ev := frame{Type: "event", HID: m[1], Event: "onclick"}
	data, _ := json.Marshal(ev)
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write event: %v", err)
	}

	next := readFrame(t, conn)
	if next.Type != "replace" {
		t.Fatalf("frame type = %q", next.Type)
	}
	if !strings.Contains(next.HTML, ">1<") {
		t.Errorf("counter should have incremented: %q", next.HTML)
	}
}

func TestUnknownHandlerIsIgnored(t *testing.T) {
	_, ts := newTestServer(t, nil)
	conn := dialWS(t, ts)
	readFrame(t, conn)

	ev := frame{Type: "event", HID: "h999", Event: "onclick"}
	data, _ := json.Marshal(ev)
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write event: %v", err)
	}

	// Nothing became dirty, so no frame should arrive.
	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("unexpected frame after unknown event")
	}
}

func TestBroadcastReachesSessions(t *testing.T) {
	themeCtx := arbor.NewContext[string]()
	provider := themeCtx.NewProvider("light")

	banner := tree.Func(func() *tree.Node {
		name := themeCtx.UseOr("none")
		return tree.Div(tree.ID("theme"), tree.Text(name))
	})

	srv, ts := newTestServer(t, &Config{
		Root: func() tree.Component {
			return tree.Func(func() *tree.Node {
				return provider.Wrap(banner)
			})
		},
	})

	conn := dialWS(t, ts)
	initial := readFrame(t, conn)
	if !strings.Contains(initial.HTML, "light") {
		t.Fatalf("initial html = %q", initial.HTML)
	}

	srv.Broadcast(func(rt *runtime.Session) {
		provider.Set("dark")
	})

	next := readFrame(t, conn)
	if !strings.Contains(next.HTML, "dark") {
		t.Errorf("broadcast update missing: %q", next.HTML)
	}
}

func TestSessionCount(t *testing.T) {
	srv, ts := newTestServer(t, nil)

	if srv.SessionCount() != 0 {
		t.Fatalf("initial sessions = %d", srv.SessionCount())
	}

	conn := dialWS(t, ts)
	readFrame(t, conn)
	if srv.SessionCount() != 1 {
		t.Errorf("sessions after dial = %d", srv.SessionCount())
	}

	conn.Close()
	deadline := time.Now().Add(5 * time.Second)
	for srv.SessionCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("session not removed after close")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestGenerateSessionID(t *testing.T) {
	a := generateSessionID()
	b := generateSessionID()
	if a == "" || a == b {
		t.Errorf("ids should be non-empty and unique: %q %q", a, b)
	}
}
