package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/pitchcall/internal/core"
	"github.com/dkeye/pitchcall/internal/domain"
	"github.com/gorilla/websocket"
)

var _ core.EventSink = (*Hub)(nil)
var _ core.EventSink = (*LogSink)(nil)
var _ core.EventSink = Fanout(nil)

func dialHub(t *testing.T, h *Hub, initial domain.Status) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeWS(w, r, "client-1", initial)
	}))
	t.Cleanup(srv.Close)

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func readEvent(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg map[string]any
	if err := ws.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Count() != n && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if h.Count() != n {
		t.Fatalf("expected %d clients, got %d", n, h.Count())
	}
}

func TestHubSendsInitialStatusThenEvents(t *testing.T) {
	t.Parallel()

	h := NewHub(HubOptions{})
	defer h.Close()
	ws := dialHub(t, h, domain.Status{State: domain.CallStateIdle})

	first := readEvent(t, ws)
	if first["type"] != "status" {
		t.Fatalf("expected status first, got %v", first)
	}
	waitClients(t, h, 1)

	Fanout{NewLogSink(), h}.CallStateChanged(domain.CallStateConnected, domain.CallReasonTransportConnected)
	msg := readEvent(t, ws)
	if msg["type"] != "call_state" || msg["state"] != "connected" || msg["reason"] != "transport_connected" {
		t.Fatalf("unexpected event: %v", msg)
	}

	h.CallError(domain.ErrorCodeToggle, "device busy")
	msg = readEvent(t, ws)
	if msg["type"] != "error" || msg["code"] != "toggle_failed" {
		t.Fatalf("unexpected event: %v", msg)
	}
}

func TestHubDropsClientThatGoesAway(t *testing.T) {
	t.Parallel()

	h := NewHub(HubOptions{})
	defer h.Close()
	ws := dialHub(t, h, domain.Status{})
	readEvent(t, ws)
	waitClients(t, h, 1)

	_ = ws.Close()
	waitClients(t, h, 0)
}

func TestTrySendReportsBackpressure(t *testing.T) {
	t.Parallel()

	c := &wsConn{send: make(chan core.Frame, 1)}
	if err := c.TrySend(core.Frame("a")); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if err := c.TrySend(core.Frame("b")); err != ErrBackpressure {
		t.Fatalf("expected backpressure, got %v", err)
	}
	c.Close()
	if err := c.TrySend(core.Frame("c")); err != ErrConnClosed {
		t.Fatalf("expected closed, got %v", err)
	}
}

func TestHubInitialStatusPrecedesBroadcasts(t *testing.T) {
	t.Parallel()

	h := NewHub(HubOptions{})
	for i := 0; i < 50; i++ {
		c := &wsConn{id: "observer", send: make(chan core.Frame, sendBuffer)}

		stop := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					h.MuteChanged(domain.MuteState{Muted: true})
				}
			}
		}()
		h.register(c, domain.Status{State: domain.CallStateIdle})
		close(stop)
		wg.Wait()

		var first struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(<-c.send, &first); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if first.Type != "status" {
			t.Fatalf("round %d: first frame was %q, want status", i, first.Type)
		}
		h.remove(c)
	}
}
