package conn_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/padalah/interviewflow/internal/service/conn"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// dialTestConn spins up a throwaway upgrade endpoint and returns both ends of
// a live websocket connection.
func dialTestConn(t *testing.T) (serverConn, clientConn *websocket.Conn) {
	t.Helper()

	conns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- c
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial err: %v", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { client.Close() })

	select {
	case sc := <-conns:
		t.Cleanup(func() { sc.Close() })
		return sc, client
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server side of test connection")
		return nil, nil
	}
}

func TestManagerAcceptEnforcesSingleBinding(t *testing.T) {
	m := conn.NewManager()
	sc, _ := dialTestConn(t)

	if _, err := m.Accept("s1", sc, "127.0.0.1:1000"); err != nil {
		t.Fatalf("Accept err: %v", err)
	}
	if m.Count() != 1 {
		t.Fatalf("unexpected count: got %d want 1", m.Count())
	}

	sc2, _ := dialTestConn(t)
	if _, err := m.Accept("s1", sc2, "127.0.0.1:1001"); err != conn.ErrAlreadyConnected {
		t.Fatalf("expected ErrAlreadyConnected, got %v", err)
	}
}

func TestManagerSendDeliversJSON(t *testing.T) {
	m := conn.NewManager()
	sc, client := dialTestConn(t)

	if _, err := m.Accept("s1", sc, "127.0.0.1:1000"); err != nil {
		t.Fatalf("Accept err: %v", err)
	}

	m.Send("s1", map[string]string{"type": "control"})

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	var payload map[string]string
	if err := client.ReadJSON(&payload); err != nil {
		t.Fatalf("client read err: %v", err)
	}
	if payload["type"] != "control" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestManagerSendDeliversBinary(t *testing.T) {
	m := conn.NewManager()
	sc, client := dialTestConn(t)

	if _, err := m.Accept("s1", sc, "127.0.0.1:1000"); err != nil {
		t.Fatalf("Accept err: %v", err)
	}

	m.Send("s1", []byte{0x01, 0x02, 0x03})

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	mt, data, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("client read err: %v", err)
	}
	if mt != websocket.BinaryMessage {
		t.Fatalf("unexpected message type: got %d", mt)
	}
	if len(data) != 3 {
		t.Fatalf("unexpected frame length: got %d", len(data))
	}
}

func TestManagerSendToUnknownSessionIsSilent(t *testing.T) {
	m := conn.NewManager()
	// Must not panic or block.
	m.Send("missing", map[string]string{"type": "control"})
}

func TestManagerSendFailureRemovesBinding(t *testing.T) {
	m := conn.NewManager()
	sc, _ := dialTestConn(t)

	b, err := m.Accept("s1", sc, "127.0.0.1:1000")
	if err != nil {
		t.Fatalf("Accept err: %v", err)
	}

	// Kill the server side underneath the manager, then send twice: the
	// failed write must tear the stale binding down.
	b.CloseWithCode(websocket.CloseNormalClosure, "test")
	m.Send("s1", map[string]string{"type": "control"})

	if m.Count() != 0 {
		t.Fatalf("expected stale binding to be removed, count=%d", m.Count())
	}
}

func TestManagerDisconnectIdempotent(t *testing.T) {
	m := conn.NewManager()
	sc, _ := dialTestConn(t)

	if _, err := m.Accept("s1", sc, "127.0.0.1:1000"); err != nil {
		t.Fatalf("Accept err: %v", err)
	}

	m.Disconnect("s1")
	m.Disconnect("s1")

	if m.Count() != 0 {
		t.Fatalf("unexpected count after disconnect: got %d", m.Count())
	}
}

func TestManagerCloseAllSendsGoingAway(t *testing.T) {
	m := conn.NewManager()
	sc, client := dialTestConn(t)

	if _, err := m.Accept("s1", sc, "127.0.0.1:1000"); err != nil {
		t.Fatalf("Accept err: %v", err)
	}

	m.CloseAll("shutting down")

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := client.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Fatalf("expected going-away close, got %v", err)
	}
	if m.Count() != 0 {
		t.Fatalf("expected empty manager after CloseAll, count=%d", m.Count())
	}
}
