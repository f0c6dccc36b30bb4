package relay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// newMockRelay starts an httptest server that upgrades to a websocket
// and runs handle against the server side of the connection.
func newMockRelay(t *testing.T, handle func(*websocket.Conn)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		go handle(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestDialAndReceiveEvent(t *testing.T) {
	url := newMockRelay(t, func(conn *websocket.Conn) {
		conn.WriteJSON([]interface{}{"EVENT", "sub1", map[string]interface{}{"id": "abc"}})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := Dial(ctx, url)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	select {
	case msg := <-c.Incoming:
		if msg.Type != "EVENT" {
			t.Fatalf("type = %s, want EVENT", msg.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestSendFrameFailsAfterClose(t *testing.T) {
	url := newMockRelay(t, func(conn *websocket.Conn) {})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := Dial(ctx, url)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	c.Close()

	if err := c.SendFrame([]byte(`["CLOSE","sub1"]`)); err == nil {
		t.Fatal("expected error sending on closed connection")
	}
}

func TestDialRejectsNonWebsocketScheme(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := Dial(ctx, "http://localhost:1234"); err == nil {
		t.Fatal("expected error for non-ws scheme")
	}
}

func TestDialRejectsPrivateIPHost(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := Dial(ctx, "ws://10.0.0.5:1234"); err == nil {
		t.Fatal("expected error for private IP relay host")
	}
}
