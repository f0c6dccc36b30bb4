package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"nostrkit/filter"
	"nostrkit/identity"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

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

func TestGetEventsOfReturnsEventsThenStopsAtEOSE(t *testing.T) {
	closeSeen := make(chan struct{}, 1)

	url := newMockRelay(t, func(conn *websocket.Conn) {
		var req []interface{}
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		subID, _ := req[1].(string)

		conn.WriteJSON([]interface{}{"EVENT", subID, map[string]interface{}{
			"id": "aaaa", "pubkey": "bbbb", "created_at": 1, "kind": 1,
			"tags": []interface{}{}, "content": "one", "sig": "cccc",
		}})
		conn.WriteJSON([]interface{}{"EVENT", subID, map[string]interface{}{
			"id": "dddd", "pubkey": "bbbb", "created_at": 2, "kind": 1,
			"tags": []interface{}{}, "content": "two", "sig": "cccc",
		}})
		conn.WriteJSON([]interface{}{"EOSE", subID})

		var closeMsg []interface{}
		if err := conn.ReadJSON(&closeMsg); err == nil {
			if len(closeMsg) > 0 {
				if t, _ := closeMsg[0].(string); t == "CLOSE" {
					closeSeen <- struct{}{}
				}
			}
		}
	})

	id, err := identity.GenerateRandom()
	if err != nil {
		t.Fatalf("GenerateRandom: %v", err)
	}
	s := New(id, nil)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.AddRelay(ctx, url); err != nil {
		t.Fatalf("AddRelay: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	limit := 10
	events, err := s.GetEventsOf(ctx, filter.ReqFilter{Kinds: []uint16{1}, Limit: &limit})
	if err != nil {
		t.Fatalf("GetEventsOf: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}

	select {
	case <-closeSeen:
	case <-time.After(2 * time.Second):
		t.Fatal("relay never received CLOSE frame")
	}
}

func TestPublishEventFailsWithNoRelays(t *testing.T) {
	id, err := identity.GenerateRandom()
	if err != nil {
		t.Fatalf("GenerateRandom: %v", err)
	}
	s := New(id, nil)
	defer s.Close()

	if _, err := s.PublishTextNote("hello", nil); err == nil {
		t.Fatal("expected error publishing with no relays connected")
	}
}

func TestIsReplaceableKindAcceptsMetadataAndContactKinds(t *testing.T) {
	id, err := identity.GenerateRandom()
	if err != nil {
		t.Fatalf("GenerateRandom: %v", err)
	}
	s := New(id, nil)
	defer s.Close()

	if !isReplaceableKind(0) || !isReplaceableKind(3) || !isReplaceableKind(10002) {
		t.Fatal("kinds 0, 3, and 10002 must be replaceable")
	}
	if isReplaceableKind(1) {
		t.Fatal("kind 1 must not be replaceable")
	}
}
