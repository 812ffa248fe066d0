package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/classcore/classcore/internal/room"
)

func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	return conn
}

func TestRoomSocketAssignsIDOnJoin(t *testing.T) {
	hub := room.New(zap.NewNop())
	srv := NewRoomServer(hub, zap.NewNop())
	mux := http.NewServeMux()
	srv.Register(mux)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/rooms/room-1"
	conn := dial(t, wsURL)
	defer conn.Close()

	var msg room.Message
	conn.SetReadDeadline(time.Now().Add(time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read assign_id: %v", err)
	}
	if msg.Kind != room.KindAssignID {
		t.Errorf("first message kind = %q, want %q", msg.Kind, room.KindAssignID)
	}
}

func TestRoomSocketRelaysCustomMessage(t *testing.T) {
	hub := room.New(zap.NewNop())
	srv := NewRoomServer(hub, zap.NewNop())
	mux := http.NewServeMux()
	srv.Register(mux)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/rooms/room-1"
	connA := dial(t, wsURL)
	defer connA.Close()
	connB := dial(t, wsURL)
	defer connB.Close()

	drainSetup(t, connA, 2)
	drainSetup(t, connB, 2)

	if err := connA.WriteJSON(room.Message{Kind: "chat", Payload: "hello"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	connB.SetReadDeadline(time.Now().Add(time.Second))
	var msg room.Message
	if err := connB.ReadJSON(&msg); err != nil {
		t.Fatalf("read relay: %v", err)
	}
	if msg.Kind != "chat" {
		t.Errorf("kind = %q, want chat", msg.Kind)
	}
}

func drainSetup(t *testing.T, conn *websocket.Conn, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		var msg room.Message
		conn.SetReadDeadline(time.Now().Add(time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("drain setup message %d: %v", i, err)
		}
	}
}

