package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/classcore/classcore/internal/room"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 65536,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsConn adapts a gorilla/websocket connection to room.Conn, serializing
// writes behind a mutex, since gorilla permits at most one concurrent
// writer.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) Send(msg room.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(msg)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

// RoomServer mounts the Room Hub's bidirectional signaling channel.
type RoomServer struct {
	hub *room.Hub
	log *zap.Logger
}

// NewRoomServer builds a RoomServer over an already-constructed Hub.
func NewRoomServer(hub *room.Hub, log *zap.Logger) *RoomServer {
	return &RoomServer{hub: hub, log: log}
}

// Register mounts the websocket upgrade handler at /rooms/{room_id}.
func (s *RoomServer) Register(mux *http.ServeMux) {
	mux.HandleFunc("/rooms/", s.handleRoomSocket)
}

func (s *RoomServer) handleRoomSocket(w http.ResponseWriter, r *http.Request) {
	roomID := strings.TrimPrefix(r.URL.Path, "/rooms/")
	roomID = strings.TrimSuffix(roomID, "/")
	if roomID == "" {
		http.Error(w, "missing room id", http.StatusBadRequest)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	participantID := s.hub.Join(roomID, &wsConn{conn: conn})
	defer s.hub.Leave(roomID, participantID)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg room.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Kind == room.KindPong {
			s.hub.Pong(roomID, participantID)
			continue
		}
		s.hub.Relay(roomID, participantID, msg)
	}
}
