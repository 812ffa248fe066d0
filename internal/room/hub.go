// Package room implements the Room Hub: a per-process registry of rooms
// and participants relaying JSON messages over bidirectional
// connections, grounded on the same broadcast/ping/drain shape the
// group manager uses for its hosted-group member connections, adapted
// from libp2p streams to plain send channels so it works over any
// Conn implementation (gorilla/websocket in production, a fake in
// tests).
package room

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classcore/classcore/internal/metrics"
)

const (
	sendBufferSize = 32
	// pingInterval and pingPongTimeout are the defaults New() uses;
	// NewWithTimings overrides them per Hub.
	pingInterval    = 30 * time.Second
	pingPongTimeout = 75 * time.Second
)

// Message is the wire shape for every Room Hub payload, client- and
// server-originated alike.
type Message struct {
	Kind     string `json:"kind"`
	SenderID string `json:"sender_id,omitempty"`
	TargetID string `json:"target_id,omitempty"`
	Payload  any    `json:"payload,omitempty"`
}

// Server-originated message kinds.
const (
	KindAssignID             = "assign_id"
	KindExistingParticipants = "existing_participants"
	KindNewParticipant       = "new_participant"
	KindParticipantLeft      = "participant_left"
)

// Conn is the send-capable handle a participant's connection exposes to
// the hub. Implemented by a websocket adapter in production.
type Conn interface {
	Send(msg Message) error
	Close() error
}

type participant struct {
	id     string
	roomID string
	conn   Conn

	sendCh   chan Message
	cancel   func()
	lastPong atomic.Int64
}

// Hub is the Room Hub: a registry of rooms, each a set of participants.
type Hub struct {
	log *zap.Logger

	pingInterval    time.Duration
	pingPongTimeout time.Duration

	mu    sync.Mutex
	rooms map[string]map[string]*participant
}

// New builds an empty Hub using the default ping cadence and pong
// timeout.
func New(log *zap.Logger) *Hub {
	return NewWithTimings(log, pingInterval, pingPongTimeout)
}

// NewWithTimings builds an empty Hub with a caller-supplied ping interval
// and pong timeout, normally sourced from config.Config so an operator can
// tune liveness detection without a rebuild.
func NewWithTimings(log *zap.Logger, ping, pongTimeout time.Duration) *Hub {
	return &Hub{
		log:             log,
		pingInterval:    ping,
		pingPongTimeout: pongTimeout,
		rooms:           make(map[string]map[string]*participant),
	}
}

// Join allocates a participant_id, creates the room if absent, and
// starts the participant's ping/drain tasks. It sends assign_id and
// existing_participants to the new connection and broadcasts
// new_participant to the rest of the room, exactly in that order.
func (h *Hub) Join(roomID string, conn Conn) string {
	id := uuid.NewString()
	p := &participant{
		id:     id,
		roomID: roomID,
		conn:   conn,
		sendCh: make(chan Message, sendBufferSize),
	}

	h.mu.Lock()
	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[string]*participant)
		h.rooms[roomID] = members
	}
	existing := make([]string, 0, len(members))
	for otherID := range members {
		existing = append(existing, otherID)
	}
	members[id] = p
	h.mu.Unlock()
	metrics.RoomParticipants.Inc()

	_ = conn.Send(Message{Kind: KindAssignID, Payload: id})
	_ = conn.Send(Message{Kind: KindExistingParticipants, Payload: existing})

	stop := make(chan struct{})
	p.cancel = func() { close(stop) }
	go h.drainLoop(p, stop)
	go h.pingLoop(p, stop)

	h.broadcast(roomID, Message{Kind: KindNewParticipant, Payload: id}, id)

	h.log.Info("participant joined", zap.String("room_id", roomID), zap.String("participant_id", id))
	return id
}

// Leave removes participantID from its room, broadcasts participant_left
// to the remainder, and drops the room if it becomes empty. Safe to call
// more than once; subsequent calls are no-ops.
func (h *Hub) Leave(roomID, participantID string) {
	h.mu.Lock()
	members, ok := h.rooms[roomID]
	if !ok {
		h.mu.Unlock()
		return
	}
	p, ok := members[participantID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(members, participantID)
	empty := len(members) == 0
	if empty {
		delete(h.rooms, roomID)
	}
	h.mu.Unlock()
	metrics.RoomParticipants.Dec()

	p.cancel()
	_ = p.conn.Close()

	if !empty {
		h.broadcast(roomID, Message{Kind: KindParticipantLeft, Payload: participantID}, "")
	}
	h.log.Info("participant left", zap.String("room_id", roomID), zap.String("participant_id", participantID))
}

// Relay implements relay(sender_id, message): unicast if msg.TargetID is
// set (no-op if the target is absent), otherwise broadcast to every
// other room member. The server-assigned sender_id always overwrites
// whatever the client supplied.
func (h *Hub) Relay(roomID, senderID string, msg Message) {
	msg.SenderID = senderID

	if msg.TargetID != "" {
		h.mu.Lock()
		members := h.rooms[roomID]
		target, ok := members[msg.TargetID]
		h.mu.Unlock()
		if !ok {
			return
		}
		h.enqueue(target, msg)
		return
	}

	h.broadcast(roomID, msg, senderID)
}

// broadcast delivers msg to every member of roomID except excludeID,
// snapshotting the member list before sending so the registry mutex is
// never held during a send.
func (h *Hub) broadcast(roomID string, msg Message, excludeID string) {
	h.mu.Lock()
	members := h.rooms[roomID]
	snapshot := make([]*participant, 0, len(members))
	for id, p := range members {
		if id == excludeID {
			continue
		}
		snapshot = append(snapshot, p)
	}
	h.mu.Unlock()

	for _, p := range snapshot {
		h.enqueue(p, msg)
	}
}

// enqueue places msg on p's outbound queue without blocking; a full
// queue means a persistently slow or dead receiver, so the message is
// dropped rather than stalling the broadcaster.
func (h *Hub) enqueue(p *participant, msg Message) {
	select {
	case p.sendCh <- msg:
	default:
		h.log.Warn("send buffer full, dropping message", zap.String("participant_id", p.id))
	}
}
