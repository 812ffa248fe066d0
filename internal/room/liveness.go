package room

import (
	"time"

	"go.uber.org/zap"
)

// Internal message kind used for the hub's own ping pacemaker; never
// exposed to clients as a documented kind, but delivered like any other
// message so Conn implementations don't need a separate ping path.
const kindPing = "ping"

// KindPong is the client-originated liveness reply the websocket handler
// routes to Pong instead of Relay.
const KindPong = "pong"

// drainLoop writes queued outbound messages to p's connection. sendCh is
// never closed — only stop, closed once by Leave's cancel() — so this
// never races a concurrent enqueue against a closed channel. A write
// failure is treated as a permanently dead connection and triggers Leave.
func (h *Hub) drainLoop(p *participant, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case msg := <-p.sendCh:
			if err := p.conn.Send(msg); err != nil {
				h.log.Warn("send failed, disconnecting participant",
					zap.String("participant_id", p.id), zap.Error(err))
				go h.Leave(p.roomID, p.id)
				return
			}
		}
	}
}

// pingLoop sends periodic liveness pings and disconnects a participant
// that has not ponged within h.pingPongTimeout.
func (h *Hub) pingLoop(p *participant, stop <-chan struct{}) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	joinedAt := time.Now()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			lastSeen := joinedAt
			if last := p.lastPong.Load(); last > 0 {
				lastSeen = time.UnixMilli(last)
			}
			if time.Since(lastSeen) > h.pingPongTimeout {
				h.log.Info("ping timeout, disconnecting participant", zap.String("participant_id", p.id))
				go h.Leave(p.roomID, p.id)
				return
			}
			h.enqueue(p, Message{Kind: kindPing})
		}
	}
}

// Pong records a liveness reply from participantID. The websocket
// handler calls this for client messages of kind "pong" instead of
// routing them through Relay.
func (h *Hub) Pong(roomID, participantID string) {
	h.mu.Lock()
	p, ok := h.rooms[roomID][participantID]
	h.mu.Unlock()
	if !ok {
		return
	}
	p.lastPong.Store(time.Now().UnixMilli())
}
