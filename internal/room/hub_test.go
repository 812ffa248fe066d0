package room

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeConn struct {
	mu     sync.Mutex
	sent   []Message
	closed bool
	failOn string
}

func (c *fakeConn) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failOn != "" && msg.Kind == c.failOn {
		return errSend
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) snapshot() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.sent))
	copy(out, c.sent)
	return out
}

var errSend = &sendError{}

type sendError struct{}

func (*sendError) Error() string { return "fake send failure" }

func newTestHub() *Hub {
	return New(zap.NewNop())
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestJoinSendsAssignIDThenExistingParticipants(t *testing.T) {
	h := newTestHub()
	conn := &fakeConn{}
	id := h.Join("room-1", conn)
	if id == "" {
		t.Fatal("expected non-empty participant id")
	}

	waitFor(t, func() bool { return len(conn.snapshot()) >= 2 })
	sent := conn.snapshot()
	if sent[0].Kind != KindAssignID {
		t.Errorf("first message kind = %q, want %q", sent[0].Kind, KindAssignID)
	}
	if sent[1].Kind != KindExistingParticipants {
		t.Errorf("second message kind = %q, want %q", sent[1].Kind, KindExistingParticipants)
	}
}

func TestJoinBroadcastsNewParticipantToExistingMembers(t *testing.T) {
	h := newTestHub()
	connA := &fakeConn{}
	idA := h.Join("room-1", connA)

	connB := &fakeConn{}
	h.Join("room-1", connB)

	waitFor(t, func() bool {
		for _, m := range connA.snapshot() {
			if m.Kind == KindNewParticipant {
				return true
			}
		}
		return false
	})

	for _, m := range connA.snapshot() {
		if m.Kind == KindNewParticipant {
			if m.Payload == idA {
				t.Error("participant should not receive new_participant about itself")
			}
		}
	}
}

func TestLeaveBroadcastsParticipantLeft(t *testing.T) {
	h := newTestHub()
	connA := &fakeConn{}
	idA := h.Join("room-1", connA)
	connB := &fakeConn{}
	h.Join("room-1", connB)

	h.Leave("room-1", idA)

	waitFor(t, func() bool {
		for _, m := range connB.snapshot() {
			if m.Kind == KindParticipantLeft && m.Payload == idA {
				return true
			}
		}
		return false
	})
}

func TestLeaveIsIdempotent(t *testing.T) {
	h := newTestHub()
	conn := &fakeConn{}
	id := h.Join("room-1", conn)
	h.Leave("room-1", id)
	h.Leave("room-1", id)
}

func TestRelayWithTargetIDUnicasts(t *testing.T) {
	h := newTestHub()
	connA := &fakeConn{}
	idA := h.Join("room-1", connA)
	connB := &fakeConn{}
	idB := h.Join("room-1", connB)
	connC := &fakeConn{}
	h.Join("room-1", connC)

	h.Relay("room-1", idA, Message{Kind: "custom", TargetID: idB, Payload: "hi"})

	waitFor(t, func() bool {
		for _, m := range connB.snapshot() {
			if m.Kind == "custom" {
				return true
			}
		}
		return false
	})

	for _, m := range connC.snapshot() {
		if m.Kind == "custom" {
			t.Error("unicast message should not reach a non-target participant")
		}
	}
}

func TestRelayAttachesServerSenderIDOverwritingClientValue(t *testing.T) {
	h := newTestHub()
	connA := &fakeConn{}
	idA := h.Join("room-1", connA)
	connB := &fakeConn{}
	h.Join("room-1", connB)

	h.Relay("room-1", idA, Message{Kind: "custom", SenderID: "forged-id"})

	waitFor(t, func() bool {
		for _, m := range connB.snapshot() {
			if m.Kind == "custom" {
				return true
			}
		}
		return false
	})
	for _, m := range connB.snapshot() {
		if m.Kind == "custom" && m.SenderID != idA {
			t.Errorf("sender_id = %q, want %q", m.SenderID, idA)
		}
	}
}

func TestRelayWithAbsentTargetIsNoOp(t *testing.T) {
	h := newTestHub()
	connA := &fakeConn{}
	idA := h.Join("room-1", connA)
	h.Relay("room-1", idA, Message{Kind: "custom", TargetID: "does-not-exist"})
}

func TestAfterLeaveNoFurtherDeliveryToParticipant(t *testing.T) {
	h := newTestHub()
	connA := &fakeConn{}
	idA := h.Join("room-1", connA)
	connB := &fakeConn{}
	h.Join("room-1", connB)

	beforeCount := len(connA.snapshot())
	h.Leave("room-1", idA)
	h.Relay("room-1", "whoever", Message{Kind: "custom"})

	time.Sleep(10 * time.Millisecond)
	if got := len(connA.snapshot()); got != beforeCount {
		t.Errorf("left participant received %d more messages, want 0 more", got-beforeCount)
	}
}
