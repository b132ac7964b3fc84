package realtime

import (
	"encoding/json"
	"fmt"
	"testing"
)

func attachConn(t *testing.T, h *Hub, connID, userID string) *Conn {
	t.Helper()
	c := newConn(nil, connID, userID)
	h.apply(hubCmd{op: opRegister, conn: c})
	if _, ok := h.registry.UserOf(connID); !ok {
		t.Fatalf("connection %s not registered", connID)
	}
	return c
}

func dispatchEvent(t *testing.T, h *Hub, c *Conn, name string, payload interface{}) {
	t.Helper()
	var raw json.RawMessage
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
	}
	h.apply(hubCmd{op: opEvent, conn: c, event: &Event{Name: name, Payload: raw}})
}

func drainEvents(c *Conn) []*Event {
	var out []*Event
	for {
		select {
		case ev := <-c.send:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func setupConn(t *testing.T, h *Hub, connID, userID string) *Conn {
	t.Helper()
	c := attachConn(t, h, connID, userID)
	dispatchEvent(t, h, c, EventSetup, SetupPayload{ID: userID})
	got := drainEvents(c)
	if len(got) != 1 || got[0].Name != EventConnected {
		t.Fatalf("expected connected ack, got %v", got)
	}
	return c
}

func messagePayload(chatID, senderID string, userIDs ...string) map[string]interface{} {
	users := make([]map[string]string, 0, len(userIDs))
	for _, id := range userIDs {
		users = append(users, map[string]string{"_id": id})
	}
	return map[string]interface{}{
		"chat":    map[string]interface{}{"_id": chatID, "users": users},
		"sender":  map[string]string{"_id": senderID},
		"content": "hello",
	}
}

// The full wire scenario: setup, join, typing exclusion by connection,
// message exclusion by user.
func TestScenarioTwoUsers(t *testing.T) {
	h := NewHub()
	a := setupConn(t, h, "c1", "u1")
	b := setupConn(t, h, "c2", "u2")

	dispatchEvent(t, h, a, EventJoinChat, "room1")
	dispatchEvent(t, h, b, EventJoinChat, "room1")

	dispatchEvent(t, h, a, EventTyping, "room1")
	if got := drainEvents(b); len(got) != 1 || got[0].Name != EventTyping {
		t.Fatalf("B should see one typing relay, got %v", got)
	}
	if got := drainEvents(a); len(got) != 0 {
		t.Fatalf("A must not see its own typing, got %v", got)
	}

	dispatchEvent(t, h, a, EventNewMessage, messagePayload("room1", "u1", "u1", "u2"))
	got := drainEvents(b)
	if len(got) != 1 || got[0].Name != EventMessageReceived {
		t.Fatalf("B should receive the message, got %v", got)
	}
	var relayed MessagePayload
	if err := json.Unmarshal(got[0].Payload, &relayed); err != nil || relayed.Sender.ID != "u1" {
		t.Fatalf("relayed payload mangled: %v %v", err, relayed)
	}
	if got := drainEvents(a); len(got) != 0 {
		t.Fatalf("sender must receive nothing, got %v", got)
	}
}

func TestMessageExclusionIsPerUser(t *testing.T) {
	h := NewHub()
	sender := setupConn(t, h, "c1", "u1")
	senderOther := setupConn(t, h, "c2", "u1") // second device, same user
	recipient := setupConn(t, h, "c3", "u2")
	recipientOther := setupConn(t, h, "c4", "u2")

	dispatchEvent(t, h, sender, EventNewMessage, messagePayload("room1", "u1", "u1", "u2"))

	for _, c := range []*Conn{sender, senderOther} {
		if got := drainEvents(c); len(got) != 0 {
			t.Fatalf("author device %s must receive nothing, got %v", c.ID, got)
		}
	}
	for _, c := range []*Conn{recipient, recipientOther} {
		got := drainEvents(c)
		if len(got) != 1 || got[0].Name != EventMessageReceived {
			t.Fatalf("recipient device %s should get the message, got %v", c.ID, got)
		}
	}
}

func TestTypingExclusionIsPerConnection(t *testing.T) {
	h := NewHub()
	device1 := setupConn(t, h, "c1", "u1")
	device2 := setupConn(t, h, "c2", "u1")
	peer := setupConn(t, h, "c3", "u2")

	for _, c := range []*Conn{device1, device2, peer} {
		dispatchEvent(t, h, c, EventJoinChat, "room1")
	}

	dispatchEvent(t, h, device1, EventTyping, "room1")

	if got := drainEvents(device1); len(got) != 0 {
		t.Fatalf("sending device must not see its own typing, got %v", got)
	}
	if got := drainEvents(device2); len(got) != 1 || got[0].Name != EventTyping {
		t.Fatalf("the user's other device should see typing, got %v", got)
	}
	if got := drainEvents(peer); len(got) != 1 || got[0].Name != EventTyping {
		t.Fatalf("peer should see typing, got %v", got)
	}
}

func TestRepeatedTypingRelaysOnce(t *testing.T) {
	h := NewHub()
	a := setupConn(t, h, "c1", "u1")
	b := setupConn(t, h, "c2", "u2")
	dispatchEvent(t, h, a, EventJoinChat, "room1")
	dispatchEvent(t, h, b, EventJoinChat, "room1")

	for i := 0; i < 5; i++ {
		dispatchEvent(t, h, a, EventTyping, "room1")
	}
	if got := drainEvents(b); len(got) != 1 {
		t.Fatalf("expected exactly one typing relay, got %d", len(got))
	}

	dispatchEvent(t, h, a, EventStopTyping, "room1")
	if got := drainEvents(b); len(got) != 1 || got[0].Name != EventStopTyping {
		t.Fatalf("expected one stop typing relay, got %v", got)
	}

	// A fresh burst after the stop relays again.
	dispatchEvent(t, h, a, EventTyping, "room1")
	if got := drainEvents(b); len(got) != 1 || got[0].Name != EventTyping {
		t.Fatalf("expected typing relay after stop, got %v", got)
	}
}

func TestUnregisteredInputIsANoOp(t *testing.T) {
	h := NewHub()
	b := setupConn(t, h, "c2", "u2")
	dispatchEvent(t, h, b, EventJoinChat, "room1")

	ghost := newConn(nil, "ghost", "u9")
	dispatchEvent(t, h, ghost, EventJoinChat, "room1")
	dispatchEvent(t, h, ghost, EventTyping, "room1")
	dispatchEvent(t, h, ghost, EventNewMessage, messagePayload("room1", "u9", "u9", "u2"))

	if got := h.registry.MembersOf("room1"); len(got) != 1 {
		t.Fatalf("ghost must not create edges, members: %v", got)
	}
	if got := drainEvents(b); len(got) != 0 {
		t.Fatalf("ghost must not cause fan-out, got %v", got)
	}
}

func TestMalformedMessageDropped(t *testing.T) {
	h := NewHub()
	a := setupConn(t, h, "c1", "u1")
	b := setupConn(t, h, "c2", "u2")

	// No chat at all, then a chat without users.
	dispatchEvent(t, h, a, EventNewMessage, map[string]interface{}{
		"sender": map[string]string{"_id": "u1"}, "content": "x",
	})
	dispatchEvent(t, h, a, EventNewMessage, map[string]interface{}{
		"chat":   map[string]interface{}{"_id": "room1"},
		"sender": map[string]string{"_id": "u1"},
	})

	if got := drainEvents(b); len(got) != 0 {
		t.Fatalf("malformed messages must not fan out, got %v", got)
	}
}

func TestSetupIdentityMismatchDropped(t *testing.T) {
	h := NewHub()
	c := attachConn(t, h, "c1", "u1")

	dispatchEvent(t, h, c, EventSetup, SetupPayload{ID: "someone-else"})

	if got := drainEvents(c); len(got) != 0 {
		t.Fatalf("mismatched setup must not be acknowledged, got %v", got)
	}
	if got := h.registry.MembersOf("someone-else"); len(got) != 0 {
		t.Fatalf("mismatched setup must not join a room, got %v", got)
	}
}

func TestReconnectStartsEmpty(t *testing.T) {
	h := NewHub()
	c1 := setupConn(t, h, "c1", "u1")
	dispatchEvent(t, h, c1, EventJoinChat, "room1")

	h.apply(hubCmd{op: opUnregister, conn: c1})

	if got := h.registry.MembersOf("room1"); len(got) != 0 {
		t.Fatalf("teardown must cascade edges, got %v", got)
	}

	c2 := attachConn(t, h, "c2", "u1")
	if got := h.registry.MembersOf("room1"); len(got) != 0 {
		t.Fatalf("fresh connection must not inherit membership, got %v", got)
	}
	if got := h.registry.MembersOf("u1"); len(got) != 0 {
		t.Fatalf("personal room requires a fresh setup, got %v", got)
	}

	dispatchEvent(t, h, c2, EventSetup, SetupPayload{ID: "u1"})
	if got := drainEvents(c2); len(got) != 1 || got[0].Name != EventConnected {
		t.Fatalf("fresh setup should be acknowledged, got %v", got)
	}
}

func TestDisconnectMidTypingRelaysStop(t *testing.T) {
	h := NewHub()
	a := setupConn(t, h, "c1", "u1")
	b := setupConn(t, h, "c2", "u2")
	dispatchEvent(t, h, a, EventJoinChat, "room1")
	dispatchEvent(t, h, b, EventJoinChat, "room1")

	dispatchEvent(t, h, a, EventTyping, "room1")
	drainEvents(b)

	h.apply(hubCmd{op: opUnregister, conn: a})

	got := drainEvents(b)
	if len(got) != 1 || got[0].Name != EventStopTyping {
		t.Fatalf("peer should see stop typing after disconnect, got %v", got)
	}
}

func TestSlowConsumerDoesNotBlockFanOut(t *testing.T) {
	h := NewHub()
	a := setupConn(t, h, "c1", "u1")
	slow := setupConn(t, h, "c2", "u2")
	fast := setupConn(t, h, "c3", "u3")

	// Fill the slow consumer's buffer to the brim.
	filler := &Event{Name: EventTyping}
	for i := 0; i < sendBufferSize; i++ {
		if !slow.trySend(filler) {
			t.Fatalf("buffer filled early at %d", i)
		}
	}

	dispatchEvent(t, h, a, EventNewMessage, messagePayload("room1", "u1", "u1", "u2", "u3"))

	got := drainEvents(fast)
	if len(got) != 1 || got[0].Name != EventMessageReceived {
		t.Fatalf("fast consumer should still get the message, got %v", got)
	}
	// The slow consumer's queue holds only the filler events.
	if got := drainEvents(slow); len(got) != sendBufferSize {
		t.Fatalf("expected %d filler events, got %d", sendBufferSize, len(got))
	}
}

func TestNewChatNotifiesAllMembers(t *testing.T) {
	h := NewHub()
	a := setupConn(t, h, "c1", "u1")
	b := setupConn(t, h, "c2", "u2")

	payload, err := json.Marshal(map[string]interface{}{
		"_id":   "chat9",
		"users": []map[string]string{{"_id": "u1"}, {"_id": "u2"}},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	h.apply(hubCmd{op: opEvent, event: &Event{Name: EventNewChat, Payload: payload}})

	for _, c := range []*Conn{a, b} {
		got := drainEvents(c)
		if len(got) != 1 || got[0].Name != EventNewChat {
			t.Fatalf("member %s should be notified, got %v", c.UserID, got)
		}
	}
}

func TestOfflineMemberIsSkipped(t *testing.T) {
	h := NewHub()
	a := setupConn(t, h, "c1", "u1")

	// u2 has no live connection; fan-out simply does not reach them.
	dispatchEvent(t, h, a, EventNewMessage, messagePayload("room1", "u1", "u1", "u2"))

	if got := drainEvents(a); len(got) != 0 {
		t.Fatalf("sender must receive nothing, got %v", got)
	}
	if h.registry.RoomCount() != 1 {
		t.Fatalf("fan-out must not create rooms, have %d", h.registry.RoomCount())
	}
}

func TestDuplicateConnectionIDRejected(t *testing.T) {
	h := NewHub()
	setupConn(t, h, "c1", "u1")

	intruder := newConn(nil, "c1", "u2")
	h.apply(hubCmd{op: opRegister, conn: intruder})

	if user, _ := h.registry.UserOf("c1"); user != "u1" {
		t.Fatalf("binding clobbered, now %s", user)
	}
	if !intruder.isClosed {
		t.Fatal("conflicting connection should be closed")
	}
}

func BenchmarkFanOut(b *testing.B) {
	h := NewHub()
	sender := newConn(nil, "sender", "u0")
	h.apply(hubCmd{op: opRegister, conn: sender})

	users := []string{"u0"}
	for i := 0; i < 50; i++ {
		user := fmt.Sprintf("u%d", i+1)
		users = append(users, user)
		c := newConn(nil, fmt.Sprintf("c%d", i), user)
		h.apply(hubCmd{op: opRegister, conn: c})
		h.registry.Join(c.ID, user)
	}

	payload := messagePayload("room1", "u0", users...)
	raw, _ := json.Marshal(payload)
	ev := &Event{Name: EventNewMessage, Payload: raw}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.route(sender, ev)
		for _, c := range h.clients {
			drainEvents(c)
		}
	}
}
