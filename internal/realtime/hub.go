package realtime

import (
	"encoding/json"
	"log"
	"time"
)

type hubOp int

const (
	opRegister hubOp = iota
	opUnregister
	opEvent
)

// hubCmd serialises registration, teardown and inbound events onto one
// channel, so everything a connection produces is applied in the order the
// transport delivered it: register first, then its events, then unregister.
type hubCmd struct {
	op    hubOp
	conn  *Conn
	event *Event
}

// Hub is the dispatch core. A single goroutine owns the live connection set
// and routes every inbound event to its fan-out targets; emission to a
// target is a non-blocking channel send, never awaited.
type Hub struct {
	registry *Registry
	typing   *TypingTracker

	clients  map[string]*Conn
	commands chan hubCmd
}

func NewHub() *Hub {
	return &Hub{
		registry: NewRegistry(),
		typing:   NewTypingTracker(),
		clients:  make(map[string]*Conn),
		commands: make(chan hubCmd, 256),
	}
}

func (h *Hub) Registry() *Registry {
	return h.registry
}

// Attach admits a connection whose handshake already succeeded.
func (h *Hub) Attach(c *Conn) {
	h.commands <- hubCmd{op: opRegister, conn: c}
}

// Detach tears a connection down; safe to call for connections that were
// never attached or are already gone.
func (h *Hub) Detach(c *Conn) {
	h.commands <- hubCmd{op: opUnregister, conn: c}
}

// Dispatch hands an inbound client event to the routing loop.
func (h *Hub) Dispatch(c *Conn, ev *Event) {
	h.commands <- hubCmd{op: opEvent, conn: c, event: ev}
}

// Inject routes a system-originated event (the cross-server notification
// bridge) with no origin connection.
func (h *Hub) Inject(ev *Event) {
	h.commands <- hubCmd{op: opEvent, event: ev}
}

func (h *Hub) Run() {
	sweep := time.NewTicker(typingQuietWindow)
	defer sweep.Stop()

	for {
		select {
		case cmd := <-h.commands:
			h.apply(cmd)
		case <-sweep.C:
			h.typing.Sweep()
		}
	}
}

func (h *Hub) apply(cmd hubCmd) {
	switch cmd.op {
	case opRegister:
		h.handleRegister(cmd.conn)
	case opUnregister:
		h.handleUnregister(cmd.conn)
	case opEvent:
		h.route(cmd.conn, cmd.event)
	}
}

func (h *Hub) handleRegister(c *Conn) {
	if err := h.registry.Register(c.ID, c.UserID); err != nil {
		log.Printf("Rejecting connection %s: %v", c.ID, err)
		c.close()
		return
	}
	h.clients[c.ID] = c
	incConnections()
}

func (h *Hub) handleUnregister(c *Conn) {
	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	delete(h.clients, c.ID)

	userID, rooms := h.registry.Unregister(c.ID)
	decConnections()
	setRooms(h.registry.RoomCount())

	// When a user's last connection in a room drops mid-typing, clear the
	// indicator so peers are not left watching a ghost.
	for _, room := range rooms {
		if h.userStillInRoom(userID, room) {
			continue
		}
		if h.typing.Stop(room, userID) {
			h.broadcastToRoom(room, &Event{Name: EventStopTyping, Payload: marshalString(room)}, c.ID)
		}
	}
}

func (h *Hub) route(origin *Conn, ev *Event) {
	if ev == nil {
		return
	}
	countEventIn(ev.Name)

	// Events from a connection the registry no longer (or never) knew are
	// dropped outright; they must not mutate state or fan out.
	if origin != nil {
		if _, ok := h.registry.UserOf(origin.ID); !ok {
			log.Printf("Dropping %q from unregistered connection %s", ev.Name, origin.ID)
			return
		}
	}

	switch ev.Name {
	case EventSetup:
		h.handleSetup(origin, ev)
	case EventJoinChat:
		h.handleJoinChat(origin, ev)
	case EventTyping:
		h.handleTyping(origin, ev, true)
	case EventStopTyping:
		h.handleTyping(origin, ev, false)
	case EventNewMessage:
		h.handleNewMessage(origin, ev)
	case EventNewChat:
		h.handleNewChat(ev)
	default:
		log.Printf("Dropping unknown event %q", ev.Name)
	}
}

// handleSetup joins the connection to its personal inbox room and
// acknowledges on that connection only.
func (h *Hub) handleSetup(origin *Conn, ev *Event) {
	if origin == nil {
		return
	}

	var p SetupPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil || p.ID == "" {
		log.Printf("Dropping setup with malformed payload from %s", origin.ID)
		return
	}
	if p.ID != origin.UserID {
		log.Printf("Dropping setup for %s from connection authenticated as %s", p.ID, origin.UserID)
		return
	}

	if err := h.registry.Join(origin.ID, p.ID); err != nil {
		log.Printf("Setup join failed for connection %s: %v", origin.ID, err)
		return
	}
	setRooms(h.registry.RoomCount())

	h.deliver(origin.ID, &Event{Name: EventConnected})
}

func (h *Hub) handleJoinChat(origin *Conn, ev *Event) {
	if origin == nil {
		return
	}

	var room string
	if err := json.Unmarshal(ev.Payload, &room); err != nil || room == "" {
		log.Printf("Dropping join chat with malformed payload from %s", origin.ID)
		return
	}

	if err := h.registry.Join(origin.ID, room); err != nil {
		log.Printf("Join chat failed for connection %s: %v", origin.ID, err)
		return
	}
	setRooms(h.registry.RoomCount())
}

// handleTyping relays typing transitions to the room's live members,
// excluding the originating connection: the sender's other devices do see
// the indicator, the sending device does not.
func (h *Hub) handleTyping(origin *Conn, ev *Event, start bool) {
	if origin == nil {
		return
	}

	var room string
	if err := json.Unmarshal(ev.Payload, &room); err != nil || room == "" {
		log.Printf("Dropping %q with malformed payload from %s", ev.Name, origin.ID)
		return
	}

	if start {
		if !h.typing.Start(room, origin.UserID) {
			countTypingSuppressed()
			return
		}
		h.broadcastToRoom(room, &Event{Name: EventTyping, Payload: ev.Payload}, origin.ID)
		return
	}

	if !h.typing.Stop(room, origin.UserID) {
		return
	}
	h.broadcastToRoom(room, &Event{Name: EventStopTyping, Payload: ev.Payload}, origin.ID)
}

// handleNewMessage fans a message out to every chat member except its
// author, via personal inbox rooms. The persisted user list carried in the
// payload is authoritative for who gets notified; a member who never joined
// the live chat room is still reached. Exclusion is per person, so the
// author's other devices get nothing.
func (h *Hub) handleNewMessage(origin *Conn, ev *Event) {
	var msg MessagePayload
	if err := json.Unmarshal(ev.Payload, &msg); err != nil || msg.Chat == nil || len(msg.Chat.Users) == 0 {
		log.Printf("Dropping new message: chat or chat users not defined")
		countMalformed()
		return
	}

	out := &Event{Name: EventMessageReceived, Payload: ev.Payload}
	for _, user := range msg.Chat.Users {
		if user.ID == msg.Sender.ID {
			continue
		}
		h.broadcastToRoom(user.ID, out, "")
	}
}

// handleNewChat notifies every member's personal room that a chat was
// created, so clients refresh their chat list.
func (h *Hub) handleNewChat(ev *Event) {
	var chat ChatRef
	if err := json.Unmarshal(ev.Payload, &chat); err != nil || len(chat.Users) == 0 {
		log.Printf("Dropping new chat: users not defined")
		countMalformed()
		return
	}

	out := &Event{Name: EventNewChat, Payload: ev.Payload}
	for _, user := range chat.Users {
		h.broadcastToRoom(user.ID, out, "")
	}
}

func (h *Hub) broadcastToRoom(roomID string, ev *Event, excludeConnID string) {
	for _, connID := range h.registry.MembersOf(roomID) {
		if connID == excludeConnID {
			continue
		}
		h.deliver(connID, ev)
	}
}

// deliver emits to one connection. Emission to a connection that is gone or
// backlogged is a silently dropped no-op, never an error.
func (h *Hub) deliver(connID string, ev *Event) {
	c, ok := h.clients[connID]
	if !ok {
		return
	}
	if c.trySend(ev) {
		countDelivered()
	} else {
		countDropped()
	}
}

func (h *Hub) userStillInRoom(userID, roomID string) bool {
	for _, connID := range h.registry.MembersOf(roomID) {
		if other, ok := h.registry.UserOf(connID); ok && other == userID {
			return true
		}
	}
	return false
}
