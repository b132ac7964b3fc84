package realtime

import (
	"errors"
	"sync"
)

var (
	// ErrDuplicateConnection means a connection id was registered twice with
	// different identities. Connection ids are never reused, so this is a
	// programmer error and fatal for that connection.
	ErrDuplicateConnection = errors.New("realtime: connection already bound to another user")

	// ErrNotRegistered means an operation arrived before the handshake
	// completed for that connection.
	ErrNotRegistered = errors.New("realtime: connection not registered")
)

type binding struct {
	userID string
	rooms  map[string]struct{}
}

// Registry owns the connection→user bindings and the room membership edges.
// It is the sole source of truth for who is in a room right now.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*binding
	rooms map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*binding),
		rooms: make(map[string]map[string]struct{}),
	}
}

// Register binds a connection to a user. Idempotent for the same pair.
func (r *Registry) Register(connID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.conns[connID]; ok {
		if b.userID != userID {
			return ErrDuplicateConnection
		}
		return nil
	}

	r.conns[connID] = &binding{
		userID: userID,
		rooms:  make(map[string]struct{}),
	}
	return nil
}

// Unregister removes the binding and every membership edge for the
// connection. A no-op for unknown connections, since a transport disconnect
// may race an explicit leave.
func (r *Registry) Unregister(connID string) (userID string, rooms []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.conns[connID]
	if !ok {
		return "", nil
	}

	for room := range b.rooms {
		rooms = append(rooms, room)
		r.dropEdge(room, connID)
	}
	delete(r.conns, connID)
	return b.userID, rooms
}

// Join adds a membership edge. Re-joining a joined room is a no-op.
func (r *Registry) Join(connID, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.conns[connID]
	if !ok {
		return ErrNotRegistered
	}

	b.rooms[roomID] = struct{}{}
	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[string]struct{})
		r.rooms[roomID] = members
	}
	members[connID] = struct{}{}
	return nil
}

// Leave removes a membership edge; removing an absent edge is not an error.
func (r *Registry) Leave(connID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.conns[connID]; ok {
		delete(b.rooms, roomID)
	}
	r.dropEdge(roomID, connID)
}

// MembersOf returns a snapshot of the connections joined to a room. Unknown
// or empty rooms yield an empty slice, never an error.
func (r *Registry) MembersOf(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[roomID]
	out := make([]string, 0, len(members))
	for connID := range members {
		out = append(out, connID)
	}
	return out
}

// UserOf reports the identity bound to a connection, if any.
func (r *Registry) UserOf(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.conns[connID]
	if !ok {
		return "", false
	}
	return b.userID, true
}

func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// dropEdge must be called with the write lock held. Rooms with no edges are
// deleted outright; an empty room is indistinguishable from an unknown one.
func (r *Registry) dropEdge(roomID, connID string) {
	members, ok := r.rooms[roomID]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(r.rooms, roomID)
	}
}
