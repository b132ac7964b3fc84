package realtime

import (
	"sync"
	"time"
)

// The client owns the debounce timer that ends a typing burst; after this
// quiet window without a renewed signal a server-side entry is stale.
const typingQuietWindow = 3000 * time.Millisecond

type typingKey struct {
	room string
	user string
}

// TypingTracker holds the last-relayed typing flag per (room, user). Its only
// job is suppressing duplicate "typing" relays; entries expire after the
// quiet window so a lost stop signal cannot suppress relays forever.
type TypingTracker struct {
	mu      sync.Mutex
	entries map[typingKey]time.Time
	window  time.Duration
	now     func() time.Time
}

func NewTypingTracker() *TypingTracker {
	return &TypingTracker{
		entries: make(map[typingKey]time.Time),
		window:  typingQuietWindow,
		now:     time.Now,
	}
}

// Start records a typing signal and reports whether it is an idle→typing
// transition that should be relayed to the room.
func (t *TypingTracker) Start(roomID, userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := typingKey{room: roomID, user: userID}
	last, ok := t.entries[key]
	now := t.now()
	t.entries[key] = now

	return !ok || now.Sub(last) > t.window
}

// Stop clears the typing state and reports whether a "stop typing" relay is
// due. Stopping an idle state is a no-op.
func (t *TypingTracker) Stop(roomID, userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := typingKey{room: roomID, user: userID}
	if _, ok := t.entries[key]; !ok {
		return false
	}
	delete(t.entries, key)
	return true
}

// Sweep drops entries whose last signal predates the quiet window.
func (t *TypingTracker) Sweep() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for key, last := range t.entries {
		if now.Sub(last) > t.window {
			delete(t.entries, key)
		}
	}
}
