package realtime

import (
	"testing"
	"time"
)

func newTestTracker(now *time.Time) *TypingTracker {
	t := NewTypingTracker()
	t.now = func() time.Time { return *now }
	return t
}

func TestTypingRelayOncePerBurst(t *testing.T) {
	now := time.Now()
	tracker := newTestTracker(&now)

	if !tracker.Start("room1", "u1") {
		t.Fatal("first signal must relay")
	}
	for i := 0; i < 5; i++ {
		now = now.Add(500 * time.Millisecond)
		if tracker.Start("room1", "u1") {
			t.Fatal("renewed signal within the quiet window must be suppressed")
		}
	}
}

func TestTypingStopThenStart(t *testing.T) {
	now := time.Now()
	tracker := newTestTracker(&now)

	tracker.Start("room1", "u1")
	if !tracker.Stop("room1", "u1") {
		t.Fatal("stop of an active state must relay")
	}
	if tracker.Stop("room1", "u1") {
		t.Fatal("stop of an idle state must not relay")
	}
	if !tracker.Start("room1", "u1") {
		t.Fatal("signal after stop must relay again")
	}
}

func TestTypingStateIsPerRoomAndUser(t *testing.T) {
	now := time.Now()
	tracker := newTestTracker(&now)

	if !tracker.Start("room1", "u1") {
		t.Fatal("first signal in room1 must relay")
	}
	if !tracker.Start("room2", "u1") {
		t.Fatal("same user in another room is a separate state")
	}
	if !tracker.Start("room1", "u2") {
		t.Fatal("another user in the same room is a separate state")
	}
}

func TestStaleEntryRevives(t *testing.T) {
	now := time.Now()
	tracker := newTestTracker(&now)

	tracker.Start("room1", "u1")

	// The stop signal got lost; after the quiet window the next burst must
	// relay again instead of being suppressed forever.
	now = now.Add(typingQuietWindow + time.Millisecond)
	if !tracker.Start("room1", "u1") {
		t.Fatal("signal after the quiet window must relay")
	}
}

func TestSweepDropsStaleEntries(t *testing.T) {
	now := time.Now()
	tracker := newTestTracker(&now)

	tracker.Start("room1", "u1")
	tracker.Start("room2", "u2")

	now = now.Add(typingQuietWindow + time.Millisecond)
	tracker.Sweep()

	if tracker.Stop("room1", "u1") {
		t.Fatal("swept entry should already be idle")
	}
	if tracker.Stop("room2", "u2") {
		t.Fatal("swept entry should already be idle")
	}
}
