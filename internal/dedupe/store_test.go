package dedupe

import (
	"testing"
	"time"
)

func TestMemoryStore_SeenWithinWindow(t *testing.T) {
	current := time.Unix(1700000000, 0)
	store := NewMemoryStoreWithClock(5*time.Minute, func() time.Time { return current })

	key := Key{ChannelID: "C123", Timestamp: "1700000000.000100"}

	if store.Seen(key) {
		t.Error("Fresh store should not have seen any key")
	}

	store.Mark(key)

	if !store.Seen(key) {
		t.Error("Key should be seen immediately after Mark")
	}

	// Just inside the window
	current = current.Add(5*time.Minute - time.Second)
	if !store.Seen(key) {
		t.Error("Key should still be seen just inside the window")
	}

	// Past the window
	current = current.Add(2 * time.Second)
	if store.Seen(key) {
		t.Error("Key should not be seen after the window elapses")
	}
}

func TestMemoryStore_KeysAreIndependent(t *testing.T) {
	store := NewMemoryStore(5 * time.Minute)

	store.Mark(Key{ChannelID: "C123", Timestamp: "1.000"})

	other := []Key{
		{ChannelID: "C123", Timestamp: "2.000"},
		{ChannelID: "C999", Timestamp: "1.000"},
	}
	for _, key := range other {
		if store.Seen(key) {
			t.Errorf("Key %+v should not be seen, only the marked key was noted", key)
		}
	}
}

func TestMemoryStore_SweepEvictsExpired(t *testing.T) {
	current := time.Unix(1700000000, 0)
	store := NewMemoryStoreWithClock(5*time.Minute, func() time.Time { return current })

	store.Mark(Key{ChannelID: "C1", Timestamp: "1.000"})
	store.Mark(Key{ChannelID: "C2", Timestamp: "2.000"})

	current = current.Add(10 * time.Minute)
	store.Mark(Key{ChannelID: "C3", Timestamp: "3.000"})

	evicted := store.sweep()
	if evicted != 2 {
		t.Errorf("sweep() evicted %d entries, want 2", evicted)
	}
	if store.Len() != 1 {
		t.Errorf("store has %d entries after sweep, want 1", store.Len())
	}

	if !store.Seen(Key{ChannelID: "C3", Timestamp: "3.000"}) {
		t.Error("Fresh key should survive the sweep")
	}
}

func TestMemoryStore_RemarkRefreshesWindow(t *testing.T) {
	current := time.Unix(1700000000, 0)
	store := NewMemoryStoreWithClock(5*time.Minute, func() time.Time { return current })

	key := Key{ChannelID: "C123", Timestamp: "1.000"}
	store.Mark(key)

	current = current.Add(6 * time.Minute)
	if store.Seen(key) {
		t.Fatal("Key should have expired")
	}

	store.Mark(key)
	if !store.Seen(key) {
		t.Error("Re-marked key should be seen again")
	}
}
