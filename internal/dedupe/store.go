package dedupe

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Key identifies a single noted message.
type Key struct {
	ChannelID string
	Timestamp string
}

// Store suppresses repeat note submissions for the same message within a
// trailing time window.
type Store interface {
	// Seen reports whether the key was marked within the window.
	Seen(key Key) bool
	// Mark records the key as noted now.
	Mark(key Key)
}

// MemoryStore is an in-process Store with an injected clock and a periodic
// sweep that evicts entries older than the window, keeping memory bounded.
type MemoryStore struct {
	mu     sync.Mutex
	noted  map[Key]time.Time
	window time.Duration
	now    func() time.Time
	done   chan struct{}
}

// NewMemoryStore creates a memory-backed dedupe store with the given window.
func NewMemoryStore(window time.Duration) *MemoryStore {
	return &MemoryStore{
		noted:  make(map[Key]time.Time),
		window: window,
		now:    time.Now,
		done:   make(chan struct{}),
	}
}

// NewMemoryStoreWithClock is NewMemoryStore with a caller-supplied clock.
func NewMemoryStoreWithClock(window time.Duration, now func() time.Time) *MemoryStore {
	store := NewMemoryStore(window)
	store.now = now
	return store
}

func (s *MemoryStore) Seen(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	notedAt, ok := s.noted[key]
	if !ok {
		return false
	}
	return s.now().Sub(notedAt) < s.window
}

func (s *MemoryStore) Mark(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noted[key] = s.now()
}

// Start runs the sweep janitor until the context is cancelled or Stop is
// called. The sweep interval equals the dedupe window.
func (s *MemoryStore) Start(ctx context.Context) {
	slog.Info("Starting dedupe store janitor", "window", s.window)

	ticker := time.NewTicker(s.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Dedupe store janitor stopped due to context cancellation")
			return
		case <-s.done:
			slog.Info("Dedupe store janitor stopped")
			return
		case <-ticker.C:
			evicted := s.sweep()
			if evicted > 0 {
				slog.Debug("Swept expired dedupe entries", "evicted", evicted)
			}
		}
	}
}

// Stop stops the janitor.
func (s *MemoryStore) Stop() {
	close(s.done)
}

func (s *MemoryStore) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.window)
	evicted := 0
	for key, notedAt := range s.noted {
		if notedAt.Before(cutoff) {
			delete(s.noted, key)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of live entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.noted)
}
