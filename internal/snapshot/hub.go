// Package snapshot distributes full reservation snapshots to subscribers.
package snapshot

import (
	"sync"
	"time"

	"github.com/aksiooma/trailbuddy-app-sub000/internal/models"
)

// Snapshot is the complete reservation set at one point in time.
type Snapshot struct {
	Reservations []models.ReservationRecord
	Version      uint64
	ReceivedAt   time.Time
}

// Hub fans snapshots out to subscribers. A new subscriber immediately
// receives the latest snapshot, if any. Callbacks run on the publishing
// goroutine, one snapshot at a time, and must not call Publish or Subscribe.
type Hub struct {
	mu      sync.Mutex
	subs    map[uint64]func(Snapshot)
	nextID  uint64
	current *Snapshot

	// serializes delivery so subscribers see versions in order
	deliver sync.Mutex
	now     func() time.Time
}

// NewHub creates a hub with no snapshot yet
func NewHub() *Hub {
	return &Hub{
		subs: make(map[uint64]func(Snapshot)),
		now:  time.Now,
	}
}

// Subscribe registers cb and returns a function that removes it. Calling the
// returned function more than once is harmless.
func (h *Hub) Subscribe(cb func(Snapshot)) (unsubscribe func()) {
	h.deliver.Lock()
	defer h.deliver.Unlock()

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = cb
	current := h.current
	h.mu.Unlock()

	if current != nil {
		cb(copySnapshot(*current))
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Publish replaces the current snapshot and delivers it to every subscriber.
func (h *Hub) Publish(reservations []models.ReservationRecord) Snapshot {
	h.deliver.Lock()
	defer h.deliver.Unlock()

	h.mu.Lock()
	var version uint64 = 1
	if h.current != nil {
		version = h.current.Version + 1
	}
	snap := Snapshot{
		Reservations: append([]models.ReservationRecord(nil), reservations...),
		Version:      version,
		ReceivedAt:   h.now(),
	}
	h.current = &snap
	subs := make([]func(Snapshot), 0, len(h.subs))
	for _, cb := range h.subs {
		subs = append(subs, cb)
	}
	h.mu.Unlock()

	for _, cb := range subs {
		cb(copySnapshot(snap))
	}
	return snap
}

// Current returns the latest snapshot.
func (h *Hub) Current() (Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == nil {
		return Snapshot{}, false
	}
	return copySnapshot(*h.current), true
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func copySnapshot(s Snapshot) Snapshot {
	s.Reservations = append([]models.ReservationRecord(nil), s.Reservations...)
	return s
}
