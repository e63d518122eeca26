package mqttlite

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrPacketNotPending = errors.New("packet ID not pending")
)

// PendingPublish is a QoS 1 publish waiting for its PUBACK.
type PendingPublish struct {
	PacketID uint16
	Packet   *PublishPacket
	SentAt   time.Time
	Attempts int
}

// PendingStore holds at most capacity unacknowledged publishes in send order.
type PendingStore struct {
	mu       sync.Mutex
	entries  []PendingPublish
	capacity int
}

// NewPendingStore creates a store holding at most capacity entries.
func NewPendingStore(capacity int) *PendingStore {
	return &PendingStore{
		entries:  make([]PendingPublish, 0, capacity),
		capacity: capacity,
	}
}

// Add stores p. It returns false without storing when the store is full or
// the packet id is already pending.
func (s *PendingStore) Add(p PendingPublish) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) >= s.capacity || s.indexLocked(p.PacketID) >= 0 {
		return false
	}
	s.entries = append(s.entries, p)
	return true
}

// Remove deletes and returns the entry for id.
func (s *PendingStore) Remove(id uint16) (PendingPublish, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return PendingPublish{}, false
	}

	p := s.entries[i]
	copy(s.entries[i:], s.entries[i+1:])
	s.entries[len(s.entries)-1] = PendingPublish{}
	s.entries = s.entries[:len(s.entries)-1]
	return p, true
}

// Get returns the entry for id.
func (s *PendingStore) Get(id uint16) (PendingPublish, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexLocked(id); i >= 0 {
		return s.entries[i], true
	}
	return PendingPublish{}, false
}

// Has reports whether id is pending.
func (s *PendingStore) Has(id uint16) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexLocked(id) >= 0
}

// touch records another send attempt for id.
func (s *PendingStore) touch(id uint16, now time.Time) (PendingPublish, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return PendingPublish{}, false
	}
	s.entries[i].SentAt = now
	s.entries[i].Attempts++
	return s.entries[i], true
}

// Len returns the number of pending entries.
func (s *PendingStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Cap returns the store capacity.
func (s *PendingStore) Cap() int {
	return s.capacity
}

// All returns a snapshot of the pending entries, oldest first.
func (s *PendingStore) All() []PendingPublish {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PendingPublish, len(s.entries))
	copy(out, s.entries)
	return out
}

// Clear drops every entry.
func (s *PendingStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.entries)
	s.entries = s.entries[:0]
}

func (s *PendingStore) indexLocked(id uint16) int {
	for i := range s.entries {
		if s.entries[i].PacketID == id {
			return i
		}
	}
	return -1
}

// PacketIDCounter hands out packet identifiers 1-65535, wrapping past 0.
type PacketIDCounter struct {
	mu   sync.Mutex
	last uint16
}

// Next returns the next identifier for which inUse reports false. If every
// identifier is in use, the next nonzero one is returned regardless.
func (c *PacketIDCounter) Next(inUse func(uint16) bool) uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()

	for range maxUint16 {
		c.last++
		if c.last == 0 {
			c.last = 1
		}
		if inUse == nil || !inUse(c.last) {
			return c.last
		}
	}

	c.last++
	if c.last == 0 {
		c.last = 1
	}
	return c.last
}
