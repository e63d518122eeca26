package mqttlite

import (
	"sync"
	"time"
)

// DefaultKeepAliveGrace is how many keep-alive intervals may pass without
// inbound traffic before the server is considered gone.
const DefaultKeepAliveGrace = 1.5

// KeepAliveTracker measures traffic against the keep-alive interval.
//
// The client owns no timers; the caller polls PingDue and Expired, usually
// next to Process.
type KeepAliveTracker struct {
	mu             sync.Mutex
	clock          Clock
	keepAlive      uint16
	serverOverride uint16
	graceFactor    float64
	lastSent       time.Time
	lastReceived   time.Time
}

// NewKeepAliveTracker creates a tracker for the requested interval in seconds.
func NewKeepAliveTracker(clock Clock, seconds uint16) *KeepAliveTracker {
	if clock == nil {
		clock = SystemClock{}
	}
	now := clock.Now()
	return &KeepAliveTracker{
		clock:        clock,
		keepAlive:    seconds,
		graceFactor:  DefaultKeepAliveGrace,
		lastSent:     now,
		lastReceived: now,
	}
}

// SetGraceFactor sets the multiplier applied by Expired. Values below 1 are
// raised to 1.
func (k *KeepAliveTracker) SetGraceFactor(factor float64) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if factor < 1.0 {
		factor = 1.0
	}
	k.graceFactor = factor
}

// Reset starts a new connection with the requested interval and clears any
// server override.
func (k *KeepAliveTracker) Reset(seconds uint16) {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.clock.Now()
	k.keepAlive = seconds
	k.serverOverride = 0
	k.lastSent = now
	k.lastReceived = now
}

// SetServerOverride applies the Server Keep Alive from CONNACK. Zero keeps
// the requested interval.
func (k *KeepAliveTracker) SetServerOverride(seconds uint16) {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.serverOverride = seconds
}

// Interval returns the effective keep-alive interval; zero disables it.
func (k *KeepAliveTracker) Interval() time.Duration {
	k.mu.Lock()
	defer k.mu.Unlock()

	return k.intervalLocked()
}

func (k *KeepAliveTracker) intervalLocked() time.Duration {
	seconds := k.keepAlive
	if k.serverOverride > 0 {
		seconds = k.serverOverride
	}
	return time.Duration(seconds) * time.Second
}

// Sent records outbound traffic.
func (k *KeepAliveTracker) Sent() {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.lastSent = k.clock.Now()
}

// Received records inbound traffic.
func (k *KeepAliveTracker) Received() {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.lastReceived = k.clock.Now()
}

// PingDue reports whether nothing was sent for a full interval.
func (k *KeepAliveTracker) PingDue() bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	interval := k.intervalLocked()
	return interval > 0 && k.clock.Now().Sub(k.lastSent) >= interval
}

// Expired reports whether nothing was received for the interval times the
// grace factor.
func (k *KeepAliveTracker) Expired() bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	interval := k.intervalLocked()
	if interval == 0 {
		return false
	}
	timeout := time.Duration(float64(interval) * k.graceFactor)
	return k.clock.Now().Sub(k.lastReceived) > timeout
}

// Deadline returns when Expired turns true if nothing arrives.
func (k *KeepAliveTracker) Deadline() (time.Time, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	interval := k.intervalLocked()
	if interval == 0 {
		return time.Time{}, false
	}
	return k.lastReceived.Add(time.Duration(float64(interval) * k.graceFactor)), true
}
