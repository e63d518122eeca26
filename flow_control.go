package mqttlite

import (
	"errors"
	"sync"
)

// ErrQuotaExceeded is returned by Publish when the server's Receive Maximum
// QoS 1 publishes are already unacknowledged.
var ErrQuotaExceeded = errors.New("send quota exceeded")

// defaultReceiveMaximum applies when CONNACK carries no Receive Maximum.
const defaultReceiveMaximum = 65535

// FlowController counts outbound QoS 1 publishes against the server's
// Receive Maximum.
type FlowController struct {
	mu             sync.Mutex
	receiveMaximum uint16
	inFlight       uint16
}

// NewFlowController creates a controller allowing maximum publishes in
// flight. Zero means the protocol default of 65535.
func NewFlowController(maximum uint16) *FlowController {
	if maximum == 0 {
		maximum = defaultReceiveMaximum
	}
	return &FlowController{receiveMaximum: maximum}
}

// ReceiveMaximum returns the current quota.
func (f *FlowController) ReceiveMaximum() uint16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.receiveMaximum
}

// Reset clears the in-flight count and sets a new quota, as on CONNACK.
func (f *FlowController) Reset(maximum uint16) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if maximum == 0 {
		maximum = defaultReceiveMaximum
	}
	f.receiveMaximum = maximum
	f.inFlight = 0
}

// InFlight returns the number of unacknowledged publishes.
func (f *FlowController) InFlight() uint16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlight
}

// Available returns the remaining quota.
func (f *FlowController) Available() uint16 {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.inFlight >= f.receiveMaximum {
		return 0
	}
	return f.receiveMaximum - f.inFlight
}

// TryAcquire takes one unit of quota and reports whether it was available.
func (f *FlowController) TryAcquire() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.inFlight >= f.receiveMaximum {
		return false
	}
	f.inFlight++
	return true
}

// Release returns one unit of quota.
func (f *FlowController) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.inFlight > 0 {
		f.inFlight--
	}
}
