package notify

import (
	"context"
	"sync"
)

// MockGateway is a simple gateway used in tests.
type MockGateway struct {
	mu sync.Mutex

	// Sent records the offers delivered per technician, in order.
	Sent []string

	// Unreachable marks technicians with no push endpoint.
	Unreachable map[string]bool

	// OnSend, when set, runs after each successful delivery. Tests use it
	// to inject a response through the registry.
	OnSend func(technicianID string, offer Offer)
}

// NewMockGateway creates a new MockGateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{Unreachable: make(map[string]bool)}
}

// SendOffer records the delivery or reports the technician unreachable.
func (m *MockGateway) SendOffer(_ context.Context, technicianID string, offer Offer) error {
	m.mu.Lock()
	if m.Unreachable[technicianID] {
		m.mu.Unlock()
		return ErrUndeliverable
	}
	m.Sent = append(m.Sent, technicianID)
	cb := m.OnSend
	m.mu.Unlock()
	if cb != nil {
		cb(technicianID, offer)
	}
	return nil
}

// SentTo returns a copy of the delivery log.
func (m *MockGateway) SentTo() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Sent...)
}
