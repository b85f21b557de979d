package geo

import (
	"context"
	"sort"
	"sync"

	"github.com/fieldserve/dispatch/core/model"
)

// MockIndex is an in-memory Index used in tests.
type MockIndex struct {
	mu   sync.Mutex
	recs map[string]model.LocationRecord

	// Err, when set, is returned by every call to simulate an unreachable
	// index.
	Err error

	// RangeCalls counts range queries.
	RangeCalls int
}

// NewMockIndex creates an empty MockIndex.
func NewMockIndex() *MockIndex {
	return &MockIndex{recs: make(map[string]model.LocationRecord)}
}

// Upsert replaces the technician's record wholesale.
func (m *MockIndex) Upsert(_ context.Context, rec model.LocationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.recs[rec.TechnicianID] = rec
	return nil
}

// RangeQuery returns records whose geohash falls within [start, end], in
// geohash order.
func (m *MockIndex) RangeQuery(_ context.Context, start, end string) ([]model.LocationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RangeCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	var out []model.LocationRecord
	for _, rec := range m.recs {
		if rec.Geohash >= start && rec.Geohash <= end {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Geohash < out[j].Geohash })
	return out, nil
}

// Get returns the stored record for a technician, for test assertions.
func (m *MockIndex) Get(technicianID string) (model.LocationRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[technicianID]
	return rec, ok
}
