package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fieldserve/dispatch/core/errs"
	"github.com/fieldserve/dispatch/core/model"
)

// MemoryStore is an in-process JobStore and TechnicianStore used in tests and
// local runs. Transactions are serialized by a mutex, which gives the same
// first-writer-wins commit order a document store provides.
type MemoryStore struct {
	mu    sync.Mutex
	jobs  map[string]*model.JobRequest
	techs map[string]*model.Technician

	// CreateCalls counts job writes, letting tests assert that validation
	// failures produce zero persistence.
	CreateCalls int

	// FailCreate forces Create to report the store unreachable.
	FailCreate bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:  make(map[string]*model.JobRequest),
		techs: make(map[string]*model.Technician),
	}
}

// Create persists a new job request, assigning an id when absent.
func (s *MemoryStore) Create(_ context.Context, job *model.JobRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailCreate {
		return "", errs.ErrUnavailable
	}
	s.CreateCalls++
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	s.jobs[job.ID] = job.Clone()
	return job.ID, nil
}

// Get returns a copy of the job or errs.ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, id string) (*model.JobRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, errs.NotFoundf("job %s", id)
	}
	return job.Clone(), nil
}

// Transact runs fn under the store lock, making the read-modify-write atomic
// with respect to every other transaction.
func (s *MemoryStore) Transact(_ context.Context, id string, fn TxFunc) (*model.JobRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, errs.NotFoundf("job %s", id)
	}
	work := job.Clone()
	changed, err := fn(work)
	if err != nil {
		return nil, err
	}
	if changed {
		work.Version++
		work.UpdatedAt = time.Now().UTC()
		s.jobs[id] = work.Clone()
	}
	return work.Clone(), nil
}

// PutTechnician seeds a technician account.
func (s *MemoryStore) PutTechnician(t *model.Technician) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.techs[t.ID] = &cp
}

// DeleteTechnician removes a technician account.
func (s *MemoryStore) DeleteTechnician(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.techs, id)
}

// Technicians exposes the store's technician accounts as a TechnicianStore.
func (s *MemoryStore) Technicians() TechnicianStore { return memoryTechs{s} }

type memoryTechs struct{ s *MemoryStore }

func (m memoryTechs) Get(ctx context.Context, id string) (*model.Technician, error) {
	return m.s.GetTechnician(ctx, id)
}

// GetTechnician returns the technician or errs.ErrNotFound.
func (s *MemoryStore) GetTechnician(_ context.Context, id string) (*model.Technician, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.techs[id]
	if !ok {
		return nil, errs.NotFoundf("technician %s", id)
	}
	cp := *t
	return &cp, nil
}
