package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fieldserve/dispatch/core/errs"
	"github.com/fieldserve/dispatch/core/model"
)

func newJob() *model.JobRequest {
	return &model.JobRequest{
		Status:          model.StatusPending,
		CustomerID:      "cust-1",
		ServiceCategory: model.CategoryHomes,
		PropertyInfo:    map[string]any{"type": "house"},
		Responses:       map[string]model.TechnicianResponse{},
	}
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id, err := s.Create(ctx, newJob())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id == "" {
		t.Fatalf("expected a generated id")
	}

	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.CustomerID != "cust-1" {
		t.Fatalf("unexpected job %+v", got)
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	id, _ := s.Create(ctx, newJob())

	a, _ := s.Get(ctx, id)
	a.PropertyInfo["type"] = "tampered"
	a.Status = model.StatusCancelled

	b, _ := s.Get(ctx, id)
	if b.Status != model.StatusPending || b.PropertyInfo["type"] != "house" {
		t.Fatalf("stored document aliased by a read: %+v", b)
	}
}

func TestMemoryStore_TransactBumpsVersion(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	id, _ := s.Create(ctx, newJob())

	got, err := s.Transact(ctx, id, func(j *model.JobRequest) (bool, error) {
		j.TechnicianID = "tech-1"
		j.Status = model.StatusConfirmed
		return true, nil
	})
	if err != nil {
		t.Fatalf("Transact: %v", err)
	}
	if got.Version != 1 {
		t.Fatalf("expected version 1, got %d", got.Version)
	}

	// A no-change transaction leaves the version alone.
	got, err = s.Transact(ctx, id, func(j *model.JobRequest) (bool, error) {
		return false, nil
	})
	if err != nil {
		t.Fatalf("Transact: %v", err)
	}
	if got.Version != 1 {
		t.Fatalf("version bumped without a change: %d", got.Version)
	}
}

func TestMemoryStore_TransactError(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	id, _ := s.Create(ctx, newJob())

	boom := errors.New("boom")
	if _, err := s.Transact(ctx, id, func(*model.JobRequest) (bool, error) {
		return true, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected fn error back, got %v", err)
	}

	got, _ := s.Get(ctx, id)
	if got.Version != 0 {
		t.Fatalf("failed transaction must not persist, version %d", got.Version)
	}

	if _, err := s.Transact(ctx, "missing", func(*model.JobRequest) (bool, error) {
		return false, nil
	}); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_TransactSerialized(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	id, _ := s.Create(ctx, newJob())

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Transact(ctx, id, func(j *model.JobRequest) (bool, error) {
				j.SelectedIssues = append(j.SelectedIssues, "x")
				return true, nil
			})
			if err != nil {
				t.Errorf("Transact: %v", err)
			}
		}()
	}
	wg.Wait()

	got, _ := s.Get(ctx, id)
	if int(got.Version) != n || len(got.SelectedIssues) != n {
		t.Fatalf("lost updates: version=%d issues=%d", got.Version, len(got.SelectedIssues))
	}
}

func TestMemoryStore_Technicians(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.PutTechnician(&model.Technician{ID: "tech-1", ServiceCategory: model.CategoryHomes, Status: model.TechnicianApproved, IsActive: true})

	techs := s.Technicians()
	got, err := techs.Get(ctx, "tech-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != "tech-1" {
		t.Fatalf("unexpected technician %+v", got)
	}

	s.DeleteTechnician("tech-1")
	if _, err := techs.Get(ctx, "tech-1"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
