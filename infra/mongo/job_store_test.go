package mongo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fieldserve/dispatch/core/errs"
	"github.com/fieldserve/dispatch/core/model"
)

// fakeJobCollection backs the job store with a single in-memory document.
// pendingConflicts simulates a concurrent writer: that many ReplaceOne calls
// see the stored version move underneath them and match nothing.
type fakeJobCollection struct {
	doc              *model.JobRequest
	pendingConflicts int

	replaceCalls int
	insertErr    error
}

func (f *fakeJobCollection) FindOne(_ context.Context, _ interface{}, _ ...*options.FindOneOptions) *mongo.SingleResult {
	if f.doc == nil {
		return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
	}
	return mongo.NewSingleResultFromDocument(f.doc, nil, nil)
}

func (f *fakeJobCollection) InsertOne(_ context.Context, document interface{}, _ ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	f.doc = document.(*model.JobRequest).Clone()
	return &mongo.InsertOneResult{InsertedID: f.doc.ID}, nil
}

func (f *fakeJobCollection) ReplaceOne(_ context.Context, filter interface{}, replacement interface{}, _ ...*options.ReplaceOptions) (*mongo.UpdateResult, error) {
	f.replaceCalls++
	if f.pendingConflicts > 0 {
		f.pendingConflicts--
		// The rival commits first: version bump plus a visible write the
		// retry must pick up on its re-read.
		f.doc.Version++
		if f.doc.Responses == nil {
			f.doc.Responses = map[string]model.TechnicianResponse{}
		}
		f.doc.Responses["tech-rival"] = model.TechnicianResponse{Response: model.ResponseRejected}
		return &mongo.UpdateResult{MatchedCount: 0}, nil
	}
	if filter.(bson.M)["version"].(int64) != f.doc.Version {
		return &mongo.UpdateResult{MatchedCount: 0}, nil
	}
	f.doc = replacement.(*model.JobRequest).Clone()
	return &mongo.UpdateResult{MatchedCount: 1}, nil
}

func seededStore(conflicts int) (*JobStore, *fakeJobCollection) {
	fake := &fakeJobCollection{
		doc: &model.JobRequest{
			ID:              "job-1",
			Status:          model.StatusPending,
			ServiceCategory: model.CategoryHomes,
			Responses:       map[string]model.TechnicianResponse{},
		},
		pendingConflicts: conflicts,
	}
	return &JobStore{coll: fake}, fake
}

func TestJobStore_TransactRetriesOnConflict(t *testing.T) {
	s, fake := seededStore(1)

	got, err := s.Transact(context.Background(), "job-1", func(j *model.JobRequest) (bool, error) {
		j.TechnicianID = "tech-1"
		j.Status = model.StatusConfirmed
		return true, nil
	})
	if err != nil {
		t.Fatalf("Transact: %v", err)
	}
	assert.Equal(t, 2, fake.replaceCalls)
	assert.Equal(t, "tech-1", got.TechnicianID)
	assert.Equal(t, model.StatusConfirmed, got.Status)
	// The rival's write landed first, so the commit sits on version 2 and
	// carries the rival's response from the re-read.
	assert.Equal(t, int64(2), got.Version)
	assert.Contains(t, got.Responses, "tech-rival")
	assert.Equal(t, int64(2), fake.doc.Version)
}

func TestJobStore_TransactConflictExhausted(t *testing.T) {
	s, fake := seededStore(maxTxRetries)

	_, err := s.Transact(context.Background(), "job-1", func(j *model.JobRequest) (bool, error) {
		j.TechnicianID = "tech-1"
		return true, nil
	})
	if !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	assert.Equal(t, maxTxRetries, fake.replaceCalls)
	// Every attempt lost; the caller's write never landed.
	assert.Empty(t, fake.doc.TechnicianID)
}

func TestJobStore_TransactNoChangeSkipsReplace(t *testing.T) {
	s, fake := seededStore(0)

	got, err := s.Transact(context.Background(), "job-1", func(*model.JobRequest) (bool, error) {
		return false, nil
	})
	if err != nil {
		t.Fatalf("Transact: %v", err)
	}
	assert.Equal(t, 0, fake.replaceCalls)
	assert.Equal(t, int64(0), got.Version)
}

func TestJobStore_TransactFnError(t *testing.T) {
	s, fake := seededStore(0)

	boom := errors.New("boom")
	if _, err := s.Transact(context.Background(), "job-1", func(*model.JobRequest) (bool, error) {
		return true, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected fn error back, got %v", err)
	}
	assert.Equal(t, 0, fake.replaceCalls)
}

func TestJobStore_GetNotFound(t *testing.T) {
	s := &JobStore{coll: &fakeJobCollection{}}

	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Transact(context.Background(), "missing", func(*model.JobRequest) (bool, error) {
		return false, nil
	}); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestJobStore_CreateAssignsID(t *testing.T) {
	fake := &fakeJobCollection{}
	s := &JobStore{coll: fake}

	id, err := s.Create(context.Background(), &model.JobRequest{Status: model.StatusPending})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id == "" {
		t.Fatalf("expected a generated id")
	}
	assert.Equal(t, id, fake.doc.ID)

	fake.insertErr = errors.New("connection reset")
	if _, err := s.Create(context.Background(), &model.JobRequest{}); !errors.Is(err, errs.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
