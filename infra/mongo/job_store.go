package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fieldserve/dispatch/core/errs"
	"github.com/fieldserve/dispatch/core/model"
	"github.com/fieldserve/dispatch/core/store"
)

// maxTxRetries bounds the optimistic CAS loop before the conflict surfaces.
const maxTxRetries = 5

// jobCollection is the slice of mongo.Collection the job store uses. Tests
// substitute a fake to drive the CAS loop through version conflicts.
type jobCollection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
}

// JobStore implements store.JobStore on a MongoDB collection.
type JobStore struct {
	coll jobCollection
}

// NewJobStore creates a JobStore over the "job_requests" collection.
func NewJobStore(client *mongo.Client, database string) *JobStore {
	return &JobStore{coll: client.Database(database).Collection("job_requests")}
}

// Create persists a new job request, assigning an id when absent.
func (s *JobStore) Create(ctx context.Context, job *model.JobRequest) (string, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if _, err := s.coll.InsertOne(ctx, job); err != nil {
		return "", fmt.Errorf("%w: insert job: %v", errs.ErrUnavailable, err)
	}
	return job.ID, nil
}

// Get returns the job or errs.ErrNotFound.
func (s *JobStore) Get(ctx context.Context, id string) (*model.JobRequest, error) {
	var job model.JobRequest
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&job)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.NotFoundf("job %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find job: %v", errs.ErrUnavailable, err)
	}
	return &job, nil
}

// Transact runs fn as an optimistic read-modify-write. The replace is keyed on
// the document's current version; a concurrent writer bumps the version and
// the loop re-reads and retries. Commit order therefore decides every race on
// the assignment fields.
func (s *JobStore) Transact(ctx context.Context, id string, fn store.TxFunc) (*model.JobRequest, error) {
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		job, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		version := job.Version

		changed, err := fn(job)
		if err != nil {
			return nil, err
		}
		if !changed {
			return job, nil
		}

		job.Version = version + 1
		job.UpdatedAt = time.Now().UTC()
		res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": id, "version": version}, job)
		if err != nil {
			return nil, fmt.Errorf("%w: replace job: %v", errs.ErrUnavailable, err)
		}
		if res.MatchedCount == 1 {
			return job, nil
		}
		// Version moved underneath us; retry with a fresh read.
	}
	return nil, fmt.Errorf("%w: job %s: retries exhausted", errs.ErrConflict, id)
}

// TechnicianStore implements store.TechnicianStore on the "technicians"
// collection.
type TechnicianStore struct {
	coll *mongo.Collection
}

// NewTechnicianStore creates a TechnicianStore.
func NewTechnicianStore(client *mongo.Client, database string) *TechnicianStore {
	return &TechnicianStore{coll: client.Database(database).Collection("technicians")}
}

// Get returns the technician or errs.ErrNotFound.
func (s *TechnicianStore) Get(ctx context.Context, id string) (*model.Technician, error) {
	var tech model.Technician
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&tech)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.NotFoundf("technician %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find technician: %v", errs.ErrUnavailable, err)
	}
	return &tech, nil
}
