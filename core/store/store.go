// Package store defines the durable record interfaces consumed by the
// dispatch flow. Correctness of assignment rests entirely on the JobStore
// transaction primitive; no in-process locking is assumed to span handler
// instances.
package store

import (
	"context"

	"github.com/fieldserve/dispatch/core/model"
)

// TxFunc mutates a job document inside a transaction. It receives a private
// copy of the current document and reports whether the document changed.
// Returning false commits nothing. Returning an error aborts the transaction
// and propagates the error unchanged.
type TxFunc func(job *model.JobRequest) (changed bool, err error)

// JobStore is the durable record of job requests.
type JobStore interface {
	// Create persists a new job request and returns its assigned id.
	Create(ctx context.Context, job *model.JobRequest) (string, error)

	// Get returns the job or errs.ErrNotFound.
	Get(ctx context.Context, id string) (*model.JobRequest, error)

	// Transact runs fn as an atomic read-modify-write against the job
	// document. Conflicting writers are retried transparently; only after
	// retries are exhausted does it fail with errs.ErrConflict. Missing
	// documents fail with errs.ErrNotFound.
	Transact(ctx context.Context, id string, fn TxFunc) (*model.JobRequest, error)
}

// TechnicianStore reads technician accounts.
type TechnicianStore interface {
	// Get returns the technician or errs.ErrNotFound.
	Get(ctx context.Context, id string) (*model.Technician, error)
}
