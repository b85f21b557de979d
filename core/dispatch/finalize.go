package dispatch

import (
	"context"

	"github.com/fieldserve/dispatch/core/model"
	"github.com/fieldserve/dispatch/core/store"
)

// finalizeAssignment commits the technician to the job in a single atomic
// read-modify-write. A job already confirmed is never overwritten: the first
// writer wins by commit order, and later callers observe the existing
// assignment. won reports whether the job ended up assigned to technicianID,
// whether by this call or an earlier identical one.
func finalizeAssignment(ctx context.Context, jobs store.JobStore, jobID, technicianID string) (*model.JobRequest, bool, error) {
	var won bool
	job, err := jobs.Transact(ctx, jobID, func(j *model.JobRequest) (bool, error) {
		if j.Assigned() {
			won = j.TechnicianID == technicianID
			return false, nil
		}
		j.TechnicianID = technicianID
		j.Status = model.StatusConfirmed
		won = true
		return true, nil
	})
	if err != nil {
		return nil, false, err
	}
	return job, won, nil
}
