package dispatch

import (
	"context"
	"time"

	"github.com/fieldserve/dispatch/core/errs"
	"github.com/fieldserve/dispatch/core/events"
	coremetrics "github.com/fieldserve/dispatch/core/metrics"
	"github.com/fieldserve/dispatch/core/model"
	"github.com/fieldserve/dispatch/core/notify"
)

// ResponseResult reports how a technician's response was applied.
type ResponseResult struct {
	Job *model.JobRequest
	// Assigned is true when this response won the job.
	Assigned bool
	// Late is true when the job was already confirmed and the response was
	// recorded for audit only.
	Late bool
}

// RecordResponse applies a technician's accept or reject to the job in one
// atomic read-modify-write. The first accepted response across all notified
// technicians wins, decided by transaction commit order; the payload timestamp
// is stored for display only. A technician responding twice is a no-op the
// second time. Responses against an already confirmed job are appended to the
// audit map without touching the assignment.
func (c *Coordinator) RecordResponse(ctx context.Context, jobID, technicianID string, kind model.ResponseKind, ts time.Time) (*ResponseResult, error) {
	if jobID == "" {
		return nil, errs.Validationf("jobId is required")
	}
	if technicianID == "" {
		return nil, errs.Validationf("technicianId is required")
	}
	if !kind.Valid() {
		return nil, errs.Validationf("response must be %q or %q, got %q",
			model.ResponseAccepted, model.ResponseRejected, kind)
	}
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	var assigned, late bool
	job, err := c.jobs.Transact(ctx, jobID, func(j *model.JobRequest) (bool, error) {
		if j.RespondedBy(technicianID) {
			// Idempotent: the entry is immutable once written.
			assigned = j.Assigned() && j.TechnicianID == technicianID
			return false, nil
		}
		if j.Responses == nil {
			j.Responses = map[string]model.TechnicianResponse{}
		}
		j.Responses[technicianID] = model.TechnicianResponse{Response: kind, Timestamp: ts}
		if j.Assigned() {
			late = true
			return true, nil
		}
		if kind == model.ResponseAccepted {
			j.TechnicianID = technicianID
			j.Status = model.StatusConfirmed
			assigned = true
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	responsesRecorded.WithLabelValues(string(kind)).Inc()
	if assigned {
		assignmentsTotal.WithLabelValues(StrategyNegotiated).Inc()
	}
	if c.registry != nil {
		c.registry.Publish(notify.Response{JobID: jobID, TechnicianID: technicianID, Kind: kind})
	}
	if c.bus != nil {
		c.bus.Publish(events.ResponseEvent{
			JobID:        jobID,
			TechnicianID: technicianID,
			Kind:         kind,
			Late:         late,
			At:           ts,
		})
	}
	if c.sink != nil {
		rec := coremetrics.ResponseRecord{
			JobID:        jobID,
			TechnicianID: technicianID,
			Kind:         kind,
			Late:         late,
			At:           ts,
		}
		if err := c.sink.RecordResponses([]coremetrics.ResponseRecord{rec}); err != nil && c.log != nil {
			c.log.Errorf("metrics error: %v", err)
		}
	}
	if c.log != nil {
		c.log.Debugw("technician response recorded", map[string]any{
			"job":        jobID,
			"technician": technicianID,
			"response":   string(kind),
			"assigned":   assigned,
			"late":       late,
		})
	}
	return &ResponseResult{Job: job, Assigned: assigned, Late: late}, nil
}
