package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fieldserve/dispatch/core/events"
	"github.com/fieldserve/dispatch/core/logger"
	"github.com/fieldserve/dispatch/core/model"
	"github.com/fieldserve/dispatch/core/notify"
	"github.com/fieldserve/dispatch/core/store"
	"github.com/fieldserve/dispatch/internal/eventbus"
)

// AssignmentStrategy selects and commits one technician from a ranked
// candidate list. Implementations funnel through the same atomic finalize
// step, so at most one technician is ever assigned to a job regardless of
// strategy or concurrent responses.
type AssignmentStrategy interface {
	// Assign returns the updated job and the winning candidate, or a nil
	// candidate when nobody could be assigned. The candidate list is
	// expected sorted by ascending distance.
	Assign(ctx context.Context, job *model.JobRequest, candidates []model.Candidate) (*model.JobRequest, *model.Candidate, error)
}

// Name constants reported in events and metrics.
const (
	StrategyGreedy     = "greedy"
	StrategyNegotiated = "negotiated"
)

// GreedyStrategy assigns the nearest candidate without an acceptance
// round-trip.
type GreedyStrategy struct {
	jobs store.JobStore
}

// NewGreedyStrategy creates a greedy nearest-pick strategy.
func NewGreedyStrategy(jobs store.JobStore) (*GreedyStrategy, error) {
	if jobs == nil {
		return nil, fmt.Errorf("dispatch: nil job store provided to NewGreedyStrategy")
	}
	return &GreedyStrategy{jobs: jobs}, nil
}

// Assign finalizes the first candidate. If a concurrent dispatch confirmed the
// job first, the existing assignment is left untouched and a nil candidate is
// returned.
func (g *GreedyStrategy) Assign(ctx context.Context, job *model.JobRequest, candidates []model.Candidate) (*model.JobRequest, *model.Candidate, error) {
	if len(candidates) == 0 {
		return job, nil, nil
	}
	nearest := candidates[0]
	updated, won, err := finalizeAssignment(ctx, g.jobs, job.ID, nearest.TechnicianID)
	if err != nil {
		return job, nil, err
	}
	if !won {
		return updated, nil, nil
	}
	assignmentsTotal.WithLabelValues(StrategyGreedy).Inc()
	return updated, &nearest, nil
}

// NegotiatedStrategy notifies one candidate at a time, in ascending-distance
// order, and waits for an accept, a reject, or the offer timeout before moving
// on. Responses are recorded by Coordinator.RecordResponse (reached via HTTP
// or the push gateway), which finalizes the assignment and wakes the waiting
// subscription; this strategy only sequences offers and observes the outcome.
type NegotiatedStrategy struct {
	jobs     store.JobStore
	gateway  notify.Gateway
	registry *notify.Registry
	bus      *eventbus.Bus
	timeout  time.Duration
	log      logger.Logger
}

// NewNegotiatedStrategy creates a sequential notify-and-wait strategy.
// A timeout of zero defaults to thirty seconds.
func NewNegotiatedStrategy(jobs store.JobStore, gateway notify.Gateway, registry *notify.Registry, bus *eventbus.Bus, timeout time.Duration, log logger.Logger) (*NegotiatedStrategy, error) {
	if jobs == nil || gateway == nil || registry == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewNegotiatedStrategy")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &NegotiatedStrategy{
		jobs:     jobs,
		gateway:  gateway,
		registry: registry,
		bus:      bus,
		timeout:  timeout,
		log:      log,
	}, nil
}

func (n *NegotiatedStrategy) Assign(ctx context.Context, job *model.JobRequest, candidates []model.Candidate) (*model.JobRequest, *model.Candidate, error) {
	current := job
	for i := range candidates {
		cand := candidates[i]

		// A late accept from an earlier offer may have confirmed the
		// job between iterations.
		refreshed, err := n.jobs.Get(ctx, job.ID)
		if err != nil {
			return current, nil, err
		}
		current = refreshed
		if current.Assigned() {
			return current, winnerOf(current, candidates), nil
		}

		updated, won, err := n.offer(ctx, current, cand)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return current, nil, err
			}
			if n.log != nil {
				n.log.Warnf("offer to %s failed: %v", cand.TechnicianID, err)
			}
			continue
		}
		if updated != nil {
			current = updated
		}
		if won {
			return current, &cand, nil
		}
	}

	// A response that raced the last offer may have confirmed the job after
	// its wait ended; report the committed state, not the loop's view.
	refreshed, err := n.jobs.Get(ctx, job.ID)
	if err != nil {
		return current, nil, err
	}
	if refreshed.Assigned() {
		return refreshed, winnerOf(refreshed, candidates), nil
	}
	return refreshed, nil, nil
}

// offer notifies a single candidate and waits for the outcome. The response
// subscription is torn down on every exit path.
func (n *NegotiatedStrategy) offer(ctx context.Context, job *model.JobRequest, cand model.Candidate) (*model.JobRequest, bool, error) {
	sub := n.registry.Subscribe(job.ID, cand.TechnicianID)
	defer sub.Cancel()

	err := n.gateway.SendOffer(ctx, cand.TechnicianID, notify.Offer{
		JobID:           job.ID,
		ServiceCategory: job.ServiceCategory,
		CustomerLocn:    job.CustomerLocation,
		DistanceMeters:  cand.DistanceMeters,
		SelectedIssues:  job.SelectedIssues,
		SentAt:          time.Now().UTC(),
	})
	if n.bus != nil {
		n.bus.Publish(events.OfferEvent{
			JobID:          job.ID,
			TechnicianID:   cand.TechnicianID,
			DistanceMeters: cand.DistanceMeters,
			Undeliverable:  errors.Is(err, notify.ErrUndeliverable),
		})
	}
	if err != nil {
		if errors.Is(err, notify.ErrUndeliverable) {
			offersUndelivered.Inc()
			return nil, false, nil
		}
		return nil, false, err
	}
	offersSent.Inc()

	start := time.Now()
	timer := time.NewTimer(n.timeout)
	defer timer.Stop()
	select {
	case resp := <-sub.C():
		offerWaitSeconds.Observe(time.Since(start).Seconds())
		if resp.Kind != model.ResponseAccepted {
			return nil, false, nil
		}
		// RecordResponse already ran the finalize transaction; read
		// the committed outcome rather than trusting the wakeup.
		updated, err := n.jobs.Get(ctx, job.ID)
		if err != nil {
			return nil, false, err
		}
		return updated, updated.Assigned() && updated.TechnicianID == cand.TechnicianID, nil
	case <-timer.C:
		// Treated as an implicit rejection for sequencing only; no
		// response entry is written. A late accept is handled by the
		// finalize rule.
		offerTimeouts.Inc()
		return nil, false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// winnerOf maps the job's assigned technician back to its candidate entry.
func winnerOf(job *model.JobRequest, candidates []model.Candidate) *model.Candidate {
	for i := range candidates {
		if candidates[i].TechnicianID == job.TechnicianID {
			return &candidates[i]
		}
	}
	return nil
}
