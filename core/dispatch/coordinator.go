package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fieldserve/dispatch/core/errs"
	"github.com/fieldserve/dispatch/core/events"
	"github.com/fieldserve/dispatch/core/geo"
	"github.com/fieldserve/dispatch/core/logger"
	coremetrics "github.com/fieldserve/dispatch/core/metrics"
	"github.com/fieldserve/dispatch/core/model"
	"github.com/fieldserve/dispatch/core/notify"
	"github.com/fieldserve/dispatch/core/store"
	"github.com/fieldserve/dispatch/internal/eventbus"
)

// DefaultRadiusMeters is the search radius used when the configuration leaves
// it unset.
const DefaultRadiusMeters = 10000

// NewJobRequest is the validated payload for creating and dispatching a job.
type NewJobRequest struct {
	CustomerID       string                `json:"customerId"`
	CustomerLocation model.Location        `json:"customerLocation"`
	ServiceCategory  model.ServiceCategory `json:"serviceCategory"`
	PropertyInfo     map[string]any        `json:"propertyInfo"`
	SelectedIssues   []string              `json:"selectedIssues"`
}

// Validate rejects malformed payloads before anything is persisted.
func (r NewJobRequest) Validate() error {
	if !r.ServiceCategory.Valid() {
		return errs.Validationf("serviceCategory must be one of %q or %q, got %q",
			model.CategoryHomes, model.CategoryVehicles, r.ServiceCategory)
	}
	if err := r.CustomerLocation.Validate(); err != nil {
		return errs.Validationf("customerLocation: %v", err)
	}
	if len(r.PropertyInfo) == 0 {
		return errs.Validationf("propertyInfo is required")
	}
	return nil
}

// Assignment is the outcome of a dispatch attempt. Found is false when no
// eligible technician could be assigned; NearbyCount then carries the count
// of unfiltered nearby technicians for observability.
type Assignment struct {
	Job            *model.JobRequest `json:"jobRequest"`
	Technician     *model.Technician `json:"technician,omitempty"`
	DistanceMeters float64           `json:"distanceMeters,omitempty"`
	Found          bool              `json:"found"`
	NearbyCount    int               `json:"nearbyTechnicians"`
}

// Deps collects the coordinator's collaborators.
type Deps struct {
	Search   *geo.Search
	Index    geo.Index
	Filter   EligibilityFilter
	Jobs     store.JobStore
	Techs    store.TechnicianStore
	Gateway  notify.Gateway
	Registry *notify.Registry
	Bus      *eventbus.Bus
	Sink     coremetrics.Sink
	Log      logger.Logger
}

// Options carries the dispatch tunables.
type Options struct {
	// RadiusMeters is the candidate search radius. Zero means
	// DefaultRadiusMeters.
	RadiusMeters float64
	// OfferTimeout bounds the wait per candidate in negotiated mode. Zero
	// means thirty seconds.
	OfferTimeout time.Duration
	// RequireActive restricts assignment to approved, active technicians.
	RequireActive bool
}

// Coordinator orchestrates the dispatch flow end to end: persist the job,
// rank candidates, and commit exactly one assignment through the chosen
// strategy.
type Coordinator struct {
	search     *geo.Search
	index      geo.Index
	filter     EligibilityFilter
	jobs       store.JobStore
	techs      store.TechnicianStore
	registry   *notify.Registry
	bus        *eventbus.Bus
	sink       coremetrics.Sink
	greedy     *GreedyStrategy
	negotiated *NegotiatedStrategy
	opts       Options
	log        logger.Logger
}

// NewCoordinator wires a coordinator from its dependencies.
func NewCoordinator(deps Deps, opts Options) (*Coordinator, error) {
	if deps.Search == nil || deps.Index == nil || deps.Filter == nil || deps.Jobs == nil || deps.Techs == nil {
		return nil, fmt.Errorf("dispatch: nil dependency provided to NewCoordinator")
	}
	if opts.RadiusMeters <= 0 {
		opts.RadiusMeters = DefaultRadiusMeters
	}
	greedy, err := NewGreedyStrategy(deps.Jobs)
	if err != nil {
		return nil, err
	}
	c := &Coordinator{
		search:   deps.Search,
		index:    deps.Index,
		filter:   deps.Filter,
		jobs:     deps.Jobs,
		techs:    deps.Techs,
		registry: deps.Registry,
		bus:      deps.Bus,
		sink:     deps.Sink,
		greedy:   greedy,
		opts:     opts,
		log:      deps.Log,
	}
	if deps.Gateway != nil && deps.Registry != nil {
		neg, err := NewNegotiatedStrategy(deps.Jobs, deps.Gateway, deps.Registry, deps.Bus, opts.OfferTimeout, deps.Log)
		if err != nil {
			return nil, err
		}
		c.negotiated = neg
	}
	return c, nil
}

// DispatchNearest runs the synchronous-assignment flow: greedy nearest-pick,
// no acceptance round-trip.
func (c *Coordinator) DispatchNearest(ctx context.Context, req NewJobRequest) (*Assignment, error) {
	return c.dispatch(ctx, req, c.greedy, StrategyGreedy)
}

// DispatchNegotiated runs the notify-and-wait flow, offering the job to one
// candidate at a time until somebody accepts.
func (c *Coordinator) DispatchNegotiated(ctx context.Context, req NewJobRequest) (*Assignment, error) {
	if c.negotiated == nil {
		return nil, fmt.Errorf("dispatch: no notification gateway configured")
	}
	return c.dispatch(ctx, req, c.negotiated, StrategyNegotiated)
}

func (c *Coordinator) dispatch(ctx context.Context, req NewJobRequest, strategy AssignmentStrategy, name string) (*Assignment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	job := &model.JobRequest{
		ID:               uuid.NewString(),
		Status:           model.StatusPending,
		CustomerID:       req.CustomerID,
		CustomerLocation: req.CustomerLocation,
		ServiceCategory:  req.ServiceCategory,
		PropertyInfo:     req.PropertyInfo,
		SelectedIssues:   req.SelectedIssues,
		Responses:        map[string]model.TechnicianResponse{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	id, err := c.jobs.Create(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("%w: create job request: %v", errs.ErrUnavailable, err)
	}
	job.ID = id
	jobsCreated.Inc()

	eligible, nearby, err := c.findCandidates(ctx, req.CustomerLocation, req.ServiceCategory)
	if err != nil {
		return nil, err
	}
	if len(eligible) == 0 {
		noTechnician.Inc()
		if c.bus != nil {
			c.bus.Publish(events.NoTechnicianEvent{JobID: job.ID, NearbyCount: nearby})
		}
		if c.log != nil {
			c.log.Infof("no eligible technician for job %s (%d nearby)", job.ID, nearby)
		}
		return &Assignment{Job: job, Found: false, NearbyCount: nearby}, nil
	}

	updated, winner, err := strategy.Assign(ctx, job, eligible)
	if err != nil {
		return nil, err
	}
	if winner == nil {
		// The job can be confirmed by a responder outside the ranked list
		// (a stale offer from an earlier attempt, a direct accept). That is
		// still an assignment; only a genuinely unassigned job counts as
		// no-technician.
		if updated != nil && updated.Assigned() {
			winner = &model.Candidate{TechnicianID: updated.TechnicianID}
		} else {
			noTechnician.Inc()
			return &Assignment{Job: updated, Found: false, NearbyCount: nearby}, nil
		}
	}

	// The candidate was valid at selection time; if the account is gone at
	// commit time that is an integrity anomaly, not a retry.
	tech, err := c.techs.Get(ctx, winner.TechnicianID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("%w: technician %s assigned to job %s no longer exists",
				errs.ErrIntegrity, winner.TechnicianID, updated.ID)
		}
		return nil, err
	}

	if c.bus != nil {
		c.bus.Publish(events.AssignmentEvent{
			JobID:          updated.ID,
			TechnicianID:   tech.ID,
			Strategy:       name,
			DistanceMeters: winner.DistanceMeters,
		})
	}
	c.recordAssignment(updated, tech.ID, name, winner.DistanceMeters)
	if c.log != nil {
		c.log.Infof("job %s assigned to technician %s (%s, %.2fm)", updated.ID, tech.ID, name, winner.DistanceMeters)
	}
	return &Assignment{
		Job:            updated,
		Technician:     tech,
		DistanceMeters: winner.DistanceMeters,
		Found:          true,
		NearbyCount:    nearby,
	}, nil
}

// findCandidates runs proximity search and eligibility filtering. The second
// return value is the unfiltered nearby count.
func (c *Coordinator) findCandidates(ctx context.Context, center model.Location, category model.ServiceCategory) ([]model.Candidate, int, error) {
	candidates, err := c.search.FindNearby(ctx, center, c.opts.RadiusMeters)
	if err != nil {
		return nil, 0, err
	}
	nearby := len(candidates)
	if c.opts.RequireActive {
		for i := range candidates {
			tech, err := c.techs.Get(ctx, candidates[i].TechnicianID)
			if err != nil {
				if errors.Is(err, errs.ErrNotFound) {
					continue
				}
				return nil, 0, err
			}
			candidates[i].Technician = tech
		}
	}
	return c.filter.Filter(candidates, category, c.opts.RequireActive), nearby, nil
}

// FindNearby is the side-effect-free search used by the utility endpoint. An
// empty category skips eligibility filtering.
func (c *Coordinator) FindNearby(ctx context.Context, center model.Location, radiusMeters float64, category model.ServiceCategory) ([]model.Candidate, error) {
	if radiusMeters <= 0 {
		radiusMeters = c.opts.RadiusMeters
	}
	candidates, err := c.search.FindNearby(ctx, center, radiusMeters)
	if err != nil {
		return nil, err
	}
	if category == "" {
		return candidates, nil
	}
	if !category.Valid() {
		return nil, errs.Validationf("serviceCategory must be one of %q or %q, got %q",
			model.CategoryHomes, model.CategoryVehicles, category)
	}
	return c.filter.Filter(candidates, category, false), nil
}

// UpdateLocation overwrites the technician's geo index record wholesale.
// Last write wins; no merge with prior state.
func (c *Coordinator) UpdateLocation(ctx context.Context, technicianID string, loc model.Location, category model.ServiceCategory) error {
	if technicianID == "" {
		return errs.Validationf("technicianId is required")
	}
	if err := loc.Validate(); err != nil {
		return errs.Validationf("location: %v", err)
	}
	if !category.Valid() {
		return errs.Validationf("serviceCategory must be one of %q or %q, got %q",
			model.CategoryHomes, model.CategoryVehicles, category)
	}
	rec := model.LocationRecord{
		TechnicianID:    technicianID,
		Geohash:         geo.Encode(loc),
		Location:        loc,
		ServiceCategory: category,
		UpdatedAt:       time.Now().UTC(),
	}
	if err := c.index.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("%w: geo index upsert: %v", errs.ErrUnavailable, err)
	}
	return nil
}

func (c *Coordinator) recordAssignment(job *model.JobRequest, technicianID, strategy string, distance float64) {
	if c.sink == nil {
		return
	}
	rec := coremetrics.AssignmentRecord{
		JobID:           job.ID,
		TechnicianID:    technicianID,
		Strategy:        strategy,
		ServiceCategory: job.ServiceCategory,
		DistanceMeters:  distance,
		AssignedAt:      job.UpdatedAt,
	}
	if err := c.sink.RecordAssignments([]coremetrics.AssignmentRecord{rec}); err != nil && c.log != nil {
		c.log.Errorf("metrics error: %v", err)
	}
}
