// Package notify abstracts push delivery of job offers and the observation of
// technician responses. Delivery failure is a non-fatal signal distinct from a
// technician's explicit rejection.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/fieldserve/dispatch/core/model"
)

// ErrUndeliverable is returned when a technician has no reachable push
// endpoint. Callers skip the technician rather than failing the dispatch.
var ErrUndeliverable = errors.New("push undeliverable")

// Offer is the payload delivered to a technician for a pending job.
type Offer struct {
	JobID           string                `json:"jobId"`
	ServiceCategory model.ServiceCategory `json:"serviceCategory"`
	CustomerLocn    model.Location        `json:"customerLocation"`
	DistanceMeters  float64               `json:"distanceMeters"`
	SelectedIssues  []string              `json:"selectedIssues,omitempty"`
	SentAt          time.Time             `json:"sentAt"`
}

// Gateway delivers job offers to technicians.
type Gateway interface {
	// SendOffer pushes the offer to one technician. ErrUndeliverable means
	// no registered endpoint; other errors mean the gateway itself failed.
	SendOffer(ctx context.Context, technicianID string, offer Offer) error
}

// Response is a technician's answer observed by the process-local registry.
type Response struct {
	JobID        string
	TechnicianID string
	Kind         model.ResponseKind
}
