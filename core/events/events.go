// Package events defines the bus events published during dispatch.
package events

import (
	"time"

	"github.com/fieldserve/dispatch/core/model"
)

// OfferEvent is published for each job offer delivered to a technician.
type OfferEvent struct {
	JobID          string
	TechnicianID   string
	DistanceMeters float64
	Undeliverable  bool
}

// ResponseEvent is published for each recorded technician response. Late is
// set when the job was already confirmed and the response was kept for audit
// only.
type ResponseEvent struct {
	JobID        string
	TechnicianID string
	Kind         model.ResponseKind
	Late         bool
	At           time.Time
}

// AssignmentEvent is published once per job when a technician is finalized.
type AssignmentEvent struct {
	JobID          string
	TechnicianID   string
	Strategy       string
	DistanceMeters float64
}

// NoTechnicianEvent is published when a dispatch attempt finds no eligible
// technician. NearbyCount carries the unfiltered candidate count for
// observability.
type NoTechnicianEvent struct {
	JobID       string
	NearbyCount int
}
