package model

import (
	"fmt"
	"math"
	"time"
)

// JobStatus tracks a job request through its lifecycle.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusConfirmed  JobStatus = "confirmed"
	StatusInProgress JobStatus = "in_progress"
	StatusCompleted  JobStatus = "completed"
	StatusCancelled  JobStatus = "cancelled"
)

// ServiceCategory distinguishes the two service verticals.
type ServiceCategory string

const (
	CategoryHomes    ServiceCategory = "homes"
	CategoryVehicles ServiceCategory = "vehicles"
)

// Valid reports whether the category is one of the known verticals.
func (c ServiceCategory) Valid() bool {
	return c == CategoryHomes || c == CategoryVehicles
}

// ResponseKind is a technician's answer to a job offer.
type ResponseKind string

const (
	ResponseAccepted ResponseKind = "accepted"
	ResponseRejected ResponseKind = "rejected"
)

// Valid reports whether the response kind is accepted or rejected.
func (r ResponseKind) Valid() bool {
	return r == ResponseAccepted || r == ResponseRejected
}

// Location is a WGS84 point.
type Location struct {
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
}

// Validate checks that both coordinates are finite and within geographic range.
func (l Location) Validate() error {
	if math.IsNaN(l.Latitude) || math.IsInf(l.Latitude, 0) ||
		math.IsNaN(l.Longitude) || math.IsInf(l.Longitude, 0) {
		return fmt.Errorf("coordinates must be finite numbers")
	}
	if l.Latitude < -90 || l.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range", l.Latitude)
	}
	if l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range", l.Longitude)
	}
	return nil
}

// TechnicianResponse records a single technician's answer to a job offer.
// Entries are append-only; the timestamp comes from the responder's payload
// and is advisory only. Assignment order is decided by commit order, never by
// this timestamp.
type TechnicianResponse struct {
	Response  ResponseKind `json:"response" bson:"response"`
	Timestamp time.Time    `json:"timestamp" bson:"timestamp"`
}

// JobRequest is the durable record of a customer's service request.
//
// TechnicianID is written at most once, by the finalize transaction. That is
// the core correctness property of the whole dispatch flow.
type JobRequest struct {
	ID               string                        `json:"id" bson:"_id"`
	Status           JobStatus                     `json:"status" bson:"status"`
	CustomerID       string                        `json:"customerId" bson:"customerId"`
	CustomerLocation Location                      `json:"customerLocation" bson:"customerLocation"`
	ServiceCategory  ServiceCategory               `json:"serviceCategory" bson:"serviceCategory"`
	PropertyInfo     map[string]any                `json:"propertyInfo" bson:"propertyInfo"`
	SelectedIssues   []string                      `json:"selectedIssues" bson:"selectedIssues"`
	TechnicianID     string                        `json:"technicianId,omitempty" bson:"technicianId,omitempty"`
	Responses        map[string]TechnicianResponse `json:"technicianResponses" bson:"technicianResponses"`
	CreatedAt        time.Time                     `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time                     `json:"updatedAt" bson:"updatedAt"`

	// Version supports optimistic concurrency in document stores.
	Version int64 `json:"-" bson:"version"`
}

// Assigned reports whether a technician has been finalized for this job.
func (j *JobRequest) Assigned() bool {
	return j.Status == StatusConfirmed && j.TechnicianID != ""
}

// RespondedBy reports whether the given technician already has a recorded response.
func (j *JobRequest) RespondedBy(technicianID string) bool {
	_, ok := j.Responses[technicianID]
	return ok
}

// Clone returns a deep copy, so stores can hand out documents without aliasing.
func (j *JobRequest) Clone() *JobRequest {
	cp := *j
	if j.PropertyInfo != nil {
		cp.PropertyInfo = make(map[string]any, len(j.PropertyInfo))
		for k, v := range j.PropertyInfo {
			cp.PropertyInfo[k] = v
		}
	}
	if j.SelectedIssues != nil {
		cp.SelectedIssues = append([]string(nil), j.SelectedIssues...)
	}
	if j.Responses != nil {
		cp.Responses = make(map[string]TechnicianResponse, len(j.Responses))
		for k, v := range j.Responses {
			cp.Responses[k] = v
		}
	}
	return &cp
}
