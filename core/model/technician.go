package model

import "time"

// TechnicianStatus is the moderation state of a technician account.
type TechnicianStatus string

const (
	TechnicianApproved TechnicianStatus = "approved"
	TechnicianPending  TechnicianStatus = "pending"
	TechnicianRejected TechnicianStatus = "rejected"
)

// Technician is the service-provider account as stored by the platform.
type Technician struct {
	ID              string           `json:"id" bson:"_id"`
	Name            string           `json:"name" bson:"name"`
	Phone           string           `json:"phone,omitempty" bson:"phone,omitempty"`
	ServiceCategory ServiceCategory  `json:"serviceCategory" bson:"serviceCategory"`
	Status          TechnicianStatus `json:"status" bson:"status"`
	IsActive        bool             `json:"isActive" bson:"isActive"`
}

// Eligible reports whether the technician may be offered work in the given
// category. When requireActive is set, only approved and active technicians
// qualify.
func (t Technician) Eligible(category ServiceCategory, requireActive bool) bool {
	if t.ServiceCategory != category {
		return false
	}
	if requireActive && (t.Status != TechnicianApproved || !t.IsActive) {
		return false
	}
	return true
}

// LocationRecord is a technician's current position in the geo index. Each
// write replaces the previous record wholesale; there is no history.
type LocationRecord struct {
	TechnicianID    string          `json:"technicianId"`
	Geohash         string          `json:"geohash"`
	Location        Location        `json:"location"`
	ServiceCategory ServiceCategory `json:"serviceCategory"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Candidate is a technician returned by proximity search, annotated with the
// exact great-circle distance to the search center. Candidates are computed
// fresh per search and never persisted.
type Candidate struct {
	TechnicianID    string          `json:"technicianId"`
	Location        Location        `json:"location"`
	ServiceCategory ServiceCategory `json:"serviceCategory"`
	DistanceMeters  float64         `json:"distanceMeters"`

	// Snapshot of the technician account, filled in when the caller needs
	// status-based eligibility checks. Nil for raw proximity queries.
	Technician *Technician `json:"technician,omitempty"`
}

// EligibleFor reports whether the candidate survives eligibility filtering.
func (c Candidate) EligibleFor(category ServiceCategory, requireActive bool) bool {
	if c.ServiceCategory != category {
		return false
	}
	if requireActive {
		if c.Technician == nil {
			return false
		}
		return c.Technician.Eligible(category, true)
	}
	return true
}
