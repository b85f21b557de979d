// Package metrics defines the sink interface dispatch results are recorded
// to. Implementations live under infra/metrics.
package metrics

import (
	"time"

	"github.com/fieldserve/dispatch/core/model"
)

// AssignmentRecord captures one finalized assignment.
type AssignmentRecord struct {
	JobID           string
	TechnicianID    string
	Strategy        string
	ServiceCategory model.ServiceCategory
	DistanceMeters  float64
	AssignedAt      time.Time
}

// ResponseRecord captures one recorded technician response. Late marks a
// response that arrived after the job was already confirmed.
type ResponseRecord struct {
	JobID        string
	TechnicianID string
	Kind         model.ResponseKind
	Late         bool
	At           time.Time
}

// Sink records dispatch outcomes. Implementations must be safe for
// concurrent use.
type Sink interface {
	RecordAssignments(recs []AssignmentRecord) error
	RecordResponses(recs []ResponseRecord) error
}

// NopSink discards every record. Used when no sink is configured or an
// external sink is unreachable.
type NopSink struct{}

func (NopSink) RecordAssignments([]AssignmentRecord) error { return nil }
func (NopSink) RecordResponses([]ResponseRecord) error     { return nil }

// Config selects which sinks are enabled.
type Config struct {
	PrometheusEnabled bool   `json:"prometheus_enabled"`
	PrometheusPort    string `json:"prometheus_port"`

	InfluxEnabled bool   `json:"influx_enabled"`
	InfluxURL     string `json:"influx_url"`
	InfluxToken   string `json:"influx_token"`
	InfluxOrg     string `json:"influx_org"`
	InfluxBucket  string `json:"influx_bucket"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.PrometheusPort == "" {
		c.PrometheusPort = ":9090"
	}
	if c.InfluxBucket == "" {
		c.InfluxBucket = "dispatch"
	}
}
