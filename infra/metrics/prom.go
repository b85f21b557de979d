package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/fieldserve/dispatch/core/metrics"
)

// PromSink records dispatch outcomes in Prometheus metrics.
type PromSink struct {
	assignments *prometheus.CounterVec
	responses   *prometheus.CounterVec
	distance    prometheus.Histogram
}

// NewPromSink registers dispatch metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (coremetrics.Sink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (coremetrics.Sink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	assignments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assignment_events_total",
		Help: "Total number of finalized assignments",
	}, []string{"strategy", "service_category"})
	responses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "response_events_total",
		Help: "Total number of recorded technician responses",
	}, []string{"response", "late"})
	distance := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "assignment_distance_meters",
		Help:    "Distance between customer and assigned technician",
		Buckets: prometheus.ExponentialBuckets(100, 2, 8),
	})

	if err := reg.Register(assignments); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			assignments = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(responses); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			responses = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(distance); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			distance = are.ExistingCollector.(prometheus.Histogram)
		} else {
			return nil, err
		}
	}

	return &PromSink{assignments: assignments, responses: responses, distance: distance}, nil
}

// RecordAssignments increments the counter for each finalized assignment.
func (s *PromSink) RecordAssignments(recs []coremetrics.AssignmentRecord) error {
	for _, r := range recs {
		s.assignments.WithLabelValues(r.Strategy, string(r.ServiceCategory)).Inc()
		s.distance.Observe(r.DistanceMeters)
	}
	return nil
}

// RecordResponses increments the counter for each recorded response.
func (s *PromSink) RecordResponses(recs []coremetrics.ResponseRecord) error {
	for _, r := range recs {
		s.responses.WithLabelValues(string(r.Kind), strconv.FormatBool(r.Late)).Inc()
	}
	return nil
}
