package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	jobsCreated       prometheus.Counter
	assignmentsTotal  *prometheus.CounterVec
	noTechnician      prometheus.Counter
	offersSent        prometheus.Counter
	offersUndelivered prometheus.Counter
	offerTimeouts     prometheus.Counter
	responsesRecorded *prometheus.CounterVec
	offerWaitSeconds  prometheus.Histogram
)

// newCollectors creates new metric collectors.
func newCollectors() (prometheus.Counter, *prometheus.CounterVec, prometheus.Counter, prometheus.Counter, prometheus.Counter, prometheus.Counter, *prometheus.CounterVec, prometheus.Histogram) {
	created := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "job_requests_created_total",
		Help: "Number of job requests persisted by dispatch",
	})
	assigned := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_assignments_total",
		Help: "Number of finalized technician assignments",
	}, []string{"strategy"})
	none := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_no_technician_total",
		Help: "Number of dispatch attempts that found no eligible technician",
	})
	sent := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "job_offers_sent_total",
		Help: "Number of job offers pushed to technicians",
	})
	undelivered := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "job_offers_undeliverable_total",
		Help: "Number of job offers that could not be delivered",
	})
	timeouts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "job_offer_timeouts_total",
		Help: "Number of job offers that expired without a response",
	})
	responses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "technician_responses_total",
		Help: "Number of recorded technician responses",
	}, []string{"response"})
	wait := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "job_offer_wait_seconds",
		Help:    "Time between offer delivery and technician response",
		Buckets: prometheus.DefBuckets,
	})
	return created, assigned, none, sent, undelivered, timeouts, responses, wait
}

func init() {
	jobsCreated, assignmentsTotal, noTechnician, offersSent, offersUndelivered, offerTimeouts, responsesRecorded, offerWaitSeconds = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(jobsCreated, assignmentsTotal, noTechnician, offersSent, offersUndelivered, offerTimeouts, responsesRecorded, offerWaitSeconds)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	jobsCreated, assignmentsTotal, noTechnician, offersSent, offersUndelivered, offerTimeouts, responsesRecorded, offerWaitSeconds = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
