package metrics

import (
	"errors"

	coremetrics "github.com/fieldserve/dispatch/core/metrics"
)

// MultiSink fans records out to several sinks, collecting every error.
type MultiSink struct {
	sinks []coremetrics.Sink
}

// NewMultiSink creates a sink writing to all the given sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) RecordAssignments(recs []coremetrics.AssignmentRecord) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.RecordAssignments(recs); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordResponses(recs []coremetrics.ResponseRecord) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.RecordResponses(recs); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
