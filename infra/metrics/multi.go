package metrics

import coremetrics "github.com/evlife/evcore/core/metrics"

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordIngest forwards the event to all sinks, returning the first error
// encountered.
func (m *MultiSink) RecordIngest(ev coremetrics.IngestEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordIngest(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordAssessment forwards assessments to sinks that support them.
func (m *MultiSink) RecordAssessment(ev coremetrics.AssessmentEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.AssessmentRecorder); ok {
			if err := rec.RecordAssessment(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordBooking forwards booking events to sinks that support them.
func (m *MultiSink) RecordBooking(ev coremetrics.BookingEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.BookingRecorder); ok {
			if err := rec.RecordBooking(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordNearbyQuery forwards query events to sinks that support them.
func (m *MultiSink) RecordNearbyQuery(ev coremetrics.NearbyQueryEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.NearbyQueryRecorder); ok {
			if err := rec.RecordNearbyQuery(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
