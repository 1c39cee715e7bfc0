package metrics

import (
	"time"

	"github.com/evlife/evcore/core/model"
)

// IngestEvent records a stored telemetry sample.
type IngestEvent struct {
	Sample model.TelemetrySample
	Time   time.Time
}

// MetricsSink records ingestion events for observability purposes. Sinks may
// additionally implement the optional recorder interfaces below.
type MetricsSink interface {
	RecordIngest(ev IngestEvent) error
}

// AssessmentEvent records a computed health assessment.
type AssessmentEvent struct {
	Assessment model.HealthAssessment
	Time       time.Time
}

// AssessmentRecorder records health assessments.
type AssessmentRecorder interface {
	RecordAssessment(ev AssessmentEvent) error
}

// Booking outcomes.
const (
	BookingAccepted = "accepted"
	BookingRejected = "rejected"
)

// BookingEvent records a booking attempt and its outcome.
type BookingEvent struct {
	Session model.ChargingSession
	Outcome string
	Reason  string // error kind on rejection, empty on acceptance
	Time    time.Time
}

// BookingRecorder records booking attempts.
type BookingRecorder interface {
	RecordBooking(ev BookingEvent) error
}

// NearbyQueryEvent records a proximity query.
type NearbyQueryEvent struct {
	Kind     string // "station" or "service_center"
	RadiusKm float64
	Matches  int
	Time     time.Time
}

// NearbyQueryRecorder records proximity queries.
type NearbyQueryRecorder interface {
	RecordNearbyQuery(ev NearbyQueryEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordIngest(IngestEvent) error           { return nil }
func (NopSink) RecordAssessment(AssessmentEvent) error   { return nil }
func (NopSink) RecordBooking(BookingEvent) error         { return nil }
func (NopSink) RecordNearbyQuery(NearbyQueryEvent) error { return nil }
