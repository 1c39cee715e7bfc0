package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	coremetrics "github.com/evlife/evcore/core/metrics"
	"github.com/evlife/evcore/core/model"
)

func TestPromSinkRecordsIngest(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	if err != nil {
		t.Fatalf("sink: %v", err)
	}
	ev := coremetrics.IngestEvent{Sample: model.TelemetrySample{VehicleID: "v1", SoC: 50}, Time: time.Now()}
	if err := sink.RecordIngest(ev); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := sink.RecordIngest(ev); err != nil {
		t.Fatalf("record: %v", err)
	}
	got := testutil.ToFloat64(sink.samples.WithLabelValues("v1"))
	if got != 2 {
		t.Fatalf("expected 2 samples recorded, got %v", got)
	}
}

func TestPromSinkRecordsBookingOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	if err != nil {
		t.Fatalf("sink: %v", err)
	}
	sess := model.ChargingSession{StationID: "st1"}
	if err := sink.RecordBooking(coremetrics.BookingEvent{Session: sess, Outcome: coremetrics.BookingAccepted}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := sink.RecordBooking(coremetrics.BookingEvent{Session: sess, Outcome: coremetrics.BookingRejected, Reason: "capacity"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if got := testutil.ToFloat64(sink.bookings.WithLabelValues("st1", coremetrics.BookingAccepted)); got != 1 {
		t.Fatalf("accepted counter: %v", got)
	}
	if got := testutil.ToFloat64(sink.bookings.WithLabelValues("st1", coremetrics.BookingRejected)); got != 1 {
		t.Fatalf("rejected counter: %v", got)
	}
}

func TestPromSinkAssessmentGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	if err != nil {
		t.Fatalf("sink: %v", err)
	}
	a := model.HealthAssessment{VehicleID: "v1", HealthScore: 87.5}
	if err := sink.RecordAssessment(coremetrics.AssessmentEvent{Assessment: a, Time: time.Now()}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if got := testutil.ToFloat64(sink.healthScore.WithLabelValues("v1")); got != 87.5 {
		t.Fatalf("gauge: %v", got)
	}
}

func TestPromSinkDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg); err != nil {
		t.Fatalf("second registration must reuse collectors: %v", err)
	}
}
