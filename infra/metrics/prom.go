package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/evlife/evcore/core/metrics"
)

// PromSink records core events in Prometheus metrics.
type PromSink struct {
	samples     *prometheus.CounterVec
	healthScore *prometheus.GaugeVec
	bookings    *prometheus.CounterVec
	nearby      prometheus.Histogram
}

// NewPromSink registers metrics on the default Prometheus registerer. The
// Prometheus server should be started separately using cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (*PromSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	samples := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_samples_total",
		Help: "Total number of telemetry samples ingested",
	}, []string{"vehicle_id"})
	healthScore := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "battery_health_score",
		Help: "Latest computed battery health score per vehicle",
	}, []string{"vehicle_id"})
	bookings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "charging_bookings_total",
		Help: "Total charging session booking attempts",
	}, []string{"station_id", "outcome"})
	nearby := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "nearby_query_matches",
		Help:    "Number of entities returned per proximity query",
		Buckets: prometheus.ExponentialBuckets(1, 2, 8),
	})

	for _, c := range []prometheus.Collector{samples, healthScore, bookings, nearby} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, err
			}
		}
	}
	return &PromSink{samples: samples, healthScore: healthScore, bookings: bookings, nearby: nearby}, nil
}

// RecordIngest increments the sample counter.
func (s *PromSink) RecordIngest(ev coremetrics.IngestEvent) error {
	s.samples.WithLabelValues(ev.Sample.VehicleID).Inc()
	return nil
}

// RecordAssessment sets the per-vehicle health score gauge.
func (s *PromSink) RecordAssessment(ev coremetrics.AssessmentEvent) error {
	s.healthScore.WithLabelValues(ev.Assessment.VehicleID).Set(ev.Assessment.HealthScore)
	return nil
}

// RecordBooking increments the booking counter.
func (s *PromSink) RecordBooking(ev coremetrics.BookingEvent) error {
	s.bookings.WithLabelValues(ev.Session.StationID, ev.Outcome).Inc()
	return nil
}

// RecordNearbyQuery observes the query result size.
func (s *PromSink) RecordNearbyQuery(ev coremetrics.NearbyQueryEvent) error {
	s.nearby.Observe(float64(ev.Matches))
	return nil
}
