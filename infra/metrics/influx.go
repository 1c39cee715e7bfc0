package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/evlife/evcore/core/metrics"
	"github.com/evlife/evcore/infra/logger"
)

// InfluxSink writes core events to an InfluxDB instance using the official
// client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and returns
// a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg coremetrics.Config) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordIngest writes the sample as a telemetry point.
func (s *InfluxSink) RecordIngest(ev coremetrics.IngestEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	smp := ev.Sample
	p := write.NewPointWithMeasurement("battery_telemetry").
		AddTag("vehicle_id", smp.VehicleID).
		AddField("soc", smp.SoC).
		AddField("soh", smp.SoH).
		AddField("voltage", smp.Voltage).
		AddField("temperature", smp.Temperature).
		SetTime(smp.RecordedAt)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordAssessment writes the computed assessment.
func (s *InfluxSink) RecordAssessment(ev coremetrics.AssessmentEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a := ev.Assessment
	p := write.NewPointWithMeasurement("health_assessment").
		AddTag("vehicle_id", a.VehicleID).
		AddField("score", a.HealthScore).
		AddField("degradation_rate", a.DegradationRate).
		AddField("samples", a.SampleCount).
		SetTime(ev.Time)
	if a.LifespanYears != nil {
		p.AddField("lifespan_years", *a.LifespanYears)
	}
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordBooking writes the booking attempt.
func (s *InfluxSink) RecordBooking(ev coremetrics.BookingEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("charging_booking").
		AddTag("station_id", ev.Session.StationID).
		AddTag("outcome", ev.Outcome).
		AddField("target_soc", ev.Session.TargetSoC).
		SetTime(ev.Time)
	if ev.Reason != "" {
		p.AddTag("reason", ev.Reason)
	}
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }
