package coordinator

import (
	"errors"
	"fmt"
	"slices"
	"time"

	coremetrics "github.com/evlife/evcore/core/metrics"

	"github.com/evlife/evcore/core/geo"
	"github.com/evlife/evcore/core/health"
	"github.com/evlife/evcore/core/logger"
	"github.com/evlife/evcore/core/model"
	"github.com/evlife/evcore/core/registry"
	"github.com/evlife/evcore/core/schedule"
	"github.com/evlife/evcore/core/telemetry"
	"github.com/evlife/evcore/internal/eventbus"
)

// Nearby kinds accepted by FindNearby.
const (
	KindStation       = "station"
	KindServiceCenter = "service_center"
)

// ErrUnknownKind reports a FindNearby kind outside the accepted set.
var ErrUnknownKind = errors.New("unknown nearby kind")

// DefaultAssessmentWindow is the trailing span used when the caller does not
// request one.
const DefaultAssessmentWindow = 30 * 24 * time.Hour

// Deps collects the collaborators the coordinator composes. Vehicles,
// Catalog, Samples, Scorer and Schedule are required; Bus, Sink and Log
// default to no-ops.
type Deps struct {
	Vehicles registry.VehicleRegistry
	Catalog  registry.Catalog
	Samples  telemetry.Store
	Scorer   *health.Scorer
	Schedule *schedule.Manager
	Bus      eventbus.EventBus
	Sink     coremetrics.MetricsSink
	Log      logger.Logger
}

// Coordinator is the facade over ingestion, health scoring, proximity search
// and session scheduling. It owns no domain logic of its own: it sequences
// subsystem calls, publishes events and records metrics. Domain errors pass
// through to the caller unchanged.
type Coordinator struct {
	deps     Deps
	stations *geo.Index
	centers  *geo.Index
}

// New builds a coordinator and seeds the proximity indexes from the catalog.
func New(d Deps) (*Coordinator, error) {
	if d.Vehicles == nil || d.Catalog == nil || d.Samples == nil || d.Scorer == nil || d.Schedule == nil {
		return nil, fmt.Errorf("coordinator: missing required collaborator")
	}
	if d.Sink == nil {
		d.Sink = coremetrics.NopSink{}
	}
	if d.Log == nil {
		d.Log = logger.NopLogger{}
	}
	c := &Coordinator{
		deps:     d,
		stations: geo.NewIndex(),
		centers:  geo.NewIndex(),
	}
	for _, s := range d.Catalog.Stations() {
		c.stations.Insert(geo.Entry{ID: s.ID, Point: geo.Point{Lat: s.Latitude, Lon: s.Longitude}, Value: s})
	}
	for _, sc := range d.Catalog.ServiceCenters() {
		c.centers.Insert(geo.Entry{ID: sc.ID, Point: geo.Point{Lat: sc.Latitude, Lon: sc.Longitude}, Value: sc})
	}
	return c, nil
}

// RefreshStation re-indexes a single station after a catalog change.
func (c *Coordinator) RefreshStation(id string) error {
	s, err := c.deps.Catalog.Station(id)
	if err != nil {
		return err
	}
	c.stations.Update(geo.Entry{ID: s.ID, Point: geo.Point{Lat: s.Latitude, Lon: s.Longitude}, Value: s})
	return nil
}

// IngestTelemetry stores a battery reading and publishes the ingestion event.
func (c *Coordinator) IngestTelemetry(s model.TelemetrySample) (model.TelemetrySample, error) {
	stored, err := c.deps.Samples.Append(s.VehicleID, s)
	if err != nil {
		c.deps.Log.Warnf("telemetry rejected for vehicle %q: %v", s.VehicleID, err)
		return model.TelemetrySample{}, err
	}
	ev := coremetrics.IngestEvent{Sample: stored, Time: stored.IngestedAt}
	if err := c.deps.Sink.RecordIngest(ev); err != nil {
		c.deps.Log.Errorf("ingest metric: %v", err)
	}
	c.publish(eventbus.SampleIngested{Sample: stored, Time: stored.IngestedAt})
	return stored, nil
}

// GetHealthAssessment recomputes the vehicle's assessment over the trailing
// span. A non-positive span selects DefaultAssessmentWindow. The result is a
// pure function of the stored window: callers may cache it until the next
// ingestion for the vehicle.
func (c *Coordinator) GetHealthAssessment(vehicleID string, span time.Duration) (model.HealthAssessment, error) {
	if _, err := c.deps.Vehicles.Vehicle(vehicleID); err != nil {
		return model.HealthAssessment{}, err
	}
	if span <= 0 {
		span = DefaultAssessmentWindow
	}
	window := slices.Collect(c.deps.Samples.Window(vehicleID, span))
	assessment, err := c.deps.Scorer.Assess(window)
	if err != nil {
		return model.HealthAssessment{}, err
	}
	if rec, ok := c.deps.Sink.(coremetrics.AssessmentRecorder); ok {
		if err := rec.RecordAssessment(coremetrics.AssessmentEvent{Assessment: assessment, Time: assessment.ComputedAt}); err != nil {
			c.deps.Log.Errorf("assessment metric: %v", err)
		}
	}
	c.publish(eventbus.AssessmentComputed{Assessment: assessment, Time: assessment.ComputedAt})
	return assessment, nil
}

// LatestStatus returns the vehicle's most recent battery reading.
func (c *Coordinator) LatestStatus(vehicleID string) (model.TelemetrySample, error) {
	if _, err := c.deps.Vehicles.Vehicle(vehicleID); err != nil {
		return model.TelemetrySample{}, err
	}
	latest, ok := c.deps.Samples.Latest(vehicleID)
	if !ok {
		return model.TelemetrySample{}, model.InsufficientDataError{VehicleID: vehicleID, Samples: 0}
	}
	return latest, nil
}

// FindNearby returns catalog entries of the given kind within radiusKm of p,
// ascending by distance. Offline stations are filtered out at query time;
// service centers carry no status and are never filtered.
func (c *Coordinator) FindNearby(kind string, p geo.Point, radiusKm float64) ([]geo.Match, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if radiusKm < 0 {
		return nil, model.InvalidTargetError{Field: "radius_km", Value: radiusKm, Limit: 0}
	}

	var matches []geo.Match
	switch kind {
	case KindStation:
		matches = c.stations.Query(p, radiusKm, func(e geo.Entry) bool {
			st, ok := e.Value.(model.ChargingStation)
			return ok && st.Status != model.StationOffline
		})
	case KindServiceCenter:
		matches = c.centers.Query(p, radiusKm, nil)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, kind)
	}

	if rec, ok := c.deps.Sink.(coremetrics.NearbyQueryRecorder); ok {
		ev := coremetrics.NearbyQueryEvent{Kind: kind, RadiusKm: radiusKm, Matches: len(matches), Time: time.Now().UTC()}
		if err := rec.RecordNearbyQuery(ev); err != nil {
			c.deps.Log.Errorf("nearby metric: %v", err)
		}
	}
	return matches, nil
}

// BookSession reserves charging capacity and publishes the booking outcome.
func (c *Coordinator) BookSession(vehicleID, stationID string, start time.Time, targetSoC float64) (model.ChargingSession, error) {
	sess, err := c.deps.Schedule.Book(vehicleID, stationID, start, targetSoC)
	now := time.Now().UTC()
	if err != nil {
		c.recordBooking(coremetrics.BookingEvent{
			Session: model.ChargingSession{VehicleID: vehicleID, StationID: stationID, StartTime: start, TargetSoC: targetSoC},
			Outcome: coremetrics.BookingRejected,
			Reason:  rejectionReason(err),
			Time:    now,
		})
		return model.ChargingSession{}, err
	}
	c.recordBooking(coremetrics.BookingEvent{Session: sess, Outcome: coremetrics.BookingAccepted, Time: now})
	c.publish(eventbus.SessionBooked{Session: sess, Time: now})
	return sess, nil
}

// CancelSession cancels a scheduled session, freeing its capacity.
func (c *Coordinator) CancelSession(sessionID string) (model.ChargingSession, error) {
	sess, err := c.deps.Schedule.Cancel(sessionID)
	if err != nil {
		return model.ChargingSession{}, err
	}
	c.publish(eventbus.SessionCancelled{Session: sess, Time: time.Now().UTC()})
	return sess, nil
}

// ActivateSession marks a scheduled session as charging.
func (c *Coordinator) ActivateSession(sessionID string) (model.ChargingSession, error) {
	return c.deps.Schedule.Activate(sessionID)
}

// CompleteSession marks an active session as finished.
func (c *Coordinator) CompleteSession(sessionID string) (model.ChargingSession, error) {
	return c.deps.Schedule.Complete(sessionID)
}

// VehicleSessions lists the vehicle's sessions, newest start first.
func (c *Coordinator) VehicleSessions(vehicleID string) ([]model.ChargingSession, error) {
	if _, err := c.deps.Vehicles.Vehicle(vehicleID); err != nil {
		return nil, err
	}
	return c.deps.Schedule.SessionsForVehicle(vehicleID), nil
}

func (c *Coordinator) publish(e eventbus.Event) {
	if c.deps.Bus != nil {
		c.deps.Bus.Publish(e)
	}
}

func (c *Coordinator) recordBooking(ev coremetrics.BookingEvent) {
	if rec, ok := c.deps.Sink.(coremetrics.BookingRecorder); ok {
		if err := rec.RecordBooking(ev); err != nil {
			c.deps.Log.Errorf("booking metric: %v", err)
		}
	}
}

func rejectionReason(err error) string {
	var (
		uv model.UnknownVehicleError
		us model.UnknownStationError
		it model.InvalidTargetError
		id model.InsufficientDataError
		ce model.CapacityExceededError
	)
	switch {
	case errors.As(err, &uv):
		return "unknown_vehicle"
	case errors.As(err, &us):
		return "unknown_station"
	case errors.As(err, &it):
		return "invalid_target"
	case errors.As(err, &id):
		return "insufficient_data"
	case errors.As(err, &ce):
		return "capacity_exceeded"
	default:
		return "internal"
	}
}
