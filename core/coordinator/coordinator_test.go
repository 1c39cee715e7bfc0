package coordinator

import (
	"errors"
	"reflect"
	"sync"
	"testing"
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

type captureSink struct {
	mu          sync.Mutex
	ingests     []coremetrics.IngestEvent
	assessments []coremetrics.AssessmentEvent
	bookings    []coremetrics.BookingEvent
	nearby      []coremetrics.NearbyQueryEvent
}

func (c *captureSink) RecordIngest(ev coremetrics.IngestEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ingests = append(c.ingests, ev)
	return nil
}

func (c *captureSink) RecordAssessment(ev coremetrics.AssessmentEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.assessments = append(c.assessments, ev)
	return nil
}

func (c *captureSink) RecordBooking(ev coremetrics.BookingEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bookings = append(c.bookings, ev)
	return nil
}

func (c *captureSink) RecordNearbyQuery(ev coremetrics.NearbyQueryEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nearby = append(c.nearby, ev)
	return nil
}

func (c *captureSink) lastBooking(t *testing.T) coremetrics.BookingEvent {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.bookings) == 0 {
		t.Fatalf("no booking event recorded")
	}
	return c.bookings[len(c.bookings)-1]
}

type fixture struct {
	coord     *Coordinator
	vehicleID string
	sink      *captureSink
	events    <-chan eventbus.Event
	store     *telemetry.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	vehicles := registry.NewMemoryRegistry()
	v, err := vehicles.Register(model.Vehicle{
		OwnerID:    "owner-1",
		VIN:        "1HGCM82633A004352",
		BatteryKWh: 75,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	catalog := registry.NewMemoryCatalog()
	stations := []model.ChargingStation{
		{ID: "st-paris", Name: "Paris Rivoli", Latitude: 48.8566, Longitude: 2.3522,
			PowerKW: 150, Connector: model.ConnectorCCS, Capacity: 1, Status: model.StationAvailable},
		{ID: "st-dark", Name: "Paris Bastille", Latitude: 48.8530, Longitude: 2.3690,
			PowerKW: 50, Connector: model.ConnectorType2, Capacity: 2, Status: model.StationOffline},
		{ID: "st-lyon", Name: "Lyon Part-Dieu", Latitude: 45.7640, Longitude: 4.8357,
			PowerKW: 150, Connector: model.ConnectorCCS, Capacity: 4, Status: model.StationAvailable},
	}
	for _, s := range stations {
		if err := catalog.PutStation(s); err != nil {
			t.Fatalf("put station: %v", err)
		}
	}
	catalog.PutServiceCenter(model.ServiceCenter{
		ID: "svc-paris", Name: "Paris Nord", Latitude: 48.8800, Longitude: 2.3550,
		Specialties: []string{"battery"},
	})

	store := telemetry.NewMemoryStore(vehicles)
	scorer, err := health.NewScorer(health.Config{})
	if err != nil {
		t.Fatalf("scorer: %v", err)
	}
	sched, err := schedule.NewManager(vehicles, catalog, store, schedule.Config{}, logger.NopLogger{}, nil)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	bus := eventbus.New()
	t.Cleanup(bus.Close)
	events := bus.Subscribe()

	sink := &captureSink{}
	coord, err := New(Deps{
		Vehicles: vehicles,
		Catalog:  catalog,
		Samples:  store,
		Scorer:   scorer,
		Schedule: sched,
		Bus:      bus,
		Sink:     sink,
		Log:      logger.NopLogger{},
	})
	if err != nil {
		t.Fatalf("coordinator: %v", err)
	}
	return &fixture{coord: coord, vehicleID: v.ID, sink: sink, events: events, store: store}
}

func waitEvent(t *testing.T, ch <-chan eventbus.Event) eventbus.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatalf("no event published")
		return nil
	}
}

func (f *fixture) sample(recorded time.Time, soc, soh float64) model.TelemetrySample {
	return model.TelemetrySample{
		VehicleID:   f.vehicleID,
		SoC:         soc,
		SoH:         soh,
		Voltage:     398.2,
		Temperature: 24,
		RecordedAt:  recorded,
	}
}

func TestIngestTelemetry(t *testing.T) {
	f := newFixture(t)
	recorded := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	stored, err := f.coord.IngestTelemetry(f.sample(recorded, 40, 96))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if stored.IngestedAt.IsZero() {
		t.Fatalf("ingestion timestamp not set")
	}
	ev, ok := waitEvent(t, f.events).(eventbus.SampleIngested)
	if !ok {
		t.Fatalf("expected SampleIngested event")
	}
	if !ev.Sample.RecordedAt.Equal(recorded) {
		t.Fatalf("event carries wrong sample: %v", ev.Sample.RecordedAt)
	}
	if len(f.sink.ingests) != 1 {
		t.Fatalf("expected 1 ingest metric, got %d", len(f.sink.ingests))
	}

	// Duplicate key is rejected without an event or a metric.
	_, err = f.coord.IngestTelemetry(f.sample(recorded, 41, 96))
	var dup model.DuplicateSampleError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateSampleError, got %v", err)
	}
	if len(f.sink.ingests) != 1 {
		t.Fatalf("rejected ingest must not record a metric")
	}
}

func TestGetHealthAssessment(t *testing.T) {
	f := newFixture(t)

	if _, err := f.coord.GetHealthAssessment("ghost", 0); err == nil {
		t.Fatalf("expected unknown vehicle error")
	}

	if _, err := f.coord.GetHealthAssessment(f.vehicleID, 0); err == nil {
		t.Fatalf("expected insufficient data for empty window")
	} else {
		var insufficient model.InsufficientDataError
		if !errors.As(err, &insufficient) {
			t.Fatalf("expected InsufficientDataError, got %v", err)
		}
	}

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		s := f.sample(base.Add(time.Duration(i)*24*time.Hour), 50, 96-float64(i)*0.1)
		if _, err := f.coord.IngestTelemetry(s); err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
		waitEvent(t, f.events)
	}

	a, err := f.coord.GetHealthAssessment(f.vehicleID, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	if a.VehicleID != f.vehicleID || a.SampleCount != 6 {
		t.Fatalf("unexpected assessment: %+v", a)
	}
	if a.DegradationRate <= 0 {
		t.Fatalf("declining SoH must yield positive degradation, got %v", a.DegradationRate)
	}
	if _, ok := waitEvent(t, f.events).(eventbus.AssessmentComputed); !ok {
		t.Fatalf("expected AssessmentComputed event")
	}
	if len(f.sink.assessments) != 1 {
		t.Fatalf("expected 1 assessment metric, got %d", len(f.sink.assessments))
	}

	// Unchanged window, bit-identical result.
	again, err := f.coord.GetHealthAssessment(f.vehicleID, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("assess again: %v", err)
	}
	if !reflect.DeepEqual(a, again) {
		t.Fatalf("assessment is not pure:\n%+v\n%+v", a, again)
	}
}

func TestLatestStatus(t *testing.T) {
	f := newFixture(t)

	if _, err := f.coord.LatestStatus(f.vehicleID); err == nil {
		t.Fatalf("expected insufficient data with no samples")
	}

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, soc := range []float64{30, 55, 70} {
		if _, err := f.coord.IngestTelemetry(f.sample(base.Add(time.Duration(i)*time.Hour), soc, 95)); err != nil {
			t.Fatalf("ingest: %v", err)
		}
	}
	latest, err := f.coord.LatestStatus(f.vehicleID)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.SoC != 70 {
		t.Fatalf("expected newest sample, got SoC %v", latest.SoC)
	}

	if _, err := f.coord.LatestStatus("ghost"); err == nil {
		t.Fatalf("expected unknown vehicle error")
	}
}

func TestFindNearby(t *testing.T) {
	f := newFixture(t)
	paris := geo.Point{Lat: 48.8566, Lon: 2.3522}

	matches, err := f.coord.FindNearby(KindStation, paris, 10)
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "st-paris" {
		t.Fatalf("offline stations must be filtered: %+v", matches)
	}
	if _, ok := matches[0].Value.(model.ChargingStation); !ok {
		t.Fatalf("match must carry the station entry")
	}

	centers, err := f.coord.FindNearby(KindServiceCenter, paris, 10)
	if err != nil {
		t.Fatalf("nearby centers: %v", err)
	}
	if len(centers) != 1 || centers[0].ID != "svc-paris" {
		t.Fatalf("unexpected center matches: %+v", centers)
	}

	if _, err := f.coord.FindNearby("garage", paris, 10); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
	if _, err := f.coord.FindNearby(KindStation, geo.Point{Lat: 123}, 10); err == nil {
		t.Fatalf("expected coordinate validation error")
	}
	if _, err := f.coord.FindNearby(KindStation, paris, -1); err == nil {
		t.Fatalf("expected negative radius rejection")
	}

	if len(f.sink.nearby) != 2 {
		t.Fatalf("expected 2 nearby metrics, got %d", len(f.sink.nearby))
	}
	if f.sink.nearby[0].Kind != KindStation || f.sink.nearby[0].Matches != 1 {
		t.Fatalf("unexpected nearby metric: %+v", f.sink.nearby[0])
	}
}

func TestRefreshStation(t *testing.T) {
	f := newFixture(t)
	paris := geo.Point{Lat: 48.8566, Lon: 2.3522}

	if err := f.coord.RefreshStation("ghost"); err == nil {
		t.Fatalf("expected unknown station error")
	}
	if err := f.coord.RefreshStation("st-dark"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	// Still offline, still filtered.
	matches, err := f.coord.FindNearby(KindStation, paris, 10)
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("unexpected matches after refresh: %+v", matches)
	}
}

func TestBookSession(t *testing.T) {
	f := newFixture(t)
	recorded := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	if _, err := f.coord.IngestTelemetry(f.sample(recorded, 40, 96)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	waitEvent(t, f.events)

	start := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	sess, err := f.coord.BookSession(f.vehicleID, "st-paris", start, 80)
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if sess.Status != model.SessionScheduled {
		t.Fatalf("expected scheduled session, got %s", sess.Status)
	}
	if ev, ok := waitEvent(t, f.events).(eventbus.SessionBooked); !ok || ev.Session.ID != sess.ID {
		t.Fatalf("expected SessionBooked for %q", sess.ID)
	}
	if got := f.sink.lastBooking(t); got.Outcome != coremetrics.BookingAccepted {
		t.Fatalf("expected accepted booking metric, got %+v", got)
	}

	// Same capacity-1 station, overlapping interval.
	_, err = f.coord.BookSession(f.vehicleID, "st-paris", start.Add(time.Minute), 80)
	var capErr model.CapacityExceededError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected CapacityExceededError, got %v", err)
	}
	if got := f.sink.lastBooking(t); got.Outcome != coremetrics.BookingRejected || got.Reason != "capacity_exceeded" {
		t.Fatalf("expected rejected/capacity_exceeded metric, got %+v", got)
	}

	_, err = f.coord.BookSession(f.vehicleID, "ghost", start, 80)
	if got := f.sink.lastBooking(t); got.Reason != "unknown_station" {
		t.Fatalf("expected unknown_station reason, got %+v (err=%v)", got, err)
	}
}

func TestCancelAndListSessions(t *testing.T) {
	f := newFixture(t)
	recorded := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	if _, err := f.coord.IngestTelemetry(f.sample(recorded, 40, 96)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	waitEvent(t, f.events)

	start := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	first, err := f.coord.BookSession(f.vehicleID, "st-lyon", start, 60)
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	waitEvent(t, f.events)
	second, err := f.coord.BookSession(f.vehicleID, "st-lyon", start.Add(2*time.Hour), 70)
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	waitEvent(t, f.events)

	sessions, err := f.coord.VehicleSessions(f.vehicleID)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if len(sessions) != 2 || sessions[0].ID != second.ID || sessions[1].ID != first.ID {
		t.Fatalf("expected newest-first listing, got %+v", sessions)
	}
	if _, err := f.coord.VehicleSessions("ghost"); err == nil {
		t.Fatalf("expected unknown vehicle error")
	}

	cancelled, err := f.coord.CancelSession(first.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != model.SessionCancelled {
		t.Fatalf("expected cancelled status, got %s", cancelled.Status)
	}
	if ev, ok := waitEvent(t, f.events).(eventbus.SessionCancelled); !ok || ev.Session.ID != first.ID {
		t.Fatalf("expected SessionCancelled for %q", first.ID)
	}

	// Lifecycle passthroughs.
	if _, err := f.coord.ActivateSession(second.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, err := f.coord.CompleteSession(second.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	var transition model.InvalidTransitionError
	if _, err := f.coord.CancelSession(second.ID); !errors.As(err, &transition) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
}
