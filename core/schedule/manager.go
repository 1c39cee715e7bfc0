package schedule

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"

	"github.com/evlife/evcore/core/logger"
	"github.com/evlife/evcore/core/model"
	"github.com/evlife/evcore/core/registry"
	"github.com/evlife/evcore/core/telemetry"
)

// Store is the optional persistence collaborator for sessions. Failures are
// surfaced to the caller unchanged; they are infrastructure faults, not
// domain errors.
type Store interface {
	Save(model.ChargingSession) error
	Update(model.ChargingSession) error
}

// Manager books, inspects and cancels charging sessions while enforcing
// station capacity. Capacity checks and session insertion serialize per
// station; bookings at unrelated stations proceed independently.
type Manager struct {
	vehicles registry.VehicleRegistry
	catalog  registry.Catalog
	samples  telemetry.Store
	cfg      Config
	log      logger.Logger
	persist  Store

	mu       sync.Mutex
	sessions map[string]*session
	arenas   map[string]*stationArena
}

type session struct {
	model.ChargingSession
	fsm *fsm.FSM
}

// stationArena owns the non-terminal sessions of one station. Its mutex is
// the single exclusion point for the check-and-insert.
type stationArena struct {
	mu       sync.Mutex
	sessions []*session
}

// NewManager creates a schedule manager. samples may be nil when SoC is not
// tracked locally, in which case bookings fail for lack of telemetry.
func NewManager(vehicles registry.VehicleRegistry, catalog registry.Catalog, samples telemetry.Store, cfg Config, log logger.Logger, persist Store) (*Manager, error) {
	if vehicles == nil || catalog == nil {
		return nil, fmt.Errorf("schedule: nil registry or catalog")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Manager{
		vehicles: vehicles,
		catalog:  catalog,
		samples:  samples,
		cfg:      cfg,
		log:      log,
		persist:  persist,
		sessions: map[string]*session{},
		arenas:   map[string]*stationArena{},
	}, nil
}

func (m *Manager) arenaFor(stationID string) *stationArena {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.arenas[stationID]
	if a == nil {
		a = &stationArena{}
		m.arenas[stationID] = a
	}
	return a
}

// EstimateDuration returns the expected charging time for the given battery
// and station power, modelling reduced effective power above the taper
// threshold so durations near full charge are not underestimated.
func (m *Manager) EstimateDuration(batteryKWh, currentSoC, targetSoC, powerKW float64) time.Duration {
	taper := m.cfg.TaperStartSoC
	hours := 0.0
	if lin := min(targetSoC, taper) - currentSoC; lin > 0 {
		hours += batteryKWh * lin / 100 / powerKW
	}
	if tapered := targetSoC - max(currentSoC, taper); tapered > 0 {
		hours += batteryKWh * tapered / 100 / (powerKW * m.cfg.TaperFactor)
	}
	return time.Duration(hours * float64(time.Hour))
}

// Book reserves station capacity for a charging session starting at start.
func (m *Manager) Book(vehicleID, stationID string, start time.Time, targetSoC float64) (model.ChargingSession, error) {
	vehicle, err := m.vehicles.Vehicle(vehicleID)
	if err != nil {
		return model.ChargingSession{}, err
	}
	station, err := m.catalog.Station(stationID)
	if err != nil {
		return model.ChargingSession{}, err
	}
	if targetSoC <= 0 {
		return model.ChargingSession{}, model.InvalidTargetError{Field: "target_soc", Value: targetSoC, Limit: 0}
	}
	if targetSoC > 100 {
		return model.ChargingSession{}, model.InvalidTargetError{Field: "target_soc", Value: targetSoC, Limit: 100, UpperBound: true}
	}

	var currentSoC float64
	if m.samples != nil {
		if latest, ok := m.samples.Latest(vehicleID); ok {
			currentSoC = latest.SoC
		} else {
			return model.ChargingSession{}, model.InsufficientDataError{VehicleID: vehicleID, Samples: 0}
		}
	} else {
		return model.ChargingSession{}, model.InsufficientDataError{VehicleID: vehicleID, Samples: 0}
	}
	if targetSoC <= currentSoC {
		return model.ChargingSession{}, model.InvalidTargetError{Field: "target_soc", Value: targetSoC, Limit: currentSoC}
	}

	duration := m.EstimateDuration(vehicle.BatteryKWh, currentSoC, targetSoC, station.PowerKW)
	end := start.Add(duration)

	sess := &session{
		ChargingSession: model.ChargingSession{
			ID:        uuid.NewString(),
			VehicleID: vehicleID,
			StationID: stationID,
			StartTime: start,
			EndTime:   end,
			TargetSoC: targetSoC,
			Status:    model.SessionScheduled,
			CreatedAt: time.Now().UTC(),
		},
		fsm: newSessionFSM(model.SessionScheduled),
	}

	arena := m.arenaFor(stationID)
	arena.mu.Lock()
	defer arena.mu.Unlock()

	if !m.fitsLocked(arena, station.Capacity, start, end) {
		return model.ChargingSession{}, model.CapacityExceededError{
			StationID: stationID, Start: start, End: end, Capacity: station.Capacity,
		}
	}
	// Persist before going live: a failed save must not leave a phantom
	// session holding station capacity.
	if m.persist != nil {
		if err := m.persist.Save(sess.ChargingSession); err != nil {
			return model.ChargingSession{}, err
		}
	}
	arena.sessions = append(arena.sessions, sess)

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()
	m.log.Debugw("session booked", map[string]any{
		"session_id": sess.ID,
		"vehicle_id": vehicleID,
		"station_id": stationID,
		"duration":   duration.String(),
	})
	return sess.ChargingSession, nil
}

// fitsLocked reports whether adding [start,end) keeps concurrent non-terminal
// sessions within capacity at every instant. Concurrency within a set of
// right-open intervals peaks at some interval start, so only those instants
// need checking.
func (m *Manager) fitsLocked(arena *stationArena, capacity int, start, end time.Time) bool {
	var overlapping []*session
	for _, s := range arena.sessions {
		if s.Status.Terminal() {
			continue
		}
		if s.Overlaps(start, end) {
			overlapping = append(overlapping, s)
		}
	}
	if len(overlapping) < capacity {
		return true
	}
	instants := []time.Time{start}
	for _, s := range overlapping {
		if !s.StartTime.Before(start) && s.StartTime.Before(end) {
			instants = append(instants, s.StartTime)
		}
	}
	for _, t := range instants {
		n := 1 // the candidate itself
		for _, s := range overlapping {
			if !s.StartTime.After(t) && s.EndTime.After(t) {
				n++
			}
		}
		if n > capacity {
			return false
		}
	}
	return true
}

// Cancel transitions a scheduled session to cancelled, freeing its capacity
// immediately.
func (m *Manager) Cancel(sessionID string) (model.ChargingSession, error) {
	return m.transition(sessionID, eventCancel, model.SessionCancelled)
}

// Activate marks a scheduled session as charging. The clock or station
// telemetry drives this externally.
func (m *Manager) Activate(sessionID string) (model.ChargingSession, error) {
	return m.transition(sessionID, eventActivate, model.SessionActive)
}

// Complete marks an active session as finished.
func (m *Manager) Complete(sessionID string) (model.ChargingSession, error) {
	return m.transition(sessionID, eventComplete, model.SessionCompleted)
}

func (m *Manager) transition(sessionID, event string, to model.SessionStatus) (model.ChargingSession, error) {
	m.mu.Lock()
	sess := m.sessions[sessionID]
	m.mu.Unlock()
	if sess == nil {
		return model.ChargingSession{}, model.UnknownSessionError{SessionID: sessionID}
	}

	arena := m.arenaFor(sess.StationID)
	arena.mu.Lock()
	defer arena.mu.Unlock()

	if err := fire(sess.fsm, sessionID, event, to); err != nil {
		return model.ChargingSession{}, err
	}
	if m.persist != nil {
		updated := sess.ChargingSession
		updated.Status = to
		if err := m.persist.Update(updated); err != nil {
			// Unwind the fsm so the session stays in its previous state and
			// keeps (or frees) exactly the capacity it had before.
			sess.fsm.SetState(string(sess.Status))
			return model.ChargingSession{}, err
		}
	}
	m.mu.Lock()
	sess.Status = to
	m.mu.Unlock()
	if to.Terminal() {
		for i, s := range arena.sessions {
			if s.ID == sessionID {
				arena.sessions = append(arena.sessions[:i], arena.sessions[i+1:]...)
				break
			}
		}
	}
	return sess.ChargingSession, nil
}

// Session returns the session for id.
func (m *Manager) Session(sessionID string) (model.ChargingSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return model.ChargingSession{}, false
	}
	return s.ChargingSession, true
}

// SessionsForVehicle lists the vehicle's sessions, newest start first.
func (m *Manager) SessionsForVehicle(vehicleID string) []model.ChargingSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []model.ChargingSession
	for _, s := range m.sessions {
		if s.VehicleID == vehicleID {
			res = append(res, s.ChargingSession)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].StartTime.Equal(res[j].StartTime) {
			return res[i].StartTime.After(res[j].StartTime)
		}
		return res[i].ID < res[j].ID
	})
	return res
}
