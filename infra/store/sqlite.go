package store

import (
	"database/sql"
	"fmt"
	"iter"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/evlife/evcore/core/logger"
	"github.com/evlife/evcore/core/model"
	"github.com/evlife/evcore/core/registry"
)

// DB wraps a SQLite handle shared by the sample and session stores.
type DB struct {
	db *sql.DB
}

// Open opens or creates the database at path and ensures schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS telemetry_samples (
        vehicle_id TEXT NOT NULL,
        recorded_at INTEGER NOT NULL,
        ingested_at INTEGER NOT NULL,
        soc REAL NOT NULL,
        soh REAL NOT NULL,
        voltage REAL NOT NULL,
        temperature REAL NOT NULL,
        PRIMARY KEY (vehicle_id, recorded_at)
    );
    CREATE TABLE IF NOT EXISTS charging_sessions (
        id TEXT PRIMARY KEY,
        vehicle_id TEXT NOT NULL,
        station_id TEXT NOT NULL,
        start_time INTEGER NOT NULL,
        end_time INTEGER NOT NULL,
        target_soc REAL NOT NULL,
        status TEXT NOT NULL,
        created_at INTEGER NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_sessions_vehicle ON charging_sessions (vehicle_id);`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &DB{db: db}, nil
}

// Close closes the underlying database.
func (d *DB) Close() error { return d.db.Close() }

// SampleStore persists telemetry samples in SQLite. It satisfies the same
// contract as the in-memory store: append-only, duplicate (vehicle,
// recorded timestamp) rejected, windows trailing the newest sample.
type SampleStore struct {
	db       *sql.DB
	vehicles registry.VehicleRegistry
	log      logger.Logger
}

// NewSampleStore returns a store validating vehicle references against the
// given registry.
func NewSampleStore(d *DB, vehicles registry.VehicleRegistry, log logger.Logger) *SampleStore {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &SampleStore{db: d.db, vehicles: vehicles, log: log}
}

// Append validates and stores the sample.
func (s *SampleStore) Append(vehicleID string, sample model.TelemetrySample) (model.TelemetrySample, error) {
	if _, err := s.vehicles.Vehicle(vehicleID); err != nil {
		return model.TelemetrySample{}, err
	}
	sample.VehicleID = vehicleID
	if err := sample.Validate(); err != nil {
		return model.TelemetrySample{}, err
	}
	sample.IngestedAt = time.Now().UTC()

	_, err := s.db.Exec(
		`INSERT INTO telemetry_samples (vehicle_id, recorded_at, ingested_at, soc, soh, voltage, temperature)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		vehicleID, sample.RecordedAt.UnixNano(), sample.IngestedAt.UnixNano(),
		sample.SoC, sample.SoH, sample.Voltage, sample.Temperature)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return model.TelemetrySample{}, model.DuplicateSampleError{VehicleID: vehicleID, RecordedAt: sample.RecordedAt}
		}
		return model.TelemetrySample{}, err
	}
	return sample, nil
}

// Window returns the trailing-span samples newest first. The snapshot is
// taken when Window is called; each range over the sequence replays it.
// A query failure is an infrastructure fault, not an empty series: it is
// logged loudly so it cannot pass for missing telemetry.
func (s *SampleStore) Window(vehicleID string, span time.Duration) iter.Seq[model.TelemetrySample] {
	snap, err := s.window(vehicleID, span)
	if err != nil {
		s.log.Errorf("window query for vehicle %q: %v", vehicleID, err)
		snap = nil
	}
	return func(yield func(model.TelemetrySample) bool) {
		for _, smp := range snap {
			if !yield(smp) {
				return
			}
		}
	}
}

func (s *SampleStore) window(vehicleID string, span time.Duration) ([]model.TelemetrySample, error) {
	var newest int64
	err := s.db.QueryRow(
		`SELECT recorded_at FROM telemetry_samples WHERE vehicle_id = ? ORDER BY recorded_at DESC LIMIT 1`,
		vehicleID).Scan(&newest)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	cutoff := newest - span.Nanoseconds()

	rows, err := s.db.Query(
		`SELECT vehicle_id, recorded_at, ingested_at, soc, soh, voltage, temperature
         FROM telemetry_samples WHERE vehicle_id = ? AND recorded_at >= ?
         ORDER BY recorded_at DESC`,
		vehicleID, cutoff)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var res []model.TelemetrySample
	for rows.Next() {
		smp, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, smp)
	}
	return res, rows.Err()
}

// Latest returns the newest sample for the vehicle.
func (s *SampleStore) Latest(vehicleID string) (model.TelemetrySample, bool) {
	row := s.db.QueryRow(
		`SELECT vehicle_id, recorded_at, ingested_at, soc, soh, voltage, temperature
         FROM telemetry_samples WHERE vehicle_id = ? ORDER BY recorded_at DESC LIMIT 1`,
		vehicleID)
	smp, err := scanSample(row)
	if err != nil {
		if err != sql.ErrNoRows {
			s.log.Errorf("latest query for vehicle %q: %v", vehicleID, err)
		}
		return model.TelemetrySample{}, false
	}
	return smp, true
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSample(r rowScanner) (model.TelemetrySample, error) {
	var smp model.TelemetrySample
	var recorded, ingested int64
	if err := r.Scan(&smp.VehicleID, &recorded, &ingested, &smp.SoC, &smp.SoH, &smp.Voltage, &smp.Temperature); err != nil {
		return model.TelemetrySample{}, err
	}
	smp.RecordedAt = time.Unix(0, recorded).UTC()
	smp.IngestedAt = time.Unix(0, ingested).UTC()
	return smp, nil
}

// SessionStore persists charging sessions in SQLite. The schedule manager
// remains the authority on capacity and lifecycle; this store is the durable
// record behind it.
type SessionStore struct {
	db *sql.DB
}

// NewSessionStore returns a session store over the shared handle.
func NewSessionStore(d *DB) *SessionStore {
	return &SessionStore{db: d.db}
}

// Save inserts a newly booked session.
func (s *SessionStore) Save(sess model.ChargingSession) error {
	_, err := s.db.Exec(
		`INSERT INTO charging_sessions (id, vehicle_id, station_id, start_time, end_time, target_soc, status, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.VehicleID, sess.StationID,
		sess.StartTime.UnixNano(), sess.EndTime.UnixNano(),
		sess.TargetSoC, string(sess.Status), sess.CreatedAt.UnixNano())
	return err
}

// Update rewrites the stored status of an existing session.
func (s *SessionStore) Update(sess model.ChargingSession) error {
	res, err := s.db.Exec(
		`UPDATE charging_sessions SET status = ? WHERE id = ?`,
		string(sess.Status), sess.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("unknown session %q", sess.ID)
	}
	return nil
}

// SessionsForVehicle lists the vehicle's stored sessions, newest start first.
func (s *SessionStore) SessionsForVehicle(vehicleID string) ([]model.ChargingSession, error) {
	rows, err := s.db.Query(
		`SELECT id, vehicle_id, station_id, start_time, end_time, target_soc, status, created_at
         FROM charging_sessions WHERE vehicle_id = ? ORDER BY start_time DESC, id`,
		vehicleID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var res []model.ChargingSession
	for rows.Next() {
		var sess model.ChargingSession
		var start, end, created int64
		var status string
		if err := rows.Scan(&sess.ID, &sess.VehicleID, &sess.StationID, &start, &end, &sess.TargetSoC, &status, &created); err != nil {
			return nil, err
		}
		sess.StartTime = time.Unix(0, start).UTC()
		sess.EndTime = time.Unix(0, end).UTC()
		sess.CreatedAt = time.Unix(0, created).UTC()
		sess.Status = model.SessionStatus(status)
		res = append(res, sess)
	}
	return res, rows.Err()
}
