package model

import (
	"fmt"
	"time"
)

// Domain errors signal caller-correctable precondition violations. They are
// never retried internally and carry enough context for an actionable
// message. Infrastructure failures are surfaced unchanged, not wrapped into
// these kinds.

// UnknownVehicleError reports a vehicle reference that does not resolve.
type UnknownVehicleError struct {
	VehicleID string
}

func (e UnknownVehicleError) Error() string {
	return fmt.Sprintf("unknown vehicle %q", e.VehicleID)
}

// UnknownStationError reports a station reference that does not resolve.
type UnknownStationError struct {
	StationID string
}

func (e UnknownStationError) Error() string {
	return fmt.Sprintf("unknown station %q", e.StationID)
}

// DuplicateSampleError reports an ingestion collision on the idempotency key
// (vehicle, recorded timestamp).
type DuplicateSampleError struct {
	VehicleID  string
	RecordedAt time.Time
}

func (e DuplicateSampleError) Error() string {
	return fmt.Sprintf("duplicate sample for vehicle %q at %s", e.VehicleID, e.RecordedAt.Format(time.RFC3339))
}

// UnknownSessionError reports a session reference that does not resolve.
type UnknownSessionError struct {
	SessionID string
}

func (e UnknownSessionError) Error() string {
	return fmt.Sprintf("unknown session %q", e.SessionID)
}

// InsufficientDataError reports a sample window too small to assess.
type InsufficientDataError struct {
	VehicleID string
	Samples   int
}

func (e InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient telemetry for vehicle %q: %d samples", e.VehicleID, e.Samples)
}

// InvalidTargetError reports a booking parameter outside its admissible
// range. Limit is the violated bound; UpperBound distinguishes which side.
type InvalidTargetError struct {
	Field      string
	Value      float64
	Limit      float64
	UpperBound bool
}

func (e InvalidTargetError) Error() string {
	if e.UpperBound {
		return fmt.Sprintf("invalid %s %.2f: must not exceed %.2f", e.Field, e.Value, e.Limit)
	}
	return fmt.Sprintf("invalid %s %.2f: must exceed %.2f", e.Field, e.Value, e.Limit)
}

// CapacityExceededError reports a booking that would overcommit a station for
// some instant of the requested interval.
type CapacityExceededError struct {
	StationID string
	Start     time.Time
	End       time.Time
	Capacity  int
}

func (e CapacityExceededError) Error() string {
	return fmt.Sprintf("station %q capacity %d exceeded between %s and %s",
		e.StationID, e.Capacity, e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
}

// InvalidTransitionError reports a session lifecycle operation attempted out
// of order.
type InvalidTransitionError struct {
	SessionID string
	From      SessionStatus
	To        SessionStatus
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("session %q cannot transition %s -> %s", e.SessionID, e.From, e.To)
}
