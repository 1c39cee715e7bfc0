package model

import (
	"fmt"
	"time"
)

// SessionStatus is the lifecycle state of a charging session.
type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionCancelled
}

// ChargingSession is a reservation of station capacity over time. Transitions
// are owned by the schedule manager.
type ChargingSession struct {
	ID        string
	VehicleID string
	StationID string
	StartTime time.Time
	EndTime   time.Time
	TargetSoC float64
	Status    SessionStatus
	CreatedAt time.Time
}

// Validate checks structural session invariants.
func (s ChargingSession) Validate() error {
	if !s.EndTime.After(s.StartTime) {
		return fmt.Errorf("end time must be after start time")
	}
	if s.TargetSoC <= 0 || s.TargetSoC > 100 {
		return fmt.Errorf("target soc must be within (0,100], got %.2f", s.TargetSoC)
	}
	return nil
}

// Overlaps reports whether the [start,end) interval of the session intersects
// the given interval.
func (s ChargingSession) Overlaps(start, end time.Time) bool {
	return s.StartTime.Before(end) && start.Before(s.EndTime)
}
