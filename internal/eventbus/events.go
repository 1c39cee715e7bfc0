package eventbus

import (
	"time"

	"github.com/evlife/evcore/core/model"
)

// SampleIngested is published after a telemetry sample is stored.
type SampleIngested struct {
	Sample model.TelemetrySample
	Time   time.Time
}

// AssessmentComputed is published after a health assessment is derived.
type AssessmentComputed struct {
	Assessment model.HealthAssessment
	Time       time.Time
}

// SessionBooked is published when a charging session enters scheduled state.
type SessionBooked struct {
	Session model.ChargingSession
	Time    time.Time
}

// SessionCancelled is published when a scheduled session is cancelled.
type SessionCancelled struct {
	Session model.ChargingSession
	Time    time.Time
}
