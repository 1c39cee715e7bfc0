package model

import "time"

// Risk tags derived from a sample window.
const (
	RiskHighTemperatureExposure = "high_temperature_exposure"
	RiskRapidDegradation        = "rapid_degradation"
	RiskFrequentFullCharge      = "frequent_full_charge"
)

// HealthAssessment is a computed view over a vehicle's trailing sample
// window. It is derived on demand and never mutated in place.
type HealthAssessment struct {
	VehicleID       string
	HealthScore     float64 // 0-100
	DegradationRate float64 // percent SoH lost per year, positive when declining
	// LifespanYears estimates the remaining years until the end-of-life
	// threshold. Nil when the SoH trend is flat or improving.
	LifespanYears *float64
	RiskFactors   []string
	WindowStart   time.Time
	WindowEnd     time.Time
	SampleCount   int
	ComputedAt    time.Time
}
