package model

import (
	"fmt"
	"time"
)

// TelemetrySample is one battery reading for a vehicle. Samples are
// immutable once stored and ordered by RecordedAt per vehicle.
type TelemetrySample struct {
	VehicleID   string
	SoC         float64 // state of charge, 0-100
	SoH         float64 // state of health, 0-100
	Voltage     float64 // volts, > 0
	Temperature float64 // degrees Celsius
	RecordedAt  time.Time
	IngestedAt  time.Time
}

// Physical bounds for pack temperature readings. Anything outside is a
// sensor fault, not weather.
const (
	MinTemperature = -60.0
	MaxTemperature = 120.0
)

// Validate checks the sample against its physical bounds.
func (s TelemetrySample) Validate() error {
	if s.SoC < 0 || s.SoC > 100 {
		return fmt.Errorf("soc must be within [0,100], got %.2f", s.SoC)
	}
	if s.SoH < 0 || s.SoH > 100 {
		return fmt.Errorf("soh must be within [0,100], got %.2f", s.SoH)
	}
	if s.Voltage <= 0 {
		return fmt.Errorf("voltage must be positive, got %.2f", s.Voltage)
	}
	if s.Temperature < MinTemperature || s.Temperature > MaxTemperature {
		return fmt.Errorf("temperature out of physical bounds: %.1f", s.Temperature)
	}
	if s.RecordedAt.IsZero() {
		return fmt.Errorf("recorded timestamp is required")
	}
	return nil
}
