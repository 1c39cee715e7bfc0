package model

import (
	"fmt"
	"time"
)

// Vehicle represents a registered electric vehicle.
type Vehicle struct {
	ID         string
	OwnerID    string // opaque reference into the user subsystem
	VIN        string // 17 characters, unique per fleet
	BatteryKWh float64
	CreatedAt  time.Time
}

// Validate checks that the vehicle record is sound.
func (v Vehicle) Validate() error {
	if v.BatteryKWh <= 0 {
		return fmt.Errorf("battery capacity must be positive")
	}
	if len(v.VIN) != 17 {
		return fmt.Errorf("vin must be 17 characters, got %d", len(v.VIN))
	}
	return nil
}
