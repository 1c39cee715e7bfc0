package model

import "fmt"

// ConnectorType enumerates supported charging connectors.
type ConnectorType string

const (
	ConnectorCCS     ConnectorType = "ccs"
	ConnectorCHAdeMO ConnectorType = "chademo"
	ConnectorType2   ConnectorType = "type2"
	ConnectorNACS    ConnectorType = "nacs"
)

// StationStatus is the operational state reported by the catalog.
type StationStatus string

const (
	StationAvailable StationStatus = "available"
	StationOccupied  StationStatus = "occupied"
	StationOffline   StationStatus = "offline"
)

// ChargingStation is a catalog entry. The core reads coordinates, capacity
// and status; ownership stays with the infrastructure catalog.
type ChargingStation struct {
	ID        string
	Name      string
	Latitude  float64
	Longitude float64
	PowerKW   float64
	Connector ConnectorType
	Capacity  int // simultaneous sessions, >= 1
	Status    StationStatus
}

// Validate checks catalog constraints on the station entry.
func (s ChargingStation) Validate() error {
	if s.Latitude < -90 || s.Latitude > 90 {
		return fmt.Errorf("latitude out of range: %.4f", s.Latitude)
	}
	if s.Longitude < -180 || s.Longitude > 180 {
		return fmt.Errorf("longitude out of range: %.4f", s.Longitude)
	}
	if s.PowerKW <= 0 {
		return fmt.Errorf("power rating must be positive")
	}
	if s.Capacity < 1 {
		return fmt.Errorf("capacity must be at least 1")
	}
	return nil
}

// ServiceCenter is a read-only catalog entry used for proximity lookups.
type ServiceCenter struct {
	ID          string
	Name        string
	Latitude    float64
	Longitude   float64
	Specialties []string
}
