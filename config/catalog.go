package config

import (
	"fmt"

	"github.com/evlife/evcore/core/model"
)

// CatalogConfig seeds the charging-station and service-center catalog at
// startup.
type CatalogConfig struct {
	Stations       []StationSeed `json:"stations"`
	ServiceCenters []CenterSeed  `json:"service_centers"`
}

// StationSeed is one charging-station catalog entry.
type StationSeed struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	PowerKW   float64 `json:"power_kw"`
	Connector string  `json:"connector"`
	Capacity  int     `json:"capacity"`
	Status    string  `json:"status"`
}

// CenterSeed is one service-center catalog entry.
type CenterSeed struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Specialties []string `json:"specialties"`
}

// Station converts the seed to its domain form.
func (s StationSeed) Station() model.ChargingStation {
	status := model.StationStatus(s.Status)
	if s.Status == "" {
		status = model.StationAvailable
	}
	capacity := s.Capacity
	if capacity == 0 {
		capacity = 1
	}
	return model.ChargingStation{
		ID:        s.ID,
		Name:      s.Name,
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
		PowerKW:   s.PowerKW,
		Connector: model.ConnectorType(s.Connector),
		Capacity:  capacity,
		Status:    status,
	}
}

// Center converts the seed to its domain form.
func (s CenterSeed) Center() model.ServiceCenter {
	return model.ServiceCenter{
		ID:          s.ID,
		Name:        s.Name,
		Latitude:    s.Latitude,
		Longitude:   s.Longitude,
		Specialties: s.Specialties,
	}
}

// Validate checks every seed entry against its domain constraints.
func (c CatalogConfig) Validate() error {
	seen := map[string]bool{}
	for _, s := range c.Stations {
		if s.ID == "" {
			return fmt.Errorf("station seed missing id")
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate station id %s", s.ID)
		}
		seen[s.ID] = true
		if err := s.Station().Validate(); err != nil {
			return fmt.Errorf("station %s: %w", s.ID, err)
		}
	}
	centers := map[string]bool{}
	for _, sc := range c.ServiceCenters {
		if sc.ID == "" {
			return fmt.Errorf("service center seed missing id")
		}
		if centers[sc.ID] {
			return fmt.Errorf("duplicate service center id %s", sc.ID)
		}
		centers[sc.ID] = true
		if sc.Latitude < -90 || sc.Latitude > 90 || sc.Longitude < -180 || sc.Longitude > 180 {
			return fmt.Errorf("service center %s: coordinates out of range", sc.ID)
		}
	}
	return nil
}
