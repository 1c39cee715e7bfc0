package registry

import "github.com/evlife/evcore/core/model"

// VehicleRegistry is the read surface the core needs from the vehicle
// subsystem. Lookups fail with model.UnknownVehicleError for unresolved ids.
type VehicleRegistry interface {
	Vehicle(id string) (model.Vehicle, error)
}

// Catalog is the read surface the core needs from the infrastructure
// catalog: station and service-center entries with coordinates, capacity,
// power rating and status.
type Catalog interface {
	Station(id string) (model.ChargingStation, error)
	Stations() []model.ChargingStation
	ServiceCenters() []model.ServiceCenter
}
