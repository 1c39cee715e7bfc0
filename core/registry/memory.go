package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/evlife/evcore/core/model"
)

// MemoryRegistry keeps vehicles in memory. It backs tests and single-node
// deployments; production wiring can swap in a persistence-backed registry.
type MemoryRegistry struct {
	mu   sync.RWMutex
	data map[string]model.Vehicle
	vins map[string]string // VIN -> vehicle id
}

// NewMemoryRegistry returns an empty MemoryRegistry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{data: map[string]model.Vehicle{}, vins: map[string]string{}}
}

// Register validates and stores a new vehicle. The VIN must be unique.
// A missing id is generated.
func (r *MemoryRegistry) Register(v model.Vehicle) (model.Vehicle, error) {
	if err := v.Validate(); err != nil {
		return model.Vehicle{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.vins[v.VIN]; ok {
		return model.Vehicle{}, fmt.Errorf("vin %q already registered to vehicle %q", v.VIN, id)
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	r.data[v.ID] = v
	r.vins[v.VIN] = v.ID
	return v, nil
}

// Vehicle returns the vehicle for id.
func (r *MemoryRegistry) Vehicle(id string) (model.Vehicle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.data[id]
	if !ok {
		return model.Vehicle{}, model.UnknownVehicleError{VehicleID: id}
	}
	return v, nil
}

// SetCapacity corrects the battery capacity of a registered vehicle. This is
// the only mutation the model admits after registration.
func (r *MemoryRegistry) SetCapacity(id string, kwh float64) error {
	if kwh <= 0 {
		return fmt.Errorf("battery capacity must be positive")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.data[id]
	if !ok {
		return model.UnknownVehicleError{VehicleID: id}
	}
	v.BatteryKWh = kwh
	r.data[id] = v
	return nil
}

// MemoryCatalog keeps station and service-center entries in memory.
type MemoryCatalog struct {
	mu       sync.RWMutex
	stations map[string]model.ChargingStation
	centers  map[string]model.ServiceCenter
}

// NewMemoryCatalog returns an empty MemoryCatalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{stations: map[string]model.ChargingStation{}, centers: map[string]model.ServiceCenter{}}
}

// PutStation validates and upserts a station entry.
func (c *MemoryCatalog) PutStation(s model.ChargingStation) error {
	if err := s.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	c.stations[s.ID] = s
	c.mu.Unlock()
	return nil
}

// PutServiceCenter upserts a service-center entry.
func (c *MemoryCatalog) PutServiceCenter(sc model.ServiceCenter) {
	c.mu.Lock()
	c.centers[sc.ID] = sc
	c.mu.Unlock()
}

// Station returns the station for id.
func (c *MemoryCatalog) Station(id string) (model.ChargingStation, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.stations[id]
	if !ok {
		return model.ChargingStation{}, model.UnknownStationError{StationID: id}
	}
	return s, nil
}

// Stations lists all station entries ordered by id.
func (c *MemoryCatalog) Stations() []model.ChargingStation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res := make([]model.ChargingStation, 0, len(c.stations))
	for _, s := range c.stations {
		res = append(res, s)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// ServiceCenters lists all service-center entries ordered by id.
func (c *MemoryCatalog) ServiceCenters() []model.ServiceCenter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res := make([]model.ServiceCenter, 0, len(c.centers))
	for _, sc := range c.centers {
		res = append(res, sc)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}
