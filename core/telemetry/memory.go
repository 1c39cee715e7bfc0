package telemetry

import (
	"iter"
	"sort"
	"sync"
	"time"

	"github.com/evlife/evcore/core/model"
	"github.com/evlife/evcore/core/registry"
)

// MemoryStore keeps samples in memory, ordered by recorded timestamp per
// vehicle. Appends for the same vehicle serialize on that vehicle's series;
// distinct vehicles proceed in parallel.
type MemoryStore struct {
	vehicles registry.VehicleRegistry

	mu     sync.RWMutex
	series map[string]*vehicleSeries
}

type vehicleSeries struct {
	mu      sync.Mutex
	samples []model.TelemetrySample // ascending by RecordedAt
}

// NewMemoryStore returns an empty store validating vehicle references
// against the given registry.
func NewMemoryStore(vehicles registry.VehicleRegistry) *MemoryStore {
	return &MemoryStore{vehicles: vehicles, series: map[string]*vehicleSeries{}}
}

func (s *MemoryStore) seriesFor(vehicleID string) *vehicleSeries {
	s.mu.RLock()
	vs := s.series[vehicleID]
	s.mu.RUnlock()
	if vs != nil {
		return vs
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if vs = s.series[vehicleID]; vs == nil {
		vs = &vehicleSeries{}
		s.series[vehicleID] = vs
	}
	return vs
}

// Append stores the sample, keeping the series ordered by recorded timestamp.
func (s *MemoryStore) Append(vehicleID string, sample model.TelemetrySample) (model.TelemetrySample, error) {
	if _, err := s.vehicles.Vehicle(vehicleID); err != nil {
		return model.TelemetrySample{}, err
	}
	sample.VehicleID = vehicleID
	if err := sample.Validate(); err != nil {
		return model.TelemetrySample{}, err
	}
	sample.IngestedAt = time.Now().UTC()

	vs := s.seriesFor(vehicleID)
	vs.mu.Lock()
	defer vs.mu.Unlock()

	i := sort.Search(len(vs.samples), func(i int) bool {
		return !vs.samples[i].RecordedAt.Before(sample.RecordedAt)
	})
	if i < len(vs.samples) && vs.samples[i].RecordedAt.Equal(sample.RecordedAt) {
		return model.TelemetrySample{}, model.DuplicateSampleError{VehicleID: vehicleID, RecordedAt: sample.RecordedAt}
	}
	vs.samples = append(vs.samples, model.TelemetrySample{})
	copy(vs.samples[i+1:], vs.samples[i:])
	vs.samples[i] = sample
	return sample, nil
}

// Window returns the trailing-span samples newest first. Each range over the
// returned sequence restarts from a snapshot taken when Window was called.
func (s *MemoryStore) Window(vehicleID string, span time.Duration) iter.Seq[model.TelemetrySample] {
	snap := s.snapshot(vehicleID, span)
	return func(yield func(model.TelemetrySample) bool) {
		for i := len(snap) - 1; i >= 0; i-- {
			if !yield(snap[i]) {
				return
			}
		}
	}
}

func (s *MemoryStore) snapshot(vehicleID string, span time.Duration) []model.TelemetrySample {
	s.mu.RLock()
	vs := s.series[vehicleID]
	s.mu.RUnlock()
	if vs == nil {
		return nil
	}
	vs.mu.Lock()
	defer vs.mu.Unlock()
	if len(vs.samples) == 0 {
		return nil
	}
	cutoff := vs.samples[len(vs.samples)-1].RecordedAt.Add(-span)
	i := sort.Search(len(vs.samples), func(i int) bool {
		return !vs.samples[i].RecordedAt.Before(cutoff)
	})
	snap := make([]model.TelemetrySample, len(vs.samples)-i)
	copy(snap, vs.samples[i:])
	return snap
}

// Latest returns the newest sample for the vehicle.
func (s *MemoryStore) Latest(vehicleID string) (model.TelemetrySample, bool) {
	s.mu.RLock()
	vs := s.series[vehicleID]
	s.mu.RUnlock()
	if vs == nil {
		return model.TelemetrySample{}, false
	}
	vs.mu.Lock()
	defer vs.mu.Unlock()
	if len(vs.samples) == 0 {
		return model.TelemetrySample{}, false
	}
	return vs.samples[len(vs.samples)-1], true
}
