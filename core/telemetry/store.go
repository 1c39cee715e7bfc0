package telemetry

import (
	"iter"
	"time"

	"github.com/evlife/evcore/core/model"
)

// Store is an append-only per-vehicle time series of battery readings.
// Historical samples are never mutated; bad readings must be corrected
// upstream before ingestion.
type Store interface {
	// Append validates and stores the sample. It fails with
	// model.UnknownVehicleError for unresolved vehicle references and with
	// model.DuplicateSampleError when a sample already exists at the same
	// (vehicle, recorded timestamp). On success the stored sample is
	// returned with its ingestion timestamp set.
	Append(vehicleID string, s model.TelemetrySample) (model.TelemetrySample, error)

	// Window returns a finite, restartable sequence of the samples whose
	// recorded timestamp falls within the trailing span, newest first. The
	// span trails the vehicle's newest sample so that identical stored data
	// always yields an identical window. An empty sequence is a valid result.
	Window(vehicleID string, span time.Duration) iter.Seq[model.TelemetrySample]

	// Latest returns the most recent sample for the vehicle, if any.
	Latest(vehicleID string) (model.TelemetrySample, bool)
}
