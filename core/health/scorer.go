package health

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/evlife/evcore/core/model"
)

const hoursPerYear = 24 * 365.25

// Scorer converts a telemetry window into a health assessment. Assess is a
// pure function of its input: identical windows always produce identical
// assessments, so callers are free to cache results until the next
// ingestion.
type Scorer struct {
	cfg Config
}

// NewScorer returns a Scorer using cfg. Zero-valued fields fall back to
// defaults.
func NewScorer(cfg Config) (*Scorer, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{cfg: cfg}, nil
}

// Assess derives a HealthAssessment from the sample window. The window may
// be in any order; fewer than two samples fail with
// model.InsufficientDataError.
func (sc *Scorer) Assess(window []model.TelemetrySample) (model.HealthAssessment, error) {
	if len(window) < 2 {
		id := ""
		if len(window) == 1 {
			id = window[0].VehicleID
		}
		return model.HealthAssessment{}, model.InsufficientDataError{VehicleID: id, Samples: len(window)}
	}

	samples := make([]model.TelemetrySample, len(window))
	copy(samples, window)
	sort.Slice(samples, func(i, j int) bool { return samples[i].RecordedAt.Before(samples[j].RecordedAt) })

	first, last := samples[0], samples[len(samples)-1]

	// SoH trend over elapsed years.
	xs := make([]float64, len(samples))
	ys := make([]float64, len(samples))
	for i, s := range samples {
		xs[i] = s.RecordedAt.Sub(first.RecordedAt).Hours() / hoursPerYear
		ys[i] = s.SoH
	}
	_, slope := stat.LinearRegression(xs, ys, nil, false)
	degradation := -slope // positive when SoH declines

	hot := 0
	full := 0
	for _, s := range samples {
		if s.Temperature < sc.cfg.SafeTempMinC || s.Temperature > sc.cfg.SafeTempMaxC {
			hot++
		}
		if s.SoC > sc.cfg.FullChargeSoC {
			full++
		}
	}
	thermalFraction := float64(hot) / float64(len(samples))
	fullFraction := float64(full) / float64(len(samples))

	degScore := 100 * (1 - clamp(degradation/sc.cfg.FullScaleDegradation, 0, 1))
	thermalScore := 100 * (1 - thermalFraction)
	score := sc.cfg.SoHWeight*last.SoH + sc.cfg.DegradationWeight*degScore + sc.cfg.ThermalWeight*thermalScore
	score = clamp(score, 0, 100)

	var lifespan *float64
	if degradation > 0 {
		years := math.Max(0, (last.SoH-sc.cfg.EndOfLifeSoH)/degradation)
		lifespan = &years
	}

	var risks []string
	if thermalFraction > sc.cfg.HighTempFraction {
		risks = append(risks, model.RiskHighTemperatureExposure)
	}
	if degradation > sc.cfg.RapidDegradationPerYear {
		risks = append(risks, model.RiskRapidDegradation)
	}
	if fullFraction > sc.cfg.FullChargeFraction {
		risks = append(risks, model.RiskFrequentFullCharge)
	}

	return model.HealthAssessment{
		VehicleID:       last.VehicleID,
		HealthScore:     score,
		DegradationRate: degradation,
		LifespanYears:   lifespan,
		RiskFactors:     risks,
		WindowStart:     first.RecordedAt,
		WindowEnd:       last.RecordedAt,
		SampleCount:     len(samples),
		// Derived from the window so that identical inputs stay
		// bit-identical.
		ComputedAt: last.IngestedAt,
	}, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
