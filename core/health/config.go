package health

import "fmt"

// Config defines scoring parameters loaded from configuration.
type Config struct {
	// Composite score weights. Must sum to 1.
	SoHWeight         float64 `json:"soh_weight" yaml:"soh_weight"`
	DegradationWeight float64 `json:"degradation_weight" yaml:"degradation_weight"`
	ThermalWeight     float64 `json:"thermal_weight" yaml:"thermal_weight"`

	// Safe temperature band in degrees Celsius. Samples outside it count
	// toward the thermal-exposure penalty.
	SafeTempMinC float64 `json:"safe_temp_min_c" yaml:"safe_temp_min_c"`
	SafeTempMaxC float64 `json:"safe_temp_max_c" yaml:"safe_temp_max_c"`

	// EndOfLifeSoH is the SoH threshold used for the remaining-lifespan
	// estimate.
	EndOfLifeSoH float64 `json:"end_of_life_soh" yaml:"end_of_life_soh"`

	// FullScaleDegradation is the %/year rate at which the degradation
	// component of the score reaches zero.
	FullScaleDegradation float64 `json:"full_scale_degradation" yaml:"full_scale_degradation"`

	// Risk-tag thresholds.
	RapidDegradationPerYear float64 `json:"rapid_degradation_per_year" yaml:"rapid_degradation_per_year"`
	HighTempFraction        float64 `json:"high_temp_fraction" yaml:"high_temp_fraction"`
	FullChargeSoC           float64 `json:"full_charge_soc" yaml:"full_charge_soc"`
	FullChargeFraction      float64 `json:"full_charge_fraction" yaml:"full_charge_fraction"`
}

// DefaultConfig returns the standard scoring parameters.
func DefaultConfig() Config {
	return Config{
		SoHWeight:               0.60,
		DegradationWeight:       0.25,
		ThermalWeight:           0.15,
		SafeTempMinC:            0,
		SafeTempMaxC:            45,
		EndOfLifeSoH:            70,
		FullScaleDegradation:    20,
		RapidDegradationPerYear: 5,
		HighTempFraction:        0.2,
		FullChargeSoC:           95,
		FullChargeFraction:      0.3,
	}
}

// SetDefaults fills zero-valued fields with DefaultConfig values.
func (c *Config) SetDefaults() {
	def := DefaultConfig()
	if c.SoHWeight == 0 && c.DegradationWeight == 0 && c.ThermalWeight == 0 {
		c.SoHWeight, c.DegradationWeight, c.ThermalWeight = def.SoHWeight, def.DegradationWeight, def.ThermalWeight
	}
	if c.SafeTempMaxC == 0 {
		c.SafeTempMinC, c.SafeTempMaxC = def.SafeTempMinC, def.SafeTempMaxC
	}
	if c.EndOfLifeSoH == 0 {
		c.EndOfLifeSoH = def.EndOfLifeSoH
	}
	if c.FullScaleDegradation == 0 {
		c.FullScaleDegradation = def.FullScaleDegradation
	}
	if c.RapidDegradationPerYear == 0 {
		c.RapidDegradationPerYear = def.RapidDegradationPerYear
	}
	if c.HighTempFraction == 0 {
		c.HighTempFraction = def.HighTempFraction
	}
	if c.FullChargeSoC == 0 {
		c.FullChargeSoC = def.FullChargeSoC
	}
	if c.FullChargeFraction == 0 {
		c.FullChargeFraction = def.FullChargeFraction
	}
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	sum := c.SoHWeight + c.DegradationWeight + c.ThermalWeight
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("score weights must sum to 1, got %.3f", sum)
	}
	if c.SafeTempMinC >= c.SafeTempMaxC {
		return fmt.Errorf("safe temperature band is empty")
	}
	if c.EndOfLifeSoH <= 0 || c.EndOfLifeSoH >= 100 {
		return fmt.Errorf("end of life soh must be within (0,100)")
	}
	if c.FullScaleDegradation <= 0 {
		return fmt.Errorf("full scale degradation must be positive")
	}
	return nil
}
