package schedule

import "fmt"

// Config defines charging-curve parameters loaded from configuration.
type Config struct {
	// TaperStartSoC is the state of charge above which charging slows.
	TaperStartSoC float64 `json:"taper_start_soc" yaml:"taper_start_soc"`
	// TaperFactor is the fraction of rated power effective above
	// TaperStartSoC.
	TaperFactor float64 `json:"taper_factor" yaml:"taper_factor"`
}

// SetDefaults fills zero-valued fields with the standard charge curve.
func (c *Config) SetDefaults() {
	if c.TaperStartSoC == 0 {
		c.TaperStartSoC = 80
	}
	if c.TaperFactor == 0 {
		c.TaperFactor = 0.5
	}
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if c.TaperStartSoC <= 0 || c.TaperStartSoC > 100 {
		return fmt.Errorf("taper start soc must be within (0,100]")
	}
	if c.TaperFactor <= 0 || c.TaperFactor > 1 {
		return fmt.Errorf("taper factor must be within (0,1]")
	}
	return nil
}
