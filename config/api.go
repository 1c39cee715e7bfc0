package config

import "fmt"

// APIConfig defines the HTTP facade settings.
type APIConfig struct {
	// Address is the listen address of the API server.
	Address string `json:"address"`
	// AssessmentWindowDays is the trailing telemetry span used when a health
	// request does not name one.
	AssessmentWindowDays int `json:"assessment_window_days"`
}

// SetDefaults applies sane defaults.
func (c *APIConfig) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.AssessmentWindowDays == 0 {
		c.AssessmentWindowDays = 30
	}
}

// Validate checks mandatory fields.
func (c APIConfig) Validate() error {
	if c.AssessmentWindowDays < 1 {
		return fmt.Errorf("assessment window must be at least one day")
	}
	return nil
}
