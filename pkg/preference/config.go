package preference

import (
	"errors"
	"time"

	"github.com/macropower/chipper/api/v1beta1"
)

// DefaultInterval is how often the active time rule is re-evaluated.
const DefaultInterval = time.Hour

// Config configures a [Scheduler].
type Config struct {
	// Interval is how often the active time rule is re-evaluated.
	Interval *v1beta1.Duration `json:"interval,omitempty" jsonschema:"title=Interval"`
}

// NewConfig creates a new [Config] with default values.
func NewConfig() *Config {
	c := &Config{}
	c.EnsureDefaults()

	return c
}

// EnsureDefaults sets default values for any unset fields.
func (c *Config) EnsureDefaults() {
	if c.Interval == nil {
		c.Interval = v1beta1.NewDuration(DefaultInterval)
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Interval != nil && c.Interval.Duration <= 0 {
		return errors.New("interval must be positive")
	}

	return nil
}
