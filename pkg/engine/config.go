package engine

import (
	"errors"
	"time"

	"github.com/macropower/chipper/api/v1beta1"
	"github.com/macropower/chipper/pkg/chip"
)

const (
	// DefaultCooldown is the minimum time between two applications.
	DefaultCooldown = 2 * time.Second
	// DefaultSelectResetDelay is how long a programmatic selection
	// suppresses re-entry.
	DefaultSelectResetDelay = 100 * time.Millisecond
	// DefaultRetryDelay is how long to wait before fetching candidates a
	// second time.
	DefaultRetryDelay = 500 * time.Millisecond
)

// Config configures a [Controller].
type Config struct {
	// Cooldown is the minimum time between two applications.
	Cooldown *v1beta1.Duration `json:"cooldown,omitempty" jsonschema:"title=Cooldown"`
	// SelectResetDelay is how long a programmatic selection suppresses
	// re-entry.
	SelectResetDelay *v1beta1.Duration `json:"selectResetDelay,omitempty" jsonschema:"title=Select Reset Delay"`
	// RetryDelay is how long to wait before fetching candidates again when
	// none were found.
	RetryDelay *v1beta1.Duration `json:"retryDelay,omitempty" jsonschema:"title=Retry Delay"`
	// MinMatchScore rejects similar chips that score below it.
	MinMatchScore *float64 `json:"minMatchScore,omitempty" jsonschema:"title=Minimum Match Score,minimum=0,maximum=1"`
	// DefaultCandidate is the canonical chip, selected when nothing else is.
	DefaultCandidate string `json:"defaultCandidate,omitempty" jsonschema:"title=Default Candidate"`
}

// NewConfig creates a new [Config] with default values.
func NewConfig() *Config {
	c := &Config{}
	c.EnsureDefaults()

	return c
}

// EnsureDefaults sets default values for any unset fields.
func (c *Config) EnsureDefaults() {
	if c.Cooldown == nil {
		c.Cooldown = v1beta1.NewDuration(DefaultCooldown)
	}
	if c.SelectResetDelay == nil {
		c.SelectResetDelay = v1beta1.NewDuration(DefaultSelectResetDelay)
	}
	if c.RetryDelay == nil {
		c.RetryDelay = v1beta1.NewDuration(DefaultRetryDelay)
	}
	if c.MinMatchScore == nil {
		var score float64
		c.MinMatchScore = &score
	}
	if c.DefaultCandidate == "" {
		c.DefaultCandidate = chip.DefaultText
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []error

	if c.MinMatchScore != nil && (*c.MinMatchScore < 0 || *c.MinMatchScore > 1) {
		errs = append(errs, errors.New("minMatchScore must be between 0 and 1"))
	}

	return errors.Join(errs...)
}

// Options returns the controller options for c.
func (c *Config) Options() []ControllerOpt {
	opts := []ControllerOpt{
		WithCooldown(c.Cooldown.Get(DefaultCooldown)),
		WithSelectResetDelay(c.SelectResetDelay.Get(DefaultSelectResetDelay)),
		WithRetryDelay(c.RetryDelay.Get(DefaultRetryDelay)),
	}

	if c.DefaultCandidate != "" {
		opts = append(opts, WithDefaultCandidate(c.DefaultCandidate))
	}
	if c.MinMatchScore != nil {
		opts = append(opts, WithMinMatchScore(*c.MinMatchScore))
	}

	return opts
}
