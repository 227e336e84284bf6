package analytics

import (
	"errors"

	"github.com/macropower/chipper/api"
)

// Config configures event recording.
type Config struct {
	// Enabled turns analytics on. When false, events are discarded.
	Enabled *bool `json:"enabled,omitempty" jsonschema:"title=Enabled"`
	// Database is the path of the SQLite events database.
	Database string `json:"database,omitempty" jsonschema:"title=Database"`
	// UserIDPath is the file the anonymous user ID is kept in.
	UserIDPath string `json:"userIDPath,omitempty" jsonschema:"title=User ID Path"`
	// QueueSize is how many events may wait to be written.
	QueueSize int `json:"queueSize,omitempty" jsonschema:"title=Queue Size,minimum=1"`
	// Log also writes every event to the debug log.
	Log bool `json:"log,omitempty" jsonschema:"title=Log Events"`
}

// NewConfig creates a new [Config] with default values.
func NewConfig() *Config {
	c := &Config{}
	c.EnsureDefaults()

	return c
}

// EnsureDefaults sets default values for any unset fields.
func (c *Config) EnsureDefaults() {
	if c.Enabled == nil {
		enabled := true
		c.Enabled = &enabled
	}
	if c.Database == "" {
		c.Database = api.GetStatePath("events.db")
	}
	if c.UserIDPath == "" {
		c.UserIDPath = api.GetStatePath("user_id")
	}
	if c.QueueSize == 0 {
		c.QueueSize = DefaultQueueSize
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.QueueSize < 0 {
		return errors.New("queueSize must not be negative")
	}

	return nil
}

// IsEnabled reports whether analytics are enabled.
func (c *Config) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}
