// Package configs provides the Configuration document kind: how chipper's
// engine, page environment and analytics are tuned.
package configs

import (
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/macropower/chipper/api"
	"github.com/macropower/chipper/api/v1beta1"
	"github.com/macropower/chipper/pkg/analytics"
	"github.com/macropower/chipper/pkg/browser"
	"github.com/macropower/chipper/pkg/config"
	"github.com/macropower/chipper/pkg/engine"
	"github.com/macropower/chipper/pkg/observer"
	"github.com/macropower/chipper/pkg/preference"
	"github.com/macropower/chipper/pkg/schema"
	"github.com/macropower/chipper/pkg/session"
	"github.com/macropower/chipper/pkg/telemetry"
	"github.com/macropower/chipper/pkg/yaml"
)

// Kind is the document kind.
const Kind = "Configuration"

var (
	// ValidKinds contains the valid kind values for configuration documents.
	ValidKinds = []string{Kind}

	// SchemaID identifies the generated JSON schema.
	SchemaID = "/configs.v1beta1.json"

	// DefaultValidator validates configuration documents against the JSON
	// schema.
	DefaultValidator = schema.NewGenerator(SchemaID, New()).MustValidator()

	// Compile-time interface checks.
	_ v1beta1.Object = (*Config)(nil)
)

// Config represents the chipper configuration.
//
//nolint:recvcheck // Must satisfy the jsonschema interface.
type Config struct {
	// Engine tunes when and how preferences are applied.
	Engine *engine.Config `json:"engine,omitempty" jsonschema:"title=Engine"`
	// Observer tunes how long page changes settle before applying.
	Observer *observer.Config `json:"observer,omitempty" jsonschema:"title=Observer"`
	// Session tunes usage accounting.
	Session *session.Config `json:"session,omitempty" jsonschema:"title=Session"`
	// Schedule tunes time rule re-evaluation.
	Schedule *preference.Config `json:"schedule,omitempty" jsonschema:"title=Schedule"`
	// Browser configures the page chipper drives.
	Browser *browser.Config `json:"browser,omitempty" jsonschema:"title=Browser"`
	// Analytics configures event recording.
	Analytics *analytics.Config `json:"analytics,omitempty" jsonschema:"title=Analytics"`
	// Telemetry configures trace export.
	Telemetry        *telemetry.Config `json:"telemetry,omitempty" jsonschema:"title=Telemetry"`
	v1beta1.TypeMeta `json:",inline"`
}

// New creates a new [Config] with default values.
func New() *Config {
	c := &Config{TypeMeta: v1beta1.NewTypeMeta(Kind)}
	c.EnsureDefaults()

	return c
}

// EnsureDefaults initializes nil sections to their default values.
func (c *Config) EnsureDefaults() {
	if c.APIVersion == "" {
		c.APIVersion = v1beta1.APIVersion
	}
	if c.Kind == "" {
		c.Kind = Kind
	}

	if c.Engine == nil {
		c.Engine = engine.NewConfig()
	} else {
		c.Engine.EnsureDefaults()
	}

	if c.Observer == nil {
		c.Observer = observer.NewConfig()
	} else {
		c.Observer.EnsureDefaults()
	}

	if c.Session == nil {
		c.Session = session.NewConfig()
	} else {
		c.Session.EnsureDefaults()
	}

	if c.Schedule == nil {
		c.Schedule = preference.NewConfig()
	} else {
		c.Schedule.EnsureDefaults()
	}

	if c.Browser == nil {
		c.Browser = browser.NewConfig()
	} else {
		c.Browser.EnsureDefaults()
	}

	if c.Analytics == nil {
		c.Analytics = analytics.NewConfig()
	} else {
		c.Analytics.EnsureDefaults()
	}

	if c.Telemetry == nil {
		c.Telemetry = &telemetry.Config{}
	}
}

// Validate checks the type metadata and every section.
func (c *Config) Validate() error {
	err := c.Check(Kind)
	if err != nil {
		return err //nolint:wrapcheck // Already descriptive.
	}

	var sections []section

	if c.Engine != nil {
		sections = append(sections, section{"engine", c.Engine})
	}
	if c.Observer != nil {
		sections = append(sections, section{"observer", c.Observer})
	}
	if c.Session != nil {
		sections = append(sections, section{"session", c.Session})
	}
	if c.Schedule != nil {
		sections = append(sections, section{"schedule", c.Schedule})
	}
	if c.Browser != nil {
		sections = append(sections, section{"browser", c.Browser})
	}
	if c.Analytics != nil {
		sections = append(sections, section{"analytics", c.Analytics})
	}
	if c.Telemetry != nil {
		sections = append(sections, section{"telemetry", c.Telemetry})
	}

	for _, s := range sections {
		err := s.Validate()
		if err != nil {
			return fmt.Errorf("validate %s config: %w", s.name, err)
		}
	}

	return nil
}

type section struct {
	name string
	config.Checker
}

func (c Config) JSONSchemaExtend(jss *jsonschema.Schema) {
	v1beta1.ExtendSchemaWithEnums(jss, v1beta1.ValidAPIVersions, ValidKinds)
}

// MarshalYAML serializes the config to YAML.
func (c *Config) MarshalYAML() ([]byte, error) {
	type alias Config

	b, err := yaml.Marshal((*alias)(c))
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	return b, nil
}

// Write writes the config to path if it doesn't already exist.
func (c *Config) Write(path string) error {
	b, err := c.MarshalYAML()
	if err != nil {
		return err
	}

	err = api.WriteIfNotExists(path, b)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// WriteDefault writes the default configuration to path. An existing file
// is backed up and replaced only when force is set.
func WriteDefault(path string, force bool) error {
	b, err := New().MarshalYAML()
	if err != nil {
		return err
	}

	err = api.WriteDefaultFile(path, b, force, "configuration")
	if err != nil {
		return fmt.Errorf("write default config: %w", err)
	}

	return nil
}

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	l, err := config.NewLoaderFromFile(path, New, DefaultValidator)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c, err := l.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return c, nil
}

// Parse validates and decodes a configuration from data.
func Parse(data []byte) (*Config, error) {
	c, err := config.NewLoaderFromBytes(data, New, DefaultValidator).Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return c, nil
}

// GetPath returns the default path to the configuration file.
func GetPath() string {
	return api.GetConfigPath("config.yaml")
}
