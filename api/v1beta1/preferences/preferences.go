// Package preferences provides the Preferences document kind: the user's
// global chip preference and their time rules.
package preferences

import (
	"fmt"
	"slices"

	"github.com/invopop/jsonschema"

	"github.com/macropower/chipper/api"
	"github.com/macropower/chipper/api/v1beta1"
	"github.com/macropower/chipper/pkg/config"
	"github.com/macropower/chipper/pkg/rule"
	"github.com/macropower/chipper/pkg/schema"
	"github.com/macropower/chipper/pkg/yaml"
)

// Kind is the document kind.
const Kind = "Preferences"

var (
	// ValidKinds contains the valid kind values for preference documents.
	ValidKinds = []string{Kind}

	// SchemaID identifies the generated JSON schema.
	SchemaID = "/preferences.v1beta1.json"

	// DefaultValidator validates preference documents against the JSON schema.
	DefaultValidator = schema.NewGenerator(SchemaID, New()).MustValidator()

	// Compile-time interface checks.
	_ v1beta1.Object = (*Preferences)(nil)
)

// Preferences holds the user's chip preferences.
//
//nolint:recvcheck // Must satisfy the jsonschema interface.
type Preferences struct {
	// Global is the chip to select when no time rule is active.
	Global           string `json:"global,omitempty" jsonschema:"title=Global Preference"`
	v1beta1.TypeMeta `json:",inline"`
	// TimeRules select a chip on certain days during a range of hours.
	// Enabled rules must not overlap.
	TimeRules rule.Set `json:"timeRules,omitempty" jsonschema:"title=Time Rules"`
}

// New creates an empty [Preferences] document.
func New() *Preferences {
	p := &Preferences{TypeMeta: v1beta1.NewTypeMeta(Kind)}
	p.EnsureDefaults()

	return p
}

// EnsureDefaults fills in the type metadata when it is missing.
func (p *Preferences) EnsureDefaults() {
	if p.APIVersion == "" {
		p.APIVersion = v1beta1.APIVersion
	}
	if p.Kind == "" {
		p.Kind = Kind
	}
}

// Validate checks the type metadata and the time rules.
func (p *Preferences) Validate() error {
	err := p.Check(Kind)
	if err != nil {
		return err //nolint:wrapcheck // Already descriptive.
	}

	err = p.TimeRules.Validate()
	if err != nil {
		return fmt.Errorf("time rules: %w", err)
	}

	return nil
}

// Clone returns a copy of p. Rules are shared, since they are never
// modified in place once added to a set.
func (p *Preferences) Clone() *Preferences {
	c := *p
	c.TimeRules = slices.Clone(p.TimeRules)

	return &c
}

func (p Preferences) JSONSchemaExtend(jss *jsonschema.Schema) {
	v1beta1.ExtendSchemaWithEnums(jss, v1beta1.ValidAPIVersions, ValidKinds)
}

// MarshalYAML serializes the document to YAML.
func (p *Preferences) MarshalYAML() ([]byte, error) {
	type alias Preferences

	b, err := yaml.Marshal((*alias)(p))
	if err != nil {
		return nil, fmt.Errorf("marshal preferences: %w", err)
	}

	return b, nil
}

// Write replaces the document at path.
func (p *Preferences) Write(path string) error {
	b, err := p.MarshalYAML()
	if err != nil {
		return err
	}

	err = api.WriteFile(path, b)
	if err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}

	return nil
}

// Load reads and validates the document at path.
func Load(path string) (*Preferences, error) {
	l, err := config.NewLoaderFromFile(path, New, DefaultValidator)
	if err != nil {
		return nil, fmt.Errorf("read preferences: %w", err)
	}

	p, err := l.Load()
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}

	return p, nil
}

// Parse validates and decodes a document from data.
func Parse(data []byte) (*Preferences, error) {
	p, err := config.NewLoaderFromBytes(data, New, DefaultValidator).Load()
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}

	return p, nil
}

// GetPath returns the default path to the preferences file.
func GetPath() string {
	return api.GetConfigPath("preferences.yaml")
}
