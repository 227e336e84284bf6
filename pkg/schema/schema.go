// Package schema generates JSON schemas for chipper's configuration kinds by
// reflecting over their Go types.
package schema

import (
	"encoding/json"
	"fmt"
	"path"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/macropower/chipper/pkg/yaml"
)

// Generator reflects a JSON schema from a Go value.
type Generator struct {
	reflector *jsonschema.Reflector
	value     any
	id        string
}

// NewGenerator creates a [Generator] for value, published under id. Only
// fields tagged `jsonschema:"required"` are required, so documents may omit
// anything that has a default.
func NewGenerator(id string, value any) *Generator {
	return &Generator{
		id:    id,
		value: value,
		reflector: &jsonschema.Reflector{
			ExpandedStruct:             true,
			RequiredFromJSONSchemaTags: true,
			Namer:                      qualifiedName,
		},
	}
}

// qualifiedName prefixes a type's name with its package name, so that
// "engine.Config" and "session.Config" become the distinct definitions
// "EngineConfig" and "SessionConfig".
func qualifiedName(t reflect.Type) string {
	pkg := path.Base(t.PkgPath())
	if t.Name() == "" || pkg == "." || pkg == "/" {
		return ""
	}

	return strings.ToUpper(pkg[:1]) + pkg[1:] + t.Name()
}

// Generate returns the indented JSON schema.
func (g *Generator) Generate() ([]byte, error) {
	s := g.reflector.Reflect(g.value)
	s.ID = jsonschema.ID(g.id)

	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	return b, nil
}

// Validator compiles the generated schema into a [yaml.Validator].
func (g *Generator) Validator() (*yaml.Validator, error) {
	b, err := g.Generate()
	if err != nil {
		return nil, err
	}

	v, err := yaml.NewValidator(g.id, b)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", g.id, err)
	}

	return v, nil
}

// MustValidator is like [Generator.Validator] but panics on error.
func (g *Generator) MustValidator() *yaml.Validator {
	v, err := g.Validator()
	if err != nil {
		panic(err)
	}

	return v
}
