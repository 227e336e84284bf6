package yaml

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/goccy/go-yaml"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Validator validates decoded YAML against a JSON schema.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles schemaData, registered under url.
func NewValidator(url string, schemaData []byte) (*Validator, error) {
	var doc any

	err := json.Unmarshal(schemaData, &doc)
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()

	err = compiler.AddResource(url, doc)
	if err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}

	jss, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	return &Validator{schema: jss}, nil
}

// MustNewValidator is like [NewValidator] but panics on error.
func MustNewValidator(url string, schemaData []byte) *Validator {
	v, err := NewValidator(url, schemaData)
	if err != nil {
		panic(err)
	}

	return v
}

// Validate validates data. Schema violations are returned as an [*Error]
// located at the most specific failing path.
func (v *Validator) Validate(data any) error {
	err := v.schema.Validate(data)
	if err == nil {
		return nil
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return fmt.Errorf("schema validation: %w", err)
	}

	return &Error{
		Err:  verr,
		Path: pathFromLocation(deepestLocation(verr)),
	}
}

// deepestLocation returns the longest instance location among err and its
// causes.
func deepestLocation(err *jsonschema.ValidationError) []string {
	longest := err.InstanceLocation

	for _, cause := range err.Causes {
		loc := deepestLocation(cause)
		if len(loc) > len(longest) {
			longest = loc
		}
	}

	return longest
}

func pathFromLocation(location []string) *yaml.Path {
	current := NewPathBuilder().Root()

	for _, part := range location {
		idx, err := strconv.ParseUint(part, 10, 0)
		if err == nil {
			current = current.Index(uint(idx))
		} else {
			current = current.Child(part)
		}
	}

	return current.Build()
}
