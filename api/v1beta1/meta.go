// Package v1beta1 contains the v1beta1 API types shared by chipper's document
// kinds.
package v1beta1

import (
	"fmt"
	"slices"

	"github.com/invopop/jsonschema"
)

// APIVersion is the current API version for all chipper document kinds.
const APIVersion = "chipper.jacobcolvin.com/v1beta1"

// ValidAPIVersions contains all valid API versions.
var ValidAPIVersions = []string{APIVersion}

// TypeMeta contains the API version and kind common to all document kinds.
type TypeMeta struct {
	// APIVersion specifies the API version for this document.
	APIVersion string `json:"apiVersion" jsonschema:"required,title=API Version"`
	// Kind defines the type of document.
	Kind string `json:"kind" jsonschema:"required,title=Kind"`
}

// NewTypeMeta returns a [TypeMeta] for kind at the current [APIVersion].
func NewTypeMeta(kind string) TypeMeta {
	return TypeMeta{APIVersion: APIVersion, Kind: kind}
}

// GetAPIVersion returns the API version.
func (tm TypeMeta) GetAPIVersion() string {
	return tm.APIVersion
}

// GetKind returns the kind.
func (tm TypeMeta) GetKind() string {
	return tm.Kind
}

// Check returns an error unless tm has a valid API version and the given kind.
func (tm TypeMeta) Check(kind string) error {
	if !slices.Contains(ValidAPIVersions, tm.APIVersion) {
		return fmt.Errorf("unsupported apiVersion %q", tm.APIVersion)
	}
	if tm.Kind != kind {
		return fmt.Errorf("expected kind %q, got %q", kind, tm.Kind)
	}

	return nil
}

// Object is the interface that all document kinds implement.
type Object interface {
	GetAPIVersion() string
	GetKind() string
	EnsureDefaults()
}

// ExtendSchemaWithEnums restricts the apiVersion and kind properties of jss
// to the given values.
func ExtendSchemaWithEnums(jss *jsonschema.Schema, apiVersions, kinds []string) {
	restrict := func(prop string, values []string) {
		s, ok := jss.Properties.Get(prop)
		if !ok {
			panic(prop + " property not found in schema")
		}

		for _, v := range values {
			s.Enum = append(s.Enum, v)
		}

		jss.Properties.Set(prop, s)
	}

	restrict("apiVersion", apiVersions)
	restrict("kind", kinds)
}
