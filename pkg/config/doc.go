// Package config loads chipper's YAML document kinds.
//
// A [Loader] decodes a document twice: once into a generic value that is
// checked against the kind's JSON schema, then into the typed object, whose
// defaults are filled in with [v1beta1.Object.EnsureDefaults]. Errors from
// either step point at the offending line of the source.
package config
