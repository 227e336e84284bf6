// Package yaml wraps [github.com/goccy/go-yaml] with the decoder and encoder
// settings chipper uses for its documents, and validates decoded documents
// against JSON schemas, reporting failures at their YAML path.
package yaml
