package yaml

import (
	"bytes"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"
)

// EncoderOptions are applied to every [Encoder].
var EncoderOptions = []yaml.EncodeOption{
	yaml.Indent(2),
	yaml.IndentSequence(true),
}

// Encoder writes YAML documents.
type Encoder struct {
	e *yaml.Encoder
}

// NewEncoder creates a new [Encoder] writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		e: yaml.NewEncoder(w, EncoderOptions...),
	}
}

// Encode writes v as a YAML document.
func (e *Encoder) Encode(v any) error {
	return e.e.Encode(v) //nolint:wrapcheck // Return the original error.
}

// Close flushes the encoder.
func (e *Encoder) Close() error {
	return e.e.Close() //nolint:wrapcheck // Return the original error.
}

// Marshal encodes v as a single YAML document.
func Marshal(v any) ([]byte, error) {
	b := &bytes.Buffer{}

	enc := NewEncoder(b)

	err := enc.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}

	err = enc.Close()
	if err != nil {
		return nil, fmt.Errorf("close yaml encoder: %w", err)
	}

	return b.Bytes(), nil
}
