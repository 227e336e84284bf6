package yaml

import (
	"bytes"
	"errors"
	"io"

	"github.com/goccy/go-yaml"
)

// Decoder reads YAML documents, converting parse failures into [*Error]s.
type Decoder struct {
	d      *yaml.Decoder
	source []byte
}

// NewDecoder creates a new [Decoder] reading from r. Errors are located by
// token only; use [NewSourceDecoder] when the whole document is at hand.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		d: yaml.NewDecoder(r, yaml.AllowDuplicateMapKey()),
	}
}

// NewSourceDecoder creates a new [Decoder] for data whose errors carry data
// as their source, so they print the annotated lines.
func NewSourceDecoder(data []byte) *Decoder {
	d := NewDecoder(bytes.NewReader(data))
	d.source = data

	return d
}

// Decode decodes the next document into v.
func (d *Decoder) Decode(v any) error {
	err := d.d.Decode(v)
	if err == nil {
		return nil
	}

	var yamlErr yaml.Error
	if errors.As(err, &yamlErr) {
		return &Error{
			Err:    errors.New(yamlErr.GetMessage()),
			Token:  yamlErr.GetToken(),
			Source: d.source,
		}
	}

	//nolint:wrapcheck // Return the original error if it's not a [yaml.Error].
	return err
}

// Unmarshal decodes a single document from data into v.
func Unmarshal(data []byte, v any) error {
	return NewSourceDecoder(data).Decode(v)
}
