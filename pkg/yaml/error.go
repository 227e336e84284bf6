package yaml

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/printer"
	"github.com/goccy/go-yaml/token"
)

// NewPathBuilder returns an empty [yaml.PathBuilder].
func NewPathBuilder() *yaml.PathBuilder {
	return &yaml.PathBuilder{}
}

// Error is a YAML decoding or validation error, located either by the token
// where parsing failed or by the path of the offending value.
type Error struct {
	Err    error
	Path   *yaml.Path
	Token  *token.Token
	Source []byte
}

// WithSource attaches source to err if it is an [*Error], so that its message
// includes the annotated lines. Other errors are returned unchanged.
func WithSource(err error, source []byte) error {
	var yamlErr *Error
	if errors.As(err, &yamlErr) {
		yamlErr.Source = source
		return yamlErr
	}

	return err
}

func (e *Error) Error() string {
	if e.Err == nil {
		return ""
	}

	switch {
	case e.Token != nil:
		var p printer.Printer

		return fmt.Sprintf("[%d:%d] %v\n%s",
			e.Token.Position.Line, e.Token.Position.Column, e.Err,
			p.PrintErrorToken(e.Token, false),
		)

	case e.Path != nil && len(e.Source) > 0:
		annotated, err := e.Path.AnnotateSource(e.Source, false)
		if err != nil {
			slog.Debug("annotate yaml source",
				slog.String("path", e.Path.String()),
				slog.Any("error", err),
			)

			return fmt.Sprintf("error at %s: %v", e.Path.String(), e.Err)
		}

		return fmt.Sprintf("error at %s: %v\n%s", e.Path.String(), e.Err, annotated)

	case e.Path != nil:
		return fmt.Sprintf("error at %s: %v", e.Path.String(), e.Err)
	}

	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}
