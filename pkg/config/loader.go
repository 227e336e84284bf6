package config

import (
	"fmt"

	"github.com/macropower/chipper/api"
	"github.com/macropower/chipper/api/v1beta1"
	"github.com/macropower/chipper/pkg/yaml"
)

// Validator validates decoded document data against a schema.
type Validator interface {
	Validate(data any) error
}

// Checker is implemented by objects that can validate themselves after
// decoding, beyond what the schema expresses.
type Checker interface {
	Validate() error
}

// LoaderOpt configures a [Loader].
type LoaderOpt func(*loaderOptions)

type loaderOptions struct {
	validator Validator
}

// WithValidator replaces the kind's default validator. A nil validator skips
// schema validation.
func WithValidator(v Validator) LoaderOpt {
	return func(o *loaderOptions) {
		o.validator = v
	}
}

// Loader validates and decodes a document of kind T.
type Loader[T v1beta1.Object] struct {
	validator Validator
	newFunc   func() T
	data      []byte
}

// NewLoaderFromBytes creates a [Loader] from byte data.
// The newFunc parameter is the constructor for type T (e.g., configs.New).
func NewLoaderFromBytes[T v1beta1.Object](
	data []byte,
	newFunc func() T,
	defaultValidator Validator,
	opts ...LoaderOpt,
) *Loader[T] {
	options := &loaderOptions{
		validator: defaultValidator,
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Loader[T]{
		data:      data,
		newFunc:   newFunc,
		validator: options.validator,
	}
}

// NewLoaderFromFile creates a [Loader] from a file path.
func NewLoaderFromFile[T v1beta1.Object](
	path string,
	newFunc func() T,
	defaultValidator Validator,
	opts ...LoaderOpt,
) (*Loader[T], error) {
	data, err := api.ReadFile(path)
	if err != nil {
		return nil, err //nolint:wrapcheck // Return the original error.
	}

	return NewLoaderFromBytes(data, newFunc, defaultValidator, opts...), nil
}

// Validate validates the document data against the schema.
func (l *Loader[T]) Validate() error {
	var doc any

	err := yaml.NewSourceDecoder(l.data).Decode(&doc)
	if err != nil {
		return err //nolint:wrapcheck // Carries its own location.
	}

	if l.validator != nil {
		err = l.validator.Validate(doc)
		if err != nil {
			return yaml.WithSource(err, l.data)
		}
	}

	return nil
}

// Load validates, parses and returns the document. Defaults are applied
// before the object's own Validate method, if it has one, is called.
//
//nolint:ireturn // Generic type parameter return is intentional.
func (l *Loader[T]) Load() (T, error) {
	var zero T

	err := l.Validate()
	if err != nil {
		return zero, err
	}

	obj := l.newFunc()

	err = yaml.NewSourceDecoder(l.data).Decode(obj)
	if err != nil {
		return zero, err //nolint:wrapcheck // Carries its own location.
	}

	obj.EnsureDefaults()

	if c, ok := any(obj).(Checker); ok {
		err = c.Validate()
		if err != nil {
			return zero, fmt.Errorf("validate %s: %w", obj.GetKind(), err)
		}
	}

	return obj, nil
}
