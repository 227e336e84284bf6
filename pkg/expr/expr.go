package expr

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
)

// Protect CEL environment creation and compilation from concurrent access.
var celMutex sync.Mutex

// ErrNotBool is returned when an expression does not evaluate to a boolean.
var ErrNotBool = errors.New("expression must return a bool")

// Environment provides a thread-safe wrapper around a [*cel.Env].
type Environment struct {
	env *cel.Env
}

// NewEnvironment creates a new [Environment] with the time variables and
// functions described in the package documentation.
func NewEnvironment(opts ...cel.EnvOption) (*Environment, error) {
	celMutex.Lock()
	defer celMutex.Unlock()

	opts = append(opts, cel.Lib(&lib{}))

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	return &Environment{env: env}, nil
}

// MustNewEnvironment creates a new [Environment] and panics on error.
func MustNewEnvironment(opts ...cel.EnvOption) *Environment {
	env, err := NewEnvironment(opts...)
	if err != nil {
		panic(err)
	}

	return env
}

// Compile compiles a boolean CEL expression into a program.
//
//nolint:ireturn // Following CEL's function signature.
func (e *Environment) Compile(expression string) (cel.Program, error) {
	celMutex.Lock()
	defer celMutex.Unlock()

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile expression: %w", issues.Err())
	}

	out := ast.OutputType()
	if !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("compile expression: %w, got %s", ErrNotBool, out)
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("create program: %w", err)
	}

	return program, nil
}

// Activation returns the variables for evaluating a program at t.
func Activation(t time.Time) map[string]any {
	return map[string]any{
		"hour":    t.Hour(),
		"minute":  t.Minute(),
		"weekday": int(t.Weekday()),
		"now":     t,
	}
}

// EvalAt evaluates program at t.
func EvalAt(program cel.Program, t time.Time) (bool, error) {
	val, _, err := program.Eval(Activation(t))
	if err != nil {
		return false, fmt.Errorf("evaluate expression: %w", err)
	}

	b, ok := val.Value().(bool)
	if !ok {
		return false, ErrNotBool
	}

	return b, nil
}
