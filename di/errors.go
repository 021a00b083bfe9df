package di

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
)

var (
	// ErrConfiguration matches every ConfigurationError via errors.Is.
	ErrConfiguration = errors.New("di: configuration error")

	// ErrCyclicDependency matches every CyclicDependencyError via errors.Is.
	ErrCyclicDependency = errors.New("di: cyclic dependency")

	// ErrAlreadyRegistered matches every AlreadyRegisteredError via errors.Is.
	ErrAlreadyRegistered = errors.New("di: already registered")

	// ErrValidation matches every ValidationError via errors.Is.
	ErrValidation = errors.New("di: validation failed")

	// ErrPostConstruct matches every PostConstructError via errors.Is.
	ErrPostConstruct = errors.New("di: post-construct failed")
)

// ConfigurationError reports an invalid handler, provider or instantiation setup:
// no way to build a type, ambiguous constructors, provider results of the wrong type,
// handlers that match no capability.
type ConfigurationError struct {
	// Type is the type being configured or resolved. It may be nil.
	Type reflect.Type

	// Reason is a human readable description of the problem.
	Reason string

	// Err is an optional underlying cause.
	Err error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	// Example: di: no eligible constructor (*app.Service)
	msg := "di: " + e.Reason
	if e.Type != nil {
		msg += " (" + e.Type.String() + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ConfigurationError) Unwrap() error { return e.Err }

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// CyclicDependencyError is returned when an identifier is requested again while it is
// still being resolved further up the same call stack.
type CyclicDependencyError struct {
	// Chain lists the identifiers from the first occurrence to the repeated one.
	Chain []Identifier
}

// Error implements the error interface.
func (e *CyclicDependencyError) Error() string {
	// Example: di: cyclic dependency: *app.A -> *app.B -> *app.A
	parts := make([]string, len(e.Chain))
	for i, id := range e.Chain {
		parts[i] = id.String()
	}
	return "di: cyclic dependency: " + strings.Join(parts, " -> ")
}

// Is reports whether target is ErrCyclicDependency.
func (e *CyclicDependencyError) Is(target error) bool { return target == ErrCyclicDependency }

// AlreadyRegisteredError is returned on a second registration for the same key:
// a singleton value, a provider or an annotation value.
type AlreadyRegisteredError struct {
	// Kind is what was registered: "singleton", "provider", "annotation value" or "binding".
	Kind string

	// Key is the printable key of the registration.
	Key string
}

// Error implements the error interface.
func (e *AlreadyRegisteredError) Error() string {
	// Example: di: provider already registered for "*app.Delta"
	return "di: " + e.Kind + " already registered for " + strconv.Quote(e.Key)
}

// Is reports whether target is ErrAlreadyRegistered.
func (e *AlreadyRegisteredError) Is(target error) bool { return target == ErrAlreadyRegistered }

// ValidationError is returned when a pre-construct handler vetoes a type.
type ValidationError struct {
	Type   reflect.Type
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	// Example: di: class *other.Thing is outside of the allowed packages
	name := "<nil>"
	if e.Type != nil {
		name = e.Type.String()
	}
	return "di: class " + name + " " + e.Reason
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// PostConstructError wraps any failure raised while running initialization hooks,
// including structurally invalid hooks.
type PostConstructError struct {
	Type   reflect.Type
	Method string
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *PostConstructError) Error() string {
	// Example: di: could not invoke post-construct method "Init" on *app.Service: boom
	msg := "di: " + e.Reason
	if e.Method != "" {
		msg += " " + strconv.Quote(e.Method)
	}
	if e.Type != nil {
		msg += " on " + e.Type.String()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *PostConstructError) Unwrap() error { return e.Err }

// Is reports whether target is ErrPostConstruct.
func (e *PostConstructError) Is(target error) bool { return target == ErrPostConstruct }

func configErr(t reflect.Type, reason string) error {
	return &ConfigurationError{Type: t, Reason: reason}
}
