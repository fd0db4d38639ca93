package di

import (
	"errors"
	"strconv"
	"strings"
)

// ErrNilConstructor is returned when a binding is created without a constructor.
var ErrNilConstructor = errors.New("di: nil constructor")

// DuplicateKeyError is returned when a key is bound twice.
type DuplicateKeyError struct{ Key DependencyKey }

// Error implements the error interface.
func (e DuplicateKeyError) Error() string {
	// Example: di: duplicate binding key "db"
	return "di: duplicate binding key " + strconv.Quote(string(e.Key))
}

// MissingBindingError is returned when no binding exists for a key.
type MissingBindingError struct{ Key DependencyKey }

// Error implements the error interface.
func (e MissingBindingError) Error() string {
	// Example: di: no binding for "db"
	return "di: no binding for " + strconv.Quote(string(e.Key))
}

// WrongTypeError is returned by typed resolution when the activated instance
// does not have the requested type.
type WrongTypeError struct {
	// Key is the binding key requested.
	Key DependencyKey

	// Want is the requested type, GotType the dynamic type of the instance.
	Want    string
	GotType string
}

// Error implements the error interface.
func (e WrongTypeError) Error() string {
	// Example: di: binding "db" has type *mypkg.Logger, want *sql.DB
	return "di: binding " + strconv.Quote(string(e.Key)) + " has type " + e.GotType + ", want " + e.Want
}

// CircularDependencyError is returned when resolving a key requires itself.
type CircularDependencyError struct{ Path []DependencyKey }

// Error implements the error interface.
func (e CircularDependencyError) Error() string {
	// Example: di: circular dependency a -> b -> a
	parts := make([]string, len(e.Path))
	for i, k := range e.Path {
		parts[i] = string(k)
	}
	return "di: circular dependency " + strings.Join(parts, " -> ")
}

// ActivationError wraps a failure of a constructor or activation handler.
type ActivationError struct {
	Key DependencyKey
	Err error
}

// Error implements the error interface.
func (e ActivationError) Error() string {
	return "di: activating " + strconv.Quote(string(e.Key)) + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e ActivationError) Unwrap() error { return e.Err }
