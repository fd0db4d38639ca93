package tracer

import (
	"errors"
	"strconv"
)

var (
	// ErrNilContainer is returned by Apply when no container is given.
	ErrNilContainer = errors.New("tracer: nil container")

	// ErrRegistryPanic is returned if a registry implementation panics internally.
	ErrRegistryPanic = errors.New("tracer: panic during registry Resolve")
)

// InvalidFilterError is returned when a filter expression contains a
// disallowed character or is malformed.
type InvalidFilterError struct {
	Filter string
	Reason string
}

// Error implements the error interface.
func (e *InvalidFilterError) Error() string {
	// Example: tracer: invalid filter "a#b": disallowed character '#'
	return "tracer: invalid filter " + strconv.Quote(e.Filter) + ": " + e.Reason
}

// InvalidTracerEventError is returned by On for an unknown event name.
type InvalidTracerEventError struct{ Event string }

// Error implements the error interface.
func (e *InvalidTracerEventError) Error() string {
	return "tracer: invalid event " + strconv.Quote(e.Event) + " (want \"call\" or \"return\")"
}

// InvalidHandlerError is returned by On when the handler does not have the
// signature required by the event.
type InvalidHandlerError struct {
	Event Event
	Got   string
}

// Error implements the error interface.
func (e *InvalidHandlerError) Error() string {
	return "tracer: invalid handler for event " + strconv.Quote(string(e.Event)) + " (got " + e.Got + ")"
}

// UnknownMethodError is raised (as a panic value) when a method table is asked
// for a method its class descriptor does not declare.
type UnknownMethodError struct {
	Class  string
	Method string
}

// Error implements the error interface.
func (e *UnknownMethodError) Error() string {
	return "tracer: class " + strconv.Quote(e.Class) + " has no method " + strconv.Quote(e.Method)
}
