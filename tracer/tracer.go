package tracer

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sghaida/oditrace/di"
)

// Options configures a Tracer.
type Options struct {
	// Filters are raw filter expressions; empty traces everything.
	Filters []string

	// InspectReturnedPromise controls asynchronous methods:
	// - nil or true: the return event waits for the future to settle
	// - false: the return event fires immediately with the unsettled future
	InspectReturnedPromise *bool

	// ListenerPolicy decides whether listener panics propagate (default) or
	// are isolated.
	ListenerPolicy ListenerPolicy

	// OnListenerPanic is called with the recovered value when ListenerPolicy
	// is IsolateListeners.
	OnListenerPanic func(event Event, recovered any)

	// Registry supplies method descriptors and proxy factories for classes
	// whose instances do not carry a method table themselves.
	Registry Registry

	// Logger receives diagnostics; defaults to a no-op logger.
	Logger *zap.Logger
}

// Container is the part of a DI container the tracer hooks into.
// *di.Container implements it.
type Container interface {
	OnBind(fn func(*di.Binding))
}

// Tracer instruments objects and dispatches call/return events to listeners.
//
// Filters and options are fixed at construction. Listeners may be registered
// at any time, including while traced calls are in flight; a call observes
// the listeners registered when it dispatches.
type Tracer struct {
	classFilter  *FilterSet
	methodFilter *FilterSet
	listeners    *listeners
	instrumenter *instrumenter
	logger       *zap.Logger

	mu      sync.Mutex
	applied map[Container]struct{}
}

// New builds a Tracer. It fails with *InvalidFilterError if any filter
// expression is malformed.
func New(opts Options) (*Tracer, error) {
	classFilter, err := ClassFilter(opts.Filters)
	if err != nil {
		return nil, err
	}
	methodFilter, err := MethodFilter(opts.Filters)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ls := &listeners{
		policy:  opts.ListenerPolicy,
		onPanic: opts.OnListenerPanic,
		logger:  logger,
	}

	inspect := true
	if opts.InspectReturnedPromise != nil {
		inspect = *opts.InspectReturnedPromise
	}

	return &Tracer{
		classFilter:  classFilter,
		methodFilter: methodFilter,
		listeners:    ls,
		instrumenter: &instrumenter{
			methodFilter: methodFilter,
			registry:     opts.Registry,
			interceptor:  &interceptor{listeners: ls, inspectFutures: inspect, now: time.Now},
			logger:       logger,
		},
		logger:  logger,
		applied: make(map[Container]struct{}),
	}, nil
}

// MustNew is New that panics on error.
func MustNew(opts Options) *Tracer {
	t, err := New(opts)
	if err != nil {
		panic(err)
	}
	return t
}

// ClassFilter returns the filter applied to class names.
func (t *Tracer) ClassFilter() *FilterSet { return t.classFilter }

// MethodFilter returns the filter applied to "Class:method" names.
func (t *Tracer) MethodFilter() *FilterSet { return t.methodFilter }

// On registers handler for event.
//
// "call" accepts func(CallInfo) or CallListener, "return" accepts
// func(ReturnInfo) or ReturnListener. Unknown events fail with
// *InvalidTracerEventError, mismatched handlers with *InvalidHandlerError.
func (t *Tracer) On(event Event, handler any) error {
	switch event {
	case EventCall:
		switch h := handler.(type) {
		case CallListener:
			if h != nil {
				t.OnCall(h)
				return nil
			}
		case func(CallInfo):
			if h != nil {
				t.OnCall(h)
				return nil
			}
		}
	case EventReturn:
		switch h := handler.(type) {
		case ReturnListener:
			if h != nil {
				t.OnReturn(h)
				return nil
			}
		case func(ReturnInfo):
			if h != nil {
				t.OnReturn(h)
				return nil
			}
		}
	default:
		return &InvalidTracerEventError{Event: string(event)}
	}
	return &InvalidHandlerError{Event: event, Got: fmt.Sprintf("%T", handler)}
}

// OnCall registers a call listener.
func (t *Tracer) OnCall(fn CallListener) { t.listeners.addCall(fn) }

// OnReturn registers a return listener.
func (t *Tracer) OnReturn(fn ReturnListener) { t.listeners.addReturn(fn) }

// Apply hooks the tracer into every current and future binding of c.
//
// The hook runs as a decoration stage, after the binding's own activation
// handlers, so it instruments whatever those handlers produced. Singletons are
// instrumented once, when first activated. Applying the same container twice
// is a no-op.
func (t *Tracer) Apply(c Container) error {
	if c == nil {
		return ErrNilContainer
	}

	t.mu.Lock()
	if _, done := t.applied[c]; done {
		t.mu.Unlock()
		t.logger.Debug("tracer: container already instrumented")
		return nil
	}
	t.applied[c] = struct{}{}
	t.mu.Unlock()

	c.OnBind(func(b *di.Binding) {
		b.Decorate(t.activate)
	})
	return nil
}

func (t *Tracer) activate(_ di.ActivationContext, instance any) (any, error) {
	return t.Instrument(instance), nil
}

// Instrument wraps the methods of instance selected by the filters and
// returns the value to use in its place. Instances whose class does not pass
// the class filter, or that have no method table, are returned unchanged.
func (t *Tracer) Instrument(instance any) any {
	if instance == nil {
		return nil
	}
	className := ClassName(instance)
	if !t.classFilter.IsIncluded(className) {
		t.logger.Debug("tracer: class filtered out", zap.String("class", className))
		return instance
	}
	return t.instrumenter.instrument(instance, className)
}
