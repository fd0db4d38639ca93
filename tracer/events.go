package tracer

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event names a tracer event.
type Event string

const (
	// EventCall fires before a traced method runs.
	EventCall Event = "call"
	// EventReturn fires once a traced method's result is known.
	EventReturn Event = "return"
)

// Parameter pairs a declared parameter name with the argument passed for it.
type Parameter struct {
	Name  string
	Value any

	// Missing is true when the caller passed fewer arguments than declared.
	Missing bool
}

// CallInfo describes one invocation of a traced method.
type CallInfo struct {
	// CallID correlates a call event with its return event.
	CallID     string
	ClassName  string
	MethodName string
	Parameters []Parameter
	Arguments  []any
}

// ReturnInfo describes the outcome of one invocation of a traced method.
type ReturnInfo struct {
	CallID     string
	ClassName  string
	MethodName string

	// Result is nil for methods without results, the value for single-result
	// methods, []any for multiple results, the resolved value of a future, or
	// the unsettled *Future when promise inspection is disabled.
	Result any

	// Err is the trailing non-nil error of an immediate result or the
	// rejection of a future.
	Err error

	ExecutionTime time.Duration
}

// Milliseconds returns ExecutionTime in fractional milliseconds.
func (r ReturnInfo) Milliseconds() float64 {
	return float64(r.ExecutionTime) / float64(time.Millisecond)
}

// CallListener receives call events.
type CallListener func(CallInfo)

// ReturnListener receives return events.
type ReturnListener func(ReturnInfo)

// ListenerPolicy decides what happens when a listener panics.
type ListenerPolicy int

const (
	// PropagatePanics lets a listener panic unwind into the traced call, or
	// into the goroutine settling the future for asynchronous methods.
	PropagatePanics ListenerPolicy = iota

	// IsolateListeners recovers listener panics, logs them and reports them
	// to Options.OnListenerPanic. Remaining listeners still run.
	IsolateListeners
)

// listeners is the registry of event handlers. Registration order is
// invocation order; a handler registered twice runs twice.
type listeners struct {
	mu      sync.RWMutex
	calls   []CallListener
	returns []ReturnListener

	policy  ListenerPolicy
	onPanic func(Event, any)
	logger  *zap.Logger
}

func (l *listeners) addCall(fn CallListener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, fn)
}

func (l *listeners) addReturn(fn ReturnListener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.returns = append(l.returns, fn)
}

func (l *listeners) emitCall(info CallInfo) {
	l.mu.RLock()
	calls := l.calls
	l.mu.RUnlock()

	for _, fn := range calls {
		l.guard(EventCall, func() { fn(info) })
	}
}

func (l *listeners) emitReturn(info ReturnInfo) {
	l.mu.RLock()
	returns := l.returns
	l.mu.RUnlock()

	for _, fn := range returns {
		l.guard(EventReturn, func() { fn(info) })
	}
}

func (l *listeners) guard(event Event, fn func()) {
	if l.policy != IsolateListeners {
		fn()
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			l.logger.Error("tracer: listener panicked",
				zap.String("event", string(event)),
				zap.String("panic", fmt.Sprint(rec)),
			)
			if l.onPanic != nil {
				l.onPanic(event, rec)
			}
		}
	}()
	fn()
}
