package tracer

import "sync"

// Method is the dynamic calling convention every traced method is reduced to.
type Method func(args ...any) Result

// MethodDescriptor names one method and its declared parameters in order.
type MethodDescriptor struct {
	Name   string
	Params []string
}

// ClassDescriptor lists the traceable methods of a class in declaration order.
//
// Descriptors are normally generated by cmd/tracegen from Go source, since
// parameter names are not available through reflection.
type ClassDescriptor struct {
	Name    string
	Methods []MethodDescriptor
}

// Method returns the descriptor for name.
func (c ClassDescriptor) Method(name string) (MethodDescriptor, bool) {
	for _, m := range c.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return MethodDescriptor{}, false
}

// Instrumentable is implemented by values whose methods dispatch through a
// MethodTable. The tracer swaps table slots in place, so the value keeps its
// identity.
type Instrumentable interface {
	MethodTable() *MethodTable
}

type methodSlot struct {
	desc MethodDescriptor
	fn   Method

	// owners holds the interceptors that already wrapped fn.
	owners map[*interceptor]struct{}
}

// MethodTable holds the current implementation of each method of one instance.
// It is safe for concurrent use.
type MethodTable struct {
	class ClassDescriptor

	mu    sync.RWMutex
	slots map[string]*methodSlot
}

// NewMethodTable returns an empty table for class.
func NewMethodTable(class ClassDescriptor) *MethodTable {
	slots := make(map[string]*methodSlot, len(class.Methods))
	for _, m := range class.Methods {
		slots[m.Name] = &methodSlot{desc: m}
	}
	return &MethodTable{class: class, slots: slots}
}

// Class returns the descriptor the table was built from.
func (t *MethodTable) Class() ClassDescriptor { return t.class }

// Define sets the implementation of a declared method and returns the table
// for chaining. It panics with *UnknownMethodError for undeclared names.
func (t *MethodTable) Define(name string, fn Method) *MethodTable {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.slots[name]
	if !ok {
		panic(&UnknownMethodError{Class: t.class.Name, Method: name})
	}
	s.fn = fn
	return t
}

// Invoke calls the current implementation of name.
func (t *MethodTable) Invoke(name string, args ...any) Result {
	t.mu.RLock()
	s, ok := t.slots[name]
	var fn Method
	if ok {
		fn = s.fn
	}
	t.mu.RUnlock()

	if fn == nil {
		panic(&UnknownMethodError{Class: t.class.Name, Method: name})
	}
	return fn(args...)
}

// Intercepted reports whether name has been wrapped by at least one tracer.
func (t *MethodTable) Intercepted(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.slots[name]
	return ok && len(s.owners) > 0
}

// intercept replaces the implementation of name with wrap(original).
// Each owner wraps a slot at most once; wrappers of different owners stack.
// It reports whether wrapping happened.
func (t *MethodTable) intercept(owner *interceptor, name string, wrap func(MethodDescriptor, Method) Method) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.slots[name]
	if !ok || s.fn == nil {
		return false
	}
	if _, done := s.owners[owner]; done {
		return false
	}
	if s.owners == nil {
		s.owners = make(map[*interceptor]struct{}, 1)
	}
	s.fn = wrap(s.desc, s.fn)
	s.owners[owner] = struct{}{}
	return true
}
