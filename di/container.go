package di

import (
	"reflect"
	"sync"
)

// Container holds bindings and activates instances on request.
// It is safe for concurrent use.
type Container struct {
	mu        sync.RWMutex
	bindings  map[DependencyKey]*Binding
	order     []DependencyKey
	observers []func(*Binding)
}

// NewContainer returns an empty container.
func NewContainer() *Container {
	return &Container{bindings: make(map[DependencyKey]*Binding)}
}

// Bind registers ctor under key in transient scope and returns the binding
// for further configuration.
//
// It panics with DuplicateKeyError if key is already bound and with
// ErrNilConstructor if ctor is nil; use TryBind to get errors instead.
func (c *Container) Bind(key DependencyKey, ctor Constructor) *Binding {
	b, err := c.TryBind(key, ctor)
	if err != nil {
		panic(err)
	}
	return b
}

// TryBind is Bind returning errors instead of panicking.
func (c *Container) TryBind(key DependencyKey, ctor Constructor) (*Binding, error) {
	if ctor == nil {
		return nil, ErrNilConstructor
	}

	c.mu.Lock()
	if _, exists := c.bindings[key]; exists {
		c.mu.Unlock()
		return nil, DuplicateKeyError{Key: key}
	}
	b := &Binding{key: key, ctor: ctor, scope: ScopeTransient}
	c.bindings[key] = b
	c.order = append(c.order, key)
	observers := append([]func(*Binding){}, c.observers...)
	c.mu.Unlock()

	for _, fn := range observers {
		fn(b)
	}
	return b, nil
}

// BindValue registers an already constructed value as a singleton.
func (c *Container) BindValue(key DependencyKey, v any) *Binding {
	return c.Bind(key, func(*Resolver) (any, error) { return v, nil }).InSingletonScope()
}

// Bindings returns all bindings in registration order.
func (c *Container) Bindings() []*Binding {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Binding, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.bindings[k])
	}
	return out
}

// Binding returns the binding for key.
func (c *Container) Binding(key DependencyKey) (*Binding, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.bindings[key]
	return b, ok
}

// OnBind calls fn for every existing binding, in registration order, and for
// every binding added later.
func (c *Container) OnBind(fn func(*Binding)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.observers = append(c.observers, fn)
	existing := make([]*Binding, 0, len(c.order))
	for _, k := range c.order {
		existing = append(existing, c.bindings[k])
	}
	c.mu.Unlock()

	for _, b := range existing {
		fn(b)
	}
}

// Get activates the binding for key.
func (c *Container) Get(key DependencyKey) (any, error) {
	return (&Resolver{c: c}).Get(key)
}

// Resolver resolves dependencies on behalf of a constructor and tracks the
// resolution path to detect cycles.
type Resolver struct {
	c    *Container
	path []DependencyKey
}

// Get activates the binding for key as a dependency of the binding being built.
func (r *Resolver) Get(key DependencyKey) (any, error) {
	for _, k := range r.path {
		if k == key {
			path := append(append([]DependencyKey(nil), r.path...), key)
			return nil, CircularDependencyError{Path: path}
		}
	}

	b, ok := r.c.Binding(key)
	if !ok {
		return nil, MissingBindingError{Key: key}
	}

	child := &Resolver{c: r.c, path: append(append([]DependencyKey(nil), r.path...), key)}
	return b.activate(child)
}

// Getter is implemented by Container and Resolver.
type Getter interface {
	Get(key DependencyKey) (any, error)
}

// Resolve activates key and returns it typed as T.
//
// It returns:
//   - MissingBindingError if the key is not bound
//   - WrongTypeError if the instance is not a T
//   - ActivationError / CircularDependencyError from activation
//
// Instrumented instances may be proxies, so T is usually an interface.
func Resolve[T any](g Getter, key DependencyKey) (T, error) {
	var zero T
	raw, err := g.Get(key)
	if err != nil {
		return zero, err
	}
	v, ok := raw.(T)
	if !ok {
		got := "<nil>"
		if raw != nil {
			got = reflect.TypeOf(raw).String()
		}
		return zero, WrongTypeError{
			Key:     key,
			Want:    reflect.TypeOf((*T)(nil)).Elem().String(),
			GotType: got,
		}
	}
	return v, nil
}

// MustResolve is Resolve that panics on error.
// Useful in composition roots where a missing binding should fail fast.
func MustResolve[T any](g Getter, key DependencyKey) T {
	v, err := Resolve[T](g, key)
	if err != nil {
		panic(err)
	}
	return v
}
