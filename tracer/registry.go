package tracer

import (
	"fmt"
	"sync"
)

// Class is the metadata the tracer needs to instrument instances of one class:
// its method descriptors and, for classes that do not carry their own method
// table, a factory wrapping an instance into a proxy.
type Class struct {
	Descriptor ClassDescriptor

	// Proxy wraps instance in an Instrumentable proxy. It reports false when
	// instance is not of the class's concrete type.
	Proxy func(instance any) (Instrumentable, bool)
}

// Registry supplies class metadata by class name.
//
// It is intentionally:
// - read-only from the tracer's point of view
// - side effect free
//
// Expected usage:
//
//	class, ok, err := reg.Resolve("OrderService")
type Registry interface {
	Resolve(className string) (class Class, ok bool, err error)
}

// MapRegistry is a simple in-memory registry. It is safe for concurrent use.
type MapRegistry struct {
	mu    sync.RWMutex
	items map[string]Class
}

// NewMapRegistry returns an empty registry.
func NewMapRegistry() *MapRegistry {
	return &MapRegistry{items: map[string]Class{}}
}

// Provide stores a class under its descriptor name and returns the registry
// for chaining.
func (r *MapRegistry) Provide(classes ...Class) *MapRegistry {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range classes {
		r.items[c.Descriptor.Name] = c
	}
	return r
}

// Resolve implements Registry and converts panics into errors.
func (r *MapRegistry) Resolve(className string) (class Class, ok bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			class = Class{}
			ok = false
			err = fmt.Errorf("%w: %v", ErrRegistryPanic, rec)
		}
	}()

	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.items[className]
	return c, ok, nil
}

// Get returns the class if present (no panic).
func (r *MapRegistry) Get(className string) (Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.items[className]
	return c, ok
}

// MustGet returns the class or panics with a helpful message.
func (r *MapRegistry) MustGet(className string) Class {
	c, ok := r.Get(className)
	if !ok {
		panic(fmt.Errorf("tracer: registry missing class %q", className))
	}
	return c
}

// resolveSafe calls reg.Resolve, treating a nil registry as empty and
// converting panics from foreign implementations into ErrRegistryPanic.
func resolveSafe(reg Registry, className string) (class Class, ok bool, err error) {
	if reg == nil {
		return Class{}, false, nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			class, ok = Class{}, false
			err = fmt.Errorf("%w: %v", ErrRegistryPanic, rec)
		}
	}()
	return reg.Resolve(className)
}
