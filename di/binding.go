package di

import "sync"

// Scope defines the lifetime and sharing behavior of a binding.
type Scope string

const (
	// ScopeTransient creates a new instance for each resolution.
	ScopeTransient Scope = "transient"
	// ScopeSingleton shares a single instance across the container.
	ScopeSingleton Scope = "singleton"
)

// DependencyKey identifies a binding.
//
// Keys are typically defined as package-level constants to avoid typos.
//
// Example:
//
//	const (
//	  KeyDB     di.DependencyKey = "db"
//	  KeyLogger di.DependencyKey = "logger"
//	)
type DependencyKey string

// Key converts a string into a DependencyKey.
func Key(name string) DependencyKey { return DependencyKey(name) }

// Constructor builds a new instance. Dependencies are resolved through r so
// cycles are detected.
type Constructor func(r *Resolver) (any, error)

// ActivationContext tells an activation handler what is being activated.
type ActivationContext struct {
	Key   DependencyKey
	Scope Scope
}

// ActivationHandler transforms a freshly constructed instance. The returned
// value replaces the instance for the rest of the pipeline.
type ActivationHandler func(ctx ActivationContext, instance any) (any, error)

// Binding connects a key to a constructor, a scope and an activation pipeline.
//
// The pipeline runs on every activation: first the OnActivation handlers in
// registration order, then the Decorate handlers in registration order. Each
// stage receives the previous stage's output and runs exactly once per
// activation. Singletons activate once; the pipeline output is cached.
type Binding struct {
	key  DependencyKey
	ctor Constructor

	mu          sync.Mutex
	scope       Scope
	activations []ActivationHandler
	decorators  []ActivationHandler
	cached      bool
	instance    any
}

// Key returns the binding key.
func (b *Binding) Key() DependencyKey { return b.key }

// Scope returns the binding scope.
func (b *Binding) Scope() Scope {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.scope
}

// InSingletonScope shares one instance across all resolutions.
func (b *Binding) InSingletonScope() *Binding { return b.setScope(ScopeSingleton) }

// InTransientScope creates a new instance for each resolution (the default).
func (b *Binding) InTransientScope() *Binding { return b.setScope(ScopeTransient) }

func (b *Binding) setScope(s Scope) *Binding {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scope = s
	return b
}

// OnActivation appends a handler to the activation stage of the pipeline.
// A nil handler is ignored.
func (b *Binding) OnActivation(h ActivationHandler) *Binding {
	if h == nil {
		return b
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.activations = append(b.activations, h)
	return b
}

// Decorate appends a handler to the decoration stage, which runs after every
// OnActivation handler regardless of registration time. Interceptors such as
// tracers register here so they see the fully activated instance.
func (b *Binding) Decorate(h ActivationHandler) *Binding {
	if h == nil {
		return b
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.decorators = append(b.decorators, h)
	return b
}

// activate returns the instance for this binding, constructing it and running
// the pipeline unless a cached singleton exists.
func (b *Binding) activate(r *Resolver) (any, error) {
	b.mu.Lock()
	if b.scope != ScopeSingleton {
		pipeline := b.pipelineLocked()
		scope := b.scope
		b.mu.Unlock()
		return b.build(r, scope, pipeline)
	}
	defer b.mu.Unlock()

	if b.cached {
		return b.instance, nil
	}
	v, err := b.build(r, b.scope, b.pipelineLocked())
	if err != nil {
		return nil, err
	}
	b.instance, b.cached = v, true
	return v, nil
}

func (b *Binding) pipelineLocked() []ActivationHandler {
	pipeline := make([]ActivationHandler, 0, len(b.activations)+len(b.decorators))
	pipeline = append(pipeline, b.activations...)
	return append(pipeline, b.decorators...)
}

func (b *Binding) build(r *Resolver, scope Scope, pipeline []ActivationHandler) (any, error) {
	v, err := b.ctor(r)
	if err != nil {
		return nil, ActivationError{Key: b.key, Err: err}
	}
	ctx := ActivationContext{Key: b.key, Scope: scope}
	for _, h := range pipeline {
		if v, err = h(ctx, v); err != nil {
			return nil, ActivationError{Key: b.key, Err: err}
		}
	}
	return v, nil
}
