package tracer

import (
	"context"
	"sync"
)

// Future is the eventual outcome of an asynchronous method.
//
// It settles exactly once, either resolved with a value or rejected with an
// error. Continuations registered with Then run on the goroutine that settles
// the future, in registration order, before Done is closed, so a caller
// returning from Await observes every continuation as completed.
//
// Continuations must not block on the future they are attached to.
type Future struct {
	mu        sync.Mutex
	settled   bool
	drained   bool
	value     any
	err       error
	callbacks []func(any, error)
	done      chan struct{}
}

// NewFuture returns an unsettled future.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Go runs fn on a new goroutine and returns a future settled with its outcome.
func Go(fn func() (any, error)) *Future {
	f := NewFuture()
	go func() {
		v, err := fn()
		if err != nil {
			f.Reject(err)
			return
		}
		f.Resolve(v)
	}()
	return f
}

// Resolved returns a future already resolved with v.
func Resolved(v any) *Future {
	f := NewFuture()
	f.Resolve(v)
	return f
}

// Resolve settles the future with v. It reports false if the future was
// already settled.
func (f *Future) Resolve(v any) bool { return f.settle(v, nil) }

// Reject settles the future with err. It reports false if the future was
// already settled.
func (f *Future) Reject(err error) bool { return f.settle(nil, err) }

func (f *Future) settle(v any, err error) bool {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return false
	}
	f.settled = true
	f.value, f.err = v, err

	// A panicking continuation still releases waiters.
	finished := false
	defer func() {
		if finished {
			return
		}
		f.mu.Lock()
		f.drained, f.callbacks = true, nil
		f.mu.Unlock()
		close(f.done)
	}()

	// Then calls made while continuations run are queued and drained here,
	// so every continuation completes before done is closed.
	for len(f.callbacks) > 0 {
		callbacks := f.callbacks
		f.callbacks = nil
		f.mu.Unlock()
		for _, cb := range callbacks {
			cb(v, err)
		}
		f.mu.Lock()
	}
	f.drained = true
	f.mu.Unlock()

	finished = true
	close(f.done)
	return true
}

// Then registers fn to run once the future settles. If it has settled and
// its continuations have already run, fn runs immediately on the calling
// goroutine.
func (f *Future) Then(fn func(value any, err error)) {
	f.mu.Lock()
	if !f.drained {
		f.callbacks = append(f.callbacks, fn)
		f.mu.Unlock()
		return
	}
	v, err := f.value, f.err
	f.mu.Unlock()
	fn(v, err)
}

// Done is closed after the future settles and its continuations have run.
func (f *Future) Done() <-chan struct{} { return f.done }

// Settled reports whether the future has a value or an error.
func (f *Future) Settled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settled
}

// Await blocks until the future settles or ctx is done.
func (f *Future) Await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
