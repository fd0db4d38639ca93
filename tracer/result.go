package tracer

// Result is what a Method hands back: either the values it returned
// immediately or a Future that settles later.
type Result struct {
	values []any
	future *Future
}

// Immediate wraps values returned synchronously.
func Immediate(values ...any) Result { return Result{values: values} }

// Pending wraps an asynchronous outcome.
func Pending(f *Future) Result { return Result{future: f} }

// IsPending reports whether the result is a Future.
func (r Result) IsPending() bool { return r.future != nil }

// Future returns the pending future, or nil for immediate results.
func (r Result) Future() *Future { return r.future }

// Values returns the immediate values in declaration order.
func (r Result) Values() []any { return r.values }

// Value collapses the result into one value: the future when pending, nil for
// no values, the value itself for one, and the whole slice otherwise.
func (r Result) Value() any {
	if r.future != nil {
		return r.future
	}
	switch len(r.values) {
	case 0:
		return nil
	case 1:
		return r.values[0]
	default:
		return r.values
	}
}

// Err returns the trailing error value of an immediate result, if any.
func (r Result) Err() error {
	if len(r.values) == 0 {
		return nil
	}
	err, _ := r.values[len(r.values)-1].(error)
	return err
}

// Arg returns args[i] as T, or the zero T when the argument is missing or nil.
// Generated proxies use it to unpack dynamic arguments.
func Arg[T any](args []any, i int) T {
	var zero T
	if i >= len(args) || args[i] == nil {
		return zero
	}
	v, ok := args[i].(T)
	if !ok {
		return zero
	}
	return v
}

// Out returns the i-th immediate value of r as T, or the zero T.
func Out[T any](r Result, i int) T {
	return Arg[T](r.values, i)
}
