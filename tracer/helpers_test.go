package tracer_test

import (
	"errors"
	"sync"
	"time"

	"github.com/sghaida/oditrace/tracer"
)

//
// -----------------------------------------------------------------------------
// Fixtures
// -----------------------------------------------------------------------------

var errBoom = errors.New("boom")

var testObjectClass = tracer.ClassDescriptor{
	Name: "TestObject",
	Methods: []tracer.MethodDescriptor{
		{Name: "MethodWithValue", Params: []string{"value"}},
		{Name: "MethodWithError", Params: []string{"fail"}},
		{Name: "MethodPromiseResolveWithTimerAndValue", Params: []string{"time", "value"}},
		{Name: "MethodPromiseReject", Params: []string{"time"}},
		{Name: "MethodThatPanics"},
	},
}

// TestObject dispatches through its own method table, so the tracer
// instruments it in place.
type TestObject struct {
	table *tracer.MethodTable

	mu          sync.Mutex
	lastFuture  *tracer.Future
	invocations int
}

func NewTestObject() *TestObject {
	o := &TestObject{}
	o.table = tracer.NewMethodTable(testObjectClass).
		Define("MethodWithValue", func(args ...any) tracer.Result {
			o.count()
			return tracer.Immediate(tracer.Arg[int](args, 0))
		}).
		Define("MethodWithError", func(args ...any) tracer.Result {
			o.count()
			if tracer.Arg[bool](args, 0) {
				return tracer.Immediate("", errBoom)
			}
			return tracer.Immediate("ok", nil)
		}).
		Define("MethodPromiseResolveWithTimerAndValue", func(args ...any) tracer.Result {
			o.count()
			d, v := tracer.Arg[time.Duration](args, 0), tracer.Arg[int](args, 1)
			f := tracer.Go(func() (any, error) {
				time.Sleep(d)
				return v, nil
			})
			o.mu.Lock()
			o.lastFuture = f
			o.mu.Unlock()
			return tracer.Pending(f)
		}).
		Define("MethodPromiseReject", func(args ...any) tracer.Result {
			o.count()
			d := tracer.Arg[time.Duration](args, 0)
			return tracer.Pending(tracer.Go(func() (any, error) {
				time.Sleep(d)
				return nil, errBoom
			}))
		}).
		Define("MethodThatPanics", func(args ...any) tracer.Result {
			panic("original failure")
		})
	return o
}

func (o *TestObject) count() {
	o.mu.Lock()
	o.invocations++
	o.mu.Unlock()
}

func (o *TestObject) MethodTable() *tracer.MethodTable { return o.table }

func (o *TestObject) MethodWithValue(value int) int {
	return tracer.Out[int](o.table.Invoke("MethodWithValue", value), 0)
}

func (o *TestObject) MethodWithError(fail bool) (string, error) {
	r := o.table.Invoke("MethodWithError", fail)
	return tracer.Out[string](r, 0), tracer.Out[error](r, 1)
}

func (o *TestObject) MethodPromiseResolveWithTimerAndValue(d time.Duration, value int) *tracer.Future {
	return o.table.Invoke("MethodPromiseResolveWithTimerAndValue", d, value).Future()
}

func (o *TestObject) MethodPromiseReject(d time.Duration) *tracer.Future {
	return o.table.Invoke("MethodPromiseReject", d).Future()
}

func (o *TestObject) MethodThatPanics() {
	o.table.Invoke("MethodThatPanics")
}

func (o *TestObject) LastFuture() *tracer.Future {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastFuture
}

func (o *TestObject) Invocations() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.invocations
}

// NotTracedTestObject has the same shape as TestObject under another name.
type NotTracedTestObject struct {
	table *tracer.MethodTable
}

func NewNotTracedTestObject() *NotTracedTestObject {
	o := &NotTracedTestObject{}
	o.table = tracer.NewMethodTable(tracer.ClassDescriptor{
		Name:    "NotTracedTestObject",
		Methods: []tracer.MethodDescriptor{{Name: "MethodWithValue", Params: []string{"value"}}},
	}).Define("MethodWithValue", func(args ...any) tracer.Result {
		return tracer.Immediate(tracer.Arg[int](args, 0))
	})
	return o
}

func (o *NotTracedTestObject) MethodTable() *tracer.MethodTable { return o.table }

func (o *NotTracedTestObject) MethodWithValue(value int) int {
	return tracer.Out[int](o.table.Invoke("MethodWithValue", value), 0)
}

// Calculator knows nothing about tracing; calculatorProxy is what tracegen
// would generate for it.
type Calculator struct{}

func (Calculator) Add(a, b int) int { return a + b }

type Adder interface {
	Add(a, b int) int
}

type calculatorProxy struct {
	target *Calculator
	table  *tracer.MethodTable
}

var calculatorClass = tracer.Class{
	Descriptor: tracer.ClassDescriptor{
		Name:    "Calculator",
		Methods: []tracer.MethodDescriptor{{Name: "Add", Params: []string{"a", "b"}}},
	},
	Proxy: func(instance any) (tracer.Instrumentable, bool) {
		c, ok := instance.(*Calculator)
		if !ok {
			return nil, false
		}
		p := &calculatorProxy{target: c}
		p.table = tracer.NewMethodTable(tracer.ClassDescriptor{
			Name:    "Calculator",
			Methods: []tracer.MethodDescriptor{{Name: "Add", Params: []string{"a", "b"}}},
		}).Define("Add", func(args ...any) tracer.Result {
			return tracer.Immediate(c.Add(tracer.Arg[int](args, 0), tracer.Arg[int](args, 1)))
		})
		return p, true
	},
}

func (p *calculatorProxy) MethodTable() *tracer.MethodTable { return p.table }
func (p *calculatorProxy) ClassName() string               { return "Calculator" }
func (p *calculatorProxy) Add(a, b int) int {
	return tracer.Out[int](p.table.Invoke("Add", a, b), 0)
}

//
// -----------------------------------------------------------------------------
// Recorder
// -----------------------------------------------------------------------------

// recorder collects events in arrival order.
type recorder struct {
	mu      sync.Mutex
	calls   []tracer.CallInfo
	returns []tracer.ReturnInfo
	order   []string
}

func newRecorder(t *tracer.Tracer) *recorder {
	r := &recorder{}
	t.OnCall(func(ci tracer.CallInfo) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.calls = append(r.calls, ci)
		r.order = append(r.order, "call:"+ci.MethodName)
	})
	t.OnReturn(func(ri tracer.ReturnInfo) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.returns = append(r.returns, ri)
		r.order = append(r.order, "return:"+ri.MethodName)
	})
	return r
}

func (r *recorder) Calls() []tracer.CallInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tracer.CallInfo(nil), r.calls...)
}

func (r *recorder) Returns() []tracer.ReturnInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tracer.ReturnInfo(nil), r.returns...)
}

func (r *recorder) Order() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

func boolPtr(v bool) *bool { return &v }
