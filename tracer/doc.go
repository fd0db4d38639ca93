// Package tracer emits call and return events for methods of objects produced
// by a di.Container, without the traced code knowing about it.
//
// Go cannot replace methods on a live value, so traced classes dispatch
// through a MethodTable: either the type exposes one itself (Instrumentable),
// or cmd/tracegen generates a proxy implementing the same exported methods and
// a Class entry for a Registry. Parameter names come from the generated
// ClassDescriptor.
//
// Filters
//
// Filter expressions select what gets traced:
//
//	"OrderService"        trace every method of OrderService
//	"*Service"            trace every class ending in Service
//	"OrderService:Place"  trace one method
//	"!Cache"              never trace Cache
//	"!OrderService:Ping"  trace OrderService except Ping
//
// Exclusion wins over inclusion; no include expressions means "everything".
//
// Wiring
//
//	reg := tracer.NewMapRegistry().Provide(shop.OrderServiceTraceClass)
//	tr, err := tracer.New(tracer.Options{Filters: []string{"*Service"}, Registry: reg})
//	if err != nil {
//		return err
//	}
//	tr.OnCall(func(ci tracer.CallInfo) { ... })
//	tr.OnReturn(func(ri tracer.ReturnInfo) { ... })
//	_ = tr.Apply(container)
//
// Asynchronous methods return a *Future. The caller gets the very same future
// back; the return event fires once it settles, with ExecutionTime measured
// up to settlement.
package tracer
