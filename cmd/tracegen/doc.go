// Command tracegen generates tracing support for concrete Go types.
//
// Go cannot replace methods at runtime, so the tracer instruments values
// through method tables. tracegen writes, for each type named in a YAML spec:
//
//   - <Type>TraceDescriptor: the tracer.ClassDescriptor listing the type's
//     exported methods with their parameter names
//   - <Type>TraceClass: a tracer.Class for a tracer.MapRegistry, whose Proxy
//     wraps *<Type> (and <Type>, when every method has a value receiver)
//   - <Proxy>: a struct with the same exported methods that dispatches
//     through a tracer.MethodTable, so tracer.Tracer can intercept them
//
// Spec format (trace.yaml)
//
//	package: shop
//	types:
//	  - name: OrderService
//	  - name: Inventory
//	    proxy: TracedInventory
//
// tracerImport overrides the tracer import path for forks.
//
// Typical go:generate usage
//
//	//go:generate go run ../../cmd/tracegen -spec ./trace.yaml -out ./trace.gen.go
//
// Signature rules
//
//   - methods with receiver T or *T are collected; promoted methods of
//     embedded fields are not
//   - unnamed and blank parameters are described as arg0, arg1, ...
//   - a variadic parameter is passed through the table as one slice
//   - a method whose only result is *tracer.Future is asynchronous: the
//     tracer reports its return when the future settles
//   - MethodTable, ClassName and Unwrap are skipped; every proxy defines them
//
// Consumers should depend on interfaces: the tracer hands the proxy, not the
// original pointer, to whoever resolves an instrumented binding.
package main
