// Package oditrace traces method calls on objects built by a dependency
// injection container.
//
// The repository is organised as:
//
//   - di: a small container with transient/singleton bindings and an
//     activation pipeline (OnActivation, then Decorate handlers)
//   - tracer: filters, method tables, the call/return interceptor and the
//     Tracer facade that hooks into a di.Container
//   - tracer/listeners: ready-made listeners for zap, OpenTelemetry and
//     Prometheus
//   - cmd/tracegen: generates method descriptors and method-table proxies
//     from Go source
//   - examples/shop: a runnable, fully traced example
//
// Start with examples/shop/main for end-to-end wiring.
package oditrace
