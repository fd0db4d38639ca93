// Package di provides a small dependency injection container.
//
// Bindings connect a DependencyKey to a Constructor and a scope:
//
//   - transient (default): every resolution constructs a new instance
//   - singleton: the first resolution constructs, later ones get the cache
//
// Every activation runs an explicit pipeline: the binding's OnActivation
// handlers in registration order, then its Decorate handlers. Each stage gets
// the previous stage's output, so handlers compose instead of replacing each
// other, and each runs exactly once per activation. Interceptors (for example
// tracer.Tracer) attach to every binding through OnBind + Decorate.
//
// Quick start
//
//	c := di.NewContainer()
//	c.BindValue("db", db)
//	c.Bind("orders", func(r *di.Resolver) (any, error) {
//		db, err := di.Resolve[*sql.DB](r, "db")
//		if err != nil {
//			return nil, err
//		}
//		return NewOrderService(db), nil
//	}).InSingletonScope()
//
//	orders := di.MustResolve[OrderPlacer](c, "orders")
//
// Resolve through interfaces when bindings may be decorated: a decorator is
// free to hand back a proxy instead of the constructed pointer.
//
// There is no reflection-based injection: constructors wire their own
// dependencies explicitly.
package di
