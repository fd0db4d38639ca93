package tracer

import (
	"reflect"

	"go.uber.org/zap"
)

// ClassNamer lets a value report its class name explicitly. Generated proxies
// implement it so they are filtered under the name of the type they wrap.
type ClassNamer interface {
	ClassName() string
}

// ClassName returns the class name used for filtering: the ClassName method
// when present, otherwise the Go type name with pointers elided.
func ClassName(instance any) string {
	if n, ok := instance.(ClassNamer); ok {
		return n.ClassName()
	}
	t := reflect.TypeOf(instance)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	return t.Name()
}

// instrumenter applies the method filter to an instance's method table.
type instrumenter struct {
	methodFilter *FilterSet
	registry     Registry
	interceptor  *interceptor
	logger       *zap.Logger
}

// instrument wraps every method of instance selected by the method filter and
// returns the value callers should use from now on: instance itself when it
// carries a method table, a proxy built from the registry otherwise, or the
// untouched instance when neither is available.
func (in *instrumenter) instrument(instance any, className string) any {
	target, ok := instance.(Instrumentable)
	if !ok {
		class, found, err := resolveSafe(in.registry, className)
		if err != nil {
			in.logger.Warn("tracer: class registry failed",
				zap.String("class", className), zap.Error(err))
			return instance
		}
		if !found || class.Proxy == nil {
			in.logger.Debug("tracer: no method table for class", zap.String("class", className))
			return instance
		}
		if target, ok = class.Proxy(instance); !ok {
			in.logger.Warn("tracer: proxy rejected instance", zap.String("class", className))
			return instance
		}
	}

	table := target.MethodTable()
	wrapped := 0
	for _, m := range table.Class().Methods {
		if !in.methodFilter.IsIncluded(className + ":" + m.Name) {
			continue
		}
		if table.intercept(in.interceptor, m.Name, func(desc MethodDescriptor, original Method) Method {
			return in.interceptor.wrap(className, desc, original)
		}) {
			wrapped++
		}
	}

	in.logger.Debug("tracer: instrumented instance",
		zap.String("class", className), zap.Int("methods", wrapped))
	return target
}
