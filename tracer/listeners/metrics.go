package listeners

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sghaida/oditrace/tracer"
)

// Metrics counts traced calls and observes their execution time.
type Metrics struct {
	registry *prometheus.Registry

	Calls    *prometheus.CounterVec
	Failures *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors under namespace and registers them with a
// dedicated registry, exposed through Registry.
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	calls := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "method_calls_total",
			Help:      "Total number of traced method calls",
		},
		[]string{"class", "method"},
	)

	failures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "method_failures_total",
			Help:      "Total number of traced method calls returning an error",
		},
		[]string{"class", "method"},
	)

	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "method_duration_seconds",
			Help:      "Traced method execution time in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"class", "method"},
	)

	registry.MustRegister(calls, failures, duration)

	return &Metrics{
		registry: registry,
		Calls:    calls,
		Failures: failures,
		Duration: duration,
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Register subscribes the listener to t.
func (m *Metrics) Register(t *tracer.Tracer) {
	t.OnCall(m.OnCall)
	t.OnReturn(m.OnReturn)
}

// OnCall increments the call counter.
func (m *Metrics) OnCall(ci tracer.CallInfo) {
	m.Calls.WithLabelValues(ci.ClassName, ci.MethodName).Inc()
}

// OnReturn records execution time and failures.
func (m *Metrics) OnReturn(ri tracer.ReturnInfo) {
	m.Duration.WithLabelValues(ri.ClassName, ri.MethodName).Observe(ri.ExecutionTime.Seconds())
	if ri.Err != nil {
		m.Failures.WithLabelValues(ri.ClassName, ri.MethodName).Inc()
	}
}
