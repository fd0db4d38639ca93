package listeners

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sghaida/oditrace/tracer"
)

// Attribute keys set on method spans.
const (
	AttrClass      = attribute.Key("code.namespace")
	AttrMethod     = attribute.Key("code.function")
	AttrCallID     = attribute.Key("oditrace.call_id")
	AttrPendingRes = attribute.Key("oditrace.result.pending")
)

// Spans records one OpenTelemetry span per traced call, started on the call
// event and ended on the matching return event.
type Spans struct {
	tracer trace.Tracer
	ctx    context.Context

	mu   sync.Mutex
	open map[string]trace.Span
}

// NewSpans returns a Spans listener. Spans are started as children of the
// span in ctx, if any. A nil tracer yields no-op spans.
func NewSpans(ctx context.Context, t trace.Tracer) *Spans {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Spans{tracer: t, ctx: ctx, open: make(map[string]trace.Span)}
}

// Register subscribes the listener to t.
func (s *Spans) Register(t *tracer.Tracer) {
	t.OnCall(s.OnCall)
	t.OnReturn(s.OnReturn)
}

// OnCall starts the span for a call.
func (s *Spans) OnCall(ci tracer.CallInfo) {
	if s.tracer == nil {
		return
	}
	_, span := s.tracer.Start(s.ctx, ci.ClassName+"."+ci.MethodName,
		trace.WithAttributes(
			AttrClass.String(ci.ClassName),
			AttrMethod.String(ci.MethodName),
			AttrCallID.String(ci.CallID),
		),
	)
	for _, p := range ci.Parameters {
		if !p.Missing {
			span.SetAttributes(attribute.String("oditrace.param."+p.Name, fmt.Sprint(p.Value)))
		}
	}

	s.mu.Lock()
	s.open[ci.CallID] = span
	s.mu.Unlock()
}

// OnReturn ends the span of the matching call.
func (s *Spans) OnReturn(ri tracer.ReturnInfo) {
	s.mu.Lock()
	span, ok := s.open[ri.CallID]
	delete(s.open, ri.CallID)
	s.mu.Unlock()
	if !ok {
		return
	}

	if _, pending := ri.Result.(*tracer.Future); pending {
		span.SetAttributes(AttrPendingRes.Bool(true))
	}
	if ri.Err != nil {
		span.RecordError(ri.Err)
		span.SetStatus(codes.Error, "method failed")
	}
	span.End()
}

// Flush ends every span still waiting for its return event with an error
// status and reports how many there were. Calls whose method panicked never
// get a return event, so their spans stay open until flushed.
func (s *Spans) Flush() int {
	s.mu.Lock()
	open := s.open
	s.open = make(map[string]trace.Span)
	s.mu.Unlock()

	for _, span := range open {
		span.SetStatus(codes.Error, "call did not return")
		span.End()
	}
	return len(open)
}

// Open returns the number of calls still waiting for their return event.
// See Flush.
func (s *Spans) Open() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.open)
}
