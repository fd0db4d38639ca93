// Package listeners provides ready-made tracer listeners: structured logs,
// OpenTelemetry spans and Prometheus metrics.
package listeners

import (
	"go.uber.org/zap"

	"github.com/sghaida/oditrace/tracer"
)

// Log writes one debug entry per call and per return to logger.
type Log struct {
	logger *zap.Logger
}

// NewLog returns a Log listener. A nil logger disables output.
func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger}
}

// Register subscribes the listener to t.
func (l *Log) Register(t *tracer.Tracer) {
	t.OnCall(l.OnCall)
	t.OnReturn(l.OnReturn)
}

// OnCall logs a call event.
func (l *Log) OnCall(ci tracer.CallInfo) {
	fields := make([]zap.Field, 0, len(ci.Parameters)+3)
	fields = append(fields,
		zap.String("call_id", ci.CallID),
		zap.String("class", ci.ClassName),
		zap.String("method", ci.MethodName),
	)
	for _, p := range ci.Parameters {
		if p.Missing {
			continue
		}
		fields = append(fields, zap.Any("param."+p.Name, p.Value))
	}
	l.logger.Debug("call", fields...)
}

// OnReturn logs a return event; failures are logged at warn level.
func (l *Log) OnReturn(ri tracer.ReturnInfo) {
	fields := []zap.Field{
		zap.String("call_id", ri.CallID),
		zap.String("class", ri.ClassName),
		zap.String("method", ri.MethodName),
		zap.Duration("execution_time", ri.ExecutionTime),
	}
	if ri.Err != nil {
		l.logger.Warn("return", append(fields, zap.Error(ri.Err))...)
		return
	}
	l.logger.Debug("return", append(fields, zap.Any("result", ri.Result))...)
}
