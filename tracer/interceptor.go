package tracer

import (
	"time"

	"github.com/google/uuid"
)

// interceptor turns methods into traced methods that report to listeners.
type interceptor struct {
	listeners      *listeners
	inspectFutures bool
	now            func() time.Time
}

// wrap returns a Method with the same calling convention as original that
// emits a call event before and a return event after each invocation.
// The Result handed back is always the one original produced.
func (ic *interceptor) wrap(className string, desc MethodDescriptor, original Method) Method {
	return func(args ...any) Result {
		callID := uuid.NewString()

		ic.listeners.emitCall(CallInfo{
			CallID:     callID,
			ClassName:  className,
			MethodName: desc.Name,
			Parameters: pairParameters(desc.Params, args),
			Arguments:  append([]any(nil), args...),
		})

		start := ic.now()
		res := original(args...)

		info := ReturnInfo{
			CallID:     callID,
			ClassName:  className,
			MethodName: desc.Name,
		}

		if !res.IsPending() || !ic.inspectFutures {
			info.ExecutionTime = ic.since(start)
			info.Result = res.Value()
			info.Err = res.Err()
			ic.listeners.emitReturn(info)
			return res
		}

		res.Future().Then(func(value any, err error) {
			info.ExecutionTime = ic.since(start)
			info.Result = value
			info.Err = err
			ic.listeners.emitReturn(info)
		})
		return res
	}
}

func (ic *interceptor) since(start time.Time) time.Duration {
	d := ic.now().Sub(start)
	if d < 0 {
		return 0
	}
	return d
}

// pairParameters pairs declared names with the arguments actually passed.
// Extra arguments stay visible through CallInfo.Arguments only.
func pairParameters(names []string, args []any) []Parameter {
	params := make([]Parameter, len(names))
	for i, name := range names {
		params[i] = Parameter{Name: name}
		if i < len(args) {
			params[i].Value = args[i]
		} else {
			params[i].Missing = true
		}
	}
	return params
}
