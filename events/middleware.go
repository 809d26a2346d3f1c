package events

import (
	"context"
	"log/slog"
	"time"
)

// EmitInterceptor processes an outbound emission before it reaches the
// transport emitter.
type EmitInterceptor interface {
	// InterceptEmit inspects or transforms one emission and calls the
	// next emitter in the chain.
	InterceptEmit(ctx context.Context, namespace, event string, args []any, next Emitter) error

	// Name returns the interceptor name for logging.
	Name() string
}

// EmitInterceptorFunc is a function-based EmitInterceptor.
type EmitInterceptorFunc struct {
	name string
	fn   func(ctx context.Context, namespace, event string, args []any, next Emitter) error
}

// NewEmitInterceptorFunc creates a function-based interceptor.
func NewEmitInterceptorFunc(name string, fn func(ctx context.Context, namespace, event string, args []any, next Emitter) error) *EmitInterceptorFunc {
	return &EmitInterceptorFunc{name: name, fn: fn}
}

// InterceptEmit implements EmitInterceptor.
func (i *EmitInterceptorFunc) InterceptEmit(ctx context.Context, namespace, event string, args []any, next Emitter) error {
	return i.fn(ctx, namespace, event, args, next)
}

// Name implements EmitInterceptor.
func (i *EmitInterceptorFunc) Name() string {
	return i.name
}

// ChainEmitter wraps sink so every emission flows through the
// interceptors in order before reaching it.
func ChainEmitter(sink Emitter, interceptors ...EmitInterceptor) Emitter {
	emitter := sink
	for i := len(interceptors) - 1; i >= 0; i-- {
		interceptor := interceptors[i]
		next := emitter
		emitter = EmitterFunc(func(ctx context.Context, namespace, event string, args []any) error {
			return interceptor.InterceptEmit(ctx, namespace, event, args, next)
		})
	}
	return emitter
}

// ValidationInterceptor checks each emission against the router's
// subscribe-direction schemas before it is sent.
func ValidationInterceptor(router *Router) EmitInterceptor {
	return NewEmitInterceptorFunc("validation", func(ctx context.Context, namespace, event string, args []any, next Emitter) error {
		if err := router.ValidateEmit(namespace, event, args); err != nil {
			return err
		}
		return next.Emit(ctx, namespace, event, args)
	})
}

// LoggingInterceptor logs each emission and its outcome.
func LoggingInterceptor(logger *slog.Logger) EmitInterceptor {
	return NewEmitInterceptorFunc("logging", func(ctx context.Context, namespace, event string, args []any, next Emitter) error {
		start := time.Now()
		err := next.Emit(ctx, namespace, event, args)
		if err != nil {
			logger.Error("emit failed",
				"namespace", namespace,
				"event", event,
				"duration", time.Since(start),
				"error", err)
			return err
		}
		logger.Debug("emit", "namespace", namespace, "event", event, "duration", time.Since(start))
		return nil
	})
}

// DiscardEmitter accepts every emission and drops it. It anchors a
// chain whose interceptors do all the work.
var DiscardEmitter = EmitterFunc(func(context.Context, string, string, []any) error {
	return nil
})
