package runtime

import (
	"context"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	errspkg "github.com/drblury/pipeflow/internal/runtime/errors"
)

const tracerName = "github.com/drblury/pipeflow"

// StageInfo describes one stage invocation.
type StageInfo struct {
	Pipeline   string
	RunID      string
	StageID    string
	Kind       NodeKind
	EventIndex uint64
}

// StageFunc runs one producer or filter for one event.
type StageFunc func(ctx context.Context, info StageInfo) error

// StageMiddleware wraps a StageFunc.
type StageMiddleware func(next StageFunc) StageFunc

// MiddlewareRegistration names a middleware so it shows up in logs.
type MiddlewareRegistration struct {
	Name       string
	Middleware StageMiddleware
}

// DefaultMiddlewares returns the chain every pipeline starts with: tracing
// outermost and panic recovery innermost.
func DefaultMiddlewares() []MiddlewareRegistration {
	return []MiddlewareRegistration{
		TracerMiddleware(nil),
		RecovererMiddleware(),
	}
}

// TracerMiddleware wraps each stage in an OpenTelemetry span. A nil provider
// uses the global one.
func TracerMiddleware(provider trace.TracerProvider) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "tracer",
		Middleware: func(next StageFunc) StageFunc {
			return func(ctx context.Context, info StageInfo) error {
				tp := provider
				if tp == nil {
					tp = otel.GetTracerProvider()
				}
				ctx, span := tp.Tracer(tracerName).Start(ctx, string(info.Kind)+" "+info.StageID,
					trace.WithSpanKind(trace.SpanKindInternal),
					trace.WithAttributes(
						attribute.String("pipeline.name", info.Pipeline),
						attribute.String("pipeline.run_id", info.RunID),
						attribute.String("pipeline.stage", info.StageID),
						attribute.String("pipeline.kind", string(info.Kind)),
						attribute.Int64("pipeline.event_index", int64(info.EventIndex)),
					),
				)
				defer span.End()

				err := next(ctx, info)
				if err != nil {
					span.RecordError(err)
					span.SetStatus(codes.Error, err.Error())
				}
				return err
			}
		},
	}
}

// RecovererMiddleware turns a panicking stage into a *errors.PanicError.
func RecovererMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "recoverer",
		Middleware: func(next StageFunc) StageFunc {
			return func(ctx context.Context, info StageInfo) (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = &errspkg.PanicError{Value: r, Stack: debug.Stack()}
					}
				}()
				return next(ctx, info)
			}
		},
	}
}

// MetricsMiddleware observes stage duration and errors.
func MetricsMiddleware(m *StageMetrics) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "metrics",
		Middleware: func(next StageFunc) StageFunc {
			return func(ctx context.Context, info StageInfo) error {
				start := time.Now()
				err := next(ctx, info)
				m.ObserveStage(info, time.Since(start), err)
				return err
			}
		},
	}
}

// HooksMiddleware calls hooks around every stage.
func HooksMiddleware(hooks StageHooks) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "stage_hooks",
		Middleware: func(next StageFunc) StageFunc {
			return func(ctx context.Context, info StageInfo) error {
				sc := StageContext{StageInfo: info, Context: ctx, StartedAt: time.Now()}
				if hooks.OnStageStart != nil {
					hooks.OnStageStart(sc)
				}

				err := next(ctx, info)

				sc.Duration = time.Since(sc.StartedAt)
				if err != nil {
					if hooks.OnStageError != nil {
						hooks.OnStageError(sc, err)
					}
				} else if hooks.OnStageDone != nil {
					hooks.OnStageDone(sc)
				}
				return err
			}
		},
	}
}

// chain applies registrations so the first one is outermost.
func chain(regs []MiddlewareRegistration, final StageFunc) StageFunc {
	h := final
	for i := len(regs) - 1; i >= 0; i-- {
		if regs[i].Middleware != nil {
			h = regs[i].Middleware(h)
		}
	}
	return h
}
