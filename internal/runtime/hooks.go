package runtime

import (
	"context"
	"time"

	"github.com/drblury/pipeflow/internal/runtime/logging"
)

// StageContext is passed to stage hooks.
type StageContext struct {
	StageInfo
	Context   context.Context
	StartedAt time.Time
	// Duration is only set in OnStageDone and OnStageError.
	Duration time.Duration
}

// StageHooks are optional callbacks around each producer and filter call.
type StageHooks struct {
	OnStageStart func(ctx StageContext)
	OnStageDone  func(ctx StageContext)
	OnStageError func(ctx StageContext, err error)
}

// Merge returns hooks calling h first, then other.
func (h StageHooks) Merge(other StageHooks) StageHooks {
	return StageHooks{
		OnStageStart: chainHooks(h.OnStageStart, other.OnStageStart),
		OnStageDone:  chainHooks(h.OnStageDone, other.OnStageDone),
		OnStageError: chainErrorHooks(h.OnStageError, other.OnStageError),
	}
}

func (h StageHooks) empty() bool {
	return h.OnStageStart == nil && h.OnStageDone == nil && h.OnStageError == nil
}

func chainHooks(a, b func(StageContext)) func(StageContext) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx StageContext) {
		a(ctx)
		b(ctx)
	}
}

func chainErrorHooks(a, b func(StageContext, error)) func(StageContext, error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx StageContext, err error) {
		a(ctx, err)
		b(ctx, err)
	}
}

func stageFields(ctx StageContext) logging.LogFields {
	return logging.LogFields{
		"pipeline":    ctx.Pipeline,
		"run_id":      ctx.RunID,
		"stage":       ctx.StageID,
		"kind":        ctx.Kind.String(),
		"event_index": ctx.EventIndex,
	}
}

// LoggingHooks traces stage starts and completions and logs failures.
func LoggingHooks(logger logging.Logger) StageHooks {
	return StageHooks{
		OnStageStart: func(ctx StageContext) {
			logger.Trace("Stage started", stageFields(ctx))
		},
		OnStageDone: func(ctx StageContext) {
			fields := stageFields(ctx)
			fields["duration_us"] = ctx.Duration.Microseconds()
			logger.Trace("Stage completed", fields)
		},
		OnStageError: func(ctx StageContext, err error) {
			fields := stageFields(ctx)
			fields["duration_us"] = ctx.Duration.Microseconds()
			logger.Error("Stage failed", err, fields)
		},
	}
}

// MetricsHooks forwards stage events to plain callbacks.
func MetricsHooks(onStart, onDone, onError func(pipeline, stage string)) StageHooks {
	return StageHooks{
		OnStageStart: func(ctx StageContext) {
			if onStart != nil {
				onStart(ctx.Pipeline, ctx.StageID)
			}
		},
		OnStageDone: func(ctx StageContext) {
			if onDone != nil {
				onDone(ctx.Pipeline, ctx.StageID)
			}
		},
		OnStageError: func(ctx StageContext, err error) {
			if onError != nil {
				onError(ctx.Pipeline, ctx.StageID)
			}
		},
	}
}

// AlertingHooks calls alertFunc for every failing stage.
func AlertingHooks(alertFunc func(ctx StageContext, err error)) StageHooks {
	return StageHooks{OnStageError: alertFunc}
}
