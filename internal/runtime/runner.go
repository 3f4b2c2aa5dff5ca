package runtime

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"

	errspkg "github.com/drblury/pipeflow/internal/runtime/errors"
	"github.com/drblury/pipeflow/internal/runtime/logging"
)

// Runnable is the part of a Pipeline a Runner drives. Pipelines over the
// same event type but different products or settings can share a Runner.
type Runnable[E any] interface {
	Name() string
	Init() error
	Handle(ctx context.Context, event E) error
	Finish() error
}

// Runner feeds one event stream through several pipelines. For each event
// the pipelines run in the order they were given, on the calling goroutine.
type Runner[E any] struct {
	pipelines []Runnable[E]
	logger    logging.Logger
}

func NewRunner[E any](logger logging.Logger, pipelines ...Runnable[E]) *Runner[E] {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Runner[E]{pipelines: pipelines, logger: logger}
}

// Run initialises every pipeline, processes events until the sequence ends
// and finishes every pipeline. A fatal pipeline error stops the run without
// calling Finish. Cancelling ctx stops between events; the pipelines are
// still finished so the output covers every processed event.
func (r *Runner[E]) Run(ctx context.Context, events iter.Seq[E]) (uint64, error) {
	if len(r.pipelines) == 0 {
		return 0, errspkg.ErrStageRequired
	}
	for _, p := range r.pipelines {
		if err := p.Init(); err != nil {
			return 0, err
		}
	}

	var processed uint64
	var cancelErr error
	for event := range events {
		if err := ctx.Err(); err != nil {
			cancelErr = err
			break
		}
		for _, p := range r.pipelines {
			if err := p.Handle(ctx, event); err != nil {
				r.logger.Error("Run aborted", err, logging.LogFields{
					"pipeline":    p.Name(),
					"event_index": processed,
				})
				return processed, fmt.Errorf("pipeflow: pipeline %q: %w", p.Name(), err)
			}
		}
		processed++
	}

	var errs []error
	for _, p := range r.pipelines {
		if err := p.Finish(); err != nil {
			errs = append(errs, fmt.Errorf("pipeflow: pipeline %q: %w", p.Name(), err))
		}
	}
	if cancelErr != nil {
		errs = append(errs, cancelErr)
	}

	r.logger.Info("Run complete", logging.LogFields{
		"events":    processed,
		"pipelines": len(r.pipelines),
		"cancelled": cancelErr != nil,
	})
	return processed, errors.Join(errs...)
}

// RunSlice runs the events of a slice.
func (r *Runner[E]) RunSlice(ctx context.Context, events []E) (uint64, error) {
	return r.Run(ctx, slices.Values(events))
}
