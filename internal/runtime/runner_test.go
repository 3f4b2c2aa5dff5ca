package runtime

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/pipeflow/internal/runtime/config"
)

type otherProduct struct {
	ProductBase
	Seen int
}

func TestRunnerDrivesSeveralPipelines(t *testing.T) {
	first := newTestPipeline(t)
	firstConsumer := newRecordingConsumer("C")
	require.NoError(t, first.AddConsumer(firstConsumer))

	cfg := testSettings(nil, nil)
	cfg.PipelineName = "second"
	second := NewPipeline[testEvent](cfg, func() *otherProduct { return &otherProduct{} })
	var order []string
	require.NoError(t, first.AddProducer(producer("P", func(e testEvent, _ *testProduct) error {
		order = append(order, "first")
		return nil
	})))
	require.NoError(t, second.AddProducer(NewProducerFunc("P", func(e testEvent, p *otherProduct, _ *config.Config) error {
		order = append(order, "second")
		p.Seen = e.ID
		return nil
	})))

	runner := NewRunner[testEvent](nil, first, second)
	n, err := runner.RunSlice(context.Background(), []testEvent{{ID: 1}, {ID: 2}})
	require.NoError(t, err)

	assert.Equal(t, uint64(2), n)
	assert.Equal(t, []string{"first", "second", "first", "second"}, order)
	assert.Equal(t, 1, firstConsumer.finishCalls)
	assert.Equal(t, uint64(2), second.EventsProcessed())
}

func TestRunnerStopsOnFatalError(t *testing.T) {
	p := newTestPipeline(t)
	c := newRecordingConsumer("C")
	c.eventErr = errors.New("disk full")
	require.NoError(t, p.AddConsumer(c))

	n, err := NewRunner[testEvent](nil, p).RunSlice(context.Background(), []testEvent{{ID: 1}, {ID: 2}})
	assert.ErrorIs(t, err, c.eventErr)
	assert.Contains(t, err.Error(), `pipeline "test"`)
	assert.Zero(t, n)
	assert.Zero(t, c.finishCalls)
}

func TestRunnerHonoursCancellationBetweenEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := newTestPipeline(t)
	c := newRecordingConsumer("C")
	require.NoError(t, p.AddConsumer(c))

	var events iter.Seq[testEvent] = func(yield func(testEvent) bool) {
		for i := 1; ; i++ {
			if i == 3 {
				cancel()
			}
			if !yield(testEvent{ID: i}) {
				return
			}
		}
	}

	n, err := NewRunner[testEvent](nil, p).Run(ctx, events)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, uint64(2), n)
	assert.Equal(t, 1, c.finishCalls)
	assert.Len(t, c.events, 2)
}

func TestRunnerInitFailure(t *testing.T) {
	p := newTestPipeline(t)
	require.NoError(t, p.AddConsumer(newRecordingConsumer("dup")))
	require.NoError(t, p.AddConsumer(newRecordingConsumer("dup")))

	_, err := NewRunner[testEvent](nil, p).RunSlice(context.Background(), nil)
	assert.Error(t, err)
}

func TestRunnerWithoutPipelines(t *testing.T) {
	_, err := NewRunner[testEvent](nil).RunSlice(context.Background(), nil)
	assert.Error(t, err)
}
