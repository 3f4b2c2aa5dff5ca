package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageHooksLifecycle(t *testing.T) {
	var started, done []string
	var failed []error
	hooks := StageHooks{
		OnStageStart: func(ctx StageContext) { started = append(started, ctx.StageID) },
		OnStageDone: func(ctx StageContext) {
			assert.GreaterOrEqual(t, ctx.Duration, time.Duration(0))
			done = append(done, ctx.StageID)
		},
		OnStageError: func(ctx StageContext, err error) {
			assert.Equal(t, uint64(0), ctx.EventIndex)
			failed = append(failed, err)
		},
	}

	p := newTestPipeline(t, WithHooks(hooks))
	require.NoError(t, p.AddProducer(producer("P1", func(testEvent, *testProduct) error { return nil })))
	require.NoError(t, p.AddFilter(filter("F1", func(testEvent, *testProduct) (bool, error) { return false, errBoom })))
	require.NoError(t, p.Init())
	processAll(t, p, testEvent{})

	assert.Equal(t, []string{"P1", "F1"}, started)
	assert.Equal(t, []string{"P1"}, done)
	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0], errBoom)
}

func TestStageHooksSeeRecoveredPanics(t *testing.T) {
	var failed error
	p := newTestPipeline(t, WithHooks(AlertingHooks(func(_ StageContext, err error) { failed = err })))
	require.NoError(t, p.AddProducer(producer("P1", func(testEvent, *testProduct) error { panic("x") })))
	require.NoError(t, p.Init())
	processAll(t, p, testEvent{})

	assert.ErrorContains(t, failed, "stage panicked")
}

func TestStageHooksMerge(t *testing.T) {
	var order []string
	a := StageHooks{OnStageStart: func(StageContext) { order = append(order, "a") }}
	b := StageHooks{
		OnStageStart: func(StageContext) { order = append(order, "b") },
		OnStageError: func(StageContext, error) { order = append(order, "b-err") },
	}

	merged := a.Merge(b)
	merged.OnStageStart(StageContext{})
	merged.OnStageError(StageContext{}, errBoom)
	assert.Nil(t, merged.OnStageDone)
	assert.Equal(t, []string{"a", "b", "b-err"}, order)
	assert.True(t, StageHooks{}.empty())
	assert.False(t, merged.empty())
}

func TestLoggingHooksLogFailures(t *testing.T) {
	logger := newCaptureLogger()
	hooks := LoggingHooks(logger)
	sc := StageContext{
		StageInfo: StageInfo{Pipeline: "test", StageID: "P1", Kind: KindProducer, EventIndex: 3},
		Context:   context.Background(),
		Duration:  1500 * time.Microsecond,
	}
	hooks.OnStageStart(sc)
	hooks.OnStageDone(sc)
	hooks.OnStageError(sc, errBoom)

	logged := logger.Errors()
	require.Len(t, logged, 1)
	assert.Equal(t, "Stage failed", logged[0].msg)
	assert.Equal(t, "P1", logged[0].fields["stage"])
	assert.Equal(t, "producer", logged[0].fields["kind"])
	assert.Equal(t, int64(1500), logged[0].fields["duration_us"])
}

func TestMetricsHooks(t *testing.T) {
	var starts, dones, errs int
	hooks := MetricsHooks(
		func(pipeline, stage string) { starts++ },
		func(pipeline, stage string) { dones++ },
		func(pipeline, stage string) { errs++ },
	)
	p := newTestPipeline(t, WithHooks(hooks))
	require.NoError(t, p.AddProducer(producer("P1", func(testEvent, *testProduct) error { return nil })))
	require.NoError(t, p.AddProducer(producer("P2", func(testEvent, *testProduct) error { return errBoom })))
	require.NoError(t, p.Init())
	processAll(t, p, testEvent{}, testEvent{})

	assert.Equal(t, 4, starts)
	assert.Equal(t, 2, dones)
	assert.Equal(t, 2, errs)
}
