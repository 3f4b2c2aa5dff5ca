package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedLog struct {
	level  string
	msg    string
	err    error
	fields watermill.LogFields
}

type recordingAdapter struct {
	logs   *[]recordedLog
	fields watermill.LogFields
}

func newRecordingAdapter() *recordingAdapter {
	return &recordingAdapter{logs: &[]recordedLog{}}
}

func (r *recordingAdapter) record(level, msg string, err error, fields watermill.LogFields) {
	*r.logs = append(*r.logs, recordedLog{level: level, msg: msg, err: err, fields: r.fields.Add(fields)})
}

func (r *recordingAdapter) Error(msg string, err error, fields watermill.LogFields) {
	r.record("error", msg, err, fields)
}
func (r *recordingAdapter) Info(msg string, fields watermill.LogFields) {
	r.record("info", msg, nil, fields)
}
func (r *recordingAdapter) Debug(msg string, fields watermill.LogFields) {
	r.record("debug", msg, nil, fields)
}
func (r *recordingAdapter) Trace(msg string, fields watermill.LogFields) {
	r.record("trace", msg, nil, fields)
}
func (r *recordingAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &recordingAdapter{logs: r.logs, fields: r.fields.Add(fields)}
}

func TestWatermillLoggerDelegates(t *testing.T) {
	adapter := newRecordingAdapter()
	logger := NewWatermillLogger(adapter)

	child := logger.With(LogFields{"pipeline": "main"})
	child.Info("started", LogFields{"stage": "jets"})
	boom := errors.New("boom")
	child.Error("stage failed", boom, nil)
	child.Debug("debug", nil)
	child.Trace("trace", nil)

	logs := *adapter.logs
	require.Len(t, logs, 4)
	assert.Equal(t, "info", logs[0].level)
	assert.Equal(t, "main", logs[0].fields["pipeline"])
	assert.Equal(t, "jets", logs[0].fields["stage"])
	assert.Equal(t, boom, logs[1].err)
	assert.Equal(t, "debug", logs[2].level)
	assert.Equal(t, "trace", logs[3].level)
}

func TestWithEmptyFieldsReturnsSameLogger(t *testing.T) {
	logger := NewWatermillLogger(newRecordingAdapter())
	assert.Same(t, logger, logger.With(nil))
}

func TestConstructorsPanicOnNil(t *testing.T) {
	assert.Panics(t, func() { NewSlogLogger(nil) })
	assert.Panics(t, func() { NewWatermillLogger(nil) })
	assert.Panics(t, func() { NewWatermillAdapter(nil) })
}

func TestNewSlogLoggerWritesStructuredLines(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewSlogLogger(slog.New(slog.NewTextHandler(buf, nil)))

	logger.Info("event processed", LogFields{"event_index": 3})

	assert.Contains(t, buf.String(), "event processed")
	assert.Contains(t, buf.String(), "event_index=3")
}

func TestWatermillAdapterUnwrapsOwnLogger(t *testing.T) {
	adapter := newRecordingAdapter()
	assert.Same(t, watermill.LoggerAdapter(adapter), NewWatermillAdapter(NewWatermillLogger(adapter)))
}

type fieldsLogger struct {
	infos []LogFields
}

func (f *fieldsLogger) With(LogFields) Logger           { return f }
func (f *fieldsLogger) Debug(string, LogFields)         {}
func (f *fieldsLogger) Info(_ string, fields LogFields) { f.infos = append(f.infos, fields) }
func (f *fieldsLogger) Error(string, error, LogFields)  {}
func (f *fieldsLogger) Trace(string, LogFields)         {}

func TestWatermillAdapterWrapsForeignLogger(t *testing.T) {
	base := &fieldsLogger{}
	adapter := NewWatermillAdapter(base)

	adapter.Info("publishing", watermill.LogFields{"topic": "runTime"})

	require.Len(t, base.infos, 1)
	assert.Equal(t, "runTime", base.infos[0]["topic"])
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	assert.NotPanics(t, func() {
		logger.With(LogFields{"a": 1}).Error("ignored", errors.New("x"), nil)
	})
}
