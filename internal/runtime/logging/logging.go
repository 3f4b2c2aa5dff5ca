package logging

import (
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
)

// LogFields represents structured key/value pairs attached to a log line.
type LogFields map[string]any

// Logger is the logging contract used across pipelines, stages and output
// stores. It matches Watermill's adapter shape so the same logger can be
// handed to Watermill publishers.
type Logger interface {
	With(fields LogFields) Logger
	Debug(msg string, fields LogFields)
	Info(msg string, fields LogFields)
	Error(msg string, err error, fields LogFields)
	Trace(msg string, fields LogFields)
}

var levelMapping = map[slog.Level]slog.Level{
	slog.LevelDebug: slog.LevelDebug,
	slog.LevelInfo:  slog.LevelInfo,
	slog.LevelWarn:  slog.LevelWarn,
	slog.LevelError: slog.LevelError,
}

// NewSlogLogger wraps a slog.Logger.
func NewSlogLogger(log *slog.Logger) Logger {
	if log == nil {
		panic("pipeflow: slog logger cannot be nil")
	}
	return NewWatermillLogger(watermill.NewSlogLoggerWithLevelMapping(log, levelMapping))
}

// NewWatermillLogger wraps an existing Watermill LoggerAdapter.
func NewWatermillLogger(logger watermill.LoggerAdapter) Logger {
	if logger == nil {
		panic("pipeflow: watermill logger cannot be nil")
	}
	return &watermillLogger{inner: logger}
}

// NewNopLogger discards everything.
func NewNopLogger() Logger {
	return &watermillLogger{inner: watermill.NopLogger{}}
}

type watermillLogger struct {
	inner watermill.LoggerAdapter
}

func (w *watermillLogger) With(fields LogFields) Logger {
	if len(fields) == 0 {
		return w
	}
	return &watermillLogger{inner: w.inner.With(toWatermillFields(fields))}
}

func (w *watermillLogger) Debug(msg string, fields LogFields) {
	w.inner.Debug(msg, toWatermillFields(fields))
}

func (w *watermillLogger) Info(msg string, fields LogFields) {
	w.inner.Info(msg, toWatermillFields(fields))
}

func (w *watermillLogger) Error(msg string, err error, fields LogFields) {
	w.inner.Error(msg, err, toWatermillFields(fields))
}

func (w *watermillLogger) Trace(msg string, fields LogFields) {
	w.inner.Trace(msg, toWatermillFields(fields))
}

type loggerAdapter struct {
	base Logger
}

// NewWatermillAdapter converts a Logger back into a Watermill LoggerAdapter
// for publishers built by the output package.
func NewWatermillAdapter(log Logger) watermill.LoggerAdapter {
	if log == nil {
		panic("pipeflow: logger cannot be nil")
	}
	if wl, ok := log.(*watermillLogger); ok {
		return wl.inner
	}
	return &loggerAdapter{base: log}
}

func (a *loggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.base.Error(msg, err, LogFields(fields))
}

func (a *loggerAdapter) Info(msg string, fields watermill.LogFields) {
	a.base.Info(msg, LogFields(fields))
}

func (a *loggerAdapter) Debug(msg string, fields watermill.LogFields) {
	a.base.Debug(msg, LogFields(fields))
}

func (a *loggerAdapter) Trace(msg string, fields watermill.LogFields) {
	a.base.Trace(msg, LogFields(fields))
}

func (a *loggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &loggerAdapter{base: a.base.With(LogFields(fields))}
}

func toWatermillFields(fields LogFields) watermill.LogFields {
	if len(fields) == 0 {
		return nil
	}
	return watermill.LogFields(fields)
}
