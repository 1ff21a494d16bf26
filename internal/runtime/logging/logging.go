// Package logging defines the structured logger used across replyflow and
// the adapters that bridge it to slog and Watermill.
package logging

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
)

// LogFields represents structured logging key/value pairs.
type LogFields map[string]any

// ServiceLogger is the logging contract used by the reply handler and the
// dispatch service. It mirrors Watermill's LoggerAdapter so either side can
// be adapted to the other without loss.
type ServiceLogger interface {
	With(fields LogFields) ServiceLogger
	Debug(msg string, fields LogFields)
	Info(msg string, fields LogFields)
	Error(msg string, err error, fields LogFields)
	Trace(msg string, fields LogFields)
}

var logLevelMapping = map[slog.Level]slog.Level{
	slog.LevelDebug: slog.LevelDebug,
	slog.LevelInfo:  slog.LevelInfo,
	slog.LevelWarn:  slog.LevelWarn,
	slog.LevelError: slog.LevelError,
}

// NewSlogServiceLogger wraps a slog.Logger so it satisfies ServiceLogger.
func NewSlogServiceLogger(log *slog.Logger) ServiceLogger {
	if log == nil {
		panic("replyflow: slog logger cannot be nil")
	}
	return &watermillServiceLogger{
		inner: watermill.NewSlogLoggerWithLevelMapping(log, logLevelMapping),
		debug: func() bool { return log.Enabled(context.Background(), slog.LevelDebug) },
	}
}

// NewWatermillServiceLogger wraps an existing Watermill LoggerAdapter.
func NewWatermillServiceLogger(logger watermill.LoggerAdapter) ServiceLogger {
	if logger == nil {
		panic("replyflow: watermill logger cannot be nil")
	}
	return &watermillServiceLogger{inner: logger}
}

// NopLogger returns a ServiceLogger that drops every entry.
func NopLogger() ServiceLogger {
	return NewWatermillServiceLogger(watermill.NopLogger{})
}

// IsDebugEnabled reports whether debug entries reach an output. Slog-backed
// loggers ask their handler; the Nop logger is disabled; other loggers
// cannot tell and are assumed to be enabled.
func IsDebugEnabled(log ServiceLogger) bool {
	w, ok := log.(*watermillServiceLogger)
	if !ok {
		return true
	}
	if w.debug != nil {
		return w.debug()
	}
	_, nop := w.inner.(watermill.NopLogger)
	return !nop
}

type watermillServiceLogger struct {
	inner watermill.LoggerAdapter
	// debug reports whether the backing handler accepts debug records.
	// Nil when the backend cannot be asked.
	debug func() bool
}

func (w *watermillServiceLogger) With(fields LogFields) ServiceLogger {
	if len(fields) == 0 {
		return w
	}
	return &watermillServiceLogger{inner: w.inner.With(toWatermillFields(fields)), debug: w.debug}
}

func (w *watermillServiceLogger) Debug(msg string, fields LogFields) {
	w.inner.Debug(msg, toWatermillFields(fields))
}

func (w *watermillServiceLogger) Info(msg string, fields LogFields) {
	w.inner.Info(msg, toWatermillFields(fields))
}

func (w *watermillServiceLogger) Error(msg string, err error, fields LogFields) {
	w.inner.Error(msg, err, toWatermillFields(fields))
}

func (w *watermillServiceLogger) Trace(msg string, fields LogFields) {
	w.inner.Trace(msg, toWatermillFields(fields))
}

// NewWatermillAdapter converts a ServiceLogger into a Watermill LoggerAdapter
// so routers, publishers and subscribers log through the same sink.
func NewWatermillAdapter(log ServiceLogger) watermill.LoggerAdapter {
	if log == nil {
		panic("replyflow: ServiceLogger cannot be nil")
	}
	if w, ok := log.(*watermillServiceLogger); ok {
		return w.inner
	}
	return &serviceLoggerAdapter{base: log}
}

type serviceLoggerAdapter struct {
	base ServiceLogger
}

func (s *serviceLoggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	s.base.Error(msg, err, fromWatermillFields(fields))
}

func (s *serviceLoggerAdapter) Info(msg string, fields watermill.LogFields) {
	s.base.Info(msg, fromWatermillFields(fields))
}

func (s *serviceLoggerAdapter) Debug(msg string, fields watermill.LogFields) {
	s.base.Debug(msg, fromWatermillFields(fields))
}

func (s *serviceLoggerAdapter) Trace(msg string, fields watermill.LogFields) {
	s.base.Trace(msg, fromWatermillFields(fields))
}

func (s *serviceLoggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &serviceLoggerAdapter{base: s.base.With(fromWatermillFields(fields))}
}

func toWatermillFields(fields LogFields) watermill.LogFields {
	if len(fields) == 0 {
		return nil
	}
	return watermill.LogFields(fields)
}

func fromWatermillFields(fields watermill.LogFields) LogFields {
	if len(fields) == 0 {
		return nil
	}
	return LogFields(fields)
}
