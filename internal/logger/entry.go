package logger

import (
	"context"
	"maps"

	"github.com/sirupsen/logrus"
)

// Entry accumulates metric fields for a single log call. The logger is
// resolved from the context passed to Info/Warn/..., so request fields
// attached by middleware are kept.
//
//	logger.With(nil).WithCount(n).WithDuration(ms).Info(ctx, "Check recorded")
type Entry struct {
	fallback *Logger
	fields   Fields
}

// With starts an Entry. fields may be nil.
func With(fields Fields) *Entry {
	return &Entry{fallback: getDefaultLogger(), fields: maps.Clone(fields)}
}

// With returns a copy of e with fields merged in; later values win.
func (e *Entry) With(fields Fields) *Entry {
	merged := make(Fields, len(e.fields)+len(fields))
	maps.Copy(merged, e.fields)
	maps.Copy(merged, fields)
	return &Entry{fallback: e.fallback, fields: merged}
}

func (e *Entry) WithField(key string, value interface{}) *Entry {
	return e.With(Fields{key: value})
}

func (e *Entry) WithDuration(ms int64) *Entry   { return e.WithField(FieldDurationMs, ms) }
func (e *Entry) WithCount(n int) *Entry          { return e.WithField(FieldCount, n) }
func (e *Entry) WithSimilarity(s float64) *Entry { return e.WithField(FieldSimilarity, s) }
func (e *Entry) WithStatus(s string) *Entry      { return e.WithField(FieldStatus, s) }

func (e *Entry) logf(ctx context.Context, level logrus.Level, format string, args []interface{}) {
	l := e.fallback
	if ctx != nil {
		l = FromContextOr(ctx, e.fallback)
	}
	l.Entry.WithFields(logrus.Fields(e.fields)).Logf(level, format, args...)
}

func (e *Entry) Debug(ctx context.Context, format string, args ...interface{}) {
	e.logf(ctx, logrus.DebugLevel, format, args)
}

func (e *Entry) Info(ctx context.Context, format string, args ...interface{}) {
	e.logf(ctx, logrus.InfoLevel, format, args)
}

func (e *Entry) Warn(ctx context.Context, format string, args ...interface{}) {
	e.logf(ctx, logrus.WarnLevel, format, args)
}

func (e *Entry) Error(ctx context.Context, format string, args ...interface{}) {
	e.logf(ctx, logrus.ErrorLevel, format, args)
}
