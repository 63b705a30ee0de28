// Package logger provides a context-scoped structured logger built on logrus.
package logger

import (
	"context"

	"github.com/sirupsen/logrus"
)

type ctxKey struct{}

var base = logrus.New()

func init() {
	base.SetFormatter(&logrus.JSONFormatter{})
}

// CloneContext returns a context carrying a fresh log entry, detached from
// any cancellation on ctx. Handlers use this so a request's logger outlives
// the request when handed to a background worker.
func CloneContext(ctx context.Context) context.Context {
	entry := entryFrom(ctx)
	return context.WithValue(context.Background(), ctxKey{}, entry)
}

// With returns a child context whose logger carries the given fields.
func With(ctx context.Context, fields logrus.Fields) context.Context {
	entry := entryFrom(ctx).WithFields(fields)
	return context.WithValue(ctx, ctxKey{}, entry)
}

// GetLogger returns the *logrus.Entry attached to ctx, or the base logger.
func GetLogger(ctx context.Context) *logrus.Entry {
	return entryFrom(ctx)
}

func entryFrom(ctx context.Context) *logrus.Entry {
	if ctx != nil {
		if e, ok := ctx.Value(ctxKey{}).(*logrus.Entry); ok {
			return e
		}
	}
	return logrus.NewEntry(base)
}

func Info(ctx context.Context, msg string, kv ...interface{})  { entryFrom(ctx).WithFields(kvFields(kv)).Info(msg) }
func Warn(ctx context.Context, msg string, kv ...interface{})  { entryFrom(ctx).WithFields(kvFields(kv)).Warn(msg) }
func Error(ctx context.Context, msg string, kv ...interface{}) { entryFrom(ctx).WithFields(kvFields(kv)).Error(msg) }

func Infof(ctx context.Context, format string, args ...interface{})  { entryFrom(ctx).Infof(format, args...) }
func Warnf(ctx context.Context, format string, args ...interface{})  { entryFrom(ctx).Warnf(format, args...) }
func Errorf(ctx context.Context, format string, args ...interface{}) { entryFrom(ctx).Errorf(format, args...) }

func kvFields(kv []interface{}) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		fields[key] = kv[i+1]
	}
	return fields
}
