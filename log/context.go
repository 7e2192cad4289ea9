package log

import (
	"context"
)

type key int

const loggerKey key = iota

// Context installs logger in the returned context.
func Context(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

func FromContext(c context.Context) (Logger, bool) {
	if c == nil {
		return Logger{}, false
	}
	logger, ok := c.Value(loggerKey).(Logger)
	return logger, ok
}

// ForceContext returns the context's logger or Default().
func ForceContext(c context.Context) Logger {
	logger, ok := FromContext(c)
	if !ok {
		logger = Default()
	}
	return logger
}
