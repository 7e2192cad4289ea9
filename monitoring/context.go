package monitoring

import (
	"context"

	"github.com/theplant/clienttrace/log"
)

type key int

const monitorKey key = iota

// Context installs a given Monitor in the returned context
func Context(c context.Context, m Monitor) context.Context {
	return context.WithValue(c, monitorKey, m)
}

func FromContext(c context.Context) (Monitor, bool) {
	if c == nil {
		return nil, false
	}
	m, ok := c.Value(monitorKey).(Monitor)
	return m, ok
}

// ForceContext extracts a Monitor from a (possibly nil) context, or
// returns a NewLogMonitor using the context's logger or log.Default()
func ForceContext(c context.Context) Monitor {
	if m, ok := FromContext(c); ok {
		return m
	}
	return NewLogMonitor(log.ForceContext(c))
}
