// Package monitoring records measurements about finished HTTP client
// exchanges. Monitors are plain interfaces so the client transport does not
// care whether records end up in the log or in Prometheus.
package monitoring

import (
	"fmt"
	"time"

	"github.com/theplant/clienttrace/log"
)

// Monitor defines an interface for inserting record.
type Monitor interface {
	InsertRecord(measurement string, value interface{}, tags map[string]string, fields map[string]interface{}, time time.Time)
	CountError(measurement string, value float64, err error)
}

// NewLogMonitor creates Monitor that logs metrics to passed
// log.Logger
func NewLogMonitor(l log.Logger) Monitor {
	return logMonitor{l}
}

type logMonitor struct {
	logger log.Logger
}

func (l logMonitor) InsertRecord(measurement string, value interface{}, tags map[string]string, fields map[string]interface{}, time time.Time) {
	logger := withTags(l.logger, tags)
	logger = withFields(logger, fields)

	logger.Info().Log(
		"metric", measurement,
		"value", value,
		"time", time,
	)
}

func (l logMonitor) CountError(measurement string, value float64, err error) {
	l.logger.Error().Log(
		"metric", measurement,
		"value", value,
		"err", err,
	)
}

func withTags(logger log.Logger, tags map[string]string) log.Logger {
	t := []interface{}{}
	for k, v := range tags {
		t = append(t, k, v)
	}
	return logger.With(t...)
}

func withFields(logger log.Logger, fields map[string]interface{}) log.Logger {
	t := []interface{}{}
	for k, v := range fields {
		t = append(t, k, v)
	}
	return logger.With(t...)
}

// Nop drops every record.
func Nop() Monitor {
	return nopMonitor{}
}

type nopMonitor struct{}

func (nopMonitor) InsertRecord(string, interface{}, map[string]string, map[string]interface{}, time.Time) {
}

func (nopMonitor) CountError(string, float64, error) {}

func toFloat(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case time.Duration:
		return float64(v) / float64(time.Millisecond), nil
	}
	return 0, fmt.Errorf("unsupported metric value %v (%T)", value, value)
}
