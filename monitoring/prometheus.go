package monitoring

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/theplant/clienttrace/log"
)

// DefaultBuckets are millisecond buckets from 1ms to ~32s.
var DefaultBuckets = prometheus.ExponentialBuckets(1, 2, 16)

type prometheusMonitor struct {
	registerer prometheus.Registerer
	namespace  string
	logger     log.Logger

	mu         sync.Mutex
	histograms map[string]*prometheus.HistogramVec
	errors     map[string]*prometheus.CounterVec
}

// NewPrometheusMonitor creates a Monitor exporting records as histograms
// (one per measurement, labelled by the record's tag keys) and errors as
// counters. Collectors are registered on first use.
func NewPrometheusMonitor(reg prometheus.Registerer, namespace string, logger log.Logger) Monitor {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &prometheusMonitor{
		registerer: reg,
		namespace:  namespace,
		logger:     logger.With("context", "clienttrace/monitoring.prometheus"),
		histograms: map[string]*prometheus.HistogramVec{},
		errors:     map[string]*prometheus.CounterVec{},
	}
}

func (m *prometheusMonitor) InsertRecord(measurement string, value interface{}, tags map[string]string, _ map[string]interface{}, _ time.Time) {
	v, err := toFloat(value)
	if err != nil {
		m.logger.Warn().Log("msg", "dropping metric", "metric", measurement, "err", err)
		return
	}

	labels := labelNames(tags)
	vec, err := m.histogram(measurement, labels)
	if err != nil {
		m.logger.WithError(err).Log("metric", measurement)
		return
	}

	values := make(prometheus.Labels, len(tags))
	for _, name := range labels {
		values[name] = tags[name]
	}
	vec.With(values).Observe(v)
}

func (m *prometheusMonitor) CountError(measurement string, value float64, err error) {
	vec, rerr := m.counter(measurement)
	if rerr != nil {
		m.logger.WithError(rerr).Log("metric", measurement)
		return
	}
	vec.WithLabelValues(errType(err)).Add(value)
}

func (m *prometheusMonitor) histogram(measurement string, labels []string) (*prometheus.HistogramVec, error) {
	key := measurement + "|" + strings.Join(labels, ",")

	m.mu.Lock()
	defer m.mu.Unlock()

	if vec, ok := m.histograms[key]; ok {
		return vec, nil
	}

	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      metricName(measurement) + "_ms",
		Help:      fmt.Sprintf("Duration of %s in milliseconds.", measurement),
		Buckets:   DefaultBuckets,
	}, labels)

	registered, err := register(m.registerer, vec)
	if err != nil {
		return nil, errors.Wrapf(err, "registering histogram for %s", measurement)
	}
	vec = registered.(*prometheus.HistogramVec)
	m.histograms[key] = vec
	return vec, nil
}

func (m *prometheusMonitor) counter(measurement string) (*prometheus.CounterVec, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if vec, ok := m.errors[measurement]; ok {
		return vec, nil
	}

	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      metricName(measurement) + "_errors_total",
		Help:      fmt.Sprintf("Errors of %s.", measurement),
	}, []string{"error"})

	registered, err := register(m.registerer, vec)
	if err != nil {
		return nil, errors.Wrapf(err, "registering counter for %s", measurement)
	}
	vec = registered.(*prometheus.CounterVec)
	m.errors[measurement] = vec
	return vec, nil
}

func register(reg prometheus.Registerer, c prometheus.Collector) (prometheus.Collector, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector, nil
		}
		return nil, err
	}
	return c, nil
}

func labelNames(tags map[string]string) []string {
	names := make([]string, 0, len(tags))
	for k := range tags {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

var invalidMetricChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

func metricName(measurement string) string {
	return invalidMetricChars.ReplaceAllString(measurement, "_")
}

type causer interface {
	Cause() error
}

func errType(err interface{}) string {
	if c, ok := err.(causer); ok {
		return fmt.Sprintf("%T (%T)", c.Cause(), err)
	}
	return fmt.Sprintf("%T", err)
}
