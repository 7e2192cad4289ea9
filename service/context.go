// Package service builds the process-wide context a traced client runs
// in: logger, tracer and metrics monitor, each configured from the
// environment.
package service

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"

	"github.com/jinzhu/configor"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/theplant/clienttrace/log"
	"github.com/theplant/clienttrace/monitoring"
	"github.com/theplant/clienttrace/server"
	"github.com/theplant/clienttrace/tracing"
)

// Context returns a context carrying the service logger and monitor.
// The tracer is installed as the opentracing global tracer. Close the
// returned io.Closer to flush spans and stop the metrics server.
func Context() (context.Context, io.Closer) {
	ctx := context.Background()

	logger, ctx := installLogger(ctx)

	tracer, tC := installTracer(logger)

	_, mC, ctx := installMonitor(ctx, logger, tracer)

	return ctx, FuncCloser{mC, tC}
}

func installLogger(ctx context.Context) (log.Logger, context.Context) {
	logger := log.Default()

	serviceName := os.Getenv("SERVICE_NAME")
	if serviceName == "" {
		logger.Warn().Log("msg", "creating service context, SERVICE_NAME not set")
	} else {
		logger = logger.With("svc", serviceName)
		logger.Info().Log(
			"msg", fmt.Sprintf("creating service context for %s", serviceName),
		)
	}

	return logger, log.Context(ctx, logger)
}

func installTracer(l log.Logger) (opentracing.Tracer, io.Closer) {
	tracer, closer, err := tracing.Tracer(l)
	if err != nil {
		l.Warn().Log(
			"msg", errors.Wrap(err, "error creating tracer"),
			"err", err,
		)
		return opentracing.NoopTracer{}, noopCloser
	}
	return tracer, closer
}

////////////////////////////////////////////////////////////
// Metric Monitor

// MetricsConfig is read from METRICS_* environment variables.
type MetricsConfig struct {
	// Addr serves Prometheus metrics on /metrics when set.
	Addr      string
	Namespace string `default:"clienttrace"`
}

func installMonitor(ctx context.Context, l log.Logger, tracer opentracing.Tracer) (monitoring.Monitor, io.Closer, context.Context) {
	config := MetricsConfig{}
	err := configor.New(&configor.Config{ENVPrefix: "METRICS"}).Load(&config)
	if err != nil {
		l.Warn().Log(
			"msg", errors.Wrap(err, "error loading metrics config"),
			"err", err,
		)
		return monitoring.NewLogMonitor(l), noopCloser, ctx
	}

	if config.Addr == "" {
		return installInfluxdbMonitor(ctx, l)
	}

	m, closer, _, err := newPrometheusMonitor(config, l, tracer)
	if err != nil {
		l.Warn().Log(
			"msg", errors.Wrap(err, "error creating prometheus monitor"),
			"err", err,
		)
		return monitoring.NewLogMonitor(l), noopCloser, ctx
	}

	return m, closer, monitoring.Context(ctx, m)
}

func newPrometheusMonitor(config MetricsConfig, l log.Logger, tracer opentracing.Tracer) (monitoring.Monitor, io.Closer, net.Addr, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		ErrorLog:      promLogger{l},
		ErrorHandling: promhttp.ContinueOnError,
	}))

	closer, addr, err := server.GoListenAndServe(
		server.Config{Addr: config.Addr},
		l,
		server.DefaultMiddleware(l, tracer)(mux),
	)
	if err != nil {
		return nil, nil, nil, err
	}

	l.Info().Log(
		"msg", fmt.Sprintf("serving prometheus metrics on http://%s/metrics", addr),
		"addr", addr.String(),
		"namespace", config.Namespace,
	)

	return monitoring.NewPrometheusMonitor(reg, config.Namespace, l), closer, addr, nil
}

// InfluxDBConfig is read from INFLUXDB_* environment variables. See
// monitoring.InfluxConfig for the URL syntax.
type InfluxDBConfig struct {
	URL string
}

func installInfluxdbMonitor(ctx context.Context, l log.Logger) (monitoring.Monitor, io.Closer, context.Context) {
	var (
		monitor monitoring.Monitor
		closer  func()
	)

	config := InfluxDBConfig{}
	err := configor.New(&configor.Config{ENVPrefix: "INFLUXDB"}).Load(&config)
	if err != nil {
		goto err
	}

	if config.URL == "" {
		l.Info().Log("msg", "neither METRICS_ADDR nor INFLUXDB_URL set, logging metrics")
		monitor = monitoring.NewLogMonitor(l)
		return monitor, noopCloser, monitoring.Context(ctx, monitor)
	}

	monitor, closer, err = monitoring.NewInfluxdbMonitor(monitoring.InfluxConfig(config.URL), l)
	if err != nil {
		goto err
	}

	return monitor, NoopCloser(closer), monitoring.Context(ctx, monitor)

err:
	l.Warn().Log(
		"msg", errors.Wrap(err, "error creating influxdb monitor"),
		"err", err,
	)
	monitor = monitoring.NewLogMonitor(l)
	return monitor, noopCloser, monitoring.Context(ctx, monitor)
}

type promLogger struct {
	log.Logger
}

func (l promLogger) Println(v ...interface{}) {
	l.Logger.Error().Log("msg", fmt.Sprint(v...))
}
