package service

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/theplant/clienttrace/log"
	"github.com/theplant/clienttrace/server"
)

func logErr(l log.Logger, f func() error) {
	if err := f(); err != nil {
		l.WithError(err).Log()
	}
}

// ListenAndServe mounts app's routes on a mux and serves it on
// config.Addr behind server.DefaultMiddleware, using the logger in ctx and
// the global tracer. It blocks until ctx is done or the process receives
// SIGINT or SIGTERM.
func ListenAndServe(ctx context.Context, config server.Config, app func(context.Context, *http.ServeMux) error) error {
	logger := log.ForceContext(ctx)

	mux := http.NewServeMux()
	if err := app(ctx, mux); err != nil {
		return errors.Wrap(err, "error configuring service")
	}

	hc, _, err := server.GoListenAndServe(
		config,
		logger,
		server.DefaultMiddleware(logger, opentracing.GlobalTracer())(mux),
	)
	if err != nil {
		return err
	}
	defer logErr(logger, hc.Close)

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(ch)

	select {
	case sig := <-ch:
		logger.Info().Log(
			"msg", fmt.Sprintf("received signal %v, exiting", sig),
			"signal", sig,
		)
	case <-ctx.Done():
		logger.Info().Log("msg", "context done, exiting", "err", ctx.Err())
	}
	return nil
}
