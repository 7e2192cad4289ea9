// Package server runs the small HTTP servers that sit next to a traced
// client: the metrics endpoint and local test backends.
package server

import (
	"context"
	"fmt"
	"io"
	golog "log"
	"net"
	"net/http"
	"time"

	"github.com/theplant/clienttrace/kerrs"
	"github.com/theplant/clienttrace/log"
)

type Config struct {
	Addr string `default:":9800"`
}

func newServer(config Config, logger log.Logger, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              config.Addr,
		ErrorLog:          golog.New(log.LogWriter(logger.Error()), "", golog.Llongfile),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

type serverCloser func() error

func (s serverCloser) Close() error {
	return s()
}

// GoListenAndServe binds config.Addr and serves handler on a separate
// goroutine. Binding errors are returned right away.
//
// The returned io.Closer shuts the server down with the semantics of
// net/http.Server.Shutdown.
func GoListenAndServe(config Config, logger log.Logger, handler http.Handler) (io.Closer, net.Addr, error) {
	logger = logger.With("during", "server.GoListenAndServe")
	s := newServer(config, logger, handler)

	ln, err := net.Listen("tcp", config.Addr)
	if err != nil {
		return nil, nil, kerrs.Wrapv(err, "listening", "addr", config.Addr)
	}

	go func() {
		logger.Info().Log(
			"addr", ln.Addr().String(),
			"msg", fmt.Sprintf("HTTP server listening on %s", ln.Addr()),
			"wait_us", sinceStart(),
		)

		if err := s.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Error().Log(
				"msg", fmt.Sprintf("error in Serve: %v", err),
				"serve_us", sinceStart(),
				"err", err,
			)
		}
	}()

	return serverCloser(func() error {
		logger.Info().Log(
			"msg", fmt.Sprintf("shutting down HTTP server on %v", ln.Addr()),
			"addr", ln.Addr().String(),
			"serve_us", sinceStart(),
		)
		return s.Shutdown(context.Background())
	}), ln.Addr(), nil
}

var start = time.Now()

func sinceStart() int64 {
	return int64(time.Since(start) / time.Microsecond)
}
