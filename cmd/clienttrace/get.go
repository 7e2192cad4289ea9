package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/spf13/cobra"
	"github.com/theplant/clienttrace/httpclient"
	"github.com/theplant/clienttrace/kerrs"
	"github.com/theplant/clienttrace/log"
	"github.com/theplant/clienttrace/service"
	"github.com/theplant/clienttrace/tracing"
)

var getFlags struct {
	method    string
	data      string
	headers   []string
	timeout   time.Duration
	retries   int
	retryWait time.Duration
}

var getCmd = &cobra.Command{
	Use:   "get URL",
	Short: "Send a traced request and print the response body",
	Long: `Send a traced request and print the response body.

Every attempt, retries included, gets its own client span under the
"clienttrace" root span. Requests without an X-Request-Id header get a
random one.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, closer := service.Context()
		defer closer.Close()

		cfg, err := httpclient.LoadConfig("CLIENTTRACE")
		if err != nil {
			return err
		}

		return get(ctx, cfg, opentracing.GlobalTracer(), args[0], cmd.OutOrStdout())
	},
}

func init() {
	getCmd.Flags().StringVarP(&getFlags.method, "method", "X", "GET", "request method")
	getCmd.Flags().StringVarP(&getFlags.data, "data", "d", "", "request body")
	getCmd.Flags().StringArrayVarP(&getFlags.headers, "header", "H", nil, `request header, "Name: value"`)
	getCmd.Flags().DurationVar(&getFlags.timeout, "timeout", 30*time.Second, "timeout of each attempt")
	getCmd.Flags().IntVar(&getFlags.retries, "retries", 2, "retries on connection errors and 5xx responses")
	getCmd.Flags().DurationVar(&getFlags.retryWait, "retry-wait", time.Second, "minimum wait between attempts")
}

func newClient(cfg httpclient.Config, tracer opentracing.Tracer, logger log.Logger) (*retryablehttp.Client, error) {
	traced, err := httpclient.WrapClient(&http.Client{Timeout: getFlags.timeout}, tracer, cfg, httpclient.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = traced
	rc.RetryMax = getFlags.retries
	rc.RetryWaitMin = getFlags.retryWait
	rc.RetryWaitMax = 30 * getFlags.retryWait
	rc.Logger = leveledLogger{logger.With("context", "clienttrace/retryablehttp")}
	return rc, nil
}

func get(ctx context.Context, cfg httpclient.Config, tracer opentracing.Tracer, url string, out io.Writer) error {
	logger := log.ForceContext(ctx)

	client, err := newClient(cfg, tracer, logger)
	if err != nil {
		return err
	}

	return tracing.SpanWith(ctx, tracer, "clienttrace", func(ctx context.Context, _ opentracing.Span) error {
		var body interface{}
		if getFlags.data != "" {
			body = []byte(getFlags.data)
		}

		req, err := retryablehttp.NewRequestWithContext(ctx, getFlags.method, url, body)
		if err != nil {
			return kerrs.Wrapv(err, "building request", "url", url)
		}
		for _, h := range getFlags.headers {
			name, value, ok := strings.Cut(h, ":")
			if !ok {
				return fmt.Errorf("malformed header %q", h)
			}
			req.Header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
		}
		if req.Header.Get("X-Request-Id") == "" {
			req.Header.Set("X-Request-Id", uuid.NewString())
		}

		resp, err := client.Do(req)
		if err != nil {
			return kerrs.Wrapv(err, "request failed", "url", url, "method", getFlags.method)
		}
		defer resp.Body.Close()

		n, err := io.Copy(out, resp.Body)
		logger.Info().Log(
			"msg", fmt.Sprintf("%s %s -> %d (%d bytes)", getFlags.method, url, resp.StatusCode, n),
			"status", resp.StatusCode,
			"bytes", n,
			"request_id", req.Header.Get("X-Request-Id"),
		)
		return err
	})
}

// leveledLogger adapts log.Logger to retryablehttp.LeveledLogger.
type leveledLogger struct {
	log.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.Logger.Error().Log(append([]interface{}{"msg", msg}, keysAndValues...)...)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.Logger.Warn().Log(append([]interface{}{"msg", msg}, keysAndValues...)...)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.Logger.Info().Log(append([]interface{}{"msg", msg}, keysAndValues...)...)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.Logger.Debug().Log(append([]interface{}{"msg", msg}, keysAndValues...)...)
}
