package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/spf13/cobra"
	"github.com/theplant/clienttrace/log"
	"github.com/theplant/clienttrace/server"
	"github.com/theplant/clienttrace/service"
)

var serveFlags struct {
	addr string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a traced echo backend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, closer := service.Context()
		defer closer.Close()

		return service.ListenAndServe(ctx, server.Config{Addr: serveFlags.addr}, func(_ context.Context, mux *http.ServeMux) error {
			mux.Handle("/", echo{})
			return nil
		})
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.addr, "addr", ":9801", "listen address")
}

type echoed struct {
	Method  string              `json:"method"`
	Path    string              `json:"path"`
	Headers map[string][]string `json:"headers"`
	Body    string              `json:"body,omitempty"`
	Traced  bool                `json:"traced"`
}

// echo answers with a description of the request it received.
type echo struct{}

func (echo) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}

	span := opentracing.SpanFromContext(r.Context())
	if span != nil {
		span.LogKV("event", "echo", "bytes", len(body))
	}

	rw.Header().Set("Content-Type", "application/json")
	err = json.NewEncoder(rw).Encode(echoed{
		Method:  r.Method,
		Path:    r.URL.RequestURI(),
		Headers: r.Header,
		Body:    string(body),
		Traced:  span != nil,
	})
	if err != nil {
		log.ForceContext(r.Context()).WithError(err).Log("msg", "writing echo response")
	}
}
