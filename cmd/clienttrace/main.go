// Command clienttrace sends traced HTTP requests and serves a traced echo
// backend to send them to.
//
// Tracing is configured from JAEGER_* variables (JAEGER_SERVICE_NAME
// enables it), the client from CLIENTTRACE_* variables and metrics from
// METRICS_* variables.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "clienttrace",
	Short: "Send and receive traced HTTP requests",
	Long: `clienttrace sends HTTP requests through the tracing client transport.

Every request becomes a client span under a "clienttrace" root span.
Spans are reported to jaeger when JAEGER_SERVICE_NAME is set.

Examples:
  # Start a traced echo backend
  JAEGER_SERVICE_NAME=backend clienttrace serve --addr :9801

  # Call it, propagating trace headers and recording the response
  JAEGER_SERVICE_NAME=frontend CLIENTTRACE_REMOTETRACING=true \
    CLIENTTRACE_RECORDRESPONSE=true clienttrace get http://localhost:9801/hello`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(getCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
