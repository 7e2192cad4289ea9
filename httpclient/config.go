package httpclient

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/jinzhu/configor"
	"github.com/pkg/errors"
	"github.com/theplant/clienttrace/kerrs"
)

// Config controls what the Transport records and propagates. Zero values
// are replaced by the defaults documented on each field.
type Config struct {
	// RecordResponse buffers response bodies and logs them on the span.
	RecordResponse bool `default:"false"`
	// RemoteTracing injects TraceIDHeader and SpanIDHeader into requests.
	RemoteTracing bool `default:"false"`

	TraceIDHeader string `default:"X-Trace-Id"`
	SpanIDHeader  string `default:"X-Span-Id"`

	// DefaultHost and DefaultPort tag requests that don't name them.
	DefaultHost string `default:"localhost"`
	DefaultPort string `default:"80"`

	SpanName string `default:"http-client"`

	// MaxRecordSize caps the recorded body bytes per response. Negative
	// means unlimited.
	MaxRecordSize int `default:"1048576"`
}

const defaultMaxRecordSize = 1 << 20

// DefaultConfig returns the configuration used for blank fields.
func DefaultConfig() Config {
	return Config{
		TraceIDHeader: "X-Trace-Id",
		SpanIDHeader:  "X-Span-Id",
		DefaultHost:   "localhost",
		DefaultPort:   "80",
		SpanName:      "http-client",
		MaxRecordSize: defaultMaxRecordSize,
	}
}

// LoadConfig reads Config from environment variables named
// <prefix>_<FIELD>, e.g. CLIENTTRACE_REMOTETRACING=true.
func LoadConfig(prefix string) (Config, error) {
	var cfg Config
	err := configor.New(&configor.Config{ENVPrefix: prefix}).Load(&cfg)
	if err != nil {
		return cfg, kerrs.Wrapv(err, "loading client trace config", "prefix", prefix)
	}
	return cfg, cfg.Validate()
}

func (cfg Config) withDefaults() Config {
	d := DefaultConfig()
	if strings.TrimSpace(cfg.TraceIDHeader) == "" {
		cfg.TraceIDHeader = d.TraceIDHeader
	}
	if strings.TrimSpace(cfg.SpanIDHeader) == "" {
		cfg.SpanIDHeader = d.SpanIDHeader
	}
	if cfg.DefaultHost == "" {
		cfg.DefaultHost = d.DefaultHost
	}
	if cfg.DefaultPort == "" {
		cfg.DefaultPort = d.DefaultPort
	}
	if cfg.SpanName == "" {
		cfg.SpanName = d.SpanName
	}
	if cfg.MaxRecordSize == 0 {
		cfg.MaxRecordSize = d.MaxRecordSize
	}
	return cfg
}

// Validate reports every problem with cfg at once.
func (cfg Config) Validate() (err error) {
	if strings.TrimSpace(cfg.TraceIDHeader) == "" {
		err = kerrs.Append(err, errors.New("trace id header name is blank"))
	}
	if strings.TrimSpace(cfg.SpanIDHeader) == "" {
		err = kerrs.Append(err, errors.New("span id header name is blank"))
	}
	if cfg.TraceIDHeader != "" && http.CanonicalHeaderKey(cfg.TraceIDHeader) == http.CanonicalHeaderKey(cfg.SpanIDHeader) {
		err = kerrs.Append(err, errors.Errorf("trace id and span id share the header %q", cfg.TraceIDHeader))
	}
	if port, perr := strconv.Atoi(cfg.DefaultPort); perr != nil || port <= 0 || port > 65535 {
		err = kerrs.Append(err, errors.Errorf("default port %q is not a valid port", cfg.DefaultPort))
	}
	if strings.TrimSpace(cfg.SpanName) == "" {
		err = kerrs.Append(err, errors.New("span name is blank"))
	}
	return
}

// HeaderNames are the request headers carrying the propagated ids.
type HeaderNames struct {
	TraceID string
	SpanID  string
}

func (cfg Config) headerNames() HeaderNames {
	return HeaderNames{TraceID: cfg.TraceIDHeader, SpanID: cfg.SpanIDHeader}
}
