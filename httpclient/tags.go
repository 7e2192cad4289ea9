package httpclient

import (
	"net"
	"net/http"

	opentracing "github.com/opentracing/opentracing-go"
)

const (
	TagClient       = "http.client"
	TagMethod       = "http.method"
	TagHostname     = "http.hostname"
	TagPort         = "http.port"
	TagPath         = "http.path"
	TagErrorCode    = "http.error_code"
	TagStatusCode   = "http.status_code"
	TagRemoteIP     = "http.remote_ip"
	TagResponseSize = "http.response_size"
)

const (
	TypeBool   = "bool"
	TypeString = "string"
	TypeNumber = "number"
)

// Tag is a typed span tag value.
type Tag struct {
	Type  string      `json:"type"`
	Value interface{} `json:"value"`
}

type Tags map[string]Tag

// Apply sets every tag on span.
func (tags Tags) Apply(span opentracing.Span) {
	for name, tag := range tags {
		span.SetTag(name, tag.Value)
	}
}

func (tags Tags) str(name string) string {
	s, _ := tags[name].Value.(string)
	return s
}

// BuildTags computes the request tags. req is the caller's request and
// dispatched the one handed to the underlying transport; the path is taken
// from the latter. Missing parts fall back to cfg's defaults.
func BuildTags(req, dispatched *http.Request, cfg Config) Tags {
	if dispatched == nil {
		dispatched = req
	}

	method := "GET"
	if req != nil && req.Method != "" {
		method = req.Method
	}

	return Tags{
		TagClient:   {Type: TypeBool, Value: true},
		TagMethod:   {Type: TypeString, Value: method},
		TagHostname: {Type: TypeString, Value: hostname(req, cfg.DefaultHost)},
		TagPort:     {Type: TypeString, Value: port(req, cfg.DefaultPort)},
		TagPath:     {Type: TypeString, Value: path(dispatched)},
	}
}

func hostname(req *http.Request, fallback string) string {
	if req == nil {
		return fallback
	}
	if req.URL != nil {
		if h := req.URL.Hostname(); h != "" {
			return h
		}
	}
	if req.Host != "" {
		if h, _, err := net.SplitHostPort(req.Host); err == nil && h != "" {
			return h
		}
		return req.Host
	}
	return fallback
}

// schemePorts are what the Go transport dials when a URL has no port.
var schemePorts = map[string]string{
	"http":  "80",
	"https": "443",
}

func port(req *http.Request, fallback string) string {
	if req == nil || req.URL == nil {
		return fallback
	}
	if p := req.URL.Port(); p != "" {
		return p
	}
	if p, ok := schemePorts[req.URL.Scheme]; ok {
		return p
	}
	return fallback
}

func path(req *http.Request) string {
	if req == nil || req.URL == nil {
		return "/"
	}
	if p := req.URL.RequestURI(); p != "" {
		return p
	}
	return "/"
}
