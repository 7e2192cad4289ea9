package httpclient

import (
	"context"
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/opentracing/opentracing-go/ext"
	"github.com/pkg/errors"
)

// Error is the request error event: the request failed before or while
// the response was delivered. The span is tagged with the error code and a
// status of -1, marked as errored and finished.
func (ex *Exchange) Error(err error) {
	buf, ok := ex.terminate(Errored)
	if !ok {
		return
	}
	buf.Clear()

	ex.guard("tagging request error", func() {
		ex.span.SetTag(TagErrorCode, errorCode(err))
		ex.span.SetTag(TagStatusCode, -1)
		ex.span.LogKV("event", "error", "message", fmt.Sprint(err))
		ext.Error.Set(ex.span, true)
	})
	ex.span.Finish()

	ex.logger.Debug().Log(
		"msg", fmt.Sprintf("http client request failed: %v", err),
		"err", err,
	)
	ex.record(-1, err)
}

type coder interface {
	Code() string
}

var errnoCodes = map[syscall.Errno]string{
	syscall.ECONNREFUSED:  "ECONNREFUSED",
	syscall.ECONNRESET:    "ECONNRESET",
	syscall.ECONNABORTED:  "ECONNABORTED",
	syscall.EHOSTUNREACH:  "EHOSTUNREACH",
	syscall.ENETUNREACH:   "ENETUNREACH",
	syscall.ETIMEDOUT:     "ETIMEDOUT",
	syscall.EPIPE:         "EPIPE",
	syscall.EADDRNOTAVAIL: "EADDRNOTAVAIL",
}

// errorCode names err the way socket errors are usually reported
// (ECONNREFUSED, ENOTFOUND, ...). Unknown errors are named by type.
func errorCode(err error) string {
	if err == nil {
		return ""
	}

	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return "ETIMEDOUT"
		}
		return "ENOTFOUND"
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "ETIMEDOUT"
	case errors.Is(err, context.Canceled):
		return "ECANCELED"
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		if code, ok := errnoCodes[errno]; ok {
			return code
		}
		return fmt.Sprintf("ERRNO%d", int(errno))
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "ETIMEDOUT"
	}

	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return "ECONNRESET"
	}

	return fmt.Sprintf("%T", err)
}
