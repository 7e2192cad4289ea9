package server

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/theplant/clienttrace/log"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (w *statusRecorder) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

// LogRequest times the request and logs the result. Panics in later
// handlers are logged with status 500 and passed on.
func LogRequest(h http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: rw}

		defer func() {
			err := recover()

			status := sr.status
			if err != nil {
				status = http.StatusInternalServerError
			} else if status == 0 {
				status = http.StatusOK
			}

			log.ForceContext(r.Context()).Info().Log(
				"msg", fmt.Sprintf("%s %s -> %d", r.Method, r.URL.Path, status),
				"context", "http",
				"path", r.RequestURI,
				"method", r.Method,
				"client_ip", clientIP(r),
				"status", status,
				"size", sr.size,
				"request_us", time.Since(start).Microseconds(),
				"user_agent", r.UserAgent(),
			)

			if err != nil {
				panic(err)
			}
		}()

		h.ServeHTTP(sr, r)
	})
}

func clientIP(r *http.Request) string {
	clientIP := r.Header.Get("X-Forwarded-For")
	if index := strings.IndexByte(clientIP, ','); index >= 0 {
		clientIP = clientIP[0:index]
	}
	clientIP = strings.TrimSpace(clientIP)
	if len(clientIP) > 0 {
		return clientIP
	}
	if ip, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr)); err == nil {
		return ip
	}
	return ""
}
