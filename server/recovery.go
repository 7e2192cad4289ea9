package server

import (
	"fmt"
	"net/http"

	"github.com/theplant/clienttrace/log"
)

// Recovery turns a panic in later handlers into a 500 and logs it.
func Recovery(h http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.ForceContext(r.Context()).Crit().Log(
					"msg", fmt.Sprintf("recovered from panic: %v", err),
					"err", err,
					"path", r.URL.Path,
				)
				if sr, ok := rw.(*statusRecorder); !ok || sr.status == 0 {
					rw.WriteHeader(http.StatusInternalServerError)
				}
			}
		}()

		h.ServeHTTP(rw, r)
	})
}
