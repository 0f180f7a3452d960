package clients

import (
	"clientcore/internal/core"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// AccessLog logs one line per request with method, path, status and duration.
// It also hands chi's request id to the service through the context.
func AccessLog(logger core.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = nopLogger{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := middleware.GetReqID(r.Context())
			r = r.WithContext(core.WithRequestID(r.Context(), reqID))
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(started),
				"request_id", reqID,
			)
		})
	}
}
