package slogx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/halcyonlabs/authd/pkg/idx"
)

// HTTPMiddleware injects a request-scoped logger (tagged with a fresh request
// id) into the request context and logs method, path, status and duration on
// completion.
func HTTPMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := idx.New().String()

			l := logger.With("req_id", reqID)
			ctx := WithContext(r.Context(), l)

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r.WithContext(ctx))

			l.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
