package devserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
)

// logRequests logs method, path, status and duration at debug level.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		slog.Debug("HTTP request",
			slog.String("method", r.Method),
			logfields.Path(r.URL.Path),
			slog.Int("status", wrapped.statusCode),
			logfields.DurationMS(float64(time.Since(start).Microseconds())/1000))
	})
}

// recoverPanics turns a handler panic into a 500 response.
func recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("HTTP handler panic",
					logfields.Error(fmt.Errorf("%v", rec)),
					logfields.Path(r.URL.Path),
					slog.String("method", r.Method))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// responseWriter captures status codes for logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
