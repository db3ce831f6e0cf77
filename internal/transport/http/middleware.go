package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/martinhantha/kutt/internal/metrics"
)

// LoggingMiddleware logs every request with its status and duration
type LoggingMiddleware struct {
	logger  *slog.Logger
	verbose bool
}

// NewLoggingMiddleware creates a new logging middleware. In verbose mode the
// bodies of error responses are logged as well.
func NewLoggingMiddleware(logger *slog.Logger, verbose bool) *LoggingMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingMiddleware{
		logger:  logger,
		verbose: verbose,
	}
}

// statusRecorder wraps http.ResponseWriter to capture response details
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.body != nil {
		sr.body.Write(b)
	}
	return sr.ResponseWriter.Write(b)
}

func newStatusRecorder(w http.ResponseWriter, captureBody bool) *statusRecorder {
	if sr, ok := w.(*statusRecorder); ok && !captureBody {
		return sr
	}
	sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
	if captureBody {
		sr.body = &bytes.Buffer{}
	}
	return sr
}

// Middleware returns the HTTP logging middleware function
func (l *LoggingMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := newStatusRecorder(w, l.verbose)

		next.ServeHTTP(sr, r)

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", sr.statusCode,
			"duration", time.Since(start),
			"remote", r.RemoteAddr,
		}
		if sr.body != nil && sr.statusCode >= http.StatusBadRequest && sr.body.Len() > 0 {
			attrs = append(attrs, "body", sr.body.String())
		}

		level := slog.LevelInfo
		if sr.statusCode >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		l.logger.Log(r.Context(), level, "http request", attrs...)
	})
}

// MetricsMiddleware records request counts and durations
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := newStatusRecorder(w, false)

		next.ServeHTTP(sr, r)

		status := strconv.Itoa(sr.statusCode)
		metrics.RequestTotal.WithLabelValues(r.Method, status).Inc()
		metrics.RequestDuration.WithLabelValues(r.Method, status).Observe(time.Since(start).Seconds())
	})
}
