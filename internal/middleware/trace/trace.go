package trace

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"flowfunds/internal/log"
	"flowfunds/internal/metrics"
)

// ContextKey type for context keys
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"

	// RequestIDHeader is echoed back, or generated when the client sent none.
	RequestIDHeader = "X-Request-ID"
)

// Middleware handles request tracing and logging
type Middleware struct {
	extractIP func(*http.Request) string
	route     func(*http.Request) string
	base      *log.Logger
	metrics   *metrics.Recorder
}

// Options for NewMiddleware. Route maps a request to a low-cardinality
// label for metrics; it defaults to the URL path.
type Options struct {
	ExtractIP func(*http.Request) string
	Route     func(*http.Request) string
	Logger    *log.Logger
	Metrics   *metrics.Recorder
}

// NewMiddleware creates a new trace middleware
func NewMiddleware(opts Options) *Middleware {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.Route == nil {
		opts.Route = func(r *http.Request) string { return r.URL.Path }
	}
	return &Middleware{
		extractIP: opts.ExtractIP,
		route:     opts.Route,
		base:      opts.Logger.WithComponent(log.ComponentTrace),
		metrics:   opts.Metrics,
	}
}

// Middleware returns HTTP middleware for request tracing
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		requestID := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = GenerateRequestID()
		}
		w.Header().Set(RequestIDHeader, requestID)

		reqLogger := m.base.With(log.FieldRequestID, requestID)
		sl := log.NewStructuredLogger(reqLogger)
		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		ctx = log.NewContext(ctx, reqLogger)
		r = r.WithContext(ctx)

		sl.LogHTTPStart(ctx, r, clientIP)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		sl.LogHTTPEnd(ctx, r, rw.statusCode, duration.Milliseconds(), clientIP)
		if m.metrics != nil {
			m.metrics.ObserveRequest(r.Method, m.route(r), rw.statusCode, duration)
		}
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.statusCode = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

// GenerateRequestID creates a random UUID for tracing
func GenerateRequestID() string {
	return uuid.NewString()
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
