package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"flowfunds/internal/log"
	"flowfunds/internal/metrics"
	"flowfunds/internal/middleware/ratelimit"
	"flowfunds/internal/middleware/security"
	"flowfunds/internal/middleware/trace"
	"flowfunds/internal/services"
)

const (
	maxBodyBytes   = 1 << 20
	maxImportBytes = 10 << 20
)

// Options configures a Server. Zero values pick defaults.
type Options struct {
	Logger             *log.Logger
	Metrics            *metrics.Recorder
	RateLimitPerMinute int
	// Ready backs /readyz. A nil Ready always reports ready.
	Ready          func(context.Context) error
	TrustedProxies []string
}

type Server struct {
	http.Server
	tracker  *services.Tracker
	logger   *log.Logger
	audit    *log.StructuredLogger
	metrics  *metrics.Recorder
	limiter  *ratelimit.Limiter
	detector *security.Detector
	ready    func(context.Context) error

	stopLimiter  context.CancelFunc
	limiterDone  chan struct{}
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, tracker *services.Tracker, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	logger := opts.Logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		tracker:  tracker,
		logger:   logger,
		audit:    log.NewStructuredLogger(logger),
		metrics:  opts.Metrics,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector: security.NewDetector(opts.Logger),
		ready:    opts.Ready,
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stopLimiter = cancel
	s.limiterDone = make(chan struct{})
	go func() {
		defer close(s.limiterDone)
		_ = s.limiter.Run(ctx)
	}()
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("/api/transactions", s.handleTransactions)
	mux.HandleFunc("/api/transactions/{id}", s.handleTransaction)

	mux.HandleFunc("/api/view", s.handleView)
	mux.HandleFunc("/api/view/sort/{key}", s.handleToggleSort)

	mux.HandleFunc("/api/categories", s.handleCategories)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/series/last7", s.handleLast7)
	mux.HandleFunc("/api/breakdown", s.handleBreakdown)

	mux.HandleFunc("/api/settings", s.handleSettings)
	mux.HandleFunc("/api/settings/budget", s.handleClearBudget)
	mux.HandleFunc("/api/convert", s.handleConvert)

	mux.HandleFunc("/api/export", s.handleExport)
	mux.HandleFunc("/api/import", s.handleImport)
	mux.HandleFunc("/api/data", s.handleClearData)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("Not found").Write(w)
	})
}

// middleware wraps h, outermost first: trace, security headers, detection,
// then the rate limit on mutating requests.
func (s *Server) middleware(h http.Handler) http.Handler {
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, ratelimit.Mutating, s.onRateLimited)(h)
	detected := s.detector.Middleware(limited)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(detected)
	return trace.NewMiddleware(trace.Options{
		ExtractIP: s.detector.ExtractClientIP,
		Route:     routeLabel,
		Logger:    s.logger,
		Metrics:   s.metrics,
	}).Middleware(headers)
}

// routeLabel uses the matched mux pattern so ids do not explode metric cardinality.
func routeLabel(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return "unmatched"
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.metrics.RateLimited()
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	TooManyRequestsError().Write(w)
}

// Limiter exposes the rate limiter, for tests.
func (s *Server) Limiter() *ratelimit.Limiter { return s.limiter }

// Shutdown gracefully shuts down the server and its cleanup goroutine.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.stopLimiter()
		<-s.limiterDone
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead); resp != nil {
		resp.Write(w)
		return
	}
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead); resp != nil {
		resp.Write(w)
		return
	}
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "not ready").Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}
