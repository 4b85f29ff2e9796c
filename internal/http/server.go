// Package http serves the report API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"finreport/internal/amqp"
	"finreport/internal/core"
	"finreport/internal/log"
	"finreport/internal/middleware/ratelimit"
	"finreport/internal/middleware/security"
	"finreport/internal/middleware/trace"
	"finreport/internal/storage"
)

// ReportService produces the three reports.
type ReportService interface {
	Home(ctx context.Context, asOf string) core.HomeReport
	SpendingByCategory(ctx context.Context, category, date string) (core.Ledger, error)
	IncreasedCashback(ctx context.Context, year, month int) (core.CategoryCashback, error)
}

// ImportPublisher queues ledger imports for the worker.
type ImportPublisher interface {
	PublishLedgerImport(ctx context.Context, msg *amqp.LedgerImportMessage) error
}

// ImportHistory lists past imports.
type ImportHistory interface {
	RecentImports(ctx context.Context, limit int) ([]storage.ImportRun, error)
}

// Options configures optional collaborators. Nil fields disable the
// matching feature.
type Options struct {
	Publisher ImportPublisher
	History   ImportHistory
	RateLimit ratelimit.Config
	// Ready reports whether dependencies are usable; nil means always ready.
	Ready  func(ctx context.Context) error
	Logger *log.Logger
}

type Server struct {
	http.Server
	reports   ReportService
	publisher ImportPublisher
	history   ImportHistory
	ready     func(ctx context.Context) error
	logger    *log.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, reports ReportService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		reports:   reports,
		publisher: opts.Publisher,
		history:   opts.History,
		ready:     opts.Ready,
		logger:    logger,
		limiter:   ratelimit.NewLimiter(opts.RateLimit),
		detector:  security.NewDetector(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.Handle("/api/home", s.api(http.MethodGet, s.handleHome))
	mux.Handle("/api/reports/spending-by-category", s.api(http.MethodGet, s.handleSpendingByCategory))
	mux.Handle("/api/services/increased-cashback", s.api(http.MethodGet, s.handleIncreasedCashback))
	mux.Handle("/api/ledger/imports", s.api(http.MethodGet+", "+http.MethodPost, s.handleImports))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.tracer.Middleware(headers.Middleware(s.flagSuspicious(mux))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// api wraps an API handler with method checking and rate limiting.
func (s *Server) api(allow string, next http.HandlerFunc) http.Handler {
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
	})
	return limited(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !methodAllowed(allow, r.Method) {
			w.Header().Set("Allow", allow)
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		next(w, r)
	}))
}

func (s *Server) flagSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldUserAgent, r.UserAgent())
		}
		next.ServeHTTP(w, r)
	})
}

// Metrics returns the traffic served so far.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.Metrics()
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
