// Package http serves the ledger as a JSON API plus a Markdown report.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"parchi/internal/assistant"
	"parchi/internal/ledger"
	"parchi/internal/log"
	"parchi/internal/middleware/ratelimit"
	"parchi/internal/middleware/security"
	"parchi/internal/middleware/trace"
)

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options carries the optional collaborators of a Server.
type Options struct {
	// Parser enables POST /api/assistant/parse when set.
	Parser   assistant.Parser
	Pinger   Pinger
	Logger   *log.Logger
	Currency string
	// RequestsPerMinute limits mutating requests per client.
	RequestsPerMinute int
}

type Server struct {
	http.Server
	store    *ledger.Store
	parser   assistant.Parser
	pinger   Pinger
	logger   *log.Logger
	currency string
	started  time.Time

	tracer   *trace.Middleware
	detector *security.Detector
	limiter  *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, store *ledger.Store, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	currency := opts.Currency
	if currency == "" {
		currency = "PKR"
	}

	detector := security.NewDetector()
	s := &Server{
		store:    store,
		parser:   opts.Parser,
		pinger:   opts.Pinger,
		logger:   logger.WithComponent(log.ComponentHTTP),
		currency: currency,
		started:  time.Now(),
		detector: detector,
		tracer:   trace.NewMiddleware(logger, detector.ExtractClientIP),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RequestsPerMinute,
		}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/entries", s.handleListEntries)
	mux.HandleFunc("POST /api/entries", s.handleCreateEntry)
	mux.HandleFunc("GET /api/entries/{id}", s.handleGetEntry)
	mux.HandleFunc("PUT /api/entries/{id}", s.handleUpdateEntry)
	mux.HandleFunc("DELETE /api/entries/{id}", s.handleDeleteEntry)
	mux.HandleFunc("POST /api/entries/{id}/payments", s.handleAddPayment)
	mux.HandleFunc("POST /api/entries/{id}/confirm", s.handleConfirmEntry)
	mux.HandleFunc("POST /api/assistant/parse", s.handleParse)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/banks", s.handleBanks)
	mux.HandleFunc("GET /report", s.handleReport)
	mux.HandleFunc("GET /export.csv", s.handleExport)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// middleware wraps h so that tracing runs first and sees the final status.
func (s *Server) middleware(h http.Handler) http.Handler {
	h = s.limiter.Middleware(s.detector.ExtractClientIP, ratelimit.MutatingOnly, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
	})(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	return s.tracer.Middleware(h)
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
