package http

import (
	"context"
	"net/http"
	"time"

	"cashflow/internal/log"
	"cashflow/internal/records"
	"cashflow/internal/services"
)

// Server is the JSON API over the record store and the projection service.
type Server struct {
	http.Server
	store       records.Store
	projections *services.ProjectionService
	ready       func(ctx context.Context) error
	limiter     *rateLimiter
	metrics     *securityMetrics
	logger      *log.Logger
	reqLogger   *log.RequestLogger
}

type Option func(*Server)

// WithReadiness sets the check behind /readyz.
func WithReadiness(check func(ctx context.Context) error) Option {
	return func(s *Server) { s.ready = check }
}

func WithLogger(logger *log.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

func NewServer(addr string, store records.Store, projections *services.ProjectionService, opts ...Option) *Server {
	s := &Server{
		store:       store,
		projections: projections,
		ready:       func(context.Context) error { return nil },
		metrics:     &securityMetrics{},
		logger:      log.New(log.DefaultConfig()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent(log.ComponentHTTP)
	s.reqLogger = log.NewRequestLogger(s.logger)
	s.limiter = newRateLimiter()

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.withMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/projection", s.handleProjection)
	mux.HandleFunc("GET /api/checkpoints", s.handleCheckpoints)

	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("PATCH /api/settings", s.handleUpdateSettings)

	mux.HandleFunc("GET /api/obligations", s.handleListObligations)
	mux.HandleFunc("POST /api/obligations", s.handleCreateObligation)
	mux.HandleFunc("POST /api/obligations/mark-paid", s.handleMarkPeriodPaid)
	mux.HandleFunc("PATCH /api/obligations/{id}", s.handleUpdateObligation)
	mux.HandleFunc("DELETE /api/obligations/{id}", s.handleDeleteObligation)

	mux.HandleFunc("GET /api/credit-accounts", s.handleListCreditAccounts)
	mux.HandleFunc("POST /api/credit-accounts", s.handleCreateCreditAccount)
	mux.HandleFunc("PATCH /api/credit-accounts/{id}", s.handleUpdateCreditAccount)
	mux.HandleFunc("PUT /api/credit-accounts/{id}/overrides/{year}/{month}", s.handleSetPaymentOverride)

	mux.HandleFunc("GET /api/income-rules", s.handleListIncomeRules)
	mux.HandleFunc("POST /api/income-rules", s.handleCreateIncomeRule)
	mux.HandleFunc("PATCH /api/income-rules/{id}", s.handleUpdateIncomeRule)
	mux.HandleFunc("DELETE /api/income-rules/{id}", s.handleDeactivateIncomeRule)

	mux.HandleFunc("GET /api/past-due", s.handleListPastDue)
	mux.HandleFunc("POST /api/past-due", s.handleAddPastDue)
	mux.HandleFunc("DELETE /api/past-due/{id}", s.handleDeletePastDue)
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.stop()
	return s.Server.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.ready(ctx); err != nil {
		log.FromContext(r.Context()).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
		writeError(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
