// Package api serves the alertkeeper HTTP API.
//
// Handlers are thin: they decode the request, call the engine, rule set or
// dispatcher, and encode the result. Absence of a match is reported as an
// outcome with status 200, never as an HTTP error.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/solatis/alertkeeper/internal/core/auth"
	"github.com/solatis/alertkeeper/internal/dispatch"
	"github.com/solatis/alertkeeper/internal/engine"
	"github.com/solatis/alertkeeper/internal/metrics"
	"github.com/solatis/alertkeeper/internal/render"
	"github.com/solatis/alertkeeper/internal/rules"
	"github.com/solatis/alertkeeper/internal/types"
)

// HistoryReader lists stored alerts. *db.AlertStore implements it.
type HistoryReader interface {
	Recent(ctx context.Context, ruleID types.RuleID, limit int) ([]types.AlertEntry, error)
}

// Pinger reports backend reachability for /healthz. *sqlx.DB implements it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the collaborators of a Service. Engine, Rules, Dispatcher and
// Catalog are required.
type Deps struct {
	Engine     *engine.Engine
	Rules      *rules.RuleSet
	Dispatcher *dispatch.Dispatcher
	Catalog    *render.Catalog

	History  HistoryReader       // nil disables GET /api/v1/alerts
	DB       Pinger              // nil skips the database health check
	Verifier *auth.Verifier      // nil disables request signing
	Metrics  *metrics.Metrics    // nil disables HTTP metrics
	Gatherer prometheus.Gatherer // nil disables /metrics

	RequestTimeout time.Duration
	Logger         zerolog.Logger
}

// Service implements the HTTP handlers.
type Service struct {
	deps   Deps
	logger zerolog.Logger
}

// NewService validates deps and returns a Service.
func NewService(deps Deps) (*Service, error) {
	if deps.Engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if deps.Rules == nil {
		return nil, fmt.Errorf("rule set cannot be nil")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher cannot be nil")
	}
	if deps.Catalog == nil {
		return nil, fmt.Errorf("catalog cannot be nil")
	}
	return &Service{deps: deps, logger: deps.Logger}, nil
}

// Router returns the HTTP handler for every route.
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(s.recoverPanics)
	if s.deps.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.deps.RequestTimeout))
	}

	r.Get("/healthz", s.handleHealth)
	if s.deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		if s.deps.Verifier != nil {
			r.Use(s.deps.Verifier.Middleware)
		}

		r.Post("/alerts", s.handleProcessAlert)
		r.Post("/alerts/batch", s.handleProcessBatch)
		r.Get("/alerts", s.handleListAlerts)

		r.Get("/rules", s.handleListRules)
		r.Delete("/rules/{ruleID}", s.handleDeleteRule)

		r.Get("/handlers", s.handleListHandlers)
		r.Delete("/handlers/{handlerID}", s.handleDeleteHandler)
	})

	return r
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":   "ok",
		"rules":    s.deps.Rules.Len(),
		"handlers": len(s.deps.Dispatcher.Handlers()),
	}
	if s.deps.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.DB.PingContext(ctx); err != nil {
			body["status"] = "unhealthy"
			body["error"] = err.Error()
			respondJSON(w, http.StatusServiceUnavailable, body)
			return
		}
	}
	respondJSON(w, http.StatusOK, body)
}
