// Package storefront is the HTTP face of the catalog, the per-user history
// journals, recommendations, checkout autosave and order placement.
package storefront

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"Storefront/internal/auth"
	"Storefront/pkg/kit"
)

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry
	Tokens   *auth.TokenMaker

	MetricsEnabled bool
	MetricsToken   string
}

const (
	readyTimeout = 1 * time.Second

	searchLimitPerMin = 30
	draftLimitPerMin  = 120
	limitWindow       = 60 * time.Second
)

func NewHandler(s *Server, deps HTTPDeps) http.Handler {
	r := chi.NewRouter()

	setupMiddleware(r, deps)
	setupMetrics(r, deps)
	setupRoutes(r, s, deps)

	return r
}

func setupMiddleware(r *chi.Mux, deps HTTPDeps) {
	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer(deps.Log))
	r.Use(kit.Logging(deps.Log))
}

func setupMetrics(r *chi.Mux, deps HTTPDeps) {
	if deps.Registry == nil {
		return
	}

	metrics := kit.NewMetrics(deps.Registry)
	r.Use(metrics.Middleware(deps.Service, kit.ChiRoutePatternOrPath))

	if !deps.MetricsEnabled {
		return
	}

	r.With(kit.MetricsAuth(deps.MetricsToken)).
		Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
}

func setupRoutes(r *chi.Mux, s *Server, deps HTTPDeps) {
	searchLimiter := kit.NewRateLimiter(searchLimitPerMin, limitWindow, auth.SessionKey)
	draftLimiter := kit.NewRateLimiter(draftLimitPerMin, limitWindow, auth.SessionKey)

	r.Get("/healthz", healthz)
	r.Get("/readyz", s.handleReady)

	r.Route("/products", func(pr chi.Router) {
		pr.Get("/", s.handleListProducts)
		pr.Get("/trending", s.handleTrending)
		pr.Get("/{id}", s.handleGetProduct)
		pr.Get("/{id}/related", s.handleRelated)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSession(deps.Tokens))

		pr.Route("/history/views", func(hr chi.Router) {
			hr.Get("/", s.handleListViews)
			hr.Post("/", s.handleRecordView)
			hr.Delete("/", s.handleClearViews)
			hr.Delete("/{key}", s.handleRemoveView)
		})

		pr.Route("/history/searches", func(hr chi.Router) {
			hr.Get("/", s.handleListSearches)
			hr.With(searchLimiter.Middleware).Post("/", s.handleRecordSearch)
			hr.Delete("/", s.handleClearSearches)
			hr.Delete("/{key}", s.handleRemoveSearch)
		})

		pr.Get("/recommendations", s.handleRecommendations)

		pr.Route("/checkout/draft", func(cr chi.Router) {
			cr.Get("/", s.handleGetDraft)
			cr.With(draftLimiter.Middleware).Patch("/", s.handleSaveDraft)
			cr.Post("/flush", s.handleFlushDraft)
			cr.Delete("/", s.handleClearDraft)
		})

		pr.Post("/orders", s.handlePlaceOrder)
		pr.Get("/orders/{id}", s.handleGetOrder)
	})
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	checks := map[string]func(context.Context) error{
		"storage": s.Storage.Ping,
		"catalog": s.Catalog.Ping,
	}
	for name, ping := range checks {
		if err := ping(ctx); err != nil {
			s.log().Warn("readyz failed", zap.String("check", name), zap.Error(err))
			kit.WriteError(w, r, http.StatusServiceUnavailable, name+" not ready", nil)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}
