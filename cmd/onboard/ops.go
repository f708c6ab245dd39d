package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"satnam/internal/onboarding/handler"
	"satnam/internal/platform/httpserver"
	platformmetrics "satnam/internal/platform/metrics"
	"satnam/pkg/platform/middleware/auth"
	"satnam/pkg/platform/middleware/metadata"
	"satnam/pkg/platform/middleware/request"
	"satnam/pkg/platform/middleware/requesttime"
)

// newOpsRouter serves the local operations API: health and metrics are
// open, session control needs a coordinator token.
func newOpsRouter(svc handler.Service, validator auth.JWTValidator, health handler.Health, reg *prometheus.Registry, origins []string, logger *slog.Logger) http.Handler {
	httpMetrics := platformmetrics.New(reg)

	r := chi.NewRouter()
	if len(origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(httpMetrics.Instrument)

	r.Method(http.MethodGet, "/healthz", health)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(validator, logger))
		handler.New(svc, logger).Register(r)
	})
	return r
}

func (a *app) opsServer() *http.Server {
	validator := auth.ValidatorFunc(a.tokens.CoordinatorClaims)
	return httpserver.New(a.cfg.Ops.Addr, newOpsRouter(a.service, validator, a.health, a.registry, a.cfg.Ops.AllowedOrigins, a.logger))
}
