package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gaarage/storefront/pkg/middleware"
	"github.com/gaarage/storefront/pkg/reachability"
)

// NewTelemetryRouter serves Prometheus metrics and the reachability report.
func NewTelemetryRouter(prober *reachability.Prober, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/reachability", prober.Handler())

	return r
}
