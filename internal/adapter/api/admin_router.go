package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/V4T54L/service-portal/internal/adapter/api/handler"
	"github.com/V4T54L/service-portal/internal/usecase"
)

// NewAdminRouter creates the router for operational endpoints.
func NewAdminRouter(
	history *usecase.HistoryUseCase,
	gatherer prometheus.Gatherer,
	checks map[string]handler.HealthCheck,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()
	adminHandler := handler.NewAdminHandler(history, checks, logger)

	r.Get("/health", adminHandler.Health)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/admin/history", adminHandler.History)

	return r
}
