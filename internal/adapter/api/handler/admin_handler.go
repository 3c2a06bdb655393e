package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/V4T54L/service-portal/internal/usecase"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// AdminHandler serves operational endpoints.
type AdminHandler struct {
	history *usecase.HistoryUseCase
	checks  map[string]HealthCheck
	logger  *slog.Logger
}

func NewAdminHandler(history *usecase.HistoryUseCase, checks map[string]HealthCheck, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{history: history, checks: checks, logger: logger}
}

// Health runs every registered check.
func (h *AdminHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{}
	healthy := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Warn("health check failed", "check", name, "error", err)
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "ok"
	}

	if !healthy {
		respondWithJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "checks": status})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"status": "ok", "checks": status})
}

// History serves the unredacted audit log.
func (h *AdminHandler) History(w http.ResponseWriter, r *http.Request) {
	serveHistory(w, r, h.history, false, h.logger)
}
