package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/V4T54L/service-portal/internal/adapter/api/middleware"
	"github.com/V4T54L/service-portal/internal/domain"
	"github.com/V4T54L/service-portal/internal/usecase"
)

// LookupHandler serves the lookup form and the role/service workflow that
// follows it.
type LookupHandler struct {
	lookup   *usecase.LookupUseCase
	workflow *usecase.WorkflowUseCase
	history  *usecase.HistoryUseCase
	logger   *slog.Logger
}

func NewLookupHandler(lookup *usecase.LookupUseCase, workflow *usecase.WorkflowUseCase, history *usecase.HistoryUseCase, logger *slog.Logger) *LookupHandler {
	return &LookupHandler{lookup: lookup, workflow: workflow, history: history, logger: logger}
}

// RegisterRoutes mounts the lookup endpoints. submit wraps the endpoints
// that hit the customer store.
func (h *LookupHandler) RegisterRoutes(r chi.Router, submit func(http.Handler) http.Handler) {
	r.Get("/", h.Form)
	r.With(submit).Post("/", h.Submit)
	r.Post("/select", h.Select)
	r.Post("/role", h.Role)
	r.Get("/services", h.Services)
	r.Post("/services/{key}", h.RequestService)
	r.Get("/history", h.History)
}

// Form handles GET /lookup.
func (h *LookupHandler) Form(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]any{
		"fields":  domain.Fields,
		"initial": h.lookup.FormDefaults(middleware.ActorFromContext(r.Context())),
	})
}

// Submit handles POST /lookup.
func (h *LookupHandler) Submit(w http.ResponseWriter, r *http.Request) {
	form, err := decodeForm(w, r)
	if err != nil {
		badBody(w, err)
		return
	}

	result, err := h.lookup.SubmitLookup(r.Context(), requestMeta(r), form)
	if err != nil {
		h.logger.Error("lookup failed", "error", err)
		respondWithError(w, http.StatusServiceUnavailable, "lookup is temporarily unavailable")
		return
	}
	if result.Outcome == usecase.OutcomeInvalid {
		respondWithJSON(w, http.StatusUnprocessableEntity, result)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// Select handles POST /lookup/select with a customer_id from the preview.
func (h *LookupHandler) Select(w http.ResponseWriter, r *http.Request) {
	form, err := decodeForm(w, r)
	if err != nil {
		badBody(w, err)
		return
	}
	id, err := strconv.ParseInt(strings.TrimSpace(form["customer_id"]), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "customer_id must be a number")
		return
	}

	result, err := h.lookup.SelectFromPreview(r.Context(), requestMeta(r), id)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// Role handles POST /lookup/role.
func (h *LookupHandler) Role(w http.ResponseWriter, r *http.Request) {
	form, err := decodeForm(w, r)
	if err != nil {
		badBody(w, err)
		return
	}

	session, err := h.workflow.SubmitRole(r.Context(), requestMeta(r), form["role"])
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"role":      session.Role,
		"next_step": session.Step(),
	})
}

// Services handles GET /lookup/services.
func (h *LookupHandler) Services(w http.ResponseWriter, r *http.Request) {
	menu, err := h.workflow.ListServices(r.Context(), requestMeta(r))
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, menu)
}

// RequestService handles POST /lookup/services/{key}.
func (h *LookupHandler) RequestService(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	receipt, err := h.workflow.SubmitServiceRequest(r.Context(), requestMeta(r), key)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, receipt)
}

// History handles GET /lookup/history.
func (h *LookupHandler) History(w http.ResponseWriter, r *http.Request) {
	serveHistory(w, r, h.history, true, h.logger)
}

func (h *LookupHandler) writeWorkflowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidState):
		redirectToLookup(w, "start with a customer lookup")
	case errors.Is(err, domain.ErrInvalidRole):
		respondWithJSON(w, http.StatusBadRequest, map[string]any{
			"error": "choose a valid role",
			"roles": []domain.Role{domain.RoleBeneficiary, domain.RoleOwner},
		})
	case errors.Is(err, domain.ErrUnknownService):
		respondWithJSON(w, http.StatusNotFound, map[string]any{
			"error":    "unknown service",
			"services": h.workflow.Catalog(),
		})
	default:
		h.logger.Error("workflow request failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

func serveHistory(w http.ResponseWriter, r *http.Request, uc *usecase.HistoryUseCase, redact bool, logger *slog.Logger) {
	q := r.URL.Query()
	page, err := uc.Query(r.Context(), usecase.HistoryQuery{
		Q:     q.Get("q"),
		Type:  q.Get("type"),
		Found: q.Get("found"),
		Page:  q.Get("page"),
	}, redact)
	if err != nil {
		logger.Error("history query failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondWithJSON(w, http.StatusOK, page)
}
