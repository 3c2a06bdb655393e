package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"

	"github.com/V4T54L/service-portal/internal/adapter/api/handler"
	"github.com/V4T54L/service-portal/internal/adapter/api/middleware"
	"github.com/V4T54L/service-portal/internal/usecase"
)

// RouterConfig holds the HTTP settings of the public server.
type RouterConfig struct {
	SessionCookie string
	SessionTTL    time.Duration
	TokenTTL      time.Duration
	SecureCookies bool
	RateLimit     float64
	RateBurst     int
}

// NewRouter creates the public router: access endpoints and the lookup
// workflow, behind session, auth, logging and gzip middleware.
func NewRouter(
	cfg RouterConfig,
	logger *slog.Logger,
	access *usecase.AccessUseCase,
	lookup *usecase.LookupUseCase,
	workflow *usecase.WorkflowUseCase,
	history *usecase.HistoryUseCase,
) http.Handler {
	session := middleware.SessionCookie{Name: cfg.SessionCookie, TTL: cfg.SessionTTL, Secure: cfg.SecureCookies}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.Session(session))
	r.Use(middleware.Authenticate(access, logger))
	r.Use(middleware.Logging(logger))

	limiter := middleware.NewIPRateLimiter(cfg.RateLimit, cfg.RateBurst)

	accessHandler := handler.NewAccessHandler(access, session, cfg.TokenTTL, logger)
	r.Route("/access", func(ar chi.Router) {
		ar.Use(limiter.Handler)
		accessHandler.RegisterRoutes(ar)
	})

	lookupHandler := handler.NewLookupHandler(lookup, workflow, history, logger)
	r.Route(handler.LookupPath, func(lr chi.Router) {
		lr.Use(middleware.RequireActor)
		lookupHandler.RegisterRoutes(lr, limiter.Handler)
	})

	return gzhttp.GzipHandler(r)
}
