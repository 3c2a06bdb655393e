package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/service-portal/internal/adapter/api"
	"github.com/V4T54L/service-portal/internal/adapter/api/handler"
	"github.com/V4T54L/service-portal/internal/adapter/metrics"
	"github.com/V4T54L/service-portal/internal/adapter/notifier"
	"github.com/V4T54L/service-portal/internal/adapter/pii"
	"github.com/V4T54L/service-portal/internal/adapter/repository/memory"
	"github.com/V4T54L/service-portal/internal/adapter/repository/postgres"
	redisrepo "github.com/V4T54L/service-portal/internal/adapter/repository/redis"
	"github.com/V4T54L/service-portal/internal/adapter/repository/wal"
	"github.com/V4T54L/service-portal/internal/adapter/sms"
	"github.com/V4T54L/service-portal/internal/domain"
	"github.com/V4T54L/service-portal/internal/pkg/config"
	"github.com/V4T54L/service-portal/internal/pkg/logger"
	"github.com/V4T54L/service-portal/internal/usecase"

	_ "github.com/lib/pq"
)

type stores struct {
	customers domain.CustomerRepository
	history   domain.HistoryRepository
	users     domain.UserRepository
	tickets   domain.ServiceRequestRepository
	sessions  domain.SessionRepository
	otps      domain.OTPRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logger.New(cfg.LogLevel)
	slog.SetDefault(logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewPortalMetrics(reg)

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]handler.HealthCheck{}
	st := stores{}

	// --- Database Connection ---
	if cfg.PostgresURL != "" {
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			logger.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}
		st.customers = postgres.NewCustomerRepository(db, logger)
		st.history = postgres.NewHistoryRepository(db, logger)
		st.users = postgres.NewUserRepository(db, logger, cfg.UserCacheTTL, m)
		st.tickets = postgres.NewServiceRequestRepository(db)
		checks["postgres"] = db.PingContext
	} else {
		logger.Warn("POSTGRES_URL is not set, using in-memory stores")
		st.customers = memory.NewCustomerRepository()
		st.history = memory.NewHistoryRepository()
		st.users = memory.NewUserRepository()
		st.tickets = memory.NewServiceRequestRepository()
	}

	// --- Redis Connection ---
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("failed to parse redis url", "error", err)
			os.Exit(1)
		}
		redisClient := redis.NewClient(redisOpts)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("could not connect to redis, sessions will fail until it is reachable", "error", err)
		}
		sessions := redisrepo.NewSessionRepository(redisClient, logger)
		st.sessions = sessions
		st.otps = redisrepo.NewOTPRepository(redisClient)
		checks["redis"] = sessions.Ping
	} else {
		logger.Warn("REDIS_URL is not set, using in-memory sessions")
		st.sessions = memory.NewSessionRepository()
		st.otps = memory.NewOTPRepository()
	}

	// --- Audit Spool ---
	spool, err := wal.NewSpool(cfg.WALPath, cfg.WALSegmentSize, cfg.WALMaxDiskSize, logger)
	if err != nil {
		logger.Error("failed to initialize audit spool", "error", err)
		os.Exit(1)
	}
	defer spool.Close()

	audit := usecase.NewAuditLogger(st.history, spool, m, logger)
	if err := audit.ReplaySpool(ctx); err != nil {
		logger.Warn("initial audit spool replay failed", "error", err)
	}
	go audit.StartSpoolReplay(ctx, cfg.ReplayInterval)

	// --- Notification Channels ---
	smsClient := sms.NewUnifonicClient(sms.Config{
		BaseURL: cfg.UnifonicBaseURL,
		APIKey:  cfg.UnifonicAPIKey,
		Sender:  cfg.UnifonicSender,
	}, logger)

	channels := []notifier.Channel{{Name: "console", Notifier: notifier.NewConsoleNotifier(os.Stdout)}}
	if cfg.UnifonicAPIKey != "" {
		channels = append(channels, notifier.Channel{Name: "sms", Notifier: notifier.NewSMSNotifier(smsClient)})
	}
	if len(cfg.KafkaBrokers) > 0 {
		writer := notifier.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer writer.Close()
		channels = append(channels, notifier.Channel{Name: "kafka", Notifier: notifier.NewKafkaNotifier(writer)})
	}
	notify := notifier.NewMultiNotifier(m, logger, channels...)

	// --- Initialize Use Cases ---
	catalog := usecase.DefaultCatalog()
	issuer := usecase.NewRequestIssuer(catalog, usecase.NewReferenceGenerator(cfg.ReferencePrefix), st.tickets, notify, audit, m, logger)
	access := usecase.NewAccessUseCase(st.users, st.otps, smsClient, usecase.AccessConfig{
		JWTSecret:      cfg.JWTSecret,
		JWTExpiry:      cfg.JWTExpiry,
		OTPTTL:         cfg.OTPTTL,
		ResendCooldown: cfg.OTPResendCooldown,
		Bypass:         cfg.OTPBypass,
		DevCode:        cfg.OTPDevCode,
	}, logger)
	lookup := usecase.NewLookupUseCase(st.customers, st.sessions, audit, cfg.SessionTTL, m, logger)
	workflow := usecase.NewWorkflowUseCase(st.sessions, st.customers, catalog, issuer, cfg.SessionTTL, logger)
	history := usecase.NewHistoryUseCase(st.history, pii.NewDefaultMasker())

	if cfg.OTPBypass {
		logger.Warn("OTP bypass is enabled, verification codes are not sent")
	}

	// --- Start Admin and Metrics Server ---
	if !cfg.AdminIsPrivate() {
		logger.Warn("admin server is not bound to a private address; it serves unredacted history without auth", "addr", cfg.AdminAddr)
	}
	adminServer := &http.Server{
		Addr:    cfg.AdminAddr,
		Handler: api.NewAdminRouter(history, reg, checks, logger),
	}
	go func() {
		logger.Info("starting admin & metrics server", "addr", adminServer.Addr)
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("admin & metrics server failed", "error", err)
		}
	}()

	// --- Start Portal Server ---
	portalServer := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: api.NewRouter(api.RouterConfig{
			SessionCookie: cfg.SessionCookie,
			SessionTTL:    cfg.SessionTTL,
			TokenTTL:      cfg.JWTExpiry,
			SecureCookies: cfg.SecureCookies,
			RateLimit:     cfg.LookupRateLimit,
			RateBurst:     cfg.LookupRateBurst,
		}, logger, access, lookup, workflow, history),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("starting portal server", "addr", portalServer.Addr)
		if err := portalServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("portal server failed", "error", err)
			stop()
		}
	}()

	// --- Wait for shutdown signal ---
	<-ctx.Done()
	logger.Info("shutting down servers...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := portalServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("portal server shutdown failed", "error", err)
	}
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("admin server shutdown failed", "error", err)
	}

	logger.Info("servers shut down gracefully")
}
