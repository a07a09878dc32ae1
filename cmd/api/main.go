package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lifemap/lifemap-api/cmd/mainconfig"
	"github.com/lifemap/lifemap-api/internal/api/router"
	"github.com/lifemap/lifemap-api/internal/app/bootstrap"
	"github.com/lifemap/lifemap-api/internal/appointments"
	"github.com/lifemap/lifemap-api/internal/assistant"
	"github.com/lifemap/lifemap-api/internal/catalog"
	appconfig "github.com/lifemap/lifemap-api/internal/config"
	"github.com/lifemap/lifemap-api/internal/observability/metrics"
	"github.com/lifemap/lifemap-api/internal/reminders"
	"github.com/lifemap/lifemap-api/pkg/logging"
)

func main() {
	if err := appconfig.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting lifemap API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"selection_mode", cfg.SelectionMode,
	)

	ctx := context.Background()
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	cat, err := catalog.NewLoader(mainconfig.NewS3Client(awsCfg, cfg)).Load(ctx, cfg.CatalogSource)
	if err != nil {
		logger.Error("failed to load provider catalog", "error", err, "source", cfg.CatalogSource)
		os.Exit(1)
	}
	logger.Info("provider catalog loaded", "providers", cat.Len(), "active", len(cat.Active()))

	metricsHandler, bookingMetrics := setupBookingMetrics()

	pool, err := connectPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close()
	}
	repo := buildRepository(pool, logger)

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	llmClient, err := bootstrap.BuildLLMClient(ctx, cfg, awsCfg, logger)
	if err != nil {
		logger.Error("failed to build llm client", "error", err)
		os.Exit(1)
	}
	if closer, ok := llmClient.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}
	selector := bootstrap.BuildSelector(cfg, llmClient, bootstrap.BuildDecisionCache(redisClient, cfg), bookingMetrics, logger)

	notifier := bootstrap.BuildBookingNotifier(cfg, bootstrap.BuildEmailSender(cfg, awsCfg, logger), logger)
	svc := appointments.NewService(cat, selector, repo, logger,
		appointments.WithNotifier(notifier),
		appointments.WithStoreTimeout(cfg.StoreTimeout),
		appointments.WithNotifyTimeout(cfg.NotifyTimeout),
		appointments.WithMetrics(bookingMetrics),
	)

	runner := reminders.NewRunner(svc, notifier, bootstrap.BuildReminderDeduper(redisClient), logger,
		reminders.WithLeadTime(cfg.ReminderLeadTime),
		reminders.WithLocation(bootstrap.LoadReminderLocation(cfg, logger)),
		reminders.WithMetrics(bookingMetrics),
	)

	verifier, err := bootstrap.BuildSessionVerifier(cfg)
	if err != nil {
		logger.Error("failed to build session verifier", "error", err)
		os.Exit(1)
	}
	if verifier == nil {
		logger.Warn("session auth disabled; requester identities in request bodies are trusted")
	}
	limiter := bootstrap.BuildRateLimiter(cfg)
	if limiter != nil {
		defer limiter.Stop()
	}

	r := router.New(&router.Config{
		Logger:              logger,
		AppointmentsHandler: appointments.NewHandler(svc, logger, !cfg.SessionAuthEnabled()),
		ProvidersHandler:    catalog.NewHandler(cat),
		AssistantHandler:    assistant.NewHandler(assistant.New(llmClient, cat, "", logger), logger),
		RemindersHandler:    reminders.NewHandler(runner, logger),
		MetricsHandler:      metricsHandler,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		SessionVerifier:     verifier,
		RateLimiter:         limiter,
		AdminAuthSecret:     cfg.AdminJWTSecret,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		return
	}

	logger.Info("server stopped")
}

// setupBookingMetrics registers booking metrics on a fresh registry so tests
// can call it more than once.
func setupBookingMetrics() (http.Handler, *metrics.BookingMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewBookingMetrics(reg)
}

// connectPostgresPool returns a nil pool only when DATABASE_URL is empty. A
// configured but unreachable database is an error so bookings never fall
// back to memory silently.
func connectPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, nil
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(connectCtx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

func buildRepository(pool *pgxpool.Pool, logger *logging.Logger) appointments.Repository {
	if pool == nil {
		logger.Warn("DATABASE_URL not set; appointments are kept in memory")
		return appointments.NewInMemoryRepository()
	}
	logger.Info("appointments stored in postgres")
	return appointments.NewPostgresRepository(pool)
}
