package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lifemap/lifemap-api/cmd/mainconfig"
	"github.com/lifemap/lifemap-api/internal/app/bootstrap"
	"github.com/lifemap/lifemap-api/internal/appointments"
	appconfig "github.com/lifemap/lifemap-api/internal/config"
	"github.com/lifemap/lifemap-api/internal/reminders"
	"github.com/lifemap/lifemap-api/pkg/logging"
)

// repositoryLister reads recent appointments straight from the store; the
// Lambda has no catalog or selector to build a full booking service.
type repositoryLister struct {
	repo appointments.Repository
}

func (l repositoryLister) List(ctx context.Context, scopeIdentity string) ([]appointments.Appointment, error) {
	return l.repo.List(ctx, scopeIdentity, appointments.ListLimit)
}

type runner interface {
	Run(ctx context.Context, now time.Time) (reminders.Result, error)
}

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	r, cleanup, err := setup(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("reminders lambda setup failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	lambda.Start(func(ctx context.Context, evt events.CloudWatchEvent) (reminders.Result, error) {
		return handle(ctx, r, evt, logger)
	})
}

func setup(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (runner, func(), error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, nil, errors.New("DATABASE_URL is required")
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres pool: %w", err)
	}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("aws config: %w", err)
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient == nil {
		logger.Warn("redis unavailable; reminders are de-duplicated per invocation only")
	}
	notifier := bootstrap.BuildBookingNotifier(cfg, bootstrap.BuildEmailSender(cfg, awsCfg, logger), logger)

	r := reminders.NewRunner(
		repositoryLister{repo: appointments.NewPostgresRepository(pool)},
		notifier,
		bootstrap.BuildReminderDeduper(redisClient),
		logger,
		reminders.WithLeadTime(cfg.ReminderLeadTime),
		reminders.WithLocation(bootstrap.LoadReminderLocation(cfg, logger)),
	)
	cleanup := func() {
		pool.Close()
		if redisClient != nil {
			_ = redisClient.Close()
		}
	}
	return r, cleanup, nil
}

// handle runs one reminder pass. The scheduled event time is used as "now"
// so retried invocations look at the same window.
func handle(ctx context.Context, r runner, evt events.CloudWatchEvent, logger *logging.Logger) (reminders.Result, error) {
	now := evt.Time
	if now.IsZero() {
		now = time.Now()
	}
	res, err := r.Run(ctx, now.UTC())
	if err != nil {
		logger.Error("reminder run failed", "error", err, "event_id", evt.ID)
		return reminders.Result{}, err
	}
	logger.Info("reminder run finished", "event_id", evt.ID, "sent", res.Sent, "skipped", res.Skipped)
	return res, nil
}
