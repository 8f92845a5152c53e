package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/partnerhub-backend/internal/audit"
	"github.com/angelmondragon/partnerhub-backend/internal/cron"
	"github.com/angelmondragon/partnerhub-backend/internal/licenses"
	"github.com/angelmondragon/partnerhub-backend/internal/notifications"
	"github.com/angelmondragon/partnerhub-backend/internal/offers"
	"github.com/angelmondragon/partnerhub-backend/internal/referrals"
	"github.com/angelmondragon/partnerhub-backend/pkg/config"
	"github.com/angelmondragon/partnerhub-backend/pkg/db"
	"github.com/angelmondragon/partnerhub-backend/pkg/instance"
	"github.com/angelmondragon/partnerhub-backend/pkg/logger"
	"github.com/angelmondragon/partnerhub-backend/pkg/metrics"
	"github.com/angelmondragon/partnerhub-backend/pkg/migrate"
	"github.com/angelmondragon/partnerhub-backend/pkg/pubsub"
	"github.com/angelmondragon/partnerhub-backend/pkg/redis"
)

const lockName = "cron-worker"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Static:      map[string]string{"env": cfg.App.Env, "instance": instance.GetID()},
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	var lock cron.Lock = &cron.LocalLock{}
	if cfg.Redis.URL != "" || cfg.Redis.Address != "" {
		redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		redisLock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName), cfg.Cron.LockTTL)
		requireResource(logg, "cron lock", err)
		lock = redisLock
	} else {
		logg.Warn(context.Background(), "redis not configured, using in-process cron lock")
	}

	reg := prometheus.DefaultRegisterer
	conn := dbClient.DB()

	notificationRepo := notifications.NewRepository(conn)
	sender, closeSender, err := newSender(context.Background(), cfg, logg, notificationRepo)
	requireResource(logg, "notification sender", err)
	defer closeSender()

	monitor, err := licenses.NewMonitor(licenses.MonitorParams{
		Store:   licenses.NewRepository(conn),
		Sender:  sender,
		Workers: cfg.Licenses.SweepWorkers,
		Metrics: metrics.NewSweepMetrics(reg),
		Logger:  logg,
	})
	requireResource(logg, "license monitor", err)

	auditSvc, err := audit.NewService(audit.NewRepository(conn))
	requireResource(logg, "audit service", err)
	referralMetrics := metrics.NewReferralMetrics(reg)
	referralSvc, err := referrals.NewService(referrals.ServiceParams{
		DB:                dbClient,
		Repo:              referrals.NewRepository(conn),
		Catalog:           offers.NewCatalog(conn),
		Audit:             auditSvc,
		Metrics:           referralMetrics,
		Logger:            logg,
		TransitionTimeout: cfg.Referrals.TransitionTimeout,
	})
	requireResource(logg, "referral service", err)

	licenseJob, err := cron.NewLicenseExpiryJob(logg, monitor)
	requireResource(logg, "license expiry job", err)
	followUpJob, err := cron.NewFollowUpJob(logg, referralSvc, referralMetrics)
	requireResource(logg, "follow-up job", err)
	cleanupJob, err := cron.NewNotificationCleanupJob(logg, notificationRepo, cfg.Cron.NotificationRetention)
	requireResource(logg, "notification cleanup job", err)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   cron.NewRegistry(licenseJob, followUpJob, cleanupJob),
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(reg),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	requireResource(logg, "cron service", err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithField(ctx, "interval", cfg.Cron.Interval.String())
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func newSender(ctx context.Context, cfg *config.Config, logg *logger.Logger, repo notifications.Repository) (notifications.Sender, func(), error) {
	if !cfg.Notify.UsesPubSub() {
		sender, err := notifications.NewInboxSender(repo)
		return sender, func() {}, err
	}
	client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return nil, func() {}, err
	}
	publisher := client.LicensePublisher()
	sender, err := notifications.NewPubSubSender(publisher)
	if err != nil {
		_ = client.Close()
		return nil, func() {}, err
	}
	return sender, func() {
		publisher.Stop()
		if err := client.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}, nil
}

func requireResource(logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to build "+resource, err)
	os.Exit(1)
}
