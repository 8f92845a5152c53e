package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/partnerhub-backend/api/routes"
	"github.com/angelmondragon/partnerhub-backend/internal/admin"
	"github.com/angelmondragon/partnerhub-backend/internal/audit"
	"github.com/angelmondragon/partnerhub-backend/internal/licenses"
	"github.com/angelmondragon/partnerhub-backend/internal/notifications"
	"github.com/angelmondragon/partnerhub-backend/internal/offers"
	"github.com/angelmondragon/partnerhub-backend/internal/referrals"
	"github.com/angelmondragon/partnerhub-backend/internal/reports"
	"github.com/angelmondragon/partnerhub-backend/pkg/config"
	"github.com/angelmondragon/partnerhub-backend/pkg/db"
	"github.com/angelmondragon/partnerhub-backend/pkg/instance"
	"github.com/angelmondragon/partnerhub-backend/pkg/logger"
	"github.com/angelmondragon/partnerhub-backend/pkg/metrics"
	"github.com/angelmondragon/partnerhub-backend/pkg/migrate"
	"github.com/angelmondragon/partnerhub-backend/pkg/pubsub"
	"github.com/angelmondragon/partnerhub-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	deps := routes.Dependencies{DB: dbClient}
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
		deps.Redis = redisClient
		deps.Idempotency = redisClient
	} else {
		logg.Warn(context.Background(), "redis not configured, idempotent replay disabled")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	deps.Gatherer = reg
	deps.HTTPMetrics = metrics.NewHTTPMetrics(reg)

	conn := dbClient.DB()
	auditSvc, err := audit.NewService(audit.NewRepository(conn))
	requireResource(logg, "audit service", err)

	referralSvc, err := referrals.NewService(referrals.ServiceParams{
		DB:                dbClient,
		Repo:              referrals.NewRepository(conn),
		Catalog:           offers.NewCatalog(conn),
		Audit:             auditSvc,
		Metrics:           metrics.NewReferralMetrics(reg),
		Logger:            logg,
		TransitionTimeout: cfg.Referrals.TransitionTimeout,
	})
	requireResource(logg, "referral service", err)

	notificationRepo := notifications.NewRepository(conn)
	sender, closeSender, err := newSender(context.Background(), cfg, logg, notificationRepo)
	requireResource(logg, "notification sender", err)
	defer closeSender()

	licenseRepo := licenses.NewRepository(conn)
	monitor, err := licenses.NewMonitor(licenses.MonitorParams{
		Store:   licenseRepo,
		Sender:  sender,
		Workers: cfg.Licenses.SweepWorkers,
		Metrics: metrics.NewSweepMetrics(reg),
		Logger:  logg,
	})
	requireResource(logg, "license monitor", err)
	licenseSvc, err := licenses.NewService(licenseRepo, monitor, cfg.Licenses.ExpiringDaysLimit)
	requireResource(logg, "license service", err)

	reportSvc, err := reports.NewService(reports.NewRepository(conn))
	requireResource(logg, "report service", err)
	adminSvc, err := admin.NewService(dbClient, conn, auditSvc)
	requireResource(logg, "admin service", err)
	notificationSvc, err := notifications.NewService(notificationRepo)
	requireResource(logg, "notification service", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"addr":   addr,
		"sqlite": cfg.FeatureFlags.UseSQLite,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, deps, routes.Services{
			Referrals:     referralSvc,
			Licenses:      licenseSvc,
			Reports:       reportSvc,
			Audit:         auditSvc,
			Admin:         adminSvc,
			Notifications: notificationSvc,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server shutting down gracefully")
	}
}

// newSender picks the license notification transport. The returned closer
// is always safe to call.
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
