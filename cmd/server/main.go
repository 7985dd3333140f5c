package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"oact/internal/alert"
	alerthandler "oact/internal/alert/handler"
	alertmetrics "oact/internal/alert/metrics"
	"oact/internal/assessment"
	assessmenthandler "oact/internal/assessment/handler"
	assessmentmetrics "oact/internal/assessment/metrics"
	evidencestore "oact/internal/evidence/store"
	"oact/internal/narrative"
	"oact/internal/platform/config"
	"oact/internal/platform/httpserver"
	"oact/internal/platform/logger"
	platformmetrics "oact/internal/platform/metrics"
	"oact/internal/platform/postgres"
	redisclient "oact/internal/platform/redis"
	"oact/internal/registry"
	registrystore "oact/internal/registry/store"
	httptransport "oact/internal/transport/http"
)

// memoryStoreCapacity bounds the in-memory bundle store used without Redis
// or Postgres.
const memoryStoreCapacity = 1000

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	checks := map[string]httptransport.HealthCheck{}
	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	holder, err := loadRegistry(ctx, cfg.Registry, log, &closers)
	if err != nil {
		return err
	}
	checks["registry"] = func(context.Context) error {
		_, err := holder.Current()
		return err
	}

	bundles, err := openBundleStore(ctx, cfg, log, checks, &closers)
	if err != nil {
		return err
	}

	notifier, err := newNotifier(ctx, cfg.Alerts, log, &closers)
	if err != nil {
		return err
	}
	broadcaster := alert.NewBroadcaster(notifier,
		alert.WithLogger(log),
		alert.WithMetrics(alertmetrics.New()),
	)

	svc, err := assessment.NewService(holder,
		assessment.WithStore(bundles),
		assessment.WithBroadcaster(broadcaster),
		assessment.WithMetrics(assessmentmetrics.New()),
		assessment.WithLogger(log),
		assessment.WithBatchConcurrency(cfg.Server.BatchConcurrency),
	)
	if err != nil {
		return err
	}

	var narrator narrative.Renderer
	renderer, err := narrative.NewOpenAIRenderer(narrative.Config{
		APIKey:  cfg.Narrative.APIKey,
		Model:   cfg.Narrative.Model,
		BaseURL: cfg.Narrative.BaseURL,
	}, log)
	switch {
	case errors.Is(err, narrative.ErrNotConfigured):
		log.Info("narrative renderer disabled")
	case err != nil:
		return err
	default:
		narrator = renderer
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Handlers: []httptransport.Registrar{
			assessmenthandler.New(svc, narrator, log),
			alerthandler.New(broadcaster, svc, log),
		},
		Metrics: platformmetrics.New(),
		Checks:  checks,
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	if cfg.Registry.Watch {
		if err := registry.Watch(ctx, cfg.Registry.Path, holder, log, registry.WatchOptions{}); err != nil {
			return err
		}
		log.Info("watching registry file", "path", cfg.Registry.Path)
	}
	return httpserver.Run(ctx, srv, log, cfg.Server.ShutdownTimeout)
}

func loadRegistry(ctx context.Context, cfg config.Registry, log *slog.Logger, closers *[]func()) (*registry.Holder, error) {
	var src registry.Source = registry.FileSource{Path: cfg.Path}
	if cfg.DSN != "" {
		pool, err := postgres.OpenPool(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, pool.Close)
		pg := registrystore.NewPostgresSource(pool)
		if err := pg.Migrate(ctx); err != nil {
			return nil, err
		}
		src = pg
	}

	snap, err := registry.Load(ctx, src, time.Now())
	if err != nil {
		return nil, fmt.Errorf("loading SME registry: %w", err)
	}
	log.Info("registry loaded",
		"entries", snap.Len(),
		"version", snap.Version(),
	)
	return registry.NewHolder(snap), nil
}

func openBundleStore(ctx context.Context, cfg config.Config, log *slog.Logger, checks map[string]httptransport.HealthCheck, closers *[]func()) (assessment.BundleStore, error) {
	if cfg.Redis.URL != "" {
		client, err := redisclient.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, func() { _ = client.Close() })
		checks["redis"] = client.Health
		log.Info("evidence bundles stored in redis", "ttl", cfg.Redis.BundleTTL)
		return evidencestore.NewRedisStore(client.Client, evidencestore.WithTTL(cfg.Redis.BundleTTL)), nil
	}

	if cfg.Postgres.DSN != "" {
		db, err := postgres.OpenDB(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, func() { _ = db.Close() })
		checks["postgres"] = db.PingContext
		pg := evidencestore.NewPostgresStore(db)
		if err := pg.Migrate(ctx); err != nil {
			return nil, err
		}
		log.Info("evidence bundles stored in postgres")
		return pg, nil
	}

	log.Warn("no bundle store configured, keeping bundles in memory", "capacity", memoryStoreCapacity)
	return evidencestore.NewInMemoryStore(memoryStoreCapacity), nil
}

func newNotifier(ctx context.Context, cfg config.Alerts, log *slog.Logger, closers *[]func()) (alert.Notifier, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return alert.NewLogNotifier(log), nil
	}
	n, err := alert.NewKafkaNotifier(cfg.KafkaBrokers, cfg.Topic)
	if err != nil {
		return nil, err
	}
	*closers = append(*closers, n.Close)
	if err := n.EnsureTopic(ctx, 1, -1); err != nil {
		log.Warn("alert topic not provisioned, relying on broker auto-creation", "topic", cfg.Topic, "error", err)
	}
	log.Info("alerts published to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.Topic)
	return n, nil
}
