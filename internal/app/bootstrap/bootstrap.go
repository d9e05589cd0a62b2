package bootstrap

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	routeleaseservice "routeops/contexts/route-operations/route-lease-service"
	"routeops/contexts/route-operations/route-lease-service/adapters/calendar"
	postgresadapter "routeops/contexts/route-operations/route-lease-service/adapters/postgres"
	workerapp "routeops/contexts/route-operations/route-lease-service/application/workers"
	"routeops/contexts/route-operations/route-lease-service/ports"
	"routeops/internal/platform/config"
	"routeops/internal/platform/db"
	"routeops/internal/platform/httpserver"
	"routeops/internal/platform/messaging"
	"routeops/internal/platform/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	database *db.Database
	logger   *slog.Logger
}

type WorkerApp struct {
	database     *db.Database
	publisher    io.Closer
	outboxRelay  workerapp.OutboxRelay
	reconciler   workerapp.ReassignmentReconciler
	runOutbox    bool
	runReconcile bool
	pollInterval time.Duration
	logger       *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := NewLogger(cfg.LogLevel, os.Stdout).With("service", cfg.ServiceName, "process", "api")
	database, repo, err := openRepository(cfg, logger)
	if err != nil {
		return nil, err
	}
	cal, err := newCalendar(cfg)
	if err != nil {
		_ = database.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewPrometheus(registry, "routeops")

	module := routeleaseservice.NewModule(routeleaseservice.Dependencies{
		Leases:      repo,
		Deliveries:  repo,
		Routes:      repo,
		Calendar:    cal,
		Clock:       postgresadapter.SystemClock{},
		IDGenerator: postgresadapter.UUIDGenerator{},
		Metrics:     collector,
		StaleAfter:  cfg.LeaseStaleAfter,
		MaxAttempts: cfg.LeaseClaimRetries,
		Logger:      logger,
	})

	server := httpserver.New(module, collector.Handler(), logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		database: database,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := NewLogger(cfg.LogLevel, os.Stdout).With("service", cfg.ServiceName, "process", "worker")
	database, repo, err := openRepository(cfg, logger)
	if err != nil {
		return nil, err
	}
	cal, err := newCalendar(cfg)
	if err != nil {
		_ = database.Close()
		return nil, err
	}

	var (
		publisher ports.EventPublisher
		closer    io.Closer
	)
	if cfg.NATSURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		natsPublisher, err := messaging.ConnectNATS(ctx, cfg.NATSURL, logger)
		cancel()
		if err != nil {
			_ = database.Close()
			return nil, err
		}
		publisher, closer = natsPublisher, natsPublisher
	} else {
		// The in-process bus has no subscribers in the worker, so relay cycles
		// fail and outbox rows stay pending until NATS is configured.
		logger.Warn("NATS_URL not set, outbox events stay pending",
			"event", "bootstrap_worker_in_process_bus",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
		publisher = messaging.NewBus(logger)
	}

	collector := metrics.NewNop()
	module := routeleaseservice.NewModule(routeleaseservice.Dependencies{
		Leases:      repo,
		Deliveries:  repo,
		Routes:      repo,
		Calendar:    cal,
		Clock:       postgresadapter.SystemClock{},
		IDGenerator: postgresadapter.UUIDGenerator{},
		Metrics:     collector,
		StaleAfter:  cfg.LeaseStaleAfter,
		MaxAttempts: cfg.LeaseClaimRetries,
		Logger:      logger,
	})

	return &WorkerApp{
		database:  database,
		publisher: closer,
		outboxRelay: workerapp.OutboxRelay{
			Outbox:    repo,
			Publisher: publisher,
			Clock:     postgresadapter.SystemClock{},
			Topic:     workerapp.DefaultLeaseEventsTopic,
			BatchSize: cfg.OutboxBatchSize,
			Metrics:   collector,
			Logger:    logger,
		},
		reconciler:   module.NewReconciler(repo, postgresadapter.SystemClock{}, collector, logger),
		runOutbox:    cfg.EnableOutboxRelay,
		runReconcile: cfg.EnableReconciler,
		pollInterval: cfg.WorkerPollInterval,
		logger:       logger,
	}, nil
}

// Migrate creates or updates the schema of the configured database.
func Migrate() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := NewLogger(cfg.LogLevel, os.Stdout).With("service", cfg.ServiceName, "process", "migrate")
	database, _, err := openRepository(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	if err := postgresadapter.AutoMigrate(database.DB); err != nil {
		logger.Error("schema migration failed",
			"event", "bootstrap_migrate_failed",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"driver", database.Driver,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("schema migrated",
		"event", "bootstrap_migrate_completed",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"driver", database.Driver,
	)
	return nil
}

func (a *APIApp) Run(ctx context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- a.server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	}
}

func (a *APIApp) Close() error {
	if a.database != nil {
		return a.database.Close()
	}
	return nil
}

// Run polls until ctx is cancelled. A failed cycle is logged and retried on
// the next tick; the outbox keeps undelivered rows pending.
func (w *WorkerApp) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
		"outbox_relay", w.runOutbox,
		"reconciler", w.runReconcile,
	)

	for {
		if w.runOutbox {
			if err := w.outboxRelay.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logCycleFailure("outbox_relay", err)
			}
		}
		if w.runReconcile {
			if err := w.reconciler.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logCycleFailure("reconciler", err)
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	var errs []error
	if w.publisher != nil {
		errs = append(errs, w.publisher.Close())
	}
	if w.database != nil {
		errs = append(errs, w.database.Close())
	}
	return errors.Join(errs...)
}

func (w *WorkerApp) logCycleFailure(job string, err error) {
	w.logger.Error("worker cycle failed",
		"event", "bootstrap_worker_cycle_failed",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"job", job,
		"error", err.Error(),
	)
}

// NewLogger builds the process JSON logger at level (debug, info, warn, error).
func NewLogger(level string, out io.Writer) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: lvl}))
}

func openRepository(cfg config.Config, logger *slog.Logger) (*db.Database, *postgresadapter.Repository, error) {
	if strings.TrimSpace(cfg.DatabaseDSN) == "" {
		return nil, nil, errors.New("DATABASE_DSN is required")
	}
	database, err := db.Connect(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, err
	}
	return database, postgresadapter.NewRepository(database.DB, logger), nil
}

func newCalendar(cfg config.Config) (*calendar.StaticCalendar, error) {
	zones, err := calendar.ParseTenantZones(cfg.TenantTimezones)
	if err != nil {
		return nil, err
	}
	return calendar.NewStaticCalendar(cfg.DefaultTimezone, zones)
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
