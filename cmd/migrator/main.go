package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openalerting/legacy-migrator/internal/adapter/metrics"
	"github.com/openalerting/legacy-migrator/internal/adapter/repository/postgres"
	"github.com/openalerting/legacy-migrator/internal/pkg/config"
	"github.com/openalerting/legacy-migrator/internal/pkg/logger"
	"github.com/openalerting/legacy-migrator/internal/usecase"

	_ "github.com/lib/pq" // postgres driver
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)
	log.Info("starting legacy alert migrator")

	m := metrics.NewMigrationMetrics(prometheus.DefaultRegisterer)

	// Metrics are served while the run executes so progress counters can be
	// scraped; the process exits when the run finishes.
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux}
	go func() {
		log.Info("starting metrics server", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		log.Error("failed to open postgres connection", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	log.Info("connected to postgres")

	// The unified tables must exist before the data migration runs.
	if err := postgres.EnsureUnifiedSchema(ctx, db); err != nil {
		log.Error("failed to ensure unified alerting schema", "error", err)
		os.Exit(1)
	}

	store := postgres.NewStore(db, log)
	migrationLog := postgres.NewMigrationLog(db)

	coordinator := usecase.NewCoordinator(store, migrationLog, usecase.Settings{
		BackupAck:              cfg.BackupAck,
		UnifiedAlertingEnabled: cfg.UnifiedAlertingEnabled,
		SkipFailedAlerts:       cfg.SkipFailedAlerts,
	}, log)

	report, err := coordinator.Run(ctx)
	if err != nil {
		m.ObserveReport("failed", 0, 0, 0)
		log.Error("alert migration failed, transaction rolled back", "error", err)
		os.Exit(1)
	}

	switch report.Outcome {
	case usecase.OutcomeMigrated:
		m.ObserveReport(string(report.Outcome), report.Migration.MigratedRules,
			report.Migration.CreatedFolders, report.Migration.SkippedAlerts)
	default:
		m.ObserveReport(string(report.Outcome), 0, 0, 0)
	}

	log.Info("alert migration run complete", "outcome", report.Outcome)
	_ = metricsServer.Close()
}
