package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MigrationMetrics holds all Prometheus metrics for the migration run.
type MigrationMetrics struct {
	RulesMigrated  prometheus.Counter
	FoldersCreated prometheus.Counter
	AlertsSkipped  prometheus.Counter
	RunsTotal      *prometheus.CounterVec
}

// NewMigrationMetrics initializes and registers the metrics on reg.
func NewMigrationMetrics(reg prometheus.Registerer) *MigrationMetrics {
	factory := promauto.With(reg)
	return &MigrationMetrics{
		RulesMigrated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "alert_migration",
			Name:      "rules_migrated_total",
			Help:      "Total number of legacy alerts converted into unified rules.",
		}),
		FoldersCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "alert_migration",
			Name:      "folders_created_total",
			Help:      "Total number of folders synthesized for migrated rules.",
		}),
		AlertsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "alert_migration",
			Name:      "alerts_skipped_total",
			Help:      "Total number of alerts skipped in skip-and-report mode.",
		}),
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alert_migration",
			Name:      "runs_total",
			Help:      "Migration runs by outcome.",
		}, []string{"outcome"}), // outcome: migrated, rolled_back, skipped, failed
	}
}

// ObserveReport translates a run report into counter increments.
func (m *MigrationMetrics) ObserveReport(outcome string, migrated, foldersCreated, skipped int) {
	m.RunsTotal.WithLabelValues(outcome).Inc()
	m.RulesMigrated.Add(float64(migrated))
	m.FoldersCreated.Add(float64(foldersCreated))
	m.AlertsSkipped.Add(float64(skipped))
}
