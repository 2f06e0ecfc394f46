package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openalerting/legacy-migrator/internal/domain"
)

// MigrationSummary reports what one forward run committed.
type MigrationSummary struct {
	MigratedRules  int
	CreatedFolders int
	SkippedAlerts  int
	Failures       []error
}

// Migrator drives the per-alert pipeline: translate the condition, resolve
// the dashboard and destination folder, synthesize the rule, persist rule
// and version. It operates on one Session, so the whole run is one
// transaction.
//
// By default the first per-alert failure aborts the run. With skipOnFailure
// the failed alert is skipped and reported instead, committing only the
// alerts that migrated cleanly; this trades all-or-nothing semantics for
// progress on imperfect historical data and is opt-in for that reason.
type Migrator struct {
	logger        *slog.Logger
	skipOnFailure bool
}

func NewMigrator(logger *slog.Logger, skipOnFailure bool) *Migrator {
	return &Migrator{logger: logger, skipOnFailure: skipOnFailure}
}

// Run migrates every legacy alert visible in the session's snapshot. The
// reference maps are loaded once up front; per-alert work only touches the
// store for dashboard rows, folder writes, and rule inserts.
func (m *Migrator) Run(ctx context.Context, sess domain.Session) (*MigrationSummary, error) {
	alerts, err := sess.LegacyAlerts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load legacy alerts: %w", err)
	}
	dsRefs, err := sess.DatasourceRefs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load datasource references: %w", err)
	}
	dashRefs, err := sess.DashboardRefs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dashboard references: %w", err)
	}

	run := &migrationRun{
		sess:     sess,
		resolver: NewFolderResolver(sess, m.logger),
		builder:  NewRuleBuilder(),
		dsRefs:   dsRefs,
		dashRefs: dashRefs,
	}
	summary := &MigrationSummary{}

	for _, alert := range alerts {
		if err := run.migrateAlert(ctx, alert); err != nil {
			if !m.skipOnFailure {
				return nil, err
			}
			m.logger.Warn("skipping alert that failed to migrate", "alert_id", alert.ID, "error", err)
			summary.SkippedAlerts++
			summary.Failures = append(summary.Failures, err)
			continue
		}
		summary.MigratedRules++
	}

	summary.CreatedFolders = run.resolver.CreatedFolders()
	m.logger.Info("legacy alert migration finished",
		"alerts", len(alerts), "migrated", summary.MigratedRules,
		"folders_created", summary.CreatedFolders, "skipped", summary.SkippedAlerts)
	return summary, nil
}

type migrationRun struct {
	sess     domain.Session
	resolver *FolderResolver
	builder  *RuleBuilder
	dsRefs   map[domain.DatasourceKey]string
	dashRefs map[domain.DashboardKey]string
}

func (r *migrationRun) migrateAlert(ctx context.Context, alert domain.LegacyAlert) error {
	fail := func(err error) error {
		return domain.MigrationError{AlertID: alert.ID, Err: err}
	}

	cond, err := TranslateConditions(alert.Settings, alert.OrgID, r.dsRefs)
	if err != nil {
		return fail(err)
	}

	uid, ok := r.dashRefs[domain.DashboardKey{OrgID: alert.OrgID, DashboardID: alert.DashboardID}]
	if !ok {
		return fail(fmt.Errorf("dashboard %d in org %d has no UID: %w",
			alert.DashboardID, alert.OrgID, domain.ErrUnresolvedDashboard))
	}
	alert.DashboardUID = uid

	dash, err := r.sess.DashboardByUID(ctx, alert.OrgID, alert.DashboardUID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fail(fmt.Errorf("dashboard %s in org %d: %w",
				alert.DashboardUID, alert.OrgID, domain.ErrUnresolvedDashboard))
		}
		return fail(fmt.Errorf("get dashboard %s in org %d: %w", alert.DashboardUID, alert.OrgID, err))
	}

	folder, err := r.resolver.Resolve(ctx, dash, alert)
	if err != nil {
		return fail(err)
	}

	rule := r.builder.Build(alert, cond, folder.UID)
	if err := r.insertWithRetry(ctx, rule); err != nil {
		return fail(err)
	}

	if err := r.sess.InsertRuleVersion(ctx, r.builder.Version(rule)); err != nil {
		return fail(fmt.Errorf("insert version of rule %s: %w", rule.UID, err))
	}
	return nil
}

// insertWithRetry retries a colliding insert exactly once, disambiguating
// title and rule group with the rule's own UID.
func (r *migrationRun) insertWithRetry(ctx context.Context, rule *domain.AlertRule) error {
	err := r.sess.InsertRule(ctx, rule)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrUniqueConstraintViolated) {
		return fmt.Errorf("insert rule %q: %w", rule.Title, err)
	}

	rule.Title = fmt.Sprintf("%s %s", rule.Title, rule.UID)
	rule.RuleGroup = fmt.Sprintf("%s %s", rule.RuleGroup, rule.UID)

	if err := r.sess.InsertRule(ctx, rule); err != nil {
		return fmt.Errorf("insert rule %q: %w: %w", rule.Title, domain.ErrCollisionRetryExhausted, err)
	}
	return nil
}
