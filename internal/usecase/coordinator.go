package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openalerting/legacy-migrator/internal/domain"
)

// Migration names as recorded in the migration log. The log entry is what
// makes repeat runs no-ops.
const (
	ForwardMigrationName = "move dashboard alerts to unified alerting"
	ReverseMigrationName = "remove unified alerting data"
)

// BackupAcknowledgment is the literal an operator must supply to confirm a
// backup exists before any data is touched.
const BackupAcknowledgment = "iDidBackup"

// Outcome says which direction, if any, a coordinator run took.
type Outcome string

const (
	OutcomeSkipped    Outcome = "skipped"
	OutcomeMigrated   Outcome = "migrated"
	OutcomeRolledBack Outcome = "rolled_back"
)

// RunReport is the coordinator's result: the direction taken plus the
// summary of whichever operation ran.
type RunReport struct {
	Outcome   Outcome
	Migration *MigrationSummary
	Teardown  *TeardownSummary
}

// Settings are the operator-controlled inputs that gate the run. They are
// passed in explicitly rather than read from ambient state.
type Settings struct {
	BackupAck              string
	UnifiedAlertingEnabled bool
	SkipFailedAlerts       bool
}

// Coordinator decides whether to run the forward migration, the rollback,
// or nothing, based on the operator acknowledgment, the unified-alerting
// toggle, and the migration log. Each direction clears the other's log
// entry so the pair stays symmetric.
type Coordinator struct {
	store    domain.Store
	log      domain.MigrationLog
	settings Settings
	logger   *slog.Logger
}

func NewCoordinator(store domain.Store, log domain.MigrationLog, settings Settings, logger *slog.Logger) *Coordinator {
	return &Coordinator{store: store, log: log, settings: settings, logger: logger}
}

// Run executes at most one direction. The selected operation runs inside a
// single transaction, and the migration-log entry is written within that
// same transaction, so the log commits or rolls back with the data.
func (c *Coordinator) Run(ctx context.Context) (*RunReport, error) {
	if c.settings.BackupAck != BackupAcknowledgment {
		c.logger.Info("backup not acknowledged, leaving alerting data untouched")
		return &RunReport{Outcome: OutcomeSkipped}, nil
	}

	entries, err := c.log.Entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("read migration log: %w", err)
	}
	_, migrated := entries[ForwardMigrationName]

	switch {
	case c.settings.UnifiedAlertingEnabled && !migrated:
		return c.runForward(ctx)
	case !c.settings.UnifiedAlertingEnabled && migrated:
		return c.runReverse(ctx)
	default:
		c.logger.Info("alerting migration already in the desired state",
			"unified_alerting", c.settings.UnifiedAlertingEnabled, "migrated", migrated)
		return &RunReport{Outcome: OutcomeSkipped}, nil
	}
}

func (c *Coordinator) runForward(ctx context.Context) (*RunReport, error) {
	migrator := NewMigrator(c.logger, c.settings.SkipFailedAlerts)
	var summary *MigrationSummary
	err := c.store.InTransaction(ctx, func(sess domain.Session) error {
		// Clearing the reverse entry may fail without blocking the
		// migration; the forward entry is what gates re-runs.
		if err := sess.ClearMigration(ctx, ReverseMigrationName); err != nil {
			c.logger.Error("could not clear reverse migration entry", "error", err)
		}
		var runErr error
		if summary, runErr = migrator.Run(ctx, sess); runErr != nil {
			return runErr
		}
		if err := sess.RecordMigration(ctx, ForwardMigrationName); err != nil {
			return fmt.Errorf("record forward migration: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &RunReport{Outcome: OutcomeMigrated, Migration: summary}, nil
}

func (c *Coordinator) runReverse(ctx context.Context) (*RunReport, error) {
	rollback := NewRollback(c.logger)
	var summary *TeardownSummary
	err := c.store.InTransaction(ctx, func(sess domain.Session) error {
		if err := sess.ClearMigration(ctx, ForwardMigrationName); err != nil {
			c.logger.Error("could not clear forward migration entry", "error", err)
		}
		var runErr error
		if summary, runErr = rollback.Run(ctx, sess); runErr != nil {
			return runErr
		}
		if err := sess.RecordMigration(ctx, ReverseMigrationName); err != nil {
			return fmt.Errorf("record reverse migration: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &RunReport{Outcome: OutcomeRolledBack, Teardown: summary}, nil
}
