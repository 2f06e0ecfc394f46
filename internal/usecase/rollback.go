package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openalerting/legacy-migrator/internal/domain"
)

// TeardownSummary reports how many rows each rollback step removed.
type TeardownSummary struct {
	RuleVersions        int64
	Rules               int64
	FolderACLs          int64
	Folders             int64
	AlertConfigurations int64
	AlertInstances      int64
}

// Rollback removes everything the forward migration synthesized. Deletion
// order respects foreign-key dependencies: versions before rules, ACL rows
// before the folders that own them. Deleting from empty tables removes
// nothing, so repeated runs are safe.
type Rollback struct {
	logger *slog.Logger
}

func NewRollback(logger *slog.Logger) *Rollback {
	return &Rollback{logger: logger}
}

// Run executes the teardown on one Session so a failure in any step leaves
// no partial state.
func (r *Rollback) Run(ctx context.Context, sess domain.Session) (*TeardownSummary, error) {
	summary := &TeardownSummary{}

	steps := []struct {
		name string
		fn   func(context.Context) (int64, error)
		dst  *int64
	}{
		{"rule versions", sess.DeleteRuleVersions, &summary.RuleVersions},
		{"rules", sess.DeleteRules, &summary.Rules},
		{"folder ACLs", sess.DeleteSyntheticFolderACLs, &summary.FolderACLs},
		{"folders", sess.DeleteSyntheticFolders, &summary.Folders},
		{"alert configurations", sess.DeleteAlertConfigurations, &summary.AlertConfigurations},
		{"alert instances", sess.DeleteAlertInstances, &summary.AlertInstances},
	}

	for _, step := range steps {
		n, err := step.fn(ctx)
		if err != nil {
			return nil, fmt.Errorf("delete %s: %w", step.name, err)
		}
		*step.dst = n
	}

	r.logger.Info("unified alerting data removed",
		"rule_versions", summary.RuleVersions, "rules", summary.Rules,
		"folder_acls", summary.FolderACLs, "folders", summary.Folders,
		"configurations", summary.AlertConfigurations, "instances", summary.AlertInstances)
	return summary, nil
}
