package usecase

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/openalerting/legacy-migrator/internal/domain"
)

// ruleBaseIntervalSeconds is the evaluation base interval of a rule group;
// per-rule intervals are normalized to a multiple of it.
const ruleBaseIntervalSeconds = 10

// versionGroupLabel ties a rule and its version snapshots together; the
// value is generated per rule and carried on both.
const versionGroupLabel = "__versionGroup__"

// RuleBuilder deterministically constructs unified rules (and their first
// version snapshot) from legacy alerts.
type RuleBuilder struct {
	now func() time.Time
}

func NewRuleBuilder() *RuleBuilder {
	return &RuleBuilder{now: time.Now}
}

// Build synthesizes the unified rule for a legacy alert. Title and rule
// group default to the legacy alert's name; the generated UID is attached
// before persistence.
func (b *RuleBuilder) Build(alert domain.LegacyAlert, cond *domain.Condition, folderUID string) *domain.AlertRule {
	return &domain.AlertRule{
		OrgID:           alert.OrgID,
		UID:             uuid.NewString(),
		Title:           alert.Name,
		Condition:       cond.Condition,
		Data:            cond.Data,
		IntervalSeconds: normalizeInterval(alert.Frequency),
		Version:         1,
		NamespaceUID:    folderUID,
		RuleGroup:       alert.Name,
		NoDataState:     noDataState(alert.Settings.NoDataState),
		ExecErrState:    execErrState(alert.Settings.ExecutionErrorState),
		Annotations: map[string]string{
			"__dashboardUid__": alert.DashboardUID,
			"__panelId__":      strconv.FormatInt(alert.PanelID, 10),
		},
		Labels: map[string]string{
			versionGroupLabel: uuid.NewString(),
		},
		CreatedBy: domain.MigrationCreatedBy,
		Updated:   b.now().UTC(),
	}
}

// Version snapshots the constructed rule as its first, append-only history
// record.
func (b *RuleBuilder) Version(rule *domain.AlertRule) *domain.AlertRuleVersion {
	return &domain.AlertRuleVersion{
		RuleOrgID:        rule.OrgID,
		RuleUID:          rule.UID,
		RuleNamespaceUID: rule.NamespaceUID,
		RuleGroup:        rule.RuleGroup,
		ParentVersion:    0,
		Version:          rule.Version,
		Created:          b.now().UTC(),
		Title:            rule.Title,
		Condition:        rule.Condition,
		Data:             rule.Data,
		IntervalSeconds:  rule.IntervalSeconds,
		NoDataState:      rule.NoDataState,
		ExecErrState:     rule.ExecErrState,
		For:              rule.For,
		Annotations:      rule.Annotations,
		Labels:           rule.Labels,
	}
}

// normalizeInterval rounds the legacy frequency up to the group base
// interval, minimum one base interval.
func normalizeInterval(frequencySeconds int64) int64 {
	if frequencySeconds <= ruleBaseIntervalSeconds {
		return ruleBaseIntervalSeconds
	}
	remainder := frequencySeconds % ruleBaseIntervalSeconds
	if remainder == 0 {
		return frequencySeconds
	}
	return frequencySeconds + ruleBaseIntervalSeconds - remainder
}

func noDataState(legacy string) string {
	switch legacy {
	case "ok":
		return "OK"
	case "alerting":
		return "Alerting"
	default:
		return "NoData"
	}
}

func execErrState(legacy string) string {
	// The unified model has no keep-state; both legacy variants alert.
	return "Alerting"
}
