package usecase

import (
	"testing"

	"github.com/openalerting/legacy-migrator/internal/domain"
)

func TestRuleBuilder_Build(t *testing.T) {
	builder := NewRuleBuilder()
	alert := domain.LegacyAlert{
		ID:           1,
		OrgID:        1,
		DashboardUID: "dash-a",
		PanelID:      4,
		Name:         "CPU too high",
		Frequency:    60,
		Settings:     domain.DashAlertSettings{NoDataState: "ok", ExecutionErrorState: "keep_state"},
	}
	cond := &domain.Condition{
		Condition: "B",
		Data:      []domain.AlertQuery{{RefID: "A"}, {RefID: "B"}},
	}

	rule := builder.Build(alert, cond, "folder-uid")

	if rule.UID == "" {
		t.Error("expected a generated rule UID")
	}
	if rule.Title != alert.Name || rule.RuleGroup != alert.Name {
		t.Errorf("title and rule group must default to the alert name: %q, %q", rule.Title, rule.RuleGroup)
	}
	if rule.NamespaceUID != "folder-uid" {
		t.Errorf("unexpected namespace %q", rule.NamespaceUID)
	}
	if rule.Condition != "B" || len(rule.Data) != 2 {
		t.Errorf("translated condition not carried over: %q, %d queries", rule.Condition, len(rule.Data))
	}
	if rule.IntervalSeconds != 60 {
		t.Errorf("expected interval 60, got %d", rule.IntervalSeconds)
	}
	if rule.Version != 1 {
		t.Errorf("expected version 1, got %d", rule.Version)
	}
	if rule.NoDataState != "OK" {
		t.Errorf("unexpected no-data state %q", rule.NoDataState)
	}
	if rule.ExecErrState != "Alerting" {
		t.Errorf("unexpected exec-err state %q", rule.ExecErrState)
	}
	if rule.Annotations["__dashboardUid__"] != "dash-a" || rule.Annotations["__panelId__"] != "4" {
		t.Errorf("source annotations missing: %v", rule.Annotations)
	}
	if rule.Labels[versionGroupLabel] == "" {
		t.Errorf("expected a version-group label, got %v", rule.Labels)
	}
	if rule.CreatedBy != domain.MigrationCreatedBy {
		t.Errorf("rule not tagged with the migration creator marker: %d", rule.CreatedBy)
	}

	other := builder.Build(alert, cond, "folder-uid")
	if other.Labels[versionGroupLabel] == rule.Labels[versionGroupLabel] {
		t.Error("version-group labels must be generated per rule")
	}
}

func TestRuleBuilder_Version(t *testing.T) {
	builder := NewRuleBuilder()
	alert := domain.LegacyAlert{ID: 1, OrgID: 1, Name: "Disk full", Frequency: 30}
	cond := &domain.Condition{Condition: "B", Data: []domain.AlertQuery{{RefID: "A"}, {RefID: "B"}}}

	rule := builder.Build(alert, cond, "folder-uid")
	version := builder.Version(rule)

	if version.RuleUID != rule.UID {
		t.Errorf("version must reference the rule UID: %q vs %q", version.RuleUID, rule.UID)
	}
	if version.RuleOrgID != rule.OrgID || version.RuleNamespaceUID != rule.NamespaceUID {
		t.Error("version must snapshot org and namespace")
	}
	if version.Title != rule.Title || version.Condition != rule.Condition {
		t.Error("version must snapshot title and condition")
	}
	if version.Version != 1 || version.ParentVersion != 0 {
		t.Errorf("first version must be 1 with no parent: %d/%d", version.Version, version.ParentVersion)
	}
	if version.Created.IsZero() {
		t.Error("expected creation timestamp")
	}
	if len(version.Data) != len(rule.Data) {
		t.Error("version must snapshot the query data")
	}
	if version.Labels[versionGroupLabel] != rule.Labels[versionGroupLabel] {
		t.Error("version must carry the rule's version-group label")
	}
}

func TestNormalizeInterval(t *testing.T) {
	cases := []struct {
		in   int64
		want int64
	}{
		{in: 0, want: 10},
		{in: 5, want: 10},
		{in: 10, want: 10},
		{in: 60, want: 60},
		{in: 65, want: 70},
	}
	for _, tc := range cases {
		if got := normalizeInterval(tc.in); got != tc.want {
			t.Errorf("normalizeInterval(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
