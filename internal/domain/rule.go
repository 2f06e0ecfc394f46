package domain

import (
	"encoding/json"
	"time"
)

// Condition is the unified representation of an alert expression: a set of
// data queries plus the ref ID of the query that yields the final condition.
type Condition struct {
	Condition string
	Data      []AlertQuery
}

// AlertQuery is one query of a unified alert rule. Model is carried opaque;
// the migration re-encodes structure, not query content.
type AlertQuery struct {
	RefID             string            `json:"refId"`
	QueryType         string            `json:"queryType"`
	RelativeTimeRange RelativeTimeRange `json:"relativeTimeRange"`
	DatasourceUID     string            `json:"datasourceUid"`
	Model             json.RawMessage   `json:"model"`
}

// RelativeTimeRange is a time window relative to the evaluation instant,
// expressed in seconds looking back (From >= To).
type RelativeTimeRange struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// AlertRule is a unified-alerting rule synthesized from one legacy alert.
type AlertRule struct {
	ID              int64
	OrgID           int64
	UID             string
	Title           string
	Condition       string
	Data            []AlertQuery
	IntervalSeconds int64
	Version         int64
	NamespaceUID    string
	RuleGroup       string
	NoDataState     string
	ExecErrState    string
	For             time.Duration
	Annotations     map[string]string
	Labels          map[string]string
	CreatedBy       int64
	Updated         time.Time
}

// AlertRuleVersion is the immutable creation-time snapshot of a rule,
// one per rule, append-only.
type AlertRuleVersion struct {
	ID               int64
	RuleOrgID        int64
	RuleUID          string
	RuleNamespaceUID string
	RuleGroup        string
	ParentVersion    int64
	RestoredFrom     int64
	Version          int64
	Created          time.Time
	Title            string
	Condition        string
	Data             []AlertQuery
	IntervalSeconds  int64
	NoDataState      string
	ExecErrState     string
	For              time.Duration
	Annotations      map[string]string
	Labels           map[string]string
}
