package domain

import "encoding/json"

// LegacyAlert is a dashboard-panel alert as persisted by the legacy
// alerting engine. It is a read-only input to the migration; DashboardUID
// is resolved from the dashboard reference map at run time.
type LegacyAlert struct {
	ID           int64
	OrgID        int64
	DashboardID  int64
	DashboardUID string
	PanelID      int64
	Name         string
	Frequency    int64 // evaluation frequency in seconds
	State        string
	Settings     DashAlertSettings
}

// DashAlertSettings is the parsed form of the legacy alert's settings blob.
type DashAlertSettings struct {
	Conditions          []DashAlertCondition `json:"conditions"`
	ExecutionErrorState string               `json:"executionErrorState"`
	NoDataState         string               `json:"noDataState"`
}

// DashAlertCondition is one operand of a legacy alert expression.
type DashAlertCondition struct {
	Evaluator ConditionEvaluator `json:"evaluator"`
	Operator  ConditionOperator  `json:"operator"`
	Query     ConditionQuery     `json:"query"`
	Reducer   ConditionReducer   `json:"reducer"`
}

type ConditionEvaluator struct {
	Params []float64 `json:"params"`
	Type   string    `json:"type"`
}

type ConditionOperator struct {
	Type string `json:"type"`
}

// ConditionQuery references a panel query by letter plus a relative time
// window, e.g. params ["A", "5m", "now"].
type ConditionQuery struct {
	Params       []string        `json:"params"`
	DatasourceID int64           `json:"datasourceId"`
	Model        json.RawMessage `json:"model"`
}

type ConditionReducer struct {
	Type string `json:"type"`
}

// DatasourceKey identifies a datasource within an organization.
type DatasourceKey struct {
	OrgID        int64
	DatasourceID int64
}

// DashboardKey identifies a dashboard within an organization.
type DashboardKey struct {
	OrgID       int64
	DashboardID int64
}
