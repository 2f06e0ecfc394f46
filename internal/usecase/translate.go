package usecase

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/openalerting/legacy-migrator/internal/domain"
)

// Ref ID and datasource identity of the synthesized expression query that
// evaluates the re-encoded classic conditions.
const expressionDatasourceUID = "__expr__"

// TranslateConditions re-encodes a legacy alert's condition operands into
// the unified condition representation: one data query per referenced panel
// query plus a trailing classic-conditions expression that combines them.
// Operand order and operator semantics are preserved verbatim. Pure, no I/O.
func TranslateConditions(settings domain.DashAlertSettings, orgID int64, dsRefs map[domain.DatasourceKey]string) (*domain.Condition, error) {
	if len(settings.Conditions) == 0 {
		return nil, fmt.Errorf("alert has no conditions")
	}

	var (
		queries []domain.AlertQuery
		byRef   = make(map[string]int)
		classic = make([]classicCondition, 0, len(settings.Conditions))
	)

	for i, cond := range settings.Conditions {
		if len(cond.Query.Params) == 0 || cond.Query.Params[0] == "" {
			return nil, fmt.Errorf("condition %d has no query reference", i)
		}
		refID := cond.Query.Params[0]

		uid, ok := dsRefs[domain.DatasourceKey{OrgID: orgID, DatasourceID: cond.Query.DatasourceID}]
		if !ok {
			return nil, fmt.Errorf("condition %d references datasource %d: %w",
				i, cond.Query.DatasourceID, domain.ErrUnresolvedDatasource)
		}

		// The first condition naming a ref ID fixes that query's datasource
		// and time window; later operands may reuse the same query.
		if _, exists := byRef[refID]; !exists {
			rng, err := relativeRange(cond.Query.Params)
			if err != nil {
				return nil, fmt.Errorf("condition %d: %w", i, err)
			}
			byRef[refID] = len(queries)
			queries = append(queries, domain.AlertQuery{
				RefID:             refID,
				RelativeTimeRange: rng,
				DatasourceUID:     uid,
				Model:             queryModel(refID, cond.Query.Model),
			})
		}

		classic = append(classic, classicCondition{
			Evaluator: cond.Evaluator,
			Operator:  cond.Operator,
			Query:     conditionRef{Params: []string{refID}},
			Reducer:   cond.Reducer,
		})
	}

	condRef, err := freeRefID(byRef)
	if err != nil {
		return nil, err
	}

	model, err := json.Marshal(classicConditionModel{
		RefID:      condRef,
		Type:       "classic_conditions",
		Datasource: expressionDatasource{Type: expressionDatasourceUID, UID: expressionDatasourceUID},
		Conditions: classic,
	})
	if err != nil {
		return nil, fmt.Errorf("encode classic conditions: %w", err)
	}

	queries = append(queries, domain.AlertQuery{
		RefID:         condRef,
		QueryType:     "classic_conditions",
		DatasourceUID: expressionDatasourceUID,
		Model:         model,
	})

	return &domain.Condition{Condition: condRef, Data: queries}, nil
}

type classicConditionModel struct {
	RefID      string               `json:"refId"`
	Type       string               `json:"type"`
	Datasource expressionDatasource `json:"datasource"`
	Conditions []classicCondition   `json:"conditions"`
}

type expressionDatasource struct {
	Type string `json:"type"`
	UID  string `json:"uid"`
}

type classicCondition struct {
	Evaluator domain.ConditionEvaluator `json:"evaluator"`
	Operator  domain.ConditionOperator  `json:"operator"`
	Query     conditionRef              `json:"query"`
	Reducer   domain.ConditionReducer   `json:"reducer"`
}

type conditionRef struct {
	Params []string `json:"params"`
}

func queryModel(refID string, model json.RawMessage) json.RawMessage {
	if len(model) > 0 {
		return model
	}
	return json.RawMessage(fmt.Sprintf(`{"refId":%q}`, refID))
}

// freeRefID picks the first unused capital letter for the expression query.
func freeRefID(used map[string]int) (string, error) {
	for c := 'A'; c <= 'Z'; c++ {
		if _, taken := used[string(c)]; !taken {
			return string(c), nil
		}
	}
	return "", fmt.Errorf("no free ref ID for the condition expression")
}

// relativeRange converts legacy query params ["A", "5m", "now"] into a
// window of seconds relative to the evaluation instant.
func relativeRange(params []string) (domain.RelativeTimeRange, error) {
	var rng domain.RelativeTimeRange
	if len(params) > 1 {
		from, err := relativeSeconds(params[1])
		if err != nil {
			return rng, err
		}
		rng.From = from
	}
	if len(params) > 2 {
		to, err := relativeSeconds(params[2])
		if err != nil {
			return rng, err
		}
		rng.To = to
	}
	if rng.From < rng.To {
		return rng, fmt.Errorf("time range %v is inverted", params[1:])
	}
	return rng, nil
}

// relativeSeconds parses "now", "now-5m", or a bare duration like "10m".
func relativeSeconds(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "now" {
		return 0, nil
	}
	s = strings.TrimPrefix(s, "now-")
	if len(s) < 2 {
		return 0, fmt.Errorf("malformed relative time %q", s)
	}
	value, err := strconv.ParseInt(s[:len(s)-1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed relative time %q", s)
	}
	switch s[len(s)-1] {
	case 's':
		return value, nil
	case 'm':
		return value * 60, nil
	case 'h':
		return value * 3600, nil
	case 'd':
		return value * 86400, nil
	default:
		return 0, fmt.Errorf("unsupported time unit in %q", s)
	}
}
