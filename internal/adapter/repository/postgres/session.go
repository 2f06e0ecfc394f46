package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openalerting/legacy-migrator/internal/domain"
)

// session implements domain.Session over one *sql.Tx. All statements of a
// run share the transaction, so reads observe a single consistent snapshot
// and writes commit or roll back together.
type session struct {
	tx *sql.Tx
}

func storeErr(op string, err error) error {
	return &domain.StoreError{Op: op, Err: err}
}

func (s *session) LegacyAlerts(ctx context.Context) ([]domain.LegacyAlert, error) {
	rows, err := s.tx.QueryContext(ctx, `
        SELECT id, org_id, dashboard_id, panel_id, name, frequency, state, settings
        FROM alert ORDER BY org_id, id
    `)
	if err != nil {
		return nil, storeErr("select legacy alerts", err)
	}
	defer rows.Close()

	var alerts []domain.LegacyAlert
	for rows.Next() {
		var (
			alert    domain.LegacyAlert
			settings []byte
		)
		if err := rows.Scan(&alert.ID, &alert.OrgID, &alert.DashboardID, &alert.PanelID,
			&alert.Name, &alert.Frequency, &alert.State, &settings); err != nil {
			return nil, storeErr("scan legacy alert", err)
		}
		if err := json.Unmarshal(settings, &alert.Settings); err != nil {
			return nil, storeErr(fmt.Sprintf("parse settings of alert %d", alert.ID), err)
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate legacy alerts", err)
	}
	return alerts, nil
}

func (s *session) DatasourceRefs(ctx context.Context) (map[domain.DatasourceKey]string, error) {
	rows, err := s.tx.QueryContext(ctx, `SELECT org_id, id, uid FROM data_source`)
	if err != nil {
		return nil, storeErr("select datasource references", err)
	}
	defer rows.Close()

	refs := make(map[domain.DatasourceKey]string)
	for rows.Next() {
		var (
			key domain.DatasourceKey
			uid string
		)
		if err := rows.Scan(&key.OrgID, &key.DatasourceID, &uid); err != nil {
			return nil, storeErr("scan datasource reference", err)
		}
		refs[key] = uid
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate datasource references", err)
	}
	return refs, nil
}

func (s *session) DashboardRefs(ctx context.Context) (map[domain.DashboardKey]string, error) {
	rows, err := s.tx.QueryContext(ctx, `SELECT org_id, id, uid FROM dashboard WHERE is_folder = FALSE`)
	if err != nil {
		return nil, storeErr("select dashboard references", err)
	}
	defer rows.Close()

	refs := make(map[domain.DashboardKey]string)
	for rows.Next() {
		var (
			key domain.DashboardKey
			uid string
		)
		if err := rows.Scan(&key.OrgID, &key.DashboardID, &uid); err != nil {
			return nil, storeErr("scan dashboard reference", err)
		}
		refs[key] = uid
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate dashboard references", err)
	}
	return refs, nil
}

const dashboardColumns = `id, org_id, uid, title, folder_id, is_folder, has_acl, created_by, created, updated`

func (s *session) scanDashboard(row *sql.Row, op string) (*domain.Dashboard, error) {
	var d domain.Dashboard
	err := row.Scan(&d.ID, &d.OrgID, &d.UID, &d.Title, &d.FolderID,
		&d.IsFolder, &d.HasACL, &d.CreatedBy, &d.Created, &d.Updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, storeErr(op, err)
	}
	return &d, nil
}

func (s *session) DashboardByUID(ctx context.Context, orgID int64, uid string) (*domain.Dashboard, error) {
	row := s.tx.QueryRowContext(ctx,
		`SELECT `+dashboardColumns+` FROM dashboard WHERE org_id = $1 AND uid = $2`, orgID, uid)
	return s.scanDashboard(row, "select dashboard by uid")
}

func (s *session) DashboardByID(ctx context.Context, id int64) (*domain.Dashboard, error) {
	row := s.tx.QueryRowContext(ctx,
		`SELECT `+dashboardColumns+` FROM dashboard WHERE id = $1`, id)
	return s.scanDashboard(row, "select dashboard by id")
}

func (s *session) GeneralFolder(ctx context.Context, orgID int64) (*domain.Dashboard, error) {
	row := s.tx.QueryRowContext(ctx,
		`SELECT `+dashboardColumns+` FROM dashboard WHERE org_id = $1 AND is_folder = TRUE AND title = $2`,
		orgID, domain.GeneralFolderTitle)
	return s.scanDashboard(row, "select general folder")
}

// EffectiveACL merges the dashboard's explicit grants with the grants it
// inherits from its parent folder; an explicit grant shadows an inherited
// one for the same principal.
func (s *session) EffectiveACL(ctx context.Context, orgID, dashboardID int64) ([]domain.ACLEntry, error) {
	explicit, err := s.aclEntries(ctx, orgID, dashboardID)
	if err != nil {
		return nil, err
	}

	var folderID int64
	err = s.tx.QueryRowContext(ctx, `SELECT folder_id FROM dashboard WHERE id = $1`, dashboardID).Scan(&folderID)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && folderID <= 0) {
		return explicit, nil
	}
	if err != nil {
		return nil, storeErr("select parent folder for permissions", err)
	}

	inherited, err := s.aclEntries(ctx, orgID, folderID)
	if err != nil {
		return nil, err
	}

	seen := make(map[domain.ACLPrincipal]bool, len(explicit))
	for _, e := range explicit {
		seen[e.Principal()] = true
	}
	for _, e := range inherited {
		if !seen[e.Principal()] {
			explicit = append(explicit, e)
		}
	}
	return explicit, nil
}

func (s *session) aclEntries(ctx context.Context, orgID, dashboardID int64) ([]domain.ACLEntry, error) {
	rows, err := s.tx.QueryContext(ctx, `
        SELECT org_id, dashboard_id, user_id, team_id, role, permission, created, updated
        FROM dashboard_acl WHERE org_id = $1 AND dashboard_id = $2
    `, orgID, dashboardID)
	if err != nil {
		return nil, storeErr("select dashboard permissions", err)
	}
	defer rows.Close()

	var entries []domain.ACLEntry
	for rows.Next() {
		var (
			e      domain.ACLEntry
			userID sql.NullInt64
			teamID sql.NullInt64
			role   sql.NullString
		)
		if err := rows.Scan(&e.OrgID, &e.DashboardID, &userID, &teamID, &role,
			&e.Permission, &e.Created, &e.Updated); err != nil {
			return nil, storeErr("scan dashboard permission", err)
		}
		e.UserID = userID.Int64
		e.TeamID = teamID.Int64
		e.Role = role.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate dashboard permissions", err)
	}
	return entries, nil
}

func (s *session) CreateFolder(ctx context.Context, folder *domain.Dashboard) error {
	err := s.tx.QueryRowContext(ctx, `
        INSERT INTO dashboard (org_id, uid, title, folder_id, is_folder, has_acl, created_by, created, updated)
        VALUES ($1, $2, $3, 0, TRUE, FALSE, $4, NOW(), NOW())
        RETURNING id
    `, folder.OrgID, folder.UID, folder.Title, folder.CreatedBy).Scan(&folder.ID)
	if err != nil {
		return storeErr("insert folder", err)
	}
	return nil
}

func (s *session) DeleteFolder(ctx context.Context, id int64) error {
	if _, err := s.tx.ExecContext(ctx, `DELETE FROM dashboard_acl WHERE dashboard_id = $1`, id); err != nil {
		return storeErr("delete folder permissions", err)
	}
	if _, err := s.tx.ExecContext(ctx, `DELETE FROM dashboard WHERE id = $1`, id); err != nil {
		return storeErr("delete folder", err)
	}
	return nil
}

func (s *session) SetFolderACL(ctx context.Context, orgID, folderID int64, entries []domain.ACLEntry) error {
	for _, e := range entries {
		_, err := s.tx.ExecContext(ctx, `
            INSERT INTO dashboard_acl (org_id, dashboard_id, user_id, team_id, role, permission, created, updated)
            VALUES ($1, $2, NULLIF($3, 0), NULLIF($4, 0), NULLIF($5, ''), $6, NOW(), NOW())
        `, orgID, folderID, e.UserID, e.TeamID, e.Role, e.Permission)
		if err != nil {
			return storeErr("insert folder permission", err)
		}
	}
	return nil
}

func (s *session) InsertRule(ctx context.Context, rule *domain.AlertRule) error {
	data, annotations, labels, err := marshalRuleJSON(rule.Data, rule.Annotations, rule.Labels)
	if err != nil {
		return storeErr("encode rule", err)
	}

	err = s.tx.QueryRowContext(ctx, `
        INSERT INTO alert_rule (org_id, uid, title, condition, data, interval_seconds, version,
                                namespace_uid, rule_group, no_data_state, exec_err_state,
                                for_duration, annotations, labels, created_by, updated)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
        RETURNING id
    `, rule.OrgID, rule.UID, rule.Title, rule.Condition, data, rule.IntervalSeconds, rule.Version,
		rule.NamespaceUID, rule.RuleGroup, rule.NoDataState, rule.ExecErrState,
		int64(rule.For), annotations, labels, rule.CreatedBy, rule.Updated).Scan(&rule.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert rule %q: %w", rule.Title, domain.ErrUniqueConstraintViolated)
		}
		return storeErr("insert rule", err)
	}
	return nil
}

func (s *session) InsertRuleVersion(ctx context.Context, version *domain.AlertRuleVersion) error {
	data, annotations, labels, err := marshalRuleJSON(version.Data, version.Annotations, version.Labels)
	if err != nil {
		return storeErr("encode rule version", err)
	}

	err = s.tx.QueryRowContext(ctx, `
        INSERT INTO alert_rule_version (rule_org_id, rule_uid, rule_namespace_uid, rule_group,
                                        parent_version, restored_from, version, created, title,
                                        condition, data, interval_seconds, no_data_state,
                                        exec_err_state, for_duration, annotations, labels)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
        RETURNING id
    `, version.RuleOrgID, version.RuleUID, version.RuleNamespaceUID, version.RuleGroup,
		version.ParentVersion, version.RestoredFrom, version.Version, version.Created, version.Title,
		version.Condition, data, version.IntervalSeconds, version.NoDataState,
		version.ExecErrState, int64(version.For), annotations, labels).Scan(&version.ID)
	if err != nil {
		return storeErr("insert rule version", err)
	}
	return nil
}

func marshalRuleJSON(queries []domain.AlertQuery, annotations, labels map[string]string) ([]byte, []byte, []byte, error) {
	data, err := json.Marshal(queries)
	if err != nil {
		return nil, nil, nil, err
	}
	ann, err := json.Marshal(annotations)
	if err != nil {
		return nil, nil, nil, err
	}
	lbl, err := json.Marshal(labels)
	if err != nil {
		return nil, nil, nil, err
	}
	return data, ann, lbl, nil
}

func (s *session) RecordMigration(ctx context.Context, name string) error {
	_, err := s.tx.ExecContext(ctx,
		`INSERT INTO migration_log (migration_id, success, timestamp) VALUES ($1, TRUE, NOW())`, name)
	if err != nil {
		return storeErr("record migration", err)
	}
	return nil
}

func (s *session) ClearMigration(ctx context.Context, name string) error {
	_, err := s.tx.ExecContext(ctx,
		`DELETE FROM migration_log WHERE migration_id = $1`, name)
	if err != nil {
		return storeErr("clear migration log entry", err)
	}
	return nil
}

func (s *session) DeleteRuleVersions(ctx context.Context) (int64, error) {
	return s.deleteAll(ctx, "delete rule versions", `DELETE FROM alert_rule_version`)
}

func (s *session) DeleteRules(ctx context.Context) (int64, error) {
	return s.deleteAll(ctx, "delete rules", `DELETE FROM alert_rule`)
}

func (s *session) DeleteSyntheticFolderACLs(ctx context.Context) (int64, error) {
	return s.deleteAll(ctx, "delete synthetic folder permissions", `
        DELETE FROM dashboard_acl
        WHERE dashboard_id IN (SELECT id FROM dashboard WHERE created_by = $1)
    `, domain.MigrationCreatedBy)
}

func (s *session) DeleteSyntheticFolders(ctx context.Context) (int64, error) {
	return s.deleteAll(ctx, "delete synthetic folders",
		`DELETE FROM dashboard WHERE created_by = $1`, domain.MigrationCreatedBy)
}

func (s *session) DeleteAlertConfigurations(ctx context.Context) (int64, error) {
	return s.deleteAll(ctx, "delete alert configurations", `DELETE FROM alert_configuration`)
}

func (s *session) DeleteAlertInstances(ctx context.Context) (int64, error) {
	return s.deleteAll(ctx, "delete alert instances", `DELETE FROM alert_instance`)
}

func (s *session) deleteAll(ctx context.Context, op, query string, args ...any) (int64, error) {
	res, err := s.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, storeErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr(op, err)
	}
	return n, nil
}
