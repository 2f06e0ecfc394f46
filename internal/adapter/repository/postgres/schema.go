package postgres

import (
	"context"
	"database/sql"

	"github.com/openalerting/legacy-migrator/internal/domain"
)

// unifiedSchema creates the unified-alerting target tables and the
// migration log. The legacy tables (alert, data_source, dashboard,
// dashboard_acl) are owned by the source system and must already exist;
// the target tables must exist before the data migration runs.
var unifiedSchema = []string{
	`CREATE TABLE IF NOT EXISTS alert_rule (
        id               BIGSERIAL PRIMARY KEY,
        org_id           BIGINT NOT NULL,
        uid              TEXT NOT NULL,
        title            TEXT NOT NULL,
        condition        TEXT NOT NULL,
        data             JSONB NOT NULL,
        interval_seconds BIGINT NOT NULL,
        version          BIGINT NOT NULL,
        namespace_uid    TEXT NOT NULL,
        rule_group       TEXT NOT NULL,
        no_data_state    TEXT NOT NULL,
        exec_err_state   TEXT NOT NULL,
        for_duration     BIGINT NOT NULL DEFAULT 0,
        annotations      JSONB,
        labels           JSONB,
        created_by       BIGINT NOT NULL DEFAULT 0,
        updated          TIMESTAMPTZ NOT NULL,
        CONSTRAINT alert_rule_org_uid UNIQUE (org_id, uid),
        CONSTRAINT alert_rule_org_namespace_title UNIQUE (org_id, namespace_uid, title)
    )`,
	`CREATE TABLE IF NOT EXISTS alert_rule_version (
        id                 BIGSERIAL PRIMARY KEY,
        rule_org_id        BIGINT NOT NULL,
        rule_uid           TEXT NOT NULL,
        rule_namespace_uid TEXT NOT NULL,
        rule_group         TEXT NOT NULL,
        parent_version     BIGINT NOT NULL,
        restored_from      BIGINT NOT NULL,
        version            BIGINT NOT NULL,
        created            TIMESTAMPTZ NOT NULL,
        title              TEXT NOT NULL,
        condition          TEXT NOT NULL,
        data               JSONB NOT NULL,
        interval_seconds   BIGINT NOT NULL,
        no_data_state      TEXT NOT NULL,
        exec_err_state     TEXT NOT NULL,
        for_duration       BIGINT NOT NULL DEFAULT 0,
        annotations        JSONB,
        labels             JSONB,
        CONSTRAINT alert_rule_version_rule_version UNIQUE (rule_org_id, rule_uid, version)
    )`,
	`CREATE TABLE IF NOT EXISTS alert_configuration (
        id                        BIGSERIAL PRIMARY KEY,
        alertmanager_configuration TEXT NOT NULL,
        configuration_version     TEXT NOT NULL,
        created_at                TIMESTAMPTZ NOT NULL DEFAULT NOW()
    )`,
	`CREATE TABLE IF NOT EXISTS alert_instance (
        rule_org_id   BIGINT NOT NULL,
        rule_uid      TEXT NOT NULL,
        labels_hash   TEXT NOT NULL,
        labels        JSONB NOT NULL,
        current_state TEXT NOT NULL,
        last_eval_time TIMESTAMPTZ NOT NULL,
        PRIMARY KEY (rule_org_id, rule_uid, labels_hash)
    )`,
	`CREATE TABLE IF NOT EXISTS migration_log (
        id           BIGSERIAL PRIMARY KEY,
        migration_id TEXT NOT NULL,
        success      BOOLEAN NOT NULL,
        timestamp    TIMESTAMPTZ NOT NULL
    )`,
}

// EnsureUnifiedSchema applies the target DDL idempotently.
func EnsureUnifiedSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range unifiedSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return &domain.StoreError{Op: "apply unified alerting schema", Err: err}
		}
	}
	return nil
}
