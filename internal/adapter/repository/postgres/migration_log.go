package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/openalerting/legacy-migrator/internal/domain"
)

// MigrationLog reads executed-migration entries from the same database the
// migration operates on. It is the gate consulted before a run starts;
// writes go through the run's session so the log entry commits atomically
// with the migrated data.
type MigrationLog struct {
	db *sql.DB
}

func NewMigrationLog(db *sql.DB) *MigrationLog {
	return &MigrationLog{db: db}
}

func (l *MigrationLog) Entries(ctx context.Context) (map[string]time.Time, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT migration_id, timestamp FROM migration_log WHERE success = TRUE`)
	if err != nil {
		return nil, &domain.StoreError{Op: "select migration log", Err: err}
	}
	defer rows.Close()

	entries := make(map[string]time.Time)
	for rows.Next() {
		var (
			name string
			ts   time.Time
		)
		if err := rows.Scan(&name, &ts); err != nil {
			return nil, &domain.StoreError{Op: "scan migration log entry", Err: err}
		}
		entries[name] = ts
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StoreError{Op: "iterate migration log", Err: err}
	}
	return entries, nil
}
