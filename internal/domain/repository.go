package domain

import (
	"context"
	"time"
)

// Session is the unit of work handed to the migration use cases. Every read
// and write of one run goes through a single Session, which the store binds
// to one transaction: an abort anywhere rolls back everything.
type Session interface {
	// Bulk reads, executed once at run start (the reference resolvers).
	LegacyAlerts(ctx context.Context) ([]LegacyAlert, error)
	DatasourceRefs(ctx context.Context) (map[DatasourceKey]string, error)
	DashboardRefs(ctx context.Context) (map[DashboardKey]string, error)

	// Single-row dashboard lookups. Both return ErrNotFound when the row
	// does not exist.
	DashboardByUID(ctx context.Context, orgID int64, uid string) (*Dashboard, error)
	DashboardByID(ctx context.Context, id int64) (*Dashboard, error)

	// EffectiveACL returns the dashboard's explicit grants plus the grants
	// it inherits from its parent folder.
	EffectiveACL(ctx context.Context, orgID, dashboardID int64) ([]ACLEntry, error)

	// CreateFolder inserts a folder row and assigns its ID.
	CreateFolder(ctx context.Context, folder *Dashboard) error
	SetFolderACL(ctx context.Context, orgID, folderID int64, entries []ACLEntry) error
	// DeleteFolder removes a folder created earlier in the run together
	// with its permission rows.
	DeleteFolder(ctx context.Context, id int64) error
	// GeneralFolder returns the per-org root fallback folder, or
	// ErrNotFound when it has not been created yet.
	GeneralFolder(ctx context.Context, orgID int64) (*Dashboard, error)

	// InsertRule returns ErrUniqueConstraintViolated (wrapped) when the
	// rule collides with an existing title in the same org and namespace.
	InsertRule(ctx context.Context, rule *AlertRule) error
	InsertRuleVersion(ctx context.Context, version *AlertRuleVersion) error

	// RecordMigration and ClearMigration write the migration log within
	// the run's transaction, so the log entry commits or rolls back
	// atomically with the data it describes.
	RecordMigration(ctx context.Context, name string) error
	ClearMigration(ctx context.Context, name string) error

	// Bulk deletes for the rollback, each reporting rows removed. Order of
	// invocation is the caller's responsibility.
	DeleteRuleVersions(ctx context.Context) (int64, error)
	DeleteRules(ctx context.Context) (int64, error)
	DeleteSyntheticFolderACLs(ctx context.Context) (int64, error)
	DeleteSyntheticFolders(ctx context.Context) (int64, error)
	DeleteAlertConfigurations(ctx context.Context) (int64, error)
	DeleteAlertInstances(ctx context.Context) (int64, error)
}

// Store opens transactional sessions. fn returning an error rolls the
// transaction back; nil commits it.
type Store interface {
	InTransaction(ctx context.Context, fn func(Session) error) error
}

// MigrationLog reads which named migrations have already executed. It is
// the gate consulted before a run starts; writes to the log happen through
// the Session so they share the run's transaction.
type MigrationLog interface {
	Entries(ctx context.Context) (map[string]time.Time, error)
}
