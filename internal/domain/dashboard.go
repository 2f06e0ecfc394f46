package domain

import "time"

// Folder naming conventions for synthesized folders, and the creator
// marker: a reserved value that tags every row this migration creates
// (folders and rules), so the rollback can find synthesized folders
// without touching user-created dashboards.
const (
	GeneralFolderTitle        = "General Alerting"
	MigratedFolderTitleFormat = "Migrated %s"
	MigrationCreatedBy        = int64(-8)
)

// Dashboard is a row of the dashboard table. A folder is a dashboard with
// IsFolder set; the migration reads existing dashboards and only ever
// creates folders.
type Dashboard struct {
	ID        int64
	OrgID     int64
	UID       string
	Title     string
	FolderID  int64
	IsFolder  bool
	HasACL    bool
	CreatedBy int64
	Created   time.Time
	Updated   time.Time
}

// ACLEntry is one (principal, permission) grant on a dashboard or folder.
// Exactly one of UserID, TeamID, or Role identifies the principal.
type ACLEntry struct {
	OrgID       int64
	DashboardID int64
	UserID      int64
	TeamID      int64
	Role        string
	Permission  int64
	Created     time.Time
	Updated     time.Time
}

// Principal returns a comparable identity for deduplicating explicit
// against inherited grants.
func (e ACLEntry) Principal() ACLPrincipal {
	return ACLPrincipal{UserID: e.UserID, TeamID: e.TeamID, Role: e.Role}
}

type ACLPrincipal struct {
	UserID int64
	TeamID int64
	Role   string
}
