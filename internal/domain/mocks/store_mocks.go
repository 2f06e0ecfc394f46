package mocks

import (
	"context"
	"fmt"
	"time"

	"github.com/openalerting/legacy-migrator/internal/domain"
)

// MockSession is an in-memory implementation of domain.Session for testing.
// Reads serve from the exported fields; writes append to them. Uniqueness of
// (OrgID, NamespaceUID, Title) is enforced on rule inserts the way the real
// store's unique index does.
type MockSession struct {
	Alerts         []domain.LegacyAlert
	DatasourceUIDs map[domain.DatasourceKey]string
	DashboardUIDs  map[domain.DashboardKey]string
	Dashboards     []domain.Dashboard
	ACLs           []domain.ACLEntry
	Rules          []domain.AlertRule
	RuleVersions   []domain.AlertRuleVersion

	AlertConfigurations int64
	AlertInstances      int64

	// Log receives the session's migration-log writes so that, like the
	// real store, they commit and roll back with the transaction.
	Log *MockMigrationLog

	AlertsErr         error
	DatasourceRefsErr error
	DashboardRefsErr  error
	DashboardErr      error
	ACLErr            error
	SetACLErr         error
	CreateFolderErr   error
	DeleteFolderErr   error
	InsertRuleErr     error
	InsertVersionErr  error
	DeleteErr         error

	nextDashboardID int64
	nextRuleID      int64
}

func (s *MockSession) LegacyAlerts(ctx context.Context) ([]domain.LegacyAlert, error) {
	if s.AlertsErr != nil {
		return nil, s.AlertsErr
	}
	out := make([]domain.LegacyAlert, len(s.Alerts))
	copy(out, s.Alerts)
	return out, nil
}

func (s *MockSession) DatasourceRefs(ctx context.Context) (map[domain.DatasourceKey]string, error) {
	if s.DatasourceRefsErr != nil {
		return nil, s.DatasourceRefsErr
	}
	out := make(map[domain.DatasourceKey]string, len(s.DatasourceUIDs))
	for k, v := range s.DatasourceUIDs {
		out[k] = v
	}
	return out, nil
}

func (s *MockSession) DashboardRefs(ctx context.Context) (map[domain.DashboardKey]string, error) {
	if s.DashboardRefsErr != nil {
		return nil, s.DashboardRefsErr
	}
	out := make(map[domain.DashboardKey]string, len(s.DashboardUIDs))
	for k, v := range s.DashboardUIDs {
		out[k] = v
	}
	return out, nil
}

func (s *MockSession) DashboardByUID(ctx context.Context, orgID int64, uid string) (*domain.Dashboard, error) {
	if s.DashboardErr != nil {
		return nil, s.DashboardErr
	}
	for i := range s.Dashboards {
		if s.Dashboards[i].OrgID == orgID && s.Dashboards[i].UID == uid {
			d := s.Dashboards[i]
			return &d, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *MockSession) DashboardByID(ctx context.Context, id int64) (*domain.Dashboard, error) {
	if s.DashboardErr != nil {
		return nil, s.DashboardErr
	}
	for i := range s.Dashboards {
		if s.Dashboards[i].ID == id {
			d := s.Dashboards[i]
			return &d, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *MockSession) EffectiveACL(ctx context.Context, orgID, dashboardID int64) ([]domain.ACLEntry, error) {
	if s.ACLErr != nil {
		return nil, s.ACLErr
	}
	var explicit []domain.ACLEntry
	seen := make(map[domain.ACLPrincipal]bool)
	for _, e := range s.ACLs {
		if e.OrgID == orgID && e.DashboardID == dashboardID {
			explicit = append(explicit, e)
			seen[e.Principal()] = true
		}
	}
	dash, err := s.DashboardByID(ctx, dashboardID)
	if err != nil || dash.FolderID <= 0 {
		return explicit, nil
	}
	for _, e := range s.ACLs {
		if e.OrgID == orgID && e.DashboardID == dash.FolderID && !seen[e.Principal()] {
			explicit = append(explicit, e)
		}
	}
	return explicit, nil
}

func (s *MockSession) CreateFolder(ctx context.Context, folder *domain.Dashboard) error {
	if s.CreateFolderErr != nil {
		return s.CreateFolderErr
	}
	s.nextDashboardID = s.maxDashboardID() + 1
	folder.ID = s.nextDashboardID
	s.Dashboards = append(s.Dashboards, *folder)
	return nil
}

func (s *MockSession) maxDashboardID() int64 {
	max := s.nextDashboardID
	for _, d := range s.Dashboards {
		if d.ID > max {
			max = d.ID
		}
	}
	return max
}

func (s *MockSession) DeleteFolder(ctx context.Context, id int64) error {
	if s.DeleteFolderErr != nil {
		return s.DeleteFolderErr
	}
	var keptACLs []domain.ACLEntry
	for _, e := range s.ACLs {
		if e.DashboardID != id {
			keptACLs = append(keptACLs, e)
		}
	}
	s.ACLs = keptACLs
	var kept []domain.Dashboard
	for _, d := range s.Dashboards {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	s.Dashboards = kept
	return nil
}

func (s *MockSession) SetFolderACL(ctx context.Context, orgID, folderID int64, entries []domain.ACLEntry) error {
	if s.SetACLErr != nil {
		return s.SetACLErr
	}
	for _, e := range entries {
		e.OrgID = orgID
		e.DashboardID = folderID
		s.ACLs = append(s.ACLs, e)
	}
	return nil
}

func (s *MockSession) GeneralFolder(ctx context.Context, orgID int64) (*domain.Dashboard, error) {
	if s.DashboardErr != nil {
		return nil, s.DashboardErr
	}
	for i := range s.Dashboards {
		d := s.Dashboards[i]
		if d.OrgID == orgID && d.IsFolder && d.Title == domain.GeneralFolderTitle {
			return &d, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *MockSession) InsertRule(ctx context.Context, rule *domain.AlertRule) error {
	if s.InsertRuleErr != nil {
		return s.InsertRuleErr
	}
	for _, r := range s.Rules {
		if r.OrgID == rule.OrgID && r.NamespaceUID == rule.NamespaceUID && r.Title == rule.Title {
			return fmt.Errorf("insert rule %q: %w", rule.Title, domain.ErrUniqueConstraintViolated)
		}
	}
	s.nextRuleID++
	rule.ID = s.nextRuleID
	s.Rules = append(s.Rules, *rule)
	return nil
}

func (s *MockSession) InsertRuleVersion(ctx context.Context, version *domain.AlertRuleVersion) error {
	if s.InsertVersionErr != nil {
		return s.InsertVersionErr
	}
	version.ID = int64(len(s.RuleVersions) + 1)
	s.RuleVersions = append(s.RuleVersions, *version)
	return nil
}

func (s *MockSession) RecordMigration(ctx context.Context, name string) error {
	return s.migrationLog().Record(ctx, name)
}

func (s *MockSession) ClearMigration(ctx context.Context, name string) error {
	return s.migrationLog().Clear(ctx, name)
}

func (s *MockSession) migrationLog() *MockMigrationLog {
	if s.Log == nil {
		s.Log = NewMockMigrationLog()
	}
	return s.Log
}

func (s *MockSession) DeleteRuleVersions(ctx context.Context) (int64, error) {
	if s.DeleteErr != nil {
		return 0, s.DeleteErr
	}
	n := int64(len(s.RuleVersions))
	s.RuleVersions = nil
	return n, nil
}

func (s *MockSession) DeleteRules(ctx context.Context) (int64, error) {
	if s.DeleteErr != nil {
		return 0, s.DeleteErr
	}
	n := int64(len(s.Rules))
	s.Rules = nil
	return n, nil
}

func (s *MockSession) DeleteSyntheticFolderACLs(ctx context.Context) (int64, error) {
	if s.DeleteErr != nil {
		return 0, s.DeleteErr
	}
	synthetic := make(map[int64]bool)
	for _, d := range s.Dashboards {
		if d.CreatedBy == domain.MigrationCreatedBy {
			synthetic[d.ID] = true
		}
	}
	var kept []domain.ACLEntry
	var n int64
	for _, e := range s.ACLs {
		if synthetic[e.DashboardID] {
			n++
			continue
		}
		kept = append(kept, e)
	}
	s.ACLs = kept
	return n, nil
}

func (s *MockSession) DeleteSyntheticFolders(ctx context.Context) (int64, error) {
	if s.DeleteErr != nil {
		return 0, s.DeleteErr
	}
	var kept []domain.Dashboard
	var n int64
	for _, d := range s.Dashboards {
		if d.CreatedBy == domain.MigrationCreatedBy {
			n++
			continue
		}
		kept = append(kept, d)
	}
	s.Dashboards = kept
	return n, nil
}

func (s *MockSession) DeleteAlertConfigurations(ctx context.Context) (int64, error) {
	if s.DeleteErr != nil {
		return 0, s.DeleteErr
	}
	n := s.AlertConfigurations
	s.AlertConfigurations = 0
	return n, nil
}

func (s *MockSession) DeleteAlertInstances(ctx context.Context) (int64, error) {
	if s.DeleteErr != nil {
		return 0, s.DeleteErr
	}
	n := s.AlertInstances
	s.AlertInstances = 0
	return n, nil
}

// SyntheticFolders returns the folders created by the migration, for
// assertions.
func (s *MockSession) SyntheticFolders() []domain.Dashboard {
	var out []domain.Dashboard
	for _, d := range s.Dashboards {
		if d.CreatedBy == domain.MigrationCreatedBy {
			out = append(out, d)
		}
	}
	return out
}

// FolderACL returns the grants attached to one folder, for assertions.
func (s *MockSession) FolderACL(folderID int64) []domain.ACLEntry {
	var out []domain.ACLEntry
	for _, e := range s.ACLs {
		if e.DashboardID == folderID {
			out = append(out, e)
		}
	}
	return out
}

type sessionState struct {
	dashboards          []domain.Dashboard
	acls                []domain.ACLEntry
	rules               []domain.AlertRule
	ruleVersions        []domain.AlertRuleVersion
	alertConfigurations int64
	alertInstances      int64
	nextDashboardID     int64
	nextRuleID          int64
	logEntries          map[string]time.Time
	logRecorded         []string
	logCleared          []string
}

func (s *MockSession) snapshot() sessionState {
	state := sessionState{
		dashboards:          append([]domain.Dashboard(nil), s.Dashboards...),
		acls:                append([]domain.ACLEntry(nil), s.ACLs...),
		rules:               append([]domain.AlertRule(nil), s.Rules...),
		ruleVersions:        append([]domain.AlertRuleVersion(nil), s.RuleVersions...),
		alertConfigurations: s.AlertConfigurations,
		alertInstances:      s.AlertInstances,
		nextDashboardID:     s.nextDashboardID,
		nextRuleID:          s.nextRuleID,
	}
	if s.Log != nil {
		state.logEntries = make(map[string]time.Time, len(s.Log.EntriesByName))
		for k, v := range s.Log.EntriesByName {
			state.logEntries[k] = v
		}
		state.logRecorded = append([]string(nil), s.Log.Recorded...)
		state.logCleared = append([]string(nil), s.Log.Cleared...)
	}
	return state
}

func (s *MockSession) restore(state sessionState) {
	s.Dashboards = state.dashboards
	s.ACLs = state.acls
	s.Rules = state.rules
	s.RuleVersions = state.ruleVersions
	s.AlertConfigurations = state.alertConfigurations
	s.AlertInstances = state.alertInstances
	s.nextDashboardID = state.nextDashboardID
	s.nextRuleID = state.nextRuleID
	if s.Log == nil {
		return
	}
	if state.logEntries != nil {
		s.Log.EntriesByName = state.logEntries
		s.Log.Recorded = state.logRecorded
		s.Log.Cleared = state.logCleared
		return
	}
	// The log did not exist when the snapshot was taken.
	s.Log.EntriesByName = make(map[string]time.Time)
	s.Log.Recorded = nil
	s.Log.Cleared = nil
}

// MockStore wraps a MockSession with transaction semantics: an error from
// fn restores the session state captured at begin, mirroring a rollback.
type MockStore struct {
	Session   *MockSession
	BeginErr  error
	CommitErr error
}

func (st *MockStore) InTransaction(ctx context.Context, fn func(domain.Session) error) error {
	if st.BeginErr != nil {
		return st.BeginErr
	}
	state := st.Session.snapshot()
	if err := fn(st.Session); err != nil {
		st.Session.restore(state)
		return err
	}
	if st.CommitErr != nil {
		st.Session.restore(state)
		return st.CommitErr
	}
	return nil
}

// MockMigrationLog is an in-memory migration log. Entries implements
// domain.MigrationLog; Record and Clear are the write-through targets of
// MockSession, so tests can assert what a run logged.
type MockMigrationLog struct {
	EntriesByName map[string]time.Time
	Recorded      []string
	Cleared       []string

	EntriesErr error
	RecordErr  error
	ClearErr   error
}

func NewMockMigrationLog() *MockMigrationLog {
	return &MockMigrationLog{EntriesByName: make(map[string]time.Time)}
}

func (l *MockMigrationLog) Entries(ctx context.Context) (map[string]time.Time, error) {
	if l.EntriesErr != nil {
		return nil, l.EntriesErr
	}
	out := make(map[string]time.Time, len(l.EntriesByName))
	for k, v := range l.EntriesByName {
		out[k] = v
	}
	return out, nil
}

func (l *MockMigrationLog) Record(ctx context.Context, name string) error {
	if l.RecordErr != nil {
		return l.RecordErr
	}
	l.EntriesByName[name] = time.Now()
	l.Recorded = append(l.Recorded, name)
	return nil
}

func (l *MockMigrationLog) Clear(ctx context.Context, name string) error {
	if l.ClearErr != nil {
		return l.ClearErr
	}
	delete(l.EntriesByName, name)
	l.Cleared = append(l.Cleared, name)
	return nil
}
