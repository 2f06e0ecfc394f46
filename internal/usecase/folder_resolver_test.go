package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/openalerting/legacy-migrator/internal/domain"
	"github.com/openalerting/legacy-migrator/internal/domain/mocks"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFolderResolver_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("Dashboard With Custom ACL Gets Isolated Folder", func(t *testing.T) {
		sess := &mocks.MockSession{
			Dashboards: []domain.Dashboard{
				{ID: 5, OrgID: 1, UID: "parent", Title: "Ops", IsFolder: true},
				{ID: 10, OrgID: 1, UID: "dash-a", FolderID: 5, HasACL: true},
			},
			ACLs: []domain.ACLEntry{
				{OrgID: 1, DashboardID: 10, UserID: 7, Permission: 4},
				{OrgID: 1, DashboardID: 5, Role: "Viewer", Permission: 1},
			},
		}
		resolver := NewFolderResolver(sess, testLogger())
		dash, _ := sess.DashboardByID(ctx, 10)
		alert := domain.LegacyAlert{ID: 1, OrgID: 1, DashboardUID: "dash-a"}

		folder, err := resolver.Resolve(ctx, dash, alert)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if folder.Title != "Migrated dash-a" {
			t.Errorf("unexpected folder title %q", folder.Title)
		}
		if folder.CreatedBy != domain.MigrationCreatedBy {
			t.Errorf("synthesized folder not tagged with creator marker: %d", folder.CreatedBy)
		}
		if folder.UID == "" {
			t.Error("expected a non-empty folder UID")
		}

		// The copied ACL must equal the dashboard's effective ACL: the
		// explicit user grant plus the role grant inherited from the parent.
		acl := sess.FolderACL(folder.ID)
		if len(acl) != 2 {
			t.Fatalf("expected 2 copied grants, got %d", len(acl))
		}
		byPrincipal := make(map[domain.ACLPrincipal]int64)
		for _, e := range acl {
			byPrincipal[e.Principal()] = e.Permission
		}
		if byPrincipal[domain.ACLPrincipal{UserID: 7}] != 4 {
			t.Errorf("explicit user grant not copied: %+v", acl)
		}
		if byPrincipal[domain.ACLPrincipal{Role: "Viewer"}] != 1 {
			t.Errorf("inherited role grant not copied: %+v", acl)
		}

		// A second alert on the same dashboard reuses the folder.
		again, err := resolver.Resolve(ctx, dash, domain.LegacyAlert{ID: 2, OrgID: 1, DashboardUID: "dash-a"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if again.UID != folder.UID {
			t.Error("expected the isolated folder to be reused for the same dashboard")
		}
		if resolver.CreatedFolders() != 1 {
			t.Errorf("expected 1 created folder, got %d", resolver.CreatedFolders())
		}
	})

	t.Run("Dashboard In Folder Reuses Parent", func(t *testing.T) {
		sess := &mocks.MockSession{
			Dashboards: []domain.Dashboard{
				{ID: 5, OrgID: 1, UID: "parent", Title: "Ops", IsFolder: true},
				{ID: 10, OrgID: 1, UID: "dash-a", FolderID: 5},
			},
		}
		resolver := NewFolderResolver(sess, testLogger())
		dash, _ := sess.DashboardByID(ctx, 10)

		folder, err := resolver.Resolve(ctx, dash, domain.LegacyAlert{OrgID: 1})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if folder.UID != "parent" {
			t.Errorf("expected parent folder, got %q", folder.UID)
		}
		if resolver.CreatedFolders() != 0 {
			t.Errorf("expected no folder creation, got %d", resolver.CreatedFolders())
		}
	})

	t.Run("Custom ACL Takes Precedence Over Parent Folder", func(t *testing.T) {
		sess := &mocks.MockSession{
			Dashboards: []domain.Dashboard{
				{ID: 5, OrgID: 1, UID: "parent", IsFolder: true},
				{ID: 10, OrgID: 1, UID: "dash-a", FolderID: 5, HasACL: true},
			},
		}
		resolver := NewFolderResolver(sess, testLogger())
		dash, _ := sess.DashboardByID(ctx, 10)

		folder, err := resolver.Resolve(ctx, dash, domain.LegacyAlert{OrgID: 1, DashboardUID: "dash-a"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if folder.UID == "parent" {
			t.Error("ACL dashboard must get an isolated folder, not its parent")
		}
	})

	t.Run("Folder Reference To Regular Dashboard", func(t *testing.T) {
		sess := &mocks.MockSession{
			Dashboards: []domain.Dashboard{
				{ID: 5, OrgID: 1, UID: "not-a-folder", IsFolder: false},
				{ID: 10, OrgID: 1, UID: "dash-a", FolderID: 5},
			},
		}
		resolver := NewFolderResolver(sess, testLogger())
		dash, _ := sess.DashboardByID(ctx, 10)

		_, err := resolver.Resolve(ctx, dash, domain.LegacyAlert{OrgID: 1})
		if !errors.Is(err, domain.ErrInvalidFolderReference) {
			t.Fatalf("expected ErrInvalidFolderReference, got %v", err)
		}
	})

	t.Run("Folder Reference To Missing Row", func(t *testing.T) {
		sess := &mocks.MockSession{
			Dashboards: []domain.Dashboard{
				{ID: 10, OrgID: 1, UID: "dash-a", FolderID: 99},
			},
		}
		resolver := NewFolderResolver(sess, testLogger())
		dash, _ := sess.DashboardByID(ctx, 10)

		_, err := resolver.Resolve(ctx, dash, domain.LegacyAlert{OrgID: 1})
		if !errors.Is(err, domain.ErrInvalidFolderReference) {
			t.Fatalf("expected ErrInvalidFolderReference, got %v", err)
		}
	})

	t.Run("Root Dashboards Share One General Folder Per Org", func(t *testing.T) {
		sess := &mocks.MockSession{
			Dashboards: []domain.Dashboard{
				{ID: 10, OrgID: 1, UID: "dash-a"},
				{ID: 11, OrgID: 1, UID: "dash-b"},
				{ID: 12, OrgID: 2, UID: "dash-c"},
			},
		}
		resolver := NewFolderResolver(sess, testLogger())

		dashA, _ := sess.DashboardByID(ctx, 10)
		dashB, _ := sess.DashboardByID(ctx, 11)
		dashC, _ := sess.DashboardByID(ctx, 12)

		folderA, err := resolver.Resolve(ctx, dashA, domain.LegacyAlert{OrgID: 1})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		folderB, err := resolver.Resolve(ctx, dashB, domain.LegacyAlert{OrgID: 1})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		folderC, err := resolver.Resolve(ctx, dashC, domain.LegacyAlert{OrgID: 2})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if folderA.UID != folderB.UID {
			t.Error("root dashboards in the same org must share the general folder")
		}
		if folderA.UID == folderC.UID {
			t.Error("general folders must be per-org")
		}
		if folderA.Title != domain.GeneralFolderTitle {
			t.Errorf("unexpected general folder title %q", folderA.Title)
		}
		if len(sess.FolderACL(folderA.ID)) != 0 {
			t.Error("general folder must carry no explicit ACL")
		}
		if resolver.CreatedFolders() != 2 {
			t.Errorf("expected one general folder per org, created %d", resolver.CreatedFolders())
		}
	})

	t.Run("Existing General Folder Is Reused", func(t *testing.T) {
		sess := &mocks.MockSession{
			Dashboards: []domain.Dashboard{
				{ID: 3, OrgID: 1, UID: "general", Title: domain.GeneralFolderTitle, IsFolder: true},
				{ID: 10, OrgID: 1, UID: "dash-a"},
			},
		}
		resolver := NewFolderResolver(sess, testLogger())
		dash, _ := sess.DashboardByID(ctx, 10)

		folder, err := resolver.Resolve(ctx, dash, domain.LegacyAlert{OrgID: 1})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if folder.UID != "general" {
			t.Errorf("expected existing general folder, got %q", folder.UID)
		}
		if resolver.CreatedFolders() != 0 {
			t.Errorf("expected no folder creation, got %d", resolver.CreatedFolders())
		}
	})

	t.Run("Failed Permission Copy Leaves No Folder Behind", func(t *testing.T) {
		sess := &mocks.MockSession{
			Dashboards: []domain.Dashboard{
				{ID: 10, OrgID: 1, UID: "dash-a", HasACL: true},
			},
			ACLs: []domain.ACLEntry{
				{OrgID: 1, DashboardID: 10, UserID: 7, Permission: 4},
			},
			SetACLErr: errors.New("permission denied"),
		}
		resolver := NewFolderResolver(sess, testLogger())
		dash, _ := sess.DashboardByID(ctx, 10)

		_, err := resolver.Resolve(ctx, dash, domain.LegacyAlert{ID: 1, OrgID: 1, DashboardUID: "dash-a"})
		if err == nil {
			t.Fatal("expected an error, got nil")
		}
		if n := len(sess.SyntheticFolders()); n != 0 {
			t.Errorf("half-built folder must be removed, found %d", n)
		}
		if resolver.CreatedFolders() != 0 {
			t.Errorf("removed folder must not be counted, got %d", resolver.CreatedFolders())
		}
	})

	t.Run("Failed Permission Read Creates No Folder", func(t *testing.T) {
		sess := &mocks.MockSession{
			Dashboards: []domain.Dashboard{
				{ID: 10, OrgID: 1, UID: "dash-a", HasACL: true},
			},
			ACLErr: errors.New("connection reset"),
		}
		resolver := NewFolderResolver(sess, testLogger())
		dash, _ := sess.DashboardByID(ctx, 10)

		_, err := resolver.Resolve(ctx, dash, domain.LegacyAlert{ID: 1, OrgID: 1, DashboardUID: "dash-a"})
		if err == nil {
			t.Fatal("expected an error, got nil")
		}
		if n := len(sess.SyntheticFolders()); n != 0 {
			t.Errorf("expected no folder row, found %d", n)
		}
	})

	t.Run("Empty Folder Identifier Is Fatal", func(t *testing.T) {
		sess := &mocks.MockSession{
			Dashboards: []domain.Dashboard{
				{ID: 5, OrgID: 1, UID: "", IsFolder: true},
				{ID: 10, OrgID: 1, UID: "dash-a", FolderID: 5},
			},
		}
		resolver := NewFolderResolver(sess, testLogger())
		dash, _ := sess.DashboardByID(ctx, 10)

		_, err := resolver.Resolve(ctx, dash, domain.LegacyAlert{OrgID: 1})
		if !errors.Is(err, domain.ErrEmptyFolderIdentifier) {
			t.Fatalf("expected ErrEmptyFolderIdentifier, got %v", err)
		}
	})
}
