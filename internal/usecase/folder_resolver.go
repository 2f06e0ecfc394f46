package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/openalerting/legacy-migrator/internal/domain"
)

// folderPlacement is the tagged outcome of classifying a dashboard for
// folder resolution. The order of the cases is the precedence order.
type folderPlacement int

const (
	placementCustomACL folderPlacement = iota
	placementParentFolder
	placementRoot
)

func classifyDashboard(dash *domain.Dashboard) folderPlacement {
	switch {
	case dash.HasACL:
		return placementCustomACL
	case dash.FolderID > 0:
		return placementParentFolder
	default:
		return placementRoot
	}
}

// FolderResolver determines or creates the destination folder for a
// migrated rule. Folders it synthesizes within a run are cached so that
// alerts sharing a dashboard or an org reuse the same folder.
type FolderResolver struct {
	sess   domain.Session
	logger *slog.Logger

	aclFolders     map[int64]*domain.Dashboard // by source dashboard ID
	generalFolders map[int64]*domain.Dashboard // by org ID

	created int
}

func NewFolderResolver(sess domain.Session, logger *slog.Logger) *FolderResolver {
	return &FolderResolver{
		sess:           sess,
		logger:         logger,
		aclFolders:     make(map[int64]*domain.Dashboard),
		generalFolders: make(map[int64]*domain.Dashboard),
	}
}

// CreatedFolders reports how many folders this resolver synthesized.
func (r *FolderResolver) CreatedFolders() int { return r.created }

// Resolve returns the folder that will own the rule migrated from alert.
// Precedence: a dashboard with a custom ACL gets an isolated folder carrying
// a copy of its effective permissions; a dashboard inside a folder reuses
// that folder; a root-level dashboard shares the per-org general folder.
func (r *FolderResolver) Resolve(ctx context.Context, dash *domain.Dashboard, alert domain.LegacyAlert) (*domain.Dashboard, error) {
	var (
		folder *domain.Dashboard
		err    error
	)

	switch classifyDashboard(dash) {
	case placementCustomACL:
		folder, err = r.isolatedFolder(ctx, dash, alert)
	case placementParentFolder:
		folder, err = r.parentFolder(ctx, dash)
	case placementRoot:
		folder, err = r.generalFolder(ctx, dash.OrgID)
	}
	if err != nil {
		return nil, err
	}

	if folder.UID == "" {
		return nil, domain.ErrEmptyFolderIdentifier
	}
	return folder, nil
}

// isolatedFolder creates (once per dashboard) a folder that replicates the
// dashboard's effective ACL, so migrated rules keep exactly the access the
// dashboard had.
func (r *FolderResolver) isolatedFolder(ctx context.Context, dash *domain.Dashboard, alert domain.LegacyAlert) (*domain.Dashboard, error) {
	if folder, ok := r.aclFolders[dash.ID]; ok {
		return folder, nil
	}

	// Read the permissions before creating anything, so a read failure
	// leaves no folder row behind.
	entries, err := r.sess.EffectiveACL(ctx, dash.OrgID, dash.ID)
	if err != nil {
		return nil, fmt.Errorf("read permissions of dashboard %d: %w", dash.ID, err)
	}

	title := fmt.Sprintf(domain.MigratedFolderTitleFormat, alert.DashboardUID)
	folder, err := r.createFolder(ctx, dash.OrgID, title)
	if err != nil {
		return nil, fmt.Errorf("create folder %q: %w", title, err)
	}
	if err := r.sess.SetFolderACL(ctx, folder.OrgID, folder.ID, entries); err != nil {
		// Remove the half-built folder so it cannot commit with the
		// successful alerts of a skip-and-report run.
		if delErr := r.sess.DeleteFolder(ctx, folder.ID); delErr != nil {
			r.logger.Error("could not remove folder after failed permission copy",
				"folder_id", folder.ID, "error", delErr)
		}
		return nil, fmt.Errorf("copy permissions to folder %d: %w", folder.ID, err)
	}
	r.created++

	r.logger.Debug("created isolated folder for dashboard with custom permissions",
		"org_id", dash.OrgID, "dashboard_uid", dash.UID, "folder_uid", folder.UID, "grants", len(entries))
	r.aclFolders[dash.ID] = folder
	return folder, nil
}

// parentFolder reuses the dashboard's existing folder after validating the
// reference actually points at a folder row.
func (r *FolderResolver) parentFolder(ctx context.Context, dash *domain.Dashboard) (*domain.Dashboard, error) {
	folder, err := r.sess.DashboardByID(ctx, dash.FolderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("folder %d of dashboard %s: %w", dash.FolderID, dash.UID, domain.ErrInvalidFolderReference)
		}
		return nil, fmt.Errorf("get folder %d: %w", dash.FolderID, err)
	}
	if !folder.IsFolder {
		return nil, fmt.Errorf("id %d is a dashboard, not a folder: %w", dash.FolderID, domain.ErrInvalidFolderReference)
	}
	return folder, nil
}

// generalFolder gets or creates the shared per-org fallback folder. It gets
// no explicit ACL so default inheritance applies, and it is created at most
// once per org.
func (r *FolderResolver) generalFolder(ctx context.Context, orgID int64) (*domain.Dashboard, error) {
	if folder, ok := r.generalFolders[orgID]; ok {
		return folder, nil
	}

	folder, err := r.sess.GeneralFolder(ctx, orgID)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		folder, err = r.createFolder(ctx, orgID, domain.GeneralFolderTitle)
		if err != nil {
			return nil, fmt.Errorf("create general folder for org %d: %w", orgID, err)
		}
		r.created++
	default:
		return nil, fmt.Errorf("get general folder for org %d: %w", orgID, err)
	}

	r.generalFolders[orgID] = folder
	return folder, nil
}

func (r *FolderResolver) createFolder(ctx context.Context, orgID int64, title string) (*domain.Dashboard, error) {
	folder := &domain.Dashboard{
		OrgID:     orgID,
		UID:       uuid.NewString(),
		Title:     title,
		IsFolder:  true,
		CreatedBy: domain.MigrationCreatedBy,
	}
	if err := r.sess.CreateFolder(ctx, folder); err != nil {
		return nil, err
	}
	return folder, nil
}
