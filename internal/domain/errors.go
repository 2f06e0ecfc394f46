package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a single-row lookup that matched nothing.
	ErrNotFound = errors.New("not found")

	// ErrUnresolvedDatasource reports a legacy condition operand whose
	// datasource ID has no unified UID mapping (deleted or orphaned).
	ErrUnresolvedDatasource = errors.New("datasource has no unified UID mapping")

	// ErrUnresolvedDashboard reports a legacy alert whose dashboard ID has
	// no UID mapping or whose dashboard row no longer exists.
	ErrUnresolvedDashboard = errors.New("dashboard cannot be resolved")

	// ErrInvalidFolderReference reports a dashboard whose folder ID points
	// at a missing row or at a regular dashboard instead of a folder.
	ErrInvalidFolderReference = errors.New("folder reference is not a valid folder")

	// ErrEmptyFolderIdentifier reports folder resolution that produced a
	// folder with no UID.
	ErrEmptyFolderIdentifier = errors.New("empty folder identifier")

	// ErrUniqueConstraintViolated reports a rule insert rejected by the
	// store's uniqueness constraint.
	ErrUniqueConstraintViolated = errors.New("unique constraint violated")

	// ErrCollisionRetryExhausted reports that a rule insert still collided
	// after the single UID-suffix retry.
	ErrCollisionRetryExhausted = errors.New("rule title collision persists after retry")
)

// MigrationError ties a failure to the legacy alert being migrated. The
// underlying cause stays inspectable through Unwrap.
type MigrationError struct {
	AlertID int64
	Err     error
}

func (e MigrationError) Error() string {
	return fmt.Sprintf("failed to migrate alert %d: %s", e.AlertID, e.Err.Error())
}

func (e MigrationError) Unwrap() error { return e.Err }

// StoreError wraps an I/O failure against the relational store with the
// operation that failed. Always fatal for the run.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %s", e.Op, e.Err.Error())
}

func (e *StoreError) Unwrap() error { return e.Err }
