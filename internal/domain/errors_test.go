package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestMigrationErrorWrapping(t *testing.T) {
	cause := fmt.Errorf("condition 0 references datasource 99: %w", ErrUnresolvedDatasource)
	err := error(MigrationError{AlertID: 7, Err: cause})

	if !errors.Is(err, ErrUnresolvedDatasource) {
		t.Error("the underlying cause must stay reachable through Unwrap")
	}

	var migErr MigrationError
	if !errors.As(err, &migErr) {
		t.Fatal("expected errors.As to recover the MigrationError")
	}
	if migErr.AlertID != 7 {
		t.Errorf("expected alert id 7, got %d", migErr.AlertID)
	}
	if migErr.Unwrap() != cause {
		t.Error("Unwrap must return the original cause")
	}
}

func TestStoreErrorWrapping(t *testing.T) {
	cause := errors.New("connection reset")
	err := error(&StoreError{Op: "select legacy alerts", Err: cause})

	if !errors.Is(err, cause) {
		t.Error("the underlying cause must stay reachable through Unwrap")
	}

	var storeErr *StoreError
	if !errors.As(err, &storeErr) {
		t.Fatal("expected errors.As to recover the StoreError")
	}
	if storeErr.Op != "select legacy alerts" {
		t.Errorf("unexpected op %q", storeErr.Op)
	}
}
