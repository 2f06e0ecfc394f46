package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/openalerting/legacy-migrator/internal/domain"
)

// Store opens one transaction per migration run and hands the use cases a
// Session bound to it. Commit happens only when fn returns nil; any error
// rolls the whole run back.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

func (s *Store) InTransaction(ctx context.Context, fn func(domain.Session) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.StoreError{Op: "begin transaction", Err: err}
	}
	defer tx.Rollback() // no-op after Commit

	if err := fn(&session{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return &domain.StoreError{Op: "commit transaction", Err: err}
	}
	return nil
}
