package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/DanielPopoola/claimpay/internal/application"
	"github.com/DanielPopoola/claimpay/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TransactionCoordinator implements application.UnitOfWork on a pgx pool.
type TransactionCoordinator struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewTransactionCoordinator(db *DB, logger *slog.Logger) *TransactionCoordinator {
	return &TransactionCoordinator{
		pool:   db.Pool,
		logger: logger,
	}
}

// WithinTransaction executes fn within a read committed transaction. Any
// error from fn rolls back. A commit that fails without a server answer wraps
// domain.ErrCommitOutcomeUnknown.
func (tc *TransactionCoordinator) WithinTransaction(
	ctx context.Context,
	fn func(ctx context.Context, store application.AuthorizationStore) error,
) error {
	tx, err := tc.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &AuthorizationStore{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if commitRejected(err) {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		tc.logger.Error("commit acknowledgement lost", "error", err)
		return errors.Join(domain.ErrCommitOutcomeUnknown, err)
	}

	return nil
}

// commitRejected reports a commit the server definitely did not apply.
func commitRejected(err error) bool {
	if errors.Is(err, pgx.ErrTxCommitRollback) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return true
	}
	// nothing was written to the connection
	return pgconn.SafeToRetry(err)
}
