package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/garyjia/expense-batchpay/internal/application/port"
)

type contextKey string

const txKey contextKey = "tx"

const (
	defaultBusyRetries = 3
	defaultBusyBackoff = 50 * time.Millisecond
)

// DB wraps sql.DB and implements port.TransactionManager.
// Outermost transactions that fail with SQLITE_BUSY or SQLITE_LOCKED are
// rolled back and retried with a linear backoff.
type DB struct {
	*sql.DB
	logger      *zap.Logger
	busyRetries int
	busyBackoff time.Duration
}

// NewDB creates a new database wrapper
func NewDB(sqlDB *sql.DB, logger *zap.Logger) *DB {
	return &DB{
		DB:          sqlDB,
		logger:      logger,
		busyRetries: defaultBusyRetries,
		busyBackoff: defaultBusyBackoff,
	}
}

// WithTransaction runs fn inside a transaction carried by the returned context.
// A nested call joins the caller's transaction.
func (db *DB) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx := TxFromContext(ctx); tx != nil {
		return fn(ctx)
	}

	var err error
	for attempt := 0; attempt <= db.busyRetries; attempt++ {
		if attempt > 0 {
			db.logger.Info("Retrying busy transaction", zap.Int("attempt", attempt), zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * db.busyBackoff):
			}
		}

		err = db.runOnce(ctx, fn)
		if !isBusy(err) {
			return err
		}
	}
	return err
}

func (db *DB) runOnce(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		db.logger.Error("Failed to begin transaction", zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			db.logger.Error("Transaction panicked, rolled back", zap.Any("panic", p))
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error("Failed to rollback transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		db.logger.Error("Failed to commit transaction", zap.Error(err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
}

// TxFromContext retrieves the transaction opened by WithTransaction, if any
func TxFromContext(ctx context.Context) *sql.Tx {
	if tx, ok := ctx.Value(txKey).(*sql.Tx); ok {
		return tx
	}
	return nil
}

var _ port.TransactionManager = (*DB)(nil)
