package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/garyjia/expense-batchpay/internal/application/port"
	"github.com/garyjia/expense-batchpay/internal/domain/entity"
	"go.uber.org/zap"
)

// BatchPaymentRepository implements port.BatchPaymentRepository.
// The ledger is append-only; the schema rejects UPDATE and DELETE.
type BatchPaymentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewBatchPaymentRepository creates a new ledger repository
func NewBatchPaymentRepository(db *sql.DB, logger *zap.Logger) port.BatchPaymentRepository {
	return &BatchPaymentRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a ledger entry
func (r *BatchPaymentRepository) Create(ctx context.Context, payment *entity.BatchPayment) error {
	expenseIDs, err := json.Marshal(payment.ExpenseIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal expense ids: %w", err)
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now()
	}

	var remarks sql.NullString
	if payment.PaymentRemarks != nil {
		remarks = sql.NullString{String: *payment.PaymentRemarks, Valid: true}
	}

	query := `
		INSERT INTO batch_payments (
			utr_number, user_id, expense_ids, total_amount, expense_count,
			payment_remarks, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := executorFor(ctx, r.db).ExecContext(ctx, query,
		payment.UTRNumber,
		payment.UserID,
		string(expenseIDs),
		payment.TotalAmount,
		payment.ExpenseCount,
		remarks,
		utc(payment.CreatedAt),
	)
	if err != nil {
		r.logger.Error("Failed to create batch payment",
			zap.String("utr_number", payment.UTRNumber),
			zap.Error(err))
		return fmt.Errorf("failed to create batch payment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	payment.ID = id
	return nil
}

// ListByUser returns a user's ledger entries, newest first
func (r *BatchPaymentRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*entity.BatchPayment, error) {
	query := `
		SELECT id, utr_number, user_id, expense_ids, total_amount, expense_count,
			payment_remarks, created_at
		FROM batch_payments
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := executorFor(ctx, r.db).QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list batch payments", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to list batch payments: %w", err)
	}
	defer rows.Close()

	var payments []*entity.BatchPayment
	for rows.Next() {
		var (
			p          entity.BatchPayment
			expenseIDs string
			remarks    sql.NullString
		)
		err := rows.Scan(
			&p.ID,
			&p.UTRNumber,
			&p.UserID,
			&expenseIDs,
			&p.TotalAmount,
			&p.ExpenseCount,
			&remarks,
			&p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch payment: %w", err)
		}
		if err := json.Unmarshal([]byte(expenseIDs), &p.ExpenseIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal expense ids: %w", err)
		}
		if remarks.Valid {
			s := remarks.String
			p.PaymentRemarks = &s
		}
		payments = append(payments, &p)
	}

	return payments, rows.Err()
}

// CountByUser counts a user's ledger entries
func (r *BatchPaymentRepository) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := executorFor(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM batch_payments WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count batch payments", zap.Int64("user_id", userID), zap.Error(err))
		return 0, fmt.Errorf("failed to count batch payments: %w", err)
	}
	return count, nil
}

// Verify interface compliance
var _ port.BatchPaymentRepository = (*BatchPaymentRepository)(nil)
