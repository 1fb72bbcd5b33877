package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/garyjia/expense-batchpay/internal/application/port"
	"github.com/garyjia/expense-batchpay/internal/domain/entity"
	"go.uber.org/zap"
)

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new history record
func (r *HistoryRepository) Create(ctx context.Context, history *entity.ApprovalHistory) error {
	query := `
		INSERT INTO approval_history (
			expense_id, approver_id, action, level, comments,
			payment_amount, payment_date, ip_address, user_agent, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if history.CreatedAt.IsZero() {
		history.CreatedAt = time.Now()
	}

	result, err := executorFor(ctx, r.db).ExecContext(ctx, query,
		history.ExpenseID,
		history.ApproverID,
		history.Action,
		history.Level,
		history.Comments,
		history.PaymentAmount,
		nullTime(history.PaymentDate),
		nullString(history.IPAddress),
		nullString(history.UserAgent),
		utc(history.CreatedAt),
	)
	if err != nil {
		r.logger.Error("Failed to create history record",
			zap.Int64("expense_id", history.ExpenseID),
			zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	history.ID = id
	return nil
}

// GetByExpenseID retrieves all history records for an expense, oldest first
func (r *HistoryRepository) GetByExpenseID(ctx context.Context, expenseID int64) ([]*entity.ApprovalHistory, error) {
	query := `
		SELECT id, expense_id, approver_id, action, level, COALESCE(comments, ''),
			COALESCE(payment_amount, 0), payment_date, COALESCE(ip_address, ''),
			COALESCE(user_agent, ''), created_at
		FROM approval_history
		WHERE expense_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := executorFor(ctx, r.db).QueryContext(ctx, query, expenseID)
	if err != nil {
		r.logger.Error("Failed to get history by expense ID", zap.Int64("expense_id", expenseID), zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var records []*entity.ApprovalHistory
	for rows.Next() {
		var record entity.ApprovalHistory
		var paymentDate sql.NullTime
		err := rows.Scan(
			&record.ID,
			&record.ExpenseID,
			&record.ApproverID,
			&record.Action,
			&record.Level,
			&record.Comments,
			&record.PaymentAmount,
			&paymentDate,
			&record.IPAddress,
			&record.UserAgent,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		record.PaymentDate = timePtr(paymentDate)
		records = append(records, &record)
	}

	return records, rows.Err()
}

// Verify interface compliance
var _ port.HistoryRepository = (*HistoryRepository)(nil)
