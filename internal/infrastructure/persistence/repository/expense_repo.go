package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/expense-batchpay/internal/application/port"
	"github.com/garyjia/expense-batchpay/internal/domain/entity"
	"go.uber.org/zap"
)

// ExpenseRepository implements port.ExpenseRepository
type ExpenseRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *sql.DB, logger *zap.Logger) port.ExpenseRepository {
	return &ExpenseRepository{
		db:     db,
		logger: logger,
	}
}

const expenseSelect = `
	SELECT e.id, e.expense_number, e.amount, e.status, e.submitted_by, e.site_id,
		e.payment_amount, e.payment_date, e.payment_processed_by, e.payment_details,
		e.created_at, e.updated_at,
		u.id, u.name, u.email, COALESCE(u.phone, ''), u.role,
		COALESCE(s.name, '')
	FROM expenses e
	JOIN users u ON u.id = e.submitted_by
	LEFT JOIN sites s ON s.id = e.site_id
`

// FindEligibleByIDs returns the payable expenses among ids
func (r *ExpenseRepository) FindEligibleByIDs(ctx context.Context, ids []int64) ([]*entity.Expense, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	idList, args := inClause(ids)
	statusList, statusArgs := eligibleClause()
	args = append(args, statusArgs...)

	query := expenseSelect + `
		WHERE e.id IN ` + idList + `
		AND e.status IN ` + statusList + `
		ORDER BY e.id ASC
	`
	return r.query(ctx, query, args...)
}

func eligibleClause() (string, []interface{}) {
	marks := make([]string, len(entity.EligibleForPayment))
	args := make([]interface{}, len(entity.EligibleForPayment))
	for i, status := range entity.EligibleForPayment {
		marks[i] = "?"
		args[i] = status
	}
	return "(" + strings.Join(marks, ", ") + ")", args
}

// FindByIDs returns the expenses among ids regardless of status
func (r *ExpenseRepository) FindByIDs(ctx context.Context, ids []int64) ([]*entity.Expense, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	idList, args := inClause(ids)
	query := expenseSelect + `
		WHERE e.id IN ` + idList + `
		ORDER BY e.id ASC
	`
	return r.query(ctx, query, args...)
}

// SaveSettlement writes the payment fields of expense and appends its new comments
func (r *ExpenseRepository) SaveSettlement(ctx context.Context, expense *entity.Expense) error {
	var details sql.NullString
	if expense.PaymentDetails != nil {
		raw, err := json.Marshal(expense.PaymentDetails)
		if err != nil {
			return fmt.Errorf("failed to marshal payment details: %w", err)
		}
		details = sql.NullString{String: string(raw), Valid: true}
	}

	var paymentAmount sql.NullFloat64
	if expense.PaymentAmount != nil {
		paymentAmount = sql.NullFloat64{Float64: *expense.PaymentAmount, Valid: true}
	}
	var processedBy sql.NullInt64
	if expense.PaymentProcessedBy != nil {
		processedBy = sql.NullInt64{Int64: *expense.PaymentProcessedBy, Valid: true}
	}
	if expense.UpdatedAt.IsZero() {
		expense.UpdatedAt = time.Now()
	}

	// Only a payable record can be settled; a concurrent settlement of the
	// same expense matches no row and fails here.
	statusList, statusArgs := eligibleClause()
	query := `
		UPDATE expenses
		SET status = ?, payment_amount = ?, payment_date = ?, payment_processed_by = ?,
			payment_details = ?, updated_at = ?
		WHERE id = ? AND status IN ` + statusList

	args := append([]interface{}{
		expense.Status,
		paymentAmount,
		nullTime(expense.PaymentDate),
		processedBy,
		details,
		utc(expense.UpdatedAt),
		expense.ID,
	}, statusArgs...)

	exec := executorFor(ctx, r.db)
	result, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to save settlement", zap.Int64("expense_id", expense.ID), zap.Error(err))
		return fmt.Errorf("failed to save settlement: %w", err)
	}
	if err := expectOneRow(result, "payable expense", expense.ID); err != nil {
		return err
	}

	for _, comment := range expense.NewComments {
		if comment.CreatedAt.IsZero() {
			comment.CreatedAt = expense.UpdatedAt
		}
		result, err := exec.ExecContext(ctx, `
			INSERT INTO expense_comments (expense_id, user_id, text, is_internal, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, expense.ID, comment.UserID, comment.Text, comment.IsInternal, utc(comment.CreatedAt))
		if err != nil {
			r.logger.Error("Failed to append expense comment", zap.Int64("expense_id", expense.ID), zap.Error(err))
			return fmt.Errorf("failed to append comment: %w", err)
		}
		if id, err := result.LastInsertId(); err == nil {
			comment.ID = id
			comment.ExpenseID = expense.ID
		}
	}

	return nil
}

func (r *ExpenseRepository) query(ctx context.Context, query string, args ...interface{}) ([]*entity.Expense, error) {
	rows, err := executorFor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query expenses", zap.Error(err))
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*entity.Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, expense)
	}

	return expenses, rows.Err()
}

func scanExpense(rows *sql.Rows) (*entity.Expense, error) {
	var (
		e             entity.Expense
		submitter     entity.User
		siteID        sql.NullInt64
		paymentAmount sql.NullFloat64
		paymentDate   sql.NullTime
		processedBy   sql.NullInt64
		details       sql.NullString
	)

	err := rows.Scan(
		&e.ID,
		&e.ExpenseNumber,
		&e.Amount,
		&e.Status,
		&e.SubmittedBy,
		&siteID,
		&paymentAmount,
		&paymentDate,
		&processedBy,
		&details,
		&e.CreatedAt,
		&e.UpdatedAt,
		&submitter.ID,
		&submitter.Name,
		&submitter.Email,
		&submitter.Phone,
		&submitter.Role,
		&e.SiteName,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan expense: %w", err)
	}

	if siteID.Valid {
		id := siteID.Int64
		e.SiteID = &id
	}
	if paymentAmount.Valid {
		amount := paymentAmount.Float64
		e.PaymentAmount = &amount
	}
	if processedBy.Valid {
		by := processedBy.Int64
		e.PaymentProcessedBy = &by
	}
	e.PaymentDate = timePtr(paymentDate)
	if details.Valid && details.String != "" {
		var pd entity.PaymentDetails
		if err := json.Unmarshal([]byte(details.String), &pd); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payment details of expense %d: %w", e.ID, err)
		}
		e.PaymentDetails = &pd
	}
	e.Submitter = &submitter

	return &e, nil
}

// Verify interface compliance
var _ port.ExpenseRepository = (*ExpenseRepository)(nil)
