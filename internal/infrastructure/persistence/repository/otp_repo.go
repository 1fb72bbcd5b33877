package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/expense-batchpay/internal/application/port"
	"github.com/garyjia/expense-batchpay/internal/domain/entity"
	"go.uber.org/zap"
)

// OTPRepository implements port.OTPRepository over the batch_otps table.
// Attempt counting and the used flag are changed with conditional updates
// so that two concurrent verifications cannot both succeed.
type OTPRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewOTPRepository creates a new OTP repository
func NewOTPRepository(db *sql.DB, logger *zap.Logger) port.OTPRepository {
	return &OTPRepository{
		db:     db,
		logger: logger,
	}
}

const otpColumns = `
	id, code_hash, user_id, expense_ids, purpose, is_used, used_at,
	COALESCE(invalidated_reason, ''), expires_at, attempts, max_attempts,
	total_amount, expense_count, COALESCE(ip_address, ''), COALESCE(user_agent, ''),
	created_at, updated_at
`

// Create stores a new credential
func (r *OTPRepository) Create(ctx context.Context, otp *entity.BatchOTP) error {
	expenseIDs, err := json.Marshal(otp.ExpenseIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal expense ids: %w", err)
	}

	now := time.Now()
	if otp.CreatedAt.IsZero() {
		otp.CreatedAt = now
	}
	if otp.UpdatedAt.IsZero() {
		otp.UpdatedAt = otp.CreatedAt
	}

	query := `
		INSERT INTO batch_otps (
			id, code_hash, user_id, expense_ids, purpose, is_used, used_at,
			invalidated_reason, expires_at, attempts, max_attempts, total_amount,
			expense_count, ip_address, user_agent, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = executorFor(ctx, r.db).ExecContext(ctx, query,
		otp.ID,
		otp.CodeHash,
		otp.UserID,
		string(expenseIDs),
		otp.Purpose,
		otp.IsUsed,
		nullTime(otp.UsedAt),
		nullString(otp.InvalidatedReason),
		utc(otp.ExpiresAt),
		otp.Attempts,
		otp.MaxAttempts,
		otp.TotalAmount,
		otp.ExpenseCount,
		nullString(otp.IPAddress),
		nullString(otp.UserAgent),
		utc(otp.CreatedAt),
		utc(otp.UpdatedAt),
	)
	if err != nil {
		r.logger.Error("Failed to create OTP", zap.Int64("user_id", otp.UserID), zap.Error(err))
		return fmt.Errorf("failed to create otp: %w", err)
	}

	return nil
}

// GetByID retrieves a credential; nil when absent
func (r *OTPRepository) GetByID(ctx context.Context, id string) (*entity.BatchOTP, error) {
	query := `SELECT ` + otpColumns + ` FROM batch_otps WHERE id = ?`

	otp, err := scanOTP(executorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get OTP", zap.String("otp_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get otp: %w", err)
	}
	return otp, nil
}

// RecordAttempt spends one verification try if the credential still has one
func (r *OTPRepository) RecordAttempt(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE batch_otps
		SET attempts = attempts + 1, updated_at = ?
		WHERE id = ? AND is_used = 0 AND attempts < max_attempts
	`

	result, err := executorFor(ctx, r.db).ExecContext(ctx, query, utc(time.Now()), id)
	if err != nil {
		r.logger.Error("Failed to record OTP attempt", zap.String("otp_id", id), zap.Error(err))
		return false, fmt.Errorf("failed to record otp attempt: %w", err)
	}
	return changedOne(result)
}

// MarkUsed moves an unused credential into its terminal state
func (r *OTPRepository) MarkUsed(ctx context.Context, id string, reason string, usedAt time.Time) (bool, error) {
	query := `
		UPDATE batch_otps
		SET is_used = 1, used_at = ?, invalidated_reason = ?, updated_at = ?
		WHERE id = ? AND is_used = 0
	`

	result, err := executorFor(ctx, r.db).ExecContext(ctx, query, utc(usedAt), reason, utc(usedAt), id)
	if err != nil {
		r.logger.Error("Failed to mark OTP used", zap.String("otp_id", id), zap.String("reason", reason), zap.Error(err))
		return false, fmt.Errorf("failed to mark otp used: %w", err)
	}
	return changedOne(result)
}

// GetActive returns the newest usable credential of a user; nil when none
func (r *OTPRepository) GetActive(ctx context.Context, userID int64, purpose string, now time.Time) (*entity.BatchOTP, error) {
	query := `SELECT ` + otpColumns + `
		FROM batch_otps
		WHERE user_id = ? AND purpose = ? AND is_used = 0 AND expires_at > ?
		ORDER BY created_at DESC
		LIMIT 1
	`

	otp, err := scanOTP(executorFor(ctx, r.db).QueryRowContext(ctx, query, userID, purpose, utc(now)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get active OTP", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to get active otp: %w", err)
	}
	return otp, nil
}

// DeleteExpired purges credentials that expired before now
func (r *OTPRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := executorFor(ctx, r.db).ExecContext(ctx,
		`DELETE FROM batch_otps WHERE expires_at < ?`, utc(now))
	if err != nil {
		r.logger.Error("Failed to delete expired OTPs", zap.Error(err))
		return 0, fmt.Errorf("failed to delete expired otps: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

func scanOTP(row *sql.Row) (*entity.BatchOTP, error) {
	var (
		otp        entity.BatchOTP
		expenseIDs string
		usedAt     sql.NullTime
	)

	err := row.Scan(
		&otp.ID,
		&otp.CodeHash,
		&otp.UserID,
		&expenseIDs,
		&otp.Purpose,
		&otp.IsUsed,
		&usedAt,
		&otp.InvalidatedReason,
		&otp.ExpiresAt,
		&otp.Attempts,
		&otp.MaxAttempts,
		&otp.TotalAmount,
		&otp.ExpenseCount,
		&otp.IPAddress,
		&otp.UserAgent,
		&otp.CreatedAt,
		&otp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(expenseIDs), &otp.ExpenseIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal expense ids: %w", err)
	}
	otp.UsedAt = timePtr(usedAt)
	return &otp, nil
}

func changedOne(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

// Verify interface compliance
var _ port.OTPRepository = (*OTPRepository)(nil)
