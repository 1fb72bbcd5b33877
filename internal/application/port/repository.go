package port

import (
	"context"
	"time"

	"github.com/garyjia/expense-batchpay/internal/domain/entity"
)

// ExpenseRepository defines the expense operations settlement needs
type ExpenseRepository interface {
	// FindEligibleByIDs returns expenses in ids whose status is payable,
	// with submitter and site joined, ordered by id.
	FindEligibleByIDs(ctx context.Context, ids []int64) ([]*entity.Expense, error)

	// FindByIDs returns every expense in ids regardless of status, ordered by id
	FindByIDs(ctx context.Context, ids []int64) ([]*entity.Expense, error)

	// SaveSettlement persists the payment fields of a settled expense and
	// appends its NewComments.
	SaveSettlement(ctx context.Context, expense *entity.Expense) error
}

// UserRepository reads users owned by the user administration module
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.User, error)
}

// SiteRepository updates site aggregates
type SiteRepository interface {
	UpdateStatistics(ctx context.Context, siteID int64, amount float64, isPayment bool) error
	GetByID(ctx context.Context, id int64) (*entity.Site, error)
}

// OTPRepository defines persistence operations for BatchOTP
type OTPRepository interface {
	Create(ctx context.Context, otp *entity.BatchOTP) error
	GetByID(ctx context.Context, id string) (*entity.BatchOTP, error)

	// RecordAttempt increments attempts while the credential is unused and
	// below its budget. It reports false when no attempt could be recorded.
	RecordAttempt(ctx context.Context, id string) (bool, error)

	// MarkUsed sets the terminal used state. It reports false when the
	// credential was already used.
	MarkUsed(ctx context.Context, id string, reason string, usedAt time.Time) (bool, error)

	// GetActive returns the newest unused, unexpired credential of a user for purpose
	GetActive(ctx context.Context, userID int64, purpose string, now time.Time) (*entity.BatchOTP, error)

	// DeleteExpired removes credentials with expires_at before now
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// BatchPaymentRepository is the append-only settlement ledger
type BatchPaymentRepository interface {
	Create(ctx context.Context, payment *entity.BatchPayment) error
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*entity.BatchPayment, error)
	CountByUser(ctx context.Context, userID int64) (int64, error)
}

// HistoryRepository defines persistence operations for ApprovalHistory
type HistoryRepository interface {
	Create(ctx context.Context, history *entity.ApprovalHistory) error
	GetByExpenseID(ctx context.Context, expenseID int64) ([]*entity.ApprovalHistory, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
