package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/expense-batchpay/internal/application/dispatcher"
	"github.com/garyjia/expense-batchpay/internal/application/port"
	"github.com/garyjia/expense-batchpay/internal/domain/entity"
	"github.com/garyjia/expense-batchpay/internal/domain/event"
	"github.com/garyjia/expense-batchpay/internal/domain/payment"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Permission checked before any batch payment operation
const (
	ResourceBatchPayments = "batch_payments"
	ActionProcess         = "process"
)

// History paging limits
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 100
)

// DirectSettlement is a settle-direct request
type DirectSettlement struct {
	Actor      *entity.User
	ExpenseIDs []int64
	UTRNumber  string
	Remarks    string
	Meta       entity.RequestMeta
}

// OTPSettlement is a verify-and-settle request
type OTPSettlement struct {
	Actor   *entity.User
	OTPID   string
	Code    string
	Remarks string
	Meta    entity.RequestMeta
}

// BatchResult is the outcome of one settlement batch
type BatchResult struct {
	Processed      []payment.ProcessedItem `json:"processed"`
	Failed         []payment.FailedItem    `json:"failed"`
	TotalProcessed int                     `json:"totalProcessed"`
	TotalFailed    int                     `json:"totalFailed"`
	TotalAmount    float64                 `json:"totalAmount"`
	UTRNumber      string                  `json:"utrNumber,omitempty"`
	OTPID          string                  `json:"otpId,omitempty"`
	BatchPaymentID int64                   `json:"batchPaymentId,omitempty"`
}

// OTPGrant is returned to the operator after a credential is issued
type OTPGrant struct {
	OTPID        string    `json:"otpId"`
	ExpenseCount int       `json:"expenseCount"`
	TotalAmount  float64   `json:"totalAmount"`
	ExpiresAt    time.Time `json:"expiresAt"`
	ValidFor     string    `json:"validFor"`
}

// ActiveOTP describes the operator's pending credential without its code
type ActiveOTP struct {
	OTPID             string    `json:"otpId"`
	ExpenseIDs        []int64   `json:"expenseIds"`
	ExpenseCount      int       `json:"expenseCount"`
	TotalAmount       float64   `json:"totalAmount"`
	ExpiresAt         time.Time `json:"expiresAt"`
	AttemptsRemaining int       `json:"attemptsRemaining"`
}

// Pagination describes one page of a listing
type Pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int64 `json:"pages"`
}

// HistoryPage is one page of the operator's ledger
type HistoryPage struct {
	BatchPayments []*entity.BatchPayment `json:"batchPayments"`
	Pagination    Pagination             `json:"pagination"`
}

// BatchPaymentService runs OTP-gated and direct batch settlements
type BatchPaymentService interface {
	SettleDirect(ctx context.Context, req DirectSettlement) (*BatchResult, error)
	GenerateOTP(ctx context.Context, actor *entity.User, expenseIDs []int64, meta entity.RequestMeta) (*OTPGrant, error)
	VerifyAndSettle(ctx context.Context, req OTPSettlement) (*BatchResult, error)
	CancelOTP(ctx context.Context, actor *entity.User, otpID string) error
	ActiveOTP(ctx context.Context, actor *entity.User) (*ActiveOTP, error)
	History(ctx context.Context, actor *entity.User, page, limit int) (*HistoryPage, error)
	ExportHistory(ctx context.Context, actor *entity.User) ([]byte, error)
}

type batchPaymentServiceImpl struct {
	expenseRepo port.ExpenseRepository
	historyRepo port.HistoryRepository
	siteRepo    port.SiteRepository
	ledgerRepo  port.BatchPaymentRepository
	txManager   port.TransactionManager
	otpService  OTPService
	notifier    NotificationService
	broadcaster BroadcastService
	authorizer  port.Authorizer
	exporter    port.LedgerExporter
	dispatcher  dispatcher.Dispatcher
	logger      Logger
	now         func() time.Time
}

// BatchPaymentDeps groups the collaborators of BatchPaymentService
type BatchPaymentDeps struct {
	ExpenseRepo port.ExpenseRepository
	HistoryRepo port.HistoryRepository
	SiteRepo    port.SiteRepository
	LedgerRepo  port.BatchPaymentRepository
	TxManager   port.TransactionManager
	OTPService  OTPService
	Notifier    NotificationService
	Broadcaster BroadcastService
	Authorizer  port.Authorizer
	Exporter    port.LedgerExporter
	Dispatcher  dispatcher.Dispatcher
}

// NewBatchPaymentService creates a new BatchPaymentService
func NewBatchPaymentService(deps BatchPaymentDeps, logger Logger) BatchPaymentService {
	return &batchPaymentServiceImpl{
		expenseRepo: deps.ExpenseRepo,
		historyRepo: deps.HistoryRepo,
		siteRepo:    deps.SiteRepo,
		ledgerRepo:  deps.LedgerRepo,
		txManager:   deps.TxManager,
		otpService:  deps.OTPService,
		notifier:    deps.Notifier,
		broadcaster: deps.Broadcaster,
		authorizer:  deps.Authorizer,
		exporter:    deps.Exporter,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
		now:         time.Now,
	}
}

// SettleDirect settles the eligible subset of expenseIDs against an
// operator-asserted bank reference.
func (s *batchPaymentServiceImpl) SettleDirect(ctx context.Context, req DirectSettlement) (*BatchResult, error) {
	if err := s.authorize(req.Actor); err != nil {
		return nil, err
	}

	ids, err := payment.NormalizeIDs(req.ExpenseIDs)
	if err != nil {
		return nil, err
	}
	utr, err := cleanReference(req.UTRNumber)
	if err != nil {
		return nil, err
	}

	expenses, err := s.expenseRepo.FindEligibleByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("find eligible expenses: %w", err)
	}
	if len(expenses) == 0 {
		return nil, payment.NotFoundf("No eligible expenses found for payment processing")
	}

	s.logger.Info("Processing direct batch payment",
		"user_id", req.Actor.ID,
		"utr_number", utr,
		"requested", len(ids),
		"eligible", len(expenses),
	)

	return s.settle(ctx, expenses, payment.Request{
		Proof:   payment.DirectProof(utr),
		Remarks: cleanRemarks(req.Remarks),
		Actor:   req.Actor,
		Meta:    req.Meta,
		Now:     s.now(),
	})
}

// GenerateOTP issues a credential for an expense set that is entirely eligible
func (s *batchPaymentServiceImpl) GenerateOTP(ctx context.Context, actor *entity.User, expenseIDs []int64, meta entity.RequestMeta) (*OTPGrant, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}

	ids, err := payment.NormalizeIDs(expenseIDs)
	if err != nil {
		return nil, err
	}

	expenses, err := s.expenseRepo.FindEligibleByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("find eligible expenses: %w", err)
	}
	if len(expenses) == 0 {
		return nil, payment.NotFoundf("No eligible expenses found for payment processing")
	}
	if len(expenses) != len(ids) {
		return nil, payment.Validationf("Only %d out of %d expenses are eligible for payment", len(expenses), len(ids))
	}

	var total float64
	for _, e := range expenses {
		total += e.Amount
	}

	issued, err := s.otpService.Generate(ctx, OTPIssue{
		Actor:       actor,
		ExpenseIDs:  ids,
		TotalAmount: total,
		Meta:        meta,
	})
	if err != nil {
		return nil, err
	}

	notice := OTPNotice{
		Code:         issued.Code,
		ExpenseCount: len(ids),
		TotalAmount:  total,
		ValidFor:     issued.OTP.ExpiresAt.Sub(issued.OTP.CreatedAt),
		MaxAttempts:  issued.OTP.MaxAttempts,
	}
	if err := s.notifier.SendOTP(ctx, actor, notice); err != nil {
		s.logger.Error("Batch OTP delivery failed", "otp_id", issued.OTP.ID, "error", err)
	}
	if err := s.broadcaster.AnnounceOTP(ctx, issued.OTP); err != nil {
		s.logger.Error("Failed to announce batch OTP", "otp_id", issued.OTP.ID, "error", err)
	}

	return &OTPGrant{
		OTPID:        issued.OTP.ID,
		ExpenseCount: issued.OTP.ExpenseCount,
		TotalAmount:  total,
		ExpiresAt:    issued.OTP.ExpiresAt,
		ValidFor:     humanDuration(issued.OTP.ExpiresAt.Sub(issued.OTP.CreatedAt)),
	}, nil
}

// VerifyAndSettle verifies the credential and settles its stored expense set
func (s *batchPaymentServiceImpl) VerifyAndSettle(ctx context.Context, req OTPSettlement) (*BatchResult, error) {
	if err := s.authorize(req.Actor); err != nil {
		return nil, err
	}
	if req.OTPID == "" || req.Code == "" {
		return nil, payment.Validationf("OTP ID and OTP are required")
	}

	otp, err := s.otpService.Verify(ctx, req.OTPID, req.Code, req.Actor)
	if err != nil {
		return nil, err
	}
	// The credential is spent; the settlement must finish even if the
	// client goes away.
	ctx = context.WithoutCancel(ctx)

	expenses, err := s.expenseRepo.FindByIDs(ctx, otp.ExpenseIDs)
	if err != nil {
		return nil, fmt.Errorf("find otp expenses: %w", err)
	}
	if payment.CountEligible(expenses) == 0 {
		return nil, payment.NotFoundf("No eligible expenses found for payment processing")
	}

	s.logger.Info("Processing OTP-verified batch payment",
		"user_id", req.Actor.ID,
		"otp_id", otp.ID,
		"expenses", len(expenses),
	)

	return s.settle(ctx, expenses, payment.Request{
		Proof:   payment.OTPProof(otp.ID),
		Remarks: cleanRemarks(req.Remarks),
		Actor:   req.Actor,
		Meta:    req.Meta,
		Now:     s.now(),
	})
}

// CancelOTP withdraws an unused credential
func (s *batchPaymentServiceImpl) CancelOTP(ctx context.Context, actor *entity.User, otpID string) error {
	if err := s.authorize(actor); err != nil {
		return err
	}
	return s.otpService.Cancel(ctx, otpID, actor)
}

// ActiveOTP returns the operator's newest usable credential, or nil when
// there is none
func (s *batchPaymentServiceImpl) ActiveOTP(ctx context.Context, actor *entity.User) (*ActiveOTP, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}

	otp, err := s.otpService.ActiveFor(ctx, actor)
	if err != nil {
		return nil, err
	}
	if otp == nil {
		return nil, nil
	}

	return &ActiveOTP{
		OTPID:             otp.ID,
		ExpenseIDs:        otp.ExpenseIDs,
		ExpenseCount:      otp.ExpenseCount,
		TotalAmount:       otp.TotalAmount,
		ExpiresAt:         otp.ExpiresAt,
		AttemptsRemaining: otp.MaxAttempts - otp.Attempts,
	}, nil
}

// History lists the operator's own ledger entries, newest first
func (s *batchPaymentServiceImpl) History(ctx context.Context, actor *entity.User, page, limit int) (*HistoryPage, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	total, err := s.ledgerRepo.CountByUser(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("count batch payments: %w", err)
	}
	entries, err := s.ledgerRepo.ListByUser(ctx, actor.ID, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("list batch payments: %w", err)
	}
	if entries == nil {
		entries = []*entity.BatchPayment{}
	}

	return &HistoryPage{
		BatchPayments: entries,
		Pagination: Pagination{
			Total: total,
			Page:  page,
			Limit: limit,
			Pages: (total + int64(limit) - 1) / int64(limit),
		},
	}, nil
}

// ExportHistory renders the operator's whole ledger as a spreadsheet
func (s *batchPaymentServiceImpl) ExportHistory(ctx context.Context, actor *entity.User) ([]byte, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}

	total, err := s.ledgerRepo.CountByUser(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("count batch payments: %w", err)
	}
	entries, err := s.ledgerRepo.ListByUser(ctx, actor.ID, int(total), 0)
	if err != nil {
		return nil, fmt.Errorf("list batch payments: %w", err)
	}

	data, err := s.exporter.Export(entries)
	if err != nil {
		s.logger.Error("Failed to export batch payments", "user_id", actor.ID, "error", err)
		return nil, fmt.Errorf("export batch payments: %w", err)
	}
	return data, nil
}

// settle runs the per-record fold, writes the ledger entry and enqueues the
// deferred fan-out. Each record commits in its own transaction. The work runs
// detached from the caller's cancellation so that every committed record
// reaches the ledger.
func (s *batchPaymentServiceImpl) settle(ctx context.Context, expenses []*entity.Expense, req payment.Request) (*BatchResult, error) {
	ctx = context.WithoutCancel(ctx)

	out := payment.Fold(expenses, req, func(settled *entity.Expense) error {
		return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			if err := s.expenseRepo.SaveSettlement(txCtx, settled); err != nil {
				return fmt.Errorf("save expense: %w", err)
			}
			if err := s.historyRepo.Create(txCtx, payment.HistoryEntry(settled, req)); err != nil {
				return fmt.Errorf("create history: %w", err)
			}
			if settled.SiteID != nil {
				if err := s.siteRepo.UpdateStatistics(txCtx, *settled.SiteID, settled.Amount, true); err != nil {
					return fmt.Errorf("update site statistics: %w", err)
				}
			}
			return nil
		})
	})

	for _, f := range out.Failed {
		s.logger.Error("Expense not settled",
			"expense_id", f.ExpenseID,
			"expense_number", f.ExpenseNumber,
			"reason", f.Reason,
		)
	}

	result := &BatchResult{
		Processed:      out.Processed,
		Failed:         out.Failed,
		TotalProcessed: len(out.Processed),
		TotalFailed:    len(out.Failed),
		TotalAmount:    out.TotalAmount(),
		UTRNumber:      req.Proof.Reference,
		OTPID:          req.Proof.OTPID,
	}

	if len(out.Processed) == 0 {
		return result, nil
	}

	entry := &entity.BatchPayment{
		UTRNumber:    req.Proof.Reference,
		UserID:       req.Actor.ID,
		ExpenseIDs:   out.ProcessedIDs(),
		TotalAmount:  result.TotalAmount,
		ExpenseCount: result.TotalProcessed,
		CreatedAt:    req.Now,
	}
	if req.Remarks != "" {
		remarks := req.Remarks
		entry.PaymentRemarks = &remarks
	}

	// The records are already committed, so a ledger failure is reported
	// in the log and the result still goes back to the operator.
	if err := s.ledgerRepo.Create(ctx, entry); err != nil {
		s.logger.Error("Failed to write batch payment ledger entry",
			"utr_number", entry.UTRNumber,
			"expense_ids", entry.ExpenseIDs,
			"error", err,
		)
	} else {
		result.BatchPaymentID = entry.ID
	}

	s.logger.Info("Batch payment completed",
		"utr_number", req.Proof.Reference,
		"processed", result.TotalProcessed,
		"failed", result.TotalFailed,
		"total_amount", result.TotalAmount,
	)

	s.dispatcher.DispatchAsync(ctx, event.NewSettledEvent(&event.Settlement{
		Reference:   req.Proof.Reference,
		Processor:   req.Actor,
		Expenses:    out.Settled,
		FailedCount: len(out.Failed),
		TotalAmount: result.TotalAmount,
		SettledAt:   req.Now,
	}, ""))

	return result, nil
}

func (s *batchPaymentServiceImpl) authorize(actor *entity.User) error {
	if actor == nil {
		return payment.Forbiddenf("Authentication required")
	}
	ok, err := s.authorizer.Authorize(actor.Role, ResourceBatchPayments, ActionProcess)
	if err != nil {
		return fmt.Errorf("authorize: %w", err)
	}
	if !ok {
		return payment.Forbiddenf("Access denied. Insufficient permissions.")
	}
	return nil
}

func humanDuration(d time.Duration) string {
	mins := int(d.Round(time.Minute) / time.Minute)
	if mins == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", mins)
}

var _ BatchPaymentService = (*batchPaymentServiceImpl)(nil)
