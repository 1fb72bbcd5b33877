package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/expense-batchpay/internal/application/port"
	"github.com/garyjia/expense-batchpay/internal/domain/entity"
	"github.com/garyjia/expense-batchpay/internal/domain/payment"
)

// OTPIssue is the input for a new batch credential
type OTPIssue struct {
	Actor       *entity.User
	ExpenseIDs  []int64
	TotalAmount float64
	Meta        entity.RequestMeta
}

// IssuedOTP is a freshly created credential together with its plaintext code.
// The code is never persisted.
type IssuedOTP struct {
	Code string
	OTP  *entity.BatchOTP
}

// OTPService owns the lifecycle of batch payment credentials
type OTPService interface {
	Generate(ctx context.Context, req OTPIssue) (*IssuedOTP, error)
	Verify(ctx context.Context, otpID, code string, actor *entity.User) (*entity.BatchOTP, error)
	Cancel(ctx context.Context, otpID string, actor *entity.User) error
	ActiveFor(ctx context.Context, actor *entity.User) (*entity.BatchOTP, error)
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

// OTPConfig tunes credential issuance
type OTPConfig struct {
	Validity    time.Duration
	MaxAttempts int
}

type otpServiceImpl struct {
	otpRepo port.OTPRepository
	config  OTPConfig
	logger  Logger
	now     func() time.Time
}

// NewOTPService creates a new OTPService
func NewOTPService(otpRepo port.OTPRepository, config OTPConfig, logger Logger) OTPService {
	if config.Validity <= 0 {
		config.Validity = entity.OTPValidity
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = entity.OTPMaxAttempts
	}
	return &otpServiceImpl{
		otpRepo: otpRepo,
		config:  config,
		logger:  logger,
		now:     time.Now,
	}
}

// Generate creates a credential bound to the actor and the exact expense set
func (s *otpServiceImpl) Generate(ctx context.Context, req OTPIssue) (*IssuedOTP, error) {
	code, err := payment.GenerateCode()
	if err != nil {
		return nil, err
	}

	now := s.now()
	otp := &entity.BatchOTP{
		ID:           uuid.NewString(),
		CodeHash:     entity.HashOTPCode(code),
		UserID:       req.Actor.ID,
		ExpenseIDs:   req.ExpenseIDs,
		Purpose:      entity.OTPPurposeBatchPayment,
		ExpiresAt:    now.Add(s.config.Validity),
		MaxAttempts:  s.config.MaxAttempts,
		TotalAmount:  req.TotalAmount,
		ExpenseCount: len(req.ExpenseIDs),
		IPAddress:    req.Meta.IPAddress,
		UserAgent:    req.Meta.UserAgent,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.otpRepo.Create(ctx, otp); err != nil {
		s.logger.Error("Failed to store batch OTP", "user_id", req.Actor.ID, "error", err)
		return nil, fmt.Errorf("create otp: %w", err)
	}

	s.logger.Info("Batch OTP generated",
		"otp_id", otp.ID,
		"user_id", otp.UserID,
		"expense_count", otp.ExpenseCount,
		"expires_at", otp.ExpiresAt,
	)
	return &IssuedOTP{Code: code, OTP: otp}, nil
}

// Verify spends one attempt against the credential. On success the
// credential is used and returned; every failure maps to a payment error.
func (s *otpServiceImpl) Verify(ctx context.Context, otpID, code string, actor *entity.User) (*entity.BatchOTP, error) {
	otp, err := s.load(ctx, otpID, actor, "This OTP does not belong to you")
	if err != nil {
		return nil, err
	}

	now := s.now()
	switch otp.State(now) {
	case entity.OTPStateExpired:
		return nil, payment.OTPStatef("OTP has expired. Please generate a new OTP.")
	case entity.OTPStateUsed:
		return nil, payment.OTPStatef("OTP has already been used.")
	case entity.OTPStateLocked:
		if !otp.IsUsed {
			if _, err := s.otpRepo.MarkUsed(ctx, otp.ID, entity.OTPReasonLocked, now); err != nil {
				return nil, fmt.Errorf("lock otp: %w", err)
			}
		}
		return nil, payment.OTPStatef("Maximum OTP attempts exceeded. Please generate a new OTP.")
	}

	recorded, err := s.otpRepo.RecordAttempt(ctx, otp.ID)
	if err != nil {
		return nil, fmt.Errorf("record otp attempt: %w", err)
	}
	if !recorded {
		return nil, payment.OTPStatef("OTP has already been used.")
	}

	res := otp.Attempt(code, now)
	switch {
	case res.Matched:
		won, err := s.otpRepo.MarkUsed(ctx, otp.ID, entity.OTPReasonVerified, now)
		if err != nil {
			return nil, fmt.Errorf("mark otp used: %w", err)
		}
		if !won {
			return nil, payment.OTPStatef("OTP has already been used.")
		}
		s.logger.Info("Batch OTP verified", "otp_id", otp.ID, "user_id", actor.ID, "attempts", otp.Attempts)
		return otp, nil

	case res.Locked:
		if _, err := s.otpRepo.MarkUsed(ctx, otp.ID, entity.OTPReasonLocked, now); err != nil {
			return nil, fmt.Errorf("lock otp: %w", err)
		}
		s.logger.Info("Batch OTP locked after failed attempts", "otp_id", otp.ID, "user_id", actor.ID)
	}

	return nil, payment.OTPStatef("Invalid OTP. %d attempts remaining.", res.Remaining)
}

// Cancel invalidates an unused, unexpired credential owned by actor
func (s *otpServiceImpl) Cancel(ctx context.Context, otpID string, actor *entity.User) error {
	otp, err := s.load(ctx, otpID, actor, "You can only cancel your own OTPs")
	if err != nil {
		return err
	}

	now := s.now()
	switch otp.State(now) {
	case entity.OTPStateExpired:
		return payment.OTPStatef("OTP has expired. Please generate a new OTP.")
	case entity.OTPStateUsed, entity.OTPStateLocked:
		return payment.OTPStatef("Cannot cancel an already used OTP")
	}

	ok, err := s.otpRepo.MarkUsed(ctx, otp.ID, entity.OTPReasonCancelled, now)
	if err != nil {
		return fmt.Errorf("cancel otp: %w", err)
	}
	if !ok {
		return payment.OTPStatef("Cannot cancel an already used OTP")
	}

	s.logger.Info("Batch OTP cancelled", "otp_id", otp.ID, "user_id", actor.ID)
	return nil
}

// ActiveFor returns the newest usable credential of actor, or nil
func (s *otpServiceImpl) ActiveFor(ctx context.Context, actor *entity.User) (*entity.BatchOTP, error) {
	otp, err := s.otpRepo.GetActive(ctx, actor.ID, entity.OTPPurposeBatchPayment, s.now())
	if err != nil {
		return nil, fmt.Errorf("get active otp: %w", err)
	}
	return otp, nil
}

// SweepExpired deletes every credential that expired before now
func (s *otpServiceImpl) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.otpRepo.DeleteExpired(ctx, now)
	if err != nil {
		s.logger.Error("Failed to sweep expired OTPs", "error", err)
		return 0, fmt.Errorf("delete expired otps: %w", err)
	}
	if n > 0 {
		s.logger.Info("Expired OTPs swept", "deleted", n)
	}
	return n, nil
}

func (s *otpServiceImpl) load(ctx context.Context, otpID string, actor *entity.User, foreignMsg string) (*entity.BatchOTP, error) {
	if otpID == "" {
		return nil, payment.Validationf("OTP ID is required")
	}

	otp, err := s.otpRepo.GetByID(ctx, otpID)
	if err != nil {
		return nil, fmt.Errorf("get otp: %w", err)
	}
	if otp == nil {
		return nil, payment.NotFoundf("Invalid OTP request")
	}
	if otp.UserID != actor.ID {
		s.logger.Info("Rejected OTP access by non-owner", "otp_id", otpID, "user_id", actor.ID)
		return nil, payment.Forbiddenf("%s", foreignMsg)
	}
	return otp, nil
}

var _ OTPService = (*otpServiceImpl)(nil)
