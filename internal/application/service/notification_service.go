package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/expense-batchpay/internal/application/port"
	"github.com/garyjia/expense-batchpay/internal/domain/entity"
	"github.com/garyjia/expense-batchpay/internal/domain/event"
)

// NotificationService fans payment notices out over email and SMS
type NotificationService interface {
	// NotifySettlement tells every submitter of a settled batch that they were paid.
	// Channel failures are logged per recipient and never returned.
	NotifySettlement(ctx context.Context, s *event.Settlement) error

	// SendOTP delivers a batch credential to its operator. The returned error
	// is non-nil only when no channel accepted the code.
	SendOTP(ctx context.Context, operator *entity.User, notice OTPNotice) error

	// HandleBatchSettled adapts NotifySettlement to the dispatcher
	HandleBatchSettled(ctx context.Context, evt *event.Event) error
}

// OTPNotice is the content of a credential delivery
type OTPNotice struct {
	Code         string
	ExpenseCount int
	TotalAmount  float64
	ValidFor     time.Duration
	MaxAttempts  int
}

type notificationServiceImpl struct {
	email  port.EmailSender
	sms    port.SMSSender
	logger Logger
}

// NewNotificationService creates a new NotificationService. sms may be nil
// when no gateway is configured.
func NewNotificationService(email port.EmailSender, sms port.SMSSender, logger Logger) NotificationService {
	return &notificationServiceImpl{
		email:  email,
		sms:    sms,
		logger: logger,
	}
}

func (s *notificationServiceImpl) HandleBatchSettled(ctx context.Context, evt *event.Event) error {
	if evt.Settlement == nil {
		return fmt.Errorf("event %s has no settlement", evt.ID)
	}
	return s.NotifySettlement(ctx, evt.Settlement)
}

func (s *notificationServiceImpl) NotifySettlement(ctx context.Context, st *event.Settlement) error {
	var emailed, texted int

	for _, exp := range st.Expenses {
		submitter := exp.Submitter
		if submitter == nil {
			s.logger.Error("Settled expense has no submitter", "expense_id", exp.ID)
			continue
		}

		if submitter.Email != "" {
			if err := s.email.Send(ctx, paymentProcessedEmail(submitter, exp)); err != nil {
				s.logger.Error("Failed to send payment email",
					"expense_number", exp.ExpenseNumber,
					"user_id", submitter.ID,
					"error", err,
				)
			} else {
				emailed++
			}
		}

		if submitter.Phone != "" && s.sms != nil {
			if err := s.sms.Send(ctx, submitter.Phone, paymentProcessedSMS(exp)); err != nil {
				s.logger.Error("Failed to send payment SMS",
					"expense_number", exp.ExpenseNumber,
					"user_id", submitter.ID,
					"error", err,
				)
			} else {
				texted++
			}
		}
	}

	s.logger.Info("Payment notifications sent",
		"reference", st.Reference,
		"expenses", len(st.Expenses),
		"emails", emailed,
		"sms", texted,
	)
	return nil
}

func (s *notificationServiceImpl) SendOTP(ctx context.Context, operator *entity.User, n OTPNotice) error {
	delivered := 0

	if operator.Email != "" {
		if err := s.email.Send(ctx, batchOTPEmail(operator, n)); err != nil {
			s.logger.Error("Failed to email batch OTP", "user_id", operator.ID, "error", err)
		} else {
			delivered++
		}
	}

	if operator.Phone != "" && s.sms != nil {
		text := fmt.Sprintf("Your batch payment OTP is %s for %d expenses. Valid for %s. Do not share it with anyone.",
			n.Code, n.ExpenseCount, humanDuration(n.ValidFor))
		if err := s.sms.Send(ctx, operator.Phone, text); err != nil {
			s.logger.Error("Failed to text batch OTP", "user_id", operator.ID, "error", err)
		} else {
			delivered++
		}
	}

	if delivered == 0 {
		return fmt.Errorf("otp for user %d was not delivered on any channel", operator.ID)
	}
	return nil
}

func paymentProcessedEmail(to *entity.User, exp *entity.Expense) port.EmailMessage {
	amount := formatINR(exp.Amount)

	siteLine, siteHTML := "", ""
	if exp.SiteName != "" {
		siteLine = "Site: " + exp.SiteName + "\n"
		siteHTML = fmt.Sprintf("<p><strong>Site:</strong> %s</p>", exp.SiteName)
	}

	text := fmt.Sprintf(`PAYMENT PROCESSED

Hello %s,

Your payment has been processed.

Expense Number: %s
Amount: %s
%s
Your expense has been successfully processed and the payment will be credited to your account soon.

Finance Team
`, displayName(to.Name), exp.ExpenseNumber, amount, siteLine)

	html := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h1>Payment Processed</h1>
  <p>Hello %s,</p>
  <p>Your payment has been processed.</p>
  <p><strong>Expense Number:</strong> %s</p>
  <p style="font-size: 24px; font-weight: bold; color: #28a745;">%s</p>
  %s
  <p>Your expense has been successfully processed and the payment will be credited to your account soon.</p>
  <p>Finance Team</p>
</body>
</html>`, displayName(to.Name), exp.ExpenseNumber, amount, siteHTML)

	return port.EmailMessage{
		To:       to.Email,
		Subject:  "Payment Processed - " + exp.ExpenseNumber,
		TextBody: text,
		HTMLBody: html,
	}
}

func paymentProcessedSMS(exp *entity.Expense) string {
	return fmt.Sprintf("Payment of %s for expense %s has been processed.", formatINR(exp.Amount), exp.ExpenseNumber)
}

func batchOTPEmail(to *entity.User, n OTPNotice) port.EmailMessage {
	amount := formatINR(n.TotalAmount)
	validFor := humanDuration(n.ValidFor)

	text := fmt.Sprintf(`BATCH PAYMENT OTP

Hello %s,

You have requested to process a batch payment.

Number of Expenses: %d
Total Amount: %s
Valid For: %s

YOUR OTP CODE: %s

Do NOT share this OTP with anyone.
This OTP expires in %s.
You have %d attempts to enter the correct OTP.

If you did not request this OTP, please contact your system administrator immediately.
Generated at %s
`, displayName(to.Name), n.ExpenseCount, amount, validFor, n.Code, validFor, n.MaxAttempts, time.Now().Format(time.RFC1123))

	html := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h1>Batch Payment OTP</h1>
  <p>Hello %s,</p>
  <p>You have requested to process a batch payment of <strong>%d</strong> expenses totalling <strong>%s</strong>.</p>
  <p style="font-size: 32px; letter-spacing: 8px; font-weight: bold;">%s</p>
  <ul>
    <li>Do NOT share this OTP with anyone</li>
    <li>This OTP expires in %s</li>
    <li>You have %d attempts to enter the correct OTP</li>
  </ul>
  <p>If you did not request this OTP, please contact your system administrator immediately.</p>
</body>
</html>`, displayName(to.Name), n.ExpenseCount, amount, n.Code, validFor, n.MaxAttempts)

	return port.EmailMessage{
		To:       to.Email,
		Subject:  fmt.Sprintf("Batch Payment OTP - %d Expenses", n.ExpenseCount),
		TextBody: text,
		HTMLBody: html,
	}
}

var _ NotificationService = (*notificationServiceImpl)(nil)
