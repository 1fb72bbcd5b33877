package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/expense-batchpay/internal/application/port"
	"github.com/garyjia/expense-batchpay/internal/domain/entity"
	"github.com/garyjia/expense-batchpay/internal/domain/event"
)

// Real-time event names pushed to clients
const (
	RealtimeExpensePaid     = "expense_payment_processed"
	RealtimeBatchCompleted  = "batch-payment-completed"
	RealtimeDashboardUpdate = "dashboard-update"
	RealtimeOTPGenerated    = "batch-otp-generated"
)

// UserChannel is the private channel of one user
func UserChannel(userID int64) string {
	return fmt.Sprintf("user-%d", userID)
}

// RoleChannel is the shared channel of one role
func RoleChannel(role string) string {
	return "role-" + role
}

// BroadcastService pushes batch outcomes to connected clients
type BroadcastService interface {
	// BroadcastSettlement emits, in order, one per-expense event to each
	// submitter, the batch summary to the payment roles and a dashboard refresh.
	BroadcastSettlement(ctx context.Context, s *event.Settlement) error

	// AnnounceOTP tells the operator's own clients a credential was issued
	AnnounceOTP(ctx context.Context, otp *entity.BatchOTP) error

	HandleBatchSettled(ctx context.Context, evt *event.Event) error
}

type broadcastServiceImpl struct {
	publisher port.EventPublisher
	logger    Logger
}

// NewBroadcastService creates a new BroadcastService
func NewBroadcastService(publisher port.EventPublisher, logger Logger) BroadcastService {
	return &broadcastServiceImpl{
		publisher: publisher,
		logger:    logger,
	}
}

func (s *broadcastServiceImpl) HandleBatchSettled(ctx context.Context, evt *event.Event) error {
	if evt.Settlement == nil {
		return fmt.Errorf("event %s has no settlement", evt.ID)
	}
	return s.BroadcastSettlement(ctx, evt.Settlement)
}

func (s *broadcastServiceImpl) BroadcastSettlement(ctx context.Context, st *event.Settlement) error {
	processor := ""
	if st.Processor != nil {
		processor = st.Processor.Name
	}

	for _, exp := range st.Expenses {
		paidAt := st.SettledAt
		if exp.PaymentDate != nil {
			paidAt = *exp.PaymentDate
		}
		s.publish(ctx, port.RealtimeMessage{
			Channel: UserChannel(exp.SubmittedBy),
			Event:   RealtimeExpensePaid,
			Data: map[string]interface{}{
				"expenseNumber":   exp.ExpenseNumber,
				"amount":          exp.Amount,
				"paymentDate":     paidAt,
				"processedBy":     processor,
				"batchProcessing": true,
			},
		})
	}

	summary := map[string]interface{}{
		"processedCount": st.ProcessedCount(),
		"totalAmount":    st.TotalAmount,
		"failedCount":    st.FailedCount,
		"processedBy":    processor,
		"utrNumber":      st.Reference,
		"timestamp":      st.SettledAt,
	}
	for _, role := range entity.PaymentRoles {
		s.publish(ctx, port.RealtimeMessage{
			Channel: RoleChannel(role),
			Event:   RealtimeBatchCompleted,
			Data:    summary,
		})
	}

	s.publish(ctx, port.RealtimeMessage{
		Event: RealtimeDashboardUpdate,
		Data: map[string]interface{}{
			"type":      "batch_payment",
			"count":     st.ProcessedCount(),
			"timestamp": time.Now(),
		},
	})

	return nil
}

func (s *broadcastServiceImpl) AnnounceOTP(ctx context.Context, otp *entity.BatchOTP) error {
	return s.publisher.Publish(ctx, port.RealtimeMessage{
		Channel: UserChannel(otp.UserID),
		Event:   RealtimeOTPGenerated,
		Data: map[string]interface{}{
			"otpId":        otp.ID,
			"expenseCount": otp.ExpenseCount,
			"totalAmount":  otp.TotalAmount,
			"expiresAt":    otp.ExpiresAt,
		},
	})
}

// publish is fire-and-forget; a failed emit is logged and the sequence continues
func (s *broadcastServiceImpl) publish(ctx context.Context, msg port.RealtimeMessage) {
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.logger.Error("Failed to publish realtime event",
			"event", msg.Event,
			"channel", msg.Channel,
			"error", err,
		)
	}
}

var _ BroadcastService = (*broadcastServiceImpl)(nil)
