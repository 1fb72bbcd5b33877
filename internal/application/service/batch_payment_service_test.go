package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/expense-batchpay/internal/application/dispatcher"
	"github.com/garyjia/expense-batchpay/internal/application/port"
	"github.com/garyjia/expense-batchpay/internal/domain/entity"
	"github.com/garyjia/expense-batchpay/internal/domain/event"
	"github.com/garyjia/expense-batchpay/internal/domain/payment"
)

var financeUser = &entity.User{ID: 900, Name: "fin officer", Email: "fin@example.com", Phone: "+919800000000", Role: entity.RoleFinance}

type batchFixture struct {
	svc        BatchPaymentService
	otp        OTPService
	expenses   *mockExpenseRepo
	history    *mockHistoryRepo
	sites      *mockSiteRepo
	ledger     *mockLedgerRepo
	tx         *mockTxManager
	otps       *mockOTPRepo
	email      *mockEmailSender
	sms        *mockSMSSender
	publisher  *mockPublisher
	exporter   *mockExporter
	dispatcher dispatcher.Dispatcher
	logger     *mockLogger
}

func newBatchFixture(t *testing.T, expenses ...*entity.Expense) *batchFixture {
	t.Helper()

	f := &batchFixture{
		expenses:  newMockExpenseRepo(expenses...),
		history:   &mockHistoryRepo{},
		sites:     &mockSiteRepo{},
		ledger:    &mockLedgerRepo{},
		tx:        &mockTxManager{},
		otps:      newMockOTPRepo(),
		email:     &mockEmailSender{},
		sms:       &mockSMSSender{},
		publisher: &mockPublisher{},
		exporter:  &mockExporter{},
		logger:    &mockLogger{},
	}

	f.dispatcher = dispatcher.NewDispatcher(dispatcher.WithLogger(f.logger))
	notifier := NewNotificationService(f.email, f.sms, f.logger)
	broadcaster := NewBroadcastService(f.publisher, f.logger)
	f.dispatcher.Subscribe(event.TypeBatchSettled, "realtime-broadcast", broadcaster.HandleBatchSettled)
	f.dispatcher.Subscribe(event.TypeBatchSettled, "notification-fanout", notifier.HandleBatchSettled)

	f.otp = NewOTPService(f.otps, OTPConfig{}, f.logger)
	f.svc = NewBatchPaymentService(BatchPaymentDeps{
		ExpenseRepo: f.expenses,
		HistoryRepo: f.history,
		SiteRepo:    f.sites,
		LedgerRepo:  f.ledger,
		TxManager:   f.tx,
		OTPService:  f.otp,
		Notifier:    notifier,
		Broadcaster: broadcaster,
		Authorizer:  &mockAuthorizer{},
		Exporter:    f.exporter,
		Dispatcher:  f.dispatcher,
	}, f.logger)

	return f
}

// drain waits for deferred work
func (f *batchFixture) drain(t *testing.T) {
	t.Helper()
	require.NoError(t, f.dispatcher.Close(context.Background()))
}

// cancelAfterFirstCommit makes the fixture's transactions and ledger behave
// like database/sql on a cancelled context, and cancels after one commit.
func (f *batchFixture) cancelAfterFirstCommit(cancel context.CancelFunc) {
	commits := 0
	f.tx.withTransactionFunc = func(ctx context.Context, fn func(ctx context.Context) error) error {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		if err := fn(ctx); err != nil {
			return err
		}
		commits++
		if commits == 1 {
			cancel()
		}
		return nil
	}
	f.ledger.createFunc = func(ctx context.Context, p *entity.BatchPayment) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.ID = int64(len(f.ledger.entries) + 1)
		f.ledger.entries = append(f.ledger.entries, p)
		return nil
	}
}

func testExpense(id int64, status string, amount float64) *entity.Expense {
	site := int64(1)
	return &entity.Expense{
		ID:            id,
		ExpenseNumber: "EXP-2026-" + string(rune('0'+id)),
		Amount:        amount,
		Status:        status,
		SubmittedBy:   id * 10,
		SiteID:        &site,
		SiteName:      "Pune",
		Submitter: &entity.User{
			ID:    id * 10,
			Name:  "submitter",
			Email: "sub@example.com",
			Phone: "+910000000000",
		},
	}
}

func TestBatchPaymentService_SettleDirect(t *testing.T) {
	t.Run("one persistence failure among three", func(t *testing.T) {
		f := newBatchFixture(t,
			testExpense(1, entity.ExpenseStatusApproved, 100),
			testExpense(2, entity.ExpenseStatusApprovedL3, 200),
			testExpense(3, entity.ExpenseStatusApprovedFinance, 300),
		)
		f.expenses.saveSettlementFunc = func(ctx context.Context, e *entity.Expense) error {
			if e.ID == 2 {
				return errors.New("disk full")
			}
			return nil
		}

		res, err := f.svc.SettleDirect(context.Background(), DirectSettlement{
			Actor:      financeUser,
			ExpenseIDs: []int64{1, 2, 3},
			UTRNumber:  "  UTR0001  ",
			Remarks:    "<b>March</b> payout",
		})
		require.NoError(t, err)
		f.drain(t)

		assert.Equal(t, 2, res.TotalProcessed)
		assert.Equal(t, 1, res.TotalFailed)
		assert.Equal(t, 400.0, res.TotalAmount)
		assert.Equal(t, "UTR0001", res.UTRNumber)
		require.Len(t, res.Failed, 1)
		assert.Equal(t, int64(2), res.Failed[0].ExpenseID)
		assert.Contains(t, res.Failed[0].Reason, "disk full")

		require.Len(t, f.ledger.entries, 1)
		entry := f.ledger.entries[0]
		assert.Equal(t, 2, entry.ExpenseCount)
		assert.Equal(t, 400.0, entry.TotalAmount)
		assert.Equal(t, []int64{1, 3}, entry.ExpenseIDs)
		require.NotNil(t, entry.PaymentRemarks)
		assert.Equal(t, "March payout", *entry.PaymentRemarks)
		assert.Equal(t, entry.ID, res.BatchPaymentID)

		assert.Len(t, f.history.entries, 2)
		assert.Equal(t, 2, f.sites.calls)
		assert.Equal(t, entity.ExpenseStatusPaymentProcessed, f.expenses.status(1))
		assert.Equal(t, entity.ExpenseStatusApprovedL3, f.expenses.status(2))

		assert.Equal(t, 2, f.email.count())
		assert.Equal(t, 2, f.sms.count())
		assert.Equal(t, []string{
			"expense_payment_processed@user-10",
			"expense_payment_processed@user-30",
			"batch-payment-completed@role-finance",
			"batch-payment-completed@role-l3_approver",
			"dashboard-update@",
		}, f.publisher.events())
	})

	t.Run("ineligible ids are excluded from both lists", func(t *testing.T) {
		f := newBatchFixture(t,
			testExpense(1, entity.ExpenseStatusApproved, 10),
			testExpense(2, entity.ExpenseStatusSubmitted, 20),
			testExpense(3, entity.ExpenseStatusPaymentProcessed, 30),
		)

		res, err := f.svc.SettleDirect(context.Background(), DirectSettlement{
			Actor:      financeUser,
			ExpenseIDs: []int64{1, 2, 3, 1},
			UTRNumber:  "UTR2",
		})
		require.NoError(t, err)
		f.drain(t)

		assert.Equal(t, 1, res.TotalProcessed+res.TotalFailed)
		assert.Equal(t, 10.0, f.ledger.entries[0].TotalAmount)
		assert.Nil(t, f.ledger.entries[0].PaymentRemarks)
	})

	t.Run("site statistics failure rolls back that record", func(t *testing.T) {
		f := newBatchFixture(t, testExpense(1, entity.ExpenseStatusApproved, 10))
		f.sites.updateStatisticsFunc = func(ctx context.Context, siteID int64, amount float64, isPayment bool) error {
			return errors.New("site locked")
		}

		res, err := f.svc.SettleDirect(context.Background(), DirectSettlement{
			Actor: financeUser, ExpenseIDs: []int64{1}, UTRNumber: "UTR3",
		})
		require.NoError(t, err)
		f.drain(t)

		assert.Equal(t, 0, res.TotalProcessed)
		assert.Equal(t, 1, res.TotalFailed)
		assert.Empty(t, f.ledger.entries)
		assert.Empty(t, f.publisher.events())
	})

	t.Run("ledger failure still returns result", func(t *testing.T) {
		f := newBatchFixture(t, testExpense(1, entity.ExpenseStatusApproved, 10))
		f.ledger.createFunc = func(ctx context.Context, p *entity.BatchPayment) error {
			return errors.New("ledger down")
		}

		res, err := f.svc.SettleDirect(context.Background(), DirectSettlement{
			Actor: financeUser, ExpenseIDs: []int64{1}, UTRNumber: "UTR4",
		})
		require.NoError(t, err)
		f.drain(t)

		assert.Equal(t, 1, res.TotalProcessed)
		assert.Zero(t, res.BatchPaymentID)
		assert.Positive(t, f.logger.errorCount())
	})

	t.Run("client cancellation does not interrupt settlement", func(t *testing.T) {
		f := newBatchFixture(t,
			testExpense(1, entity.ExpenseStatusApproved, 100),
			testExpense(2, entity.ExpenseStatusApproved, 200),
			testExpense(3, entity.ExpenseStatusApproved, 300),
		)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		f.cancelAfterFirstCommit(cancel)

		res, err := f.svc.SettleDirect(ctx, DirectSettlement{
			Actor: financeUser, ExpenseIDs: []int64{1, 2, 3}, UTRNumber: "UTR-CANCEL",
		})
		require.NoError(t, err)
		f.drain(t)

		require.Error(t, ctx.Err())
		assert.Equal(t, 3, res.TotalProcessed)
		assert.Empty(t, res.Failed)
		require.Len(t, f.ledger.entries, 1)
		assert.Equal(t, []int64{1, 2, 3}, f.ledger.entries[0].ExpenseIDs)
		assert.Equal(t, 600.0, f.ledger.entries[0].TotalAmount)
		assert.Equal(t, f.ledger.entries[0].ID, res.BatchPaymentID)
	})

	t.Run("stalled mail server does not hold back realtime events", func(t *testing.T) {
		f := newBatchFixture(t,
			testExpense(1, entity.ExpenseStatusApproved, 10),
			testExpense(2, entity.ExpenseStatusApproved, 20),
		)
		release := make(chan struct{})
		f.email.sendFunc = func(ctx context.Context, msg port.EmailMessage) error {
			<-release
			return nil
		}

		_, err := f.svc.SettleDirect(context.Background(), DirectSettlement{
			Actor: financeUser, ExpenseIDs: []int64{1, 2}, UTRNumber: "UTR-SLOW",
		})
		require.NoError(t, err)

		// two per-submitter events, two role summaries, one dashboard update
		assert.Eventually(t, func() bool {
			return len(f.publisher.events()) == 5
		}, time.Second, 5*time.Millisecond)
		assert.Zero(t, f.email.count())

		close(release)
		f.drain(t)
		assert.Equal(t, 2, f.email.count())
	})

	t.Run("notification failures do not change the result", func(t *testing.T) {
		f := newBatchFixture(t, testExpense(1, entity.ExpenseStatusApproved, 10))
		f.sms.sendFunc = func(ctx context.Context, phone, text string) error {
			return errors.New("gateway timeout")
		}

		res, err := f.svc.SettleDirect(context.Background(), DirectSettlement{
			Actor: financeUser, ExpenseIDs: []int64{1}, UTRNumber: "UTR5",
		})
		require.NoError(t, err)
		f.drain(t)

		assert.Equal(t, 1, res.TotalProcessed)
		assert.Equal(t, 1, f.email.count())
		assert.Equal(t, 0, f.sms.count())
	})

	validationCases := []struct {
		name    string
		req     DirectSettlement
		wantErr error
	}{
		{name: "empty id list", req: DirectSettlement{Actor: financeUser, UTRNumber: "U"}, wantErr: payment.ErrValidation},
		{name: "zero id", req: DirectSettlement{Actor: financeUser, ExpenseIDs: []int64{0}, UTRNumber: "U"}, wantErr: payment.ErrValidation},
		{name: "blank utr", req: DirectSettlement{Actor: financeUser, ExpenseIDs: []int64{1}, UTRNumber: "   "}, wantErr: payment.ErrValidation},
		{name: "no eligible", req: DirectSettlement{Actor: financeUser, ExpenseIDs: []int64{42}, UTRNumber: "U"}, wantErr: payment.ErrNotFound},
		{name: "wrong role", req: DirectSettlement{Actor: &entity.User{ID: 1, Role: entity.RoleSubmitter}, ExpenseIDs: []int64{1}, UTRNumber: "U"}, wantErr: payment.ErrForbidden},
	}
	for _, tt := range validationCases {
		t.Run(tt.name, func(t *testing.T) {
			f := newBatchFixture(t, testExpense(1, entity.ExpenseStatusApproved, 10))

			_, err := f.svc.SettleDirect(context.Background(), tt.req)
			f.drain(t)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.expenses.saved)
			assert.Empty(t, f.ledger.entries)
			assert.Empty(t, f.publisher.events())
		})
	}
}

func TestBatchPaymentService_GenerateOTP(t *testing.T) {
	t.Run("delivery text follows the configured policy", func(t *testing.T) {
		f := newBatchFixture(t, testExpense(1, entity.ExpenseStatusApproved, 500))
		svc := NewBatchPaymentService(BatchPaymentDeps{
			ExpenseRepo: f.expenses,
			HistoryRepo: f.history,
			SiteRepo:    f.sites,
			LedgerRepo:  f.ledger,
			TxManager:   f.tx,
			OTPService:  NewOTPService(f.otps, OTPConfig{Validity: 10 * time.Minute, MaxAttempts: 5}, f.logger),
			Notifier:    NewNotificationService(f.email, f.sms, f.logger),
			Broadcaster: NewBroadcastService(f.publisher, f.logger),
			Authorizer:  &mockAuthorizer{},
			Exporter:    f.exporter,
			Dispatcher:  f.dispatcher,
		}, f.logger)

		grant, err := svc.GenerateOTP(context.Background(), financeUser, []int64{1}, entity.RequestMeta{})
		require.NoError(t, err)
		assert.Equal(t, "10 minutes", grant.ValidFor)

		require.Equal(t, 1, f.email.count())
		assert.Contains(t, f.email.sent[0].TextBody, "This OTP expires in 10 minutes.")
		assert.Contains(t, f.email.sent[0].TextBody, "You have 5 attempts")
		require.Equal(t, 1, f.sms.count())
		assert.Contains(t, f.sms.sent[0].text, "Valid for 10 minutes")
	})

	t.Run("two eligible expenses", func(t *testing.T) {
		f := newBatchFixture(t,
			testExpense(1, entity.ExpenseStatusApproved, 500),
			testExpense(2, entity.ExpenseStatusApprovedL3, 700),
		)
		before := time.Now()

		grant, err := f.svc.GenerateOTP(context.Background(), financeUser, []int64{1, 2}, entity.RequestMeta{IPAddress: "1.2.3.4"})
		require.NoError(t, err)

		assert.Equal(t, 2, grant.ExpenseCount)
		assert.Equal(t, 1200.0, grant.TotalAmount)
		assert.Equal(t, "5 minutes", grant.ValidFor)
		assert.WithinDuration(t, before.Add(5*time.Minute), grant.ExpiresAt, time.Second)

		stored := f.otps.stored(grant.OTPID)
		require.NotNil(t, stored)
		assert.Equal(t, []int64{1, 2}, stored.ExpenseIDs)
		assert.Equal(t, 1200.0, stored.TotalAmount)
		assert.Equal(t, "1.2.3.4", stored.IPAddress)
		assert.Len(t, stored.CodeHash, 64)

		assert.Equal(t, 1, f.email.count())
		assert.Equal(t, 1, f.sms.count())
		assert.Equal(t, []string{"batch-otp-generated@user-900"}, f.publisher.events())
	})

	t.Run("partial eligibility creates nothing", func(t *testing.T) {
		f := newBatchFixture(t,
			testExpense(1, entity.ExpenseStatusApproved, 500),
			testExpense(2, entity.ExpenseStatusRejected, 700),
		)

		_, err := f.svc.GenerateOTP(context.Background(), financeUser, []int64{1, 2}, entity.RequestMeta{})
		require.ErrorIs(t, err, payment.ErrValidation)
		assert.Equal(t, "Only 1 out of 2 expenses are eligible for payment", err.Error())
		assert.Empty(t, f.otps.otps)
		assert.Zero(t, f.email.count())
	})

	t.Run("none eligible", func(t *testing.T) {
		f := newBatchFixture(t, testExpense(1, entity.ExpenseStatusDraft, 1))
		_, err := f.svc.GenerateOTP(context.Background(), financeUser, []int64{1}, entity.RequestMeta{})
		assert.ErrorIs(t, err, payment.ErrNotFound)
	})

	t.Run("delivery failure still returns the grant", func(t *testing.T) {
		f := newBatchFixture(t, testExpense(1, entity.ExpenseStatusApproved, 1))
		f.email.sendFunc = func(ctx context.Context, msg port.EmailMessage) error {
			return errors.New("smtp refused")
		}
		f.sms.sendFunc = func(ctx context.Context, phone, text string) error {
			return errors.New("gateway down")
		}

		grant, err := f.svc.GenerateOTP(context.Background(), financeUser, []int64{1}, entity.RequestMeta{})
		require.NoError(t, err)
		assert.NotEmpty(t, grant.OTPID)
		assert.Positive(t, f.logger.errorCount())
	})
}

func TestBatchPaymentService_VerifyAndSettle(t *testing.T) {
	issue := func(t *testing.T, f *batchFixture, ids ...int64) *IssuedOTP {
		t.Helper()
		issued, err := f.otp.Generate(context.Background(), OTPIssue{Actor: financeUser, ExpenseIDs: ids})
		require.NoError(t, err)
		return issued
	}

	t.Run("settles the stored set", func(t *testing.T) {
		f := newBatchFixture(t,
			testExpense(1, entity.ExpenseStatusApproved, 100),
			testExpense(2, entity.ExpenseStatusApproved, 50),
			testExpense(3, entity.ExpenseStatusApproved, 25),
		)
		issued := issue(t, f, 1, 2)

		res, err := f.svc.VerifyAndSettle(context.Background(), OTPSettlement{
			Actor: financeUser, OTPID: issued.OTP.ID, Code: issued.Code, Remarks: "ok",
		})
		require.NoError(t, err)
		f.drain(t)

		assert.Equal(t, 2, res.TotalProcessed)
		assert.Equal(t, 150.0, res.TotalAmount)
		assert.Equal(t, "OTP-"+issued.OTP.ID, res.UTRNumber)
		assert.Equal(t, issued.OTP.ID, res.OTPID)
		assert.Equal(t, entity.ExpenseStatusApproved, f.expenses.status(3))

		require.Len(t, f.ledger.entries, 1)
		assert.Equal(t, "OTP-"+issued.OTP.ID, f.ledger.entries[0].UTRNumber)

		saved := f.expenses.saved[0]
		assert.Equal(t, entity.PaymentMethodOTPVerified, saved.PaymentDetails.PaymentMethod)
		assert.Equal(t, issued.OTP.ID, saved.PaymentDetails.OTPID)

		stored := f.otps.stored(issued.OTP.ID)
		assert.True(t, stored.IsUsed)
		assert.Equal(t, entity.OTPReasonVerified, stored.InvalidatedReason)
	})

	t.Run("client cancellation after verification", func(t *testing.T) {
		f := newBatchFixture(t,
			testExpense(1, entity.ExpenseStatusApproved, 100),
			testExpense(2, entity.ExpenseStatusApproved, 50),
		)
		issued := issue(t, f, 1, 2)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		f.cancelAfterFirstCommit(cancel)

		res, err := f.svc.VerifyAndSettle(ctx, OTPSettlement{
			Actor: financeUser, OTPID: issued.OTP.ID, Code: issued.Code,
		})
		require.NoError(t, err)
		f.drain(t)

		assert.Equal(t, 2, res.TotalProcessed)
		require.Len(t, f.ledger.entries, 1)
		assert.Equal(t, 2, f.ledger.entries[0].ExpenseCount)
		assert.True(t, f.otps.stored(issued.OTP.ID).IsUsed)
	})

	t.Run("status drift is reported per record", func(t *testing.T) {
		f := newBatchFixture(t,
			testExpense(1, entity.ExpenseStatusApproved, 100),
			testExpense(2, entity.ExpenseStatusApproved, 50),
		)
		issued := issue(t, f, 1, 2)
		f.expenses.expenses[2].Status = entity.ExpenseStatusPaymentProcessed

		res, err := f.svc.VerifyAndSettle(context.Background(), OTPSettlement{
			Actor: financeUser, OTPID: issued.OTP.ID, Code: issued.Code,
		})
		require.NoError(t, err)
		f.drain(t)

		assert.Equal(t, 1, res.TotalProcessed)
		require.Len(t, res.Failed, 1)
		assert.Equal(t, "Invalid status: payment_processed", res.Failed[0].Reason)
	})

	t.Run("second verification fails", func(t *testing.T) {
		f := newBatchFixture(t, testExpense(1, entity.ExpenseStatusApproved, 100))
		issued := issue(t, f, 1)
		req := OTPSettlement{Actor: financeUser, OTPID: issued.OTP.ID, Code: issued.Code}

		_, err := f.svc.VerifyAndSettle(context.Background(), req)
		require.NoError(t, err)

		_, err = f.svc.VerifyAndSettle(context.Background(), req)
		f.drain(t)
		require.ErrorIs(t, err, payment.ErrOTPState)
		assert.Equal(t, "OTP has already been used.", err.Error())
		assert.Len(t, f.ledger.entries, 1)
	})

	t.Run("missing fields", func(t *testing.T) {
		f := newBatchFixture(t)
		_, err := f.svc.VerifyAndSettle(context.Background(), OTPSettlement{Actor: financeUser, OTPID: "x"})
		assert.ErrorIs(t, err, payment.ErrValidation)
	})
}

func TestBatchPaymentService_ActiveOTP(t *testing.T) {
	ctx := context.Background()
	f := newBatchFixture(t,
		testExpense(1, entity.ExpenseStatusApproved, 500),
		testExpense(2, entity.ExpenseStatusApproved, 700),
	)

	none, err := f.svc.ActiveOTP(ctx, financeUser)
	require.NoError(t, err)
	assert.Nil(t, none)

	grant, err := f.svc.GenerateOTP(ctx, financeUser, []int64{1, 2}, entity.RequestMeta{})
	require.NoError(t, err)

	active, err := f.svc.ActiveOTP(ctx, financeUser)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, grant.OTPID, active.OTPID)
	assert.ElementsMatch(t, []int64{1, 2}, active.ExpenseIDs)
	assert.Equal(t, 1200.0, active.TotalAmount)
	assert.Equal(t, 3, active.AttemptsRemaining)

	require.NoError(t, f.svc.CancelOTP(ctx, financeUser, grant.OTPID))
	active, err = f.svc.ActiveOTP(ctx, financeUser)
	require.NoError(t, err)
	assert.Nil(t, active)

	_, err = f.svc.ActiveOTP(ctx, &entity.User{ID: 3, Role: entity.RoleSubmitter})
	assert.ErrorIs(t, err, payment.ErrForbidden)
	f.drain(t)
}

func TestBatchPaymentService_History(t *testing.T) {
	f := newBatchFixture(t)
	var gotLimit, gotOffset int
	f.ledger.countFunc = func(ctx context.Context, userID int64) (int64, error) { return 120, nil }
	f.ledger.listFunc = func(ctx context.Context, userID int64, limit, offset int) ([]*entity.BatchPayment, error) {
		gotLimit, gotOffset = limit, offset
		return nil, nil
	}

	tests := []struct {
		name       string
		page       int
		limit      int
		wantLimit  int
		wantOffset int
		wantPages  int64
	}{
		{name: "defaults", page: 0, limit: 0, wantLimit: 50, wantOffset: 0, wantPages: 3},
		{name: "second page", page: 2, limit: 50, wantLimit: 50, wantOffset: 50, wantPages: 3},
		{name: "limit capped", page: 1, limit: 1000, wantLimit: 100, wantOffset: 0, wantPages: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.svc.History(context.Background(), financeUser, tt.page, tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLimit, gotLimit)
			assert.Equal(t, tt.wantOffset, gotOffset)
			assert.Equal(t, int64(120), res.Pagination.Total)
			assert.Equal(t, tt.wantPages, res.Pagination.Pages)
			assert.NotNil(t, res.BatchPayments)
		})
	}
}

func TestBatchPaymentService_ExportHistory(t *testing.T) {
	f := newBatchFixture(t)
	f.ledger.entries = []*entity.BatchPayment{{ID: 1, UTRNumber: "U1"}, {ID: 2, UTRNumber: "U2"}}

	data, err := f.svc.ExportHistory(context.Background(), financeUser)
	require.NoError(t, err)
	assert.Equal(t, []byte("xlsx"), data)
	assert.Len(t, f.exporter.exported, 2)
}
