package service

import (
	"context"
	"sync"
	"time"

	"github.com/garyjia/expense-batchpay/internal/application/port"
	"github.com/garyjia/expense-batchpay/internal/domain/entity"
)

type mockExpenseRepo struct {
	mu       sync.Mutex
	expenses map[int64]*entity.Expense
	saved    []*entity.Expense

	saveSettlementFunc func(ctx context.Context, expense *entity.Expense) error
}

func newMockExpenseRepo(expenses ...*entity.Expense) *mockExpenseRepo {
	m := &mockExpenseRepo{expenses: make(map[int64]*entity.Expense)}
	for _, e := range expenses {
		m.expenses[e.ID] = e
	}
	return m
}

func (m *mockExpenseRepo) FindEligibleByIDs(ctx context.Context, ids []int64) ([]*entity.Expense, error) {
	all, _ := m.FindByIDs(ctx, ids)
	var out []*entity.Expense
	for _, e := range all {
		if entity.IsEligibleForPayment(e.Status) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockExpenseRepo) FindByIDs(ctx context.Context, ids []int64) ([]*entity.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Expense
	for _, id := range ids {
		if e, ok := m.expenses[id]; ok {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockExpenseRepo) SaveSettlement(ctx context.Context, expense *entity.Expense) error {
	if m.saveSettlementFunc != nil {
		if err := m.saveSettlementFunc(ctx, expense); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expenses[expense.ID] = expense
	m.saved = append(m.saved, expense)
	return nil
}

func (m *mockExpenseRepo) status(id int64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expenses[id].Status
}

type mockHistoryRepo struct {
	mu      sync.Mutex
	entries []*entity.ApprovalHistory
}

func (m *mockHistoryRepo) Create(ctx context.Context, history *entity.ApprovalHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, history)
	return nil
}

func (m *mockHistoryRepo) GetByExpenseID(ctx context.Context, expenseID int64) ([]*entity.ApprovalHistory, error) {
	return nil, nil
}

type mockSiteRepo struct {
	updateStatisticsFunc func(ctx context.Context, siteID int64, amount float64, isPayment bool) error
	calls                int
}

func (m *mockSiteRepo) UpdateStatistics(ctx context.Context, siteID int64, amount float64, isPayment bool) error {
	m.calls++
	if m.updateStatisticsFunc != nil {
		return m.updateStatisticsFunc(ctx, siteID, amount, isPayment)
	}
	return nil
}

func (m *mockSiteRepo) GetByID(ctx context.Context, id int64) (*entity.Site, error) {
	return nil, nil
}

type mockLedgerRepo struct {
	entries    []*entity.BatchPayment
	createFunc func(ctx context.Context, payment *entity.BatchPayment) error
	countFunc  func(ctx context.Context, userID int64) (int64, error)
	listFunc   func(ctx context.Context, userID int64, limit, offset int) ([]*entity.BatchPayment, error)
}

func (m *mockLedgerRepo) Create(ctx context.Context, payment *entity.BatchPayment) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, payment)
	}
	payment.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, payment)
	return nil
}

func (m *mockLedgerRepo) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*entity.BatchPayment, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, userID, limit, offset)
	}
	return m.entries, nil
}

func (m *mockLedgerRepo) CountByUser(ctx context.Context, userID int64) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx, userID)
	}
	return int64(len(m.entries)), nil
}

// mockOTPRepo keeps credentials in memory with the same conditional
// update rules as the SQLite repository.
type mockOTPRepo struct {
	mu   sync.Mutex
	otps map[string]*entity.BatchOTP

	recordAttemptFunc func(ctx context.Context, id string) (bool, error)
}

func newMockOTPRepo() *mockOTPRepo {
	return &mockOTPRepo{otps: make(map[string]*entity.BatchOTP)}
}

func (m *mockOTPRepo) Create(ctx context.Context, otp *entity.BatchOTP) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *otp
	m.otps[otp.ID] = &cp
	return nil
}

func (m *mockOTPRepo) GetByID(ctx context.Context, id string) (*entity.BatchOTP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	otp, ok := m.otps[id]
	if !ok {
		return nil, nil
	}
	cp := *otp
	return &cp, nil
}

func (m *mockOTPRepo) RecordAttempt(ctx context.Context, id string) (bool, error) {
	if m.recordAttemptFunc != nil {
		return m.recordAttemptFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	otp, ok := m.otps[id]
	if !ok || otp.IsUsed || otp.Attempts >= otp.MaxAttempts {
		return false, nil
	}
	otp.Attempts++
	return true, nil
}

func (m *mockOTPRepo) MarkUsed(ctx context.Context, id string, reason string, usedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	otp, ok := m.otps[id]
	if !ok || otp.IsUsed {
		return false, nil
	}
	otp.IsUsed = true
	otp.UsedAt = &usedAt
	otp.InvalidatedReason = reason
	return true, nil
}

func (m *mockOTPRepo) GetActive(ctx context.Context, userID int64, purpose string, now time.Time) (*entity.BatchOTP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *entity.BatchOTP
	for _, otp := range m.otps {
		if otp.UserID != userID || otp.Purpose != purpose || otp.IsUsed || !otp.ExpiresAt.After(now) {
			continue
		}
		if best == nil || otp.CreatedAt.After(best.CreatedAt) {
			best = otp
		}
	}
	return best, nil
}

func (m *mockOTPRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, otp := range m.otps {
		if otp.ExpiresAt.Before(now) {
			delete(m.otps, id)
			n++
		}
	}
	return n, nil
}

func (m *mockOTPRepo) stored(id string) *entity.BatchOTP {
	otp, _ := m.GetByID(context.Background(), id)
	return otp
}

func (m *mockOTPRepo) expire(id string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.otps[id].ExpiresAt = at
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockEmailSender struct {
	mu       sync.Mutex
	sent     []port.EmailMessage
	sendFunc func(ctx context.Context, msg port.EmailMessage) error
}

func (m *mockEmailSender) Send(ctx context.Context, msg port.EmailMessage) error {
	if m.sendFunc != nil {
		if err := m.sendFunc(ctx, msg); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mockEmailSender) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type smsRecord struct {
	phone string
	text  string
}

type mockSMSSender struct {
	mu       sync.Mutex
	sent     []smsRecord
	sendFunc func(ctx context.Context, phone, text string) error
}

func (m *mockSMSSender) Send(ctx context.Context, phone, text string) error {
	if m.sendFunc != nil {
		if err := m.sendFunc(ctx, phone, text); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, smsRecord{phone: phone, text: text})
	return nil
}

func (m *mockSMSSender) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type mockPublisher struct {
	mu          sync.Mutex
	messages    []port.RealtimeMessage
	publishFunc func(ctx context.Context, msg port.RealtimeMessage) error
}

func (m *mockPublisher) Publish(ctx context.Context, msg port.RealtimeMessage) error {
	m.mu.Lock()
	m.messages = append(m.messages, msg)
	m.mu.Unlock()
	if m.publishFunc != nil {
		return m.publishFunc(ctx, msg)
	}
	return nil
}

func (m *mockPublisher) events() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.messages))
	for _, msg := range m.messages {
		out = append(out, msg.Event+"@"+msg.Channel)
	}
	return out
}

type mockAuthorizer struct{}

func (m *mockAuthorizer) Authorize(role, resource, action string) (bool, error) {
	for _, r := range entity.PaymentRoles {
		if r == role {
			return resource == ResourceBatchPayments && action == ActionProcess, nil
		}
	}
	return false, nil
}

type mockExporter struct {
	exported []*entity.BatchPayment
}

func (m *mockExporter) Export(entries []*entity.BatchPayment) ([]byte, error) {
	m.exported = entries
	return []byte("xlsx"), nil
}

type mockLogger struct {
	mu     sync.Mutex
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

func (m *mockLogger) errorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}
