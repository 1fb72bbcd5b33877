package http

import (
	"context"
	"errors"
	"sync"

	"github.com/garyjia/expense-batchpay/internal/application/service"
	"github.com/garyjia/expense-batchpay/internal/domain/entity"
	"github.com/garyjia/expense-batchpay/internal/infrastructure/auth"
)

type mockBatchPayments struct {
	settleDirectFunc    func(ctx context.Context, req service.DirectSettlement) (*service.BatchResult, error)
	generateOTPFunc     func(ctx context.Context, actor *entity.User, ids []int64, meta entity.RequestMeta) (*service.OTPGrant, error)
	verifyAndSettleFunc func(ctx context.Context, req service.OTPSettlement) (*service.BatchResult, error)
	cancelOTPFunc       func(ctx context.Context, actor *entity.User, otpID string) error
	activeOTPFunc       func(ctx context.Context, actor *entity.User) (*service.ActiveOTP, error)
	historyFunc         func(ctx context.Context, actor *entity.User, page, limit int) (*service.HistoryPage, error)
	exportHistoryFunc   func(ctx context.Context, actor *entity.User) ([]byte, error)
}

func (m *mockBatchPayments) SettleDirect(ctx context.Context, req service.DirectSettlement) (*service.BatchResult, error) {
	return m.settleDirectFunc(ctx, req)
}

func (m *mockBatchPayments) GenerateOTP(ctx context.Context, actor *entity.User, ids []int64, meta entity.RequestMeta) (*service.OTPGrant, error) {
	return m.generateOTPFunc(ctx, actor, ids, meta)
}

func (m *mockBatchPayments) VerifyAndSettle(ctx context.Context, req service.OTPSettlement) (*service.BatchResult, error) {
	return m.verifyAndSettleFunc(ctx, req)
}

func (m *mockBatchPayments) CancelOTP(ctx context.Context, actor *entity.User, otpID string) error {
	return m.cancelOTPFunc(ctx, actor, otpID)
}

func (m *mockBatchPayments) ActiveOTP(ctx context.Context, actor *entity.User) (*service.ActiveOTP, error) {
	return m.activeOTPFunc(ctx, actor)
}

func (m *mockBatchPayments) History(ctx context.Context, actor *entity.User, page, limit int) (*service.HistoryPage, error) {
	return m.historyFunc(ctx, actor, page, limit)
}

func (m *mockBatchPayments) ExportHistory(ctx context.Context, actor *entity.User) ([]byte, error) {
	return m.exportHistoryFunc(ctx, actor)
}

// mockTokens accepts "token-<n>" for every user id n in users
type mockTokens struct {
	tokens map[string]int64
}

func (m *mockTokens) Verify(token string) (*auth.Claims, error) {
	id, ok := m.tokens[token]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return &auth.Claims{UserID: id}, nil
}

type mockUsers struct {
	users map[int64]*entity.User
	err   error
}

func (m *mockUsers) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.users[id], nil
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

var errBoom = errors.New("boom")
