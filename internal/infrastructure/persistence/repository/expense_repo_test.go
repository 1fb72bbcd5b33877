package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/expense-batchpay/internal/domain/entity"
)

func TestExpenseRepository_Find(t *testing.T) {
	db, _ := setupTestDB(t)
	repo := NewExpenseRepository(db, zap.NewNop())
	ctx := context.Background()

	alice := seedUser(t, db, "alice", "alice@example.com", "+911111111111", entity.RoleSubmitter)
	bob := seedUser(t, db, "bob", "bob@example.com", "", entity.RoleSubmitter)
	pune := seedSite(t, db, "Pune", "PUN")

	e1 := seedExpense(t, db, "EXP-001", 500, entity.ExpenseStatusApproved, alice, &pune)
	e2 := seedExpense(t, db, "EXP-002", 700, entity.ExpenseStatusApprovedFinance, bob, nil)
	e3 := seedExpense(t, db, "EXP-003", 90, entity.ExpenseStatusSubmitted, bob, nil)
	e4 := seedExpense(t, db, "EXP-004", 10, entity.ExpenseStatusPaymentProcessed, bob, nil)

	eligible, err := repo.FindEligibleByIDs(ctx, []int64{e4, e3, e2, e1, 999})
	require.NoError(t, err)
	require.Len(t, eligible, 2)
	assert.Equal(t, e1, eligible[0].ID)
	assert.Equal(t, e2, eligible[1].ID)

	first := eligible[0]
	assert.Equal(t, "EXP-001", first.ExpenseNumber)
	require.NotNil(t, first.Submitter)
	assert.Equal(t, "alice", first.Submitter.Name)
	assert.Equal(t, "+911111111111", first.Submitter.Phone)
	assert.Equal(t, "Pune", first.SiteName)
	require.NotNil(t, first.SiteID)
	assert.Equal(t, pune, *first.SiteID)
	assert.Nil(t, first.PaymentDetails)

	assert.Empty(t, eligible[1].Submitter.Phone)
	assert.Nil(t, eligible[1].SiteID)

	all, err := repo.FindByIDs(ctx, []int64{e3, e4})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, entity.ExpenseStatusSubmitted, all[0].Status)

	none, err := repo.FindByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestExpenseRepository_SaveSettlement(t *testing.T) {
	db, txm := setupTestDB(t)
	repo := NewExpenseRepository(db, zap.NewNop())
	ctx := context.Background()

	alice := seedUser(t, db, "alice", "alice@example.com", "", entity.RoleSubmitter)
	fin := seedUser(t, db, "fin", "fin@example.com", "", entity.RoleFinance)
	id := seedExpense(t, db, "EXP-010", 250.5, entity.ExpenseStatusApproved, alice, nil)

	loaded, err := repo.FindByIDs(ctx, []int64{id})
	require.NoError(t, err)
	e := loaded[0]

	paidAt := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	amount := e.Amount
	e.Status = entity.ExpenseStatusPaymentProcessed
	e.PaymentAmount = &amount
	e.PaymentDate = &paidAt
	e.PaymentProcessedBy = &fin
	e.UpdatedAt = paidAt
	e.PaymentDetails = &entity.PaymentDetails{
		UTRNumber:     "UTR123",
		PaymentMethod: entity.PaymentMethodBankTransfer,
		ProcessedAt:   paidAt,
		BatchPayment:  true,
	}
	e.NewComments = []*entity.ExpenseComment{{UserID: fin, Text: "Batch Payment (UTR: UTR123): March", IsInternal: true}}

	require.NoError(t, repo.SaveSettlement(ctx, e))
	assert.NotZero(t, e.NewComments[0].ID)

	reloaded, err := repo.FindByIDs(ctx, []int64{id})
	require.NoError(t, err)
	got := reloaded[0]
	assert.Equal(t, entity.ExpenseStatusPaymentProcessed, got.Status)
	require.NotNil(t, got.PaymentAmount)
	assert.Equal(t, 250.5, *got.PaymentAmount)
	require.NotNil(t, got.PaymentDate)
	assert.True(t, paidAt.Equal(*got.PaymentDate))
	require.NotNil(t, got.PaymentDetails)
	assert.Equal(t, "UTR123", got.PaymentDetails.UTRNumber)
	assert.True(t, got.PaymentDetails.BatchPayment)
	assert.Equal(t, 1, countRows(t, db, `SELECT COUNT(*) FROM expense_comments WHERE expense_id = ? AND is_internal = 1`, id))

	t.Run("already settled", func(t *testing.T) {
		again := *got
		again.NewComments = nil
		err := repo.SaveSettlement(ctx, &again)
		assert.ErrorContains(t, err, "payable expense not found")
		assert.Equal(t, 1, countRows(t, db, `SELECT COUNT(*) FROM expense_comments WHERE expense_id = ?`, id))
	})

	t.Run("unknown expense", func(t *testing.T) {
		err := repo.SaveSettlement(ctx, &entity.Expense{ID: 9999, Status: entity.ExpenseStatusPaymentProcessed})
		assert.Error(t, err)
	})

	t.Run("rolled back with the transaction", func(t *testing.T) {
		other := seedExpense(t, db, "EXP-011", 1, entity.ExpenseStatusApproved, alice, nil)
		boom := errors.New("site update failed")

		err := txm.WithTransaction(ctx, func(txCtx context.Context) error {
			require.NoError(t, repo.SaveSettlement(txCtx, &entity.Expense{
				ID:          other,
				Status:      entity.ExpenseStatusPaymentProcessed,
				NewComments: []*entity.ExpenseComment{{UserID: fin, Text: "x"}},
			}))
			return boom
		})
		assert.ErrorIs(t, err, boom)

		reloaded, err := repo.FindByIDs(ctx, []int64{other})
		require.NoError(t, err)
		assert.Equal(t, entity.ExpenseStatusApproved, reloaded[0].Status)
		assert.Zero(t, countRows(t, db, `SELECT COUNT(*) FROM expense_comments WHERE expense_id = ?`, other))
	})
}
