// Package payment holds the pure rules of batch settlement: input
// normalisation, the per-expense transition and the fold that partitions a
// batch into processed and failed records.
package payment

import (
	"fmt"
	"time"

	"github.com/garyjia/expense-batchpay/internal/domain/entity"
)

// Proof describes what authorises a settlement
type Proof struct {
	Reference string
	Method    string
	OTPID     string
}

// DirectProof is an operator-asserted bank reference
func DirectProof(utr string) Proof {
	return Proof{Reference: utr, Method: entity.PaymentMethodBankTransfer}
}

// OTPProof is a verified one-time credential
func OTPProof(otpID string) Proof {
	return Proof{Reference: "OTP-" + otpID, Method: entity.PaymentMethodOTPVerified, OTPID: otpID}
}

// IsOTP reports whether the proof came from a verified credential
func (p Proof) IsOTP() bool {
	return p.OTPID != ""
}

// Request is everything the transition of one batch needs besides the records
type Request struct {
	Proof   Proof
	Remarks string
	Actor   *entity.User
	Meta    entity.RequestMeta
	Now     time.Time
}

// ProcessedItem is one successfully settled expense in a batch result
type ProcessedItem struct {
	ExpenseID     int64   `json:"expenseId"`
	ExpenseNumber string  `json:"expenseNumber"`
	Amount        float64 `json:"amount"`
	SubmitterName string  `json:"submitterName"`
}

// FailedItem is one expense that could not be settled
type FailedItem struct {
	ExpenseID     int64  `json:"expenseId"`
	ExpenseNumber string `json:"expenseNumber"`
	Reason        string `json:"reason"`
}

// Outcome is the partition of a batch
type Outcome struct {
	Processed []ProcessedItem
	Failed    []FailedItem

	// Settled holds the committed records in processing order
	Settled []*entity.Expense
}

// TotalAmount is the sum of processed amounts
func (o *Outcome) TotalAmount() float64 {
	var total float64
	for _, p := range o.Processed {
		total += p.Amount
	}
	return total
}

// ProcessedIDs returns the identifiers of processed expenses in order
func (o *Outcome) ProcessedIDs() []int64 {
	ids := make([]int64, 0, len(o.Processed))
	for _, p := range o.Processed {
		ids = append(ids, p.ExpenseID)
	}
	return ids
}

// MaxBatchSize caps the number of expenses settled by one request
const MaxBatchSize = 500

// NormalizeIDs validates an expense ID list and collapses duplicates,
// keeping first-seen order.
func NormalizeIDs(ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, Validationf("Please provide at least one expense ID")
	}
	if len(ids) > MaxBatchSize {
		return nil, Validationf("A batch can contain at most %d expenses", MaxBatchSize)
	}

	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, Validationf("Invalid expense ID: %d", id)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

// CountEligible returns how many records are in a payable status
func CountEligible(expenses []*entity.Expense) int {
	n := 0
	for _, e := range expenses {
		if entity.IsEligibleForPayment(e.Status) {
			n++
		}
	}
	return n
}

// Apply returns the settled form of an expense without touching the input.
// An expense outside the eligible statuses yields an error.
func Apply(e *entity.Expense, req Request) (*entity.Expense, error) {
	if !entity.IsEligibleForPayment(e.Status) {
		return nil, fmt.Errorf("Invalid status: %s", e.Status)
	}

	settled := *e
	amount := e.Amount
	now := req.Now
	actorID := req.Actor.ID

	settled.Status = entity.ExpenseStatusPaymentProcessed
	settled.PaymentAmount = &amount
	settled.PaymentDate = &now
	settled.PaymentProcessedBy = &actorID
	settled.PaymentDetails = &entity.PaymentDetails{
		UTRNumber:     req.Proof.Reference,
		PaymentMethod: req.Proof.Method,
		ProcessedAt:   now,
		BatchPayment:  true,
		OTPID:         req.Proof.OTPID,
	}
	settled.UpdatedAt = now
	settled.NewComments = nil

	if req.Remarks != "" {
		settled.NewComments = []*entity.ExpenseComment{{
			ExpenseID:  e.ID,
			UserID:     actorID,
			Text:       commentText(req),
			IsInternal: true,
			CreatedAt:  now,
		}}
	}

	return &settled, nil
}

// HistoryEntry builds the audit record for a settled expense
func HistoryEntry(settled *entity.Expense, req Request) *entity.ApprovalHistory {
	now := req.Now
	return &entity.ApprovalHistory{
		ExpenseID:     settled.ID,
		ApproverID:    req.Actor.ID,
		Action:        entity.ActionPaymentProcessed,
		Level:         entity.ApprovalLevelFinance,
		Comments:      historyComment(req),
		PaymentAmount: settled.Amount,
		PaymentDate:   &now,
		IPAddress:     req.Meta.IPAddress,
		UserAgent:     req.Meta.UserAgent,
		CreatedAt:     now,
	}
}

// Fold walks the batch in order, applying and committing each record
// independently. A failing record never stops the walk.
func Fold(expenses []*entity.Expense, req Request, commit func(settled *entity.Expense) error) *Outcome {
	out := &Outcome{
		Processed: make([]ProcessedItem, 0, len(expenses)),
		Failed:    make([]FailedItem, 0),
	}

	for _, e := range expenses {
		settled, err := Apply(e, req)
		if err == nil {
			err = commit(settled)
		}
		if err != nil {
			out.Failed = append(out.Failed, FailedItem{
				ExpenseID:     e.ID,
				ExpenseNumber: e.ExpenseNumber,
				Reason:        err.Error(),
			})
			continue
		}

		submitterName := ""
		if e.Submitter != nil {
			submitterName = e.Submitter.Name
		}
		out.Processed = append(out.Processed, ProcessedItem{
			ExpenseID:     e.ID,
			ExpenseNumber: e.ExpenseNumber,
			Amount:        e.Amount,
			SubmitterName: submitterName,
		})
		out.Settled = append(out.Settled, settled)
	}

	return out
}

func commentText(req Request) string {
	if req.Proof.IsOTP() {
		return fmt.Sprintf("Batch Payment: %s", req.Remarks)
	}
	return fmt.Sprintf("Batch Payment (UTR: %s): %s", req.Proof.Reference, req.Remarks)
}

func historyComment(req Request) string {
	if req.Proof.IsOTP() {
		if req.Remarks != "" {
			return req.Remarks
		}
		return "Batch payment processed"
	}
	return fmt.Sprintf("Batch payment via bank transfer. UTR: %s", req.Proof.Reference)
}
