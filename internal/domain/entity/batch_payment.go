package entity

import "time"

// BatchPayment is an immutable ledger entry for one completed settlement batch
type BatchPayment struct {
	ID             int64     `json:"id"`
	UTRNumber      string    `json:"utr_number"`
	UserID         int64     `json:"user_id"`
	ExpenseIDs     []int64   `json:"expense_ids"`
	TotalAmount    float64   `json:"total_amount"`
	ExpenseCount   int       `json:"expense_count"`
	PaymentRemarks *string   `json:"payment_remarks,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
