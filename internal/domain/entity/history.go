package entity

import "time"

// ApprovalHistory is one audit trail entry for an action taken on an expense
type ApprovalHistory struct {
	ID            int64      `json:"id"`
	ExpenseID     int64      `json:"expense_id"`
	ApproverID    int64      `json:"approver_id"`
	Action        string     `json:"action"`
	Level         int        `json:"level"`
	Comments      string     `json:"comments"`
	PaymentAmount float64    `json:"payment_amount"`
	PaymentDate   *time.Time `json:"payment_date,omitempty"`
	IPAddress     string     `json:"ip_address,omitempty"`
	UserAgent     string     `json:"user_agent,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// RequestMeta carries request provenance recorded in audit entries
type RequestMeta struct {
	IPAddress string
	UserAgent string
}
