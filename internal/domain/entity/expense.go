package entity

import "time"

// Expense represents a submitted expense as seen by the payment subsystem
type Expense struct {
	ID                 int64           `json:"id"`
	ExpenseNumber      string          `json:"expense_number"`
	Amount             float64         `json:"amount"`
	Status             string          `json:"status"`
	SubmittedBy        int64           `json:"submitted_by"`
	SiteID             *int64          `json:"site_id,omitempty"`
	PaymentAmount      *float64        `json:"payment_amount,omitempty"`
	PaymentDate        *time.Time      `json:"payment_date,omitempty"`
	PaymentProcessedBy *int64          `json:"payment_processed_by,omitempty"`
	PaymentDetails     *PaymentDetails `json:"payment_details,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`

	// Populated by joins; not owned by the expenses table
	Submitter *User  `json:"submitter,omitempty"`
	SiteName  string `json:"site_name,omitempty"`

	// NewComments holds comments appended during the current mutation
	NewComments []*ExpenseComment `json:"-"`
}

// PaymentDetails is the free-form settlement metadata stored with an expense
type PaymentDetails struct {
	UTRNumber     string    `json:"utrNumber"`
	PaymentMethod string    `json:"paymentMethod"`
	ProcessedAt   time.Time `json:"processedAt"`
	BatchPayment  bool      `json:"batchPayment"`
	OTPID         string    `json:"otpId,omitempty"`
}

// ExpenseComment is an entry in an expense's append-only comment log
type ExpenseComment struct {
	ID         int64     `json:"id"`
	ExpenseID  int64     `json:"expense_id"`
	UserID     int64     `json:"user_id"`
	Text       string    `json:"text"`
	IsInternal bool      `json:"is_internal"`
	CreatedAt  time.Time `json:"created_at"`
}

// User is the subset of user data the payment subsystem reads
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role"`
}

// Site is an operating site that aggregates expense statistics
type Site struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Code          string    `json:"code"`
	TotalExpenses float64   `json:"total_expenses"`
	TotalPaid     float64   `json:"total_paid"`
	PaymentCount  int       `json:"payment_count"`
	UpdatedAt     time.Time `json:"updated_at"`
}
