package entity

// Expense status constants
const (
	ExpenseStatusDraft            = "draft"
	ExpenseStatusSubmitted        = "submitted"
	ExpenseStatusApprovedL1       = "approved_l1"
	ExpenseStatusApprovedL2       = "approved_l2"
	ExpenseStatusApprovedL3       = "approved_l3"
	ExpenseStatusApprovedFinance  = "approved_finance"
	ExpenseStatusApproved         = "approved"
	ExpenseStatusRejected         = "rejected"
	ExpenseStatusPaymentProcessed = "payment_processed"
)

// EligibleForPayment lists the statuses from which a batch settlement may move an expense.
var EligibleForPayment = []string{
	ExpenseStatusApproved,
	ExpenseStatusApprovedL3,
	ExpenseStatusApprovedFinance,
}

// IsEligibleForPayment reports whether status permits payment settlement
func IsEligibleForPayment(status string) bool {
	for _, s := range EligibleForPayment {
		if s == status {
			return true
		}
	}
	return false
}

// User role constants
const (
	RoleSubmitter  = "submitter"
	RoleL1Approver = "l1_approver"
	RoleL2Approver = "l2_approver"
	RoleL3Approver = "l3_approver"
	RoleFinance    = "finance"
	RoleAdmin      = "admin"
)

// PaymentRoles are the roles allowed to run batch settlements
var PaymentRoles = []string{RoleFinance, RoleL3Approver}

// Approval history constants
const (
	ActionPaymentProcessed = "payment_processed"

	// ApprovalLevelFinance is the level recorded for settlement actions
	ApprovalLevelFinance = 4
)

// Payment method tags stored in settlement details
const (
	PaymentMethodBankTransfer = "manual_bank_transfer"
	PaymentMethodOTPVerified  = "otp_verified"
)

// OTP purpose constants
const (
	OTPPurposeBatchPayment  = "batch_payment"
	OTPPurposeBatchApproval = "batch_approval"
)

// OTP invalidation reasons
const (
	OTPReasonVerified  = "verified"
	OTPReasonLocked    = "locked"
	OTPReasonCancelled = "cancelled"
)
