package entity

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"
)

const (
	// OTPValidity is how long a batch OTP stays usable after creation
	OTPValidity = 5 * time.Minute

	// OTPMaxAttempts is the verification budget of a batch OTP
	OTPMaxAttempts = 3
)

// OTPState is the derived lifecycle state of a batch OTP
type OTPState string

const (
	OTPStateActive  OTPState = "active"
	OTPStateExpired OTPState = "expired"
	OTPStateUsed    OTPState = "used"
	OTPStateLocked  OTPState = "locked"
)

// BatchOTP is a one-time code bound to one operator and one expense set
type BatchOTP struct {
	ID                string     `json:"id"`
	CodeHash          string     `json:"-"`
	UserID            int64      `json:"user_id"`
	ExpenseIDs        []int64    `json:"expense_ids"`
	Purpose           string     `json:"purpose"`
	IsUsed            bool       `json:"is_used"`
	UsedAt            *time.Time `json:"used_at,omitempty"`
	InvalidatedReason string     `json:"invalidated_reason,omitempty"`
	ExpiresAt         time.Time  `json:"expires_at"`
	Attempts          int        `json:"attempts"`
	MaxAttempts       int        `json:"max_attempts"`
	TotalAmount       float64    `json:"total_amount"`
	ExpenseCount      int        `json:"expense_count"`
	IPAddress         string     `json:"ip_address,omitempty"`
	UserAgent         string     `json:"user_agent,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// OTPAttempt is the outcome of one verification attempt
type OTPAttempt struct {
	Matched   bool
	Remaining int
	// Locked is set when this attempt used up the last try without matching
	Locked bool
}

// HashOTPCode returns the hex SHA-256 digest stored in place of a code
func HashOTPCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// State derives the credential state at the given instant.
// Expiry wins over every other state.
func (o *BatchOTP) State(now time.Time) OTPState {
	if now.After(o.ExpiresAt) {
		return OTPStateExpired
	}
	if o.IsUsed {
		if o.InvalidatedReason == OTPReasonLocked {
			return OTPStateLocked
		}
		return OTPStateUsed
	}
	if o.Attempts >= o.MaxAttempts {
		return OTPStateLocked
	}
	return OTPStateActive
}

// Attempt spends one try against the credential and compares the code.
// The caller must check State first; Attempt does not re-validate it.
func (o *BatchOTP) Attempt(code string, now time.Time) OTPAttempt {
	o.Attempts++
	o.UpdatedAt = now

	submitted := HashOTPCode(code)
	if subtle.ConstantTimeCompare([]byte(submitted), []byte(o.CodeHash)) == 1 {
		o.markUsed(now, OTPReasonVerified)
		return OTPAttempt{Matched: true, Remaining: o.MaxAttempts - o.Attempts}
	}

	remaining := o.MaxAttempts - o.Attempts
	if remaining <= 0 {
		o.markUsed(now, OTPReasonLocked)
		return OTPAttempt{Locked: true}
	}
	return OTPAttempt{Remaining: remaining}
}

// Lock invalidates the credential after its attempt budget is spent
func (o *BatchOTP) Lock(now time.Time) {
	o.markUsed(now, OTPReasonLocked)
}

// Cancel invalidates an unused credential without settling anything
func (o *BatchOTP) Cancel(now time.Time) {
	o.markUsed(now, OTPReasonCancelled)
}

func (o *BatchOTP) markUsed(now time.Time, reason string) {
	o.IsUsed = true
	o.UsedAt = &now
	o.InvalidatedReason = reason
	o.UpdatedAt = now
}
