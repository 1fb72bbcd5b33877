package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOTP(now time.Time) *BatchOTP {
	return &BatchOTP{
		ID:          "otp-1",
		CodeHash:    HashOTPCode("123456"),
		UserID:      10,
		ExpenseIDs:  []int64{1, 2, 3},
		Purpose:     OTPPurposeBatchPayment,
		ExpiresAt:   now.Add(OTPValidity),
		MaxAttempts: OTPMaxAttempts,
		CreatedAt:   now,
	}
}

func TestHashOTPCode(t *testing.T) {
	h := HashOTPCode("123456")
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashOTPCode("123456"))
	assert.NotEqual(t, h, HashOTPCode("123457"))
}

func TestBatchOTP_State(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		mutate func(o *BatchOTP)
		at     time.Time
		want   OTPState
	}{
		{name: "fresh", mutate: func(o *BatchOTP) {}, at: now, want: OTPStateActive},
		{name: "exactly at expiry", mutate: func(o *BatchOTP) {}, at: now.Add(OTPValidity), want: OTPStateActive},
		{name: "past expiry", mutate: func(o *BatchOTP) {}, at: now.Add(OTPValidity + time.Second), want: OTPStateExpired},
		{name: "used", mutate: func(o *BatchOTP) { o.markUsed(now, OTPReasonVerified) }, at: now, want: OTPStateUsed},
		{name: "cancelled reads as used", mutate: func(o *BatchOTP) { o.Cancel(now) }, at: now, want: OTPStateUsed},
		{name: "locked", mutate: func(o *BatchOTP) { o.Lock(now) }, at: now, want: OTPStateLocked},
		{name: "attempts exhausted", mutate: func(o *BatchOTP) { o.Attempts = 3 }, at: now, want: OTPStateLocked},
		{name: "expired wins over used", mutate: func(o *BatchOTP) { o.markUsed(now, OTPReasonVerified) }, at: now.Add(time.Hour), want: OTPStateExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newTestOTP(now)
			tt.mutate(o)
			assert.Equal(t, tt.want, o.State(tt.at))
		})
	}
}

func TestBatchOTP_Attempt(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("match marks verified", func(t *testing.T) {
		o := newTestOTP(now)
		res := o.Attempt("123456", now)

		assert.True(t, res.Matched)
		assert.Equal(t, 1, o.Attempts)
		assert.True(t, o.IsUsed)
		require.NotNil(t, o.UsedAt)
		assert.Equal(t, OTPReasonVerified, o.InvalidatedReason)
		assert.Equal(t, OTPStateUsed, o.State(now))
	})

	t.Run("mismatches count down then lock", func(t *testing.T) {
		o := newTestOTP(now)

		res := o.Attempt("000000", now)
		assert.False(t, res.Matched)
		assert.Equal(t, 2, res.Remaining)
		assert.False(t, res.Locked)

		res = o.Attempt("000000", now)
		assert.Equal(t, 1, res.Remaining)
		assert.False(t, o.IsUsed)

		res = o.Attempt("000000", now)
		assert.True(t, res.Locked)
		assert.Equal(t, 3, o.Attempts)
		assert.Equal(t, OTPStateLocked, o.State(now))
	})

	t.Run("third attempt is still compared", func(t *testing.T) {
		o := newTestOTP(now)
		o.Attempt("000000", now)
		o.Attempt("000000", now)

		res := o.Attempt("123456", now)
		assert.True(t, res.Matched)
		assert.Equal(t, OTPReasonVerified, o.InvalidatedReason)
	})
}
