package service

import (
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/garyjia/expense-batchpay/internal/domain/payment"
)

const (
	maxRemarksLength   = 500
	maxReferenceLength = 64
)

var strictPolicy = bluemonday.StrictPolicy()

// cleanRemarks strips markup, trims and caps operator remarks
func cleanRemarks(raw string) string {
	s := strings.TrimSpace(strictPolicy.Sanitize(raw))
	if utf8.RuneCountInString(s) > maxRemarksLength {
		s = string([]rune(s)[:maxRemarksLength])
	}
	return s
}

// cleanReference validates an operator-asserted bank reference
func cleanReference(raw string) (string, error) {
	s := strings.TrimSpace(strictPolicy.Sanitize(raw))
	if s == "" {
		return "", payment.Validationf("UTR number is required")
	}
	if utf8.RuneCountInString(s) > maxReferenceLength {
		return "", payment.Validationf("UTR number must be at most %d characters", maxReferenceLength)
	}
	return s, nil
}
