package billing_test

import (
	"errors"
	"testing"

	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/billing"
	"github.com/stretchr/testify/assert"
)

func Test_Classify_Categories(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		expected billing.Category
	}{
		{"declined", "Your card was declined", billing.CategoryCardDeclined},
		{"declined uppercase", "CARD DECLINED BY ISSUER", billing.CategoryCardDeclined},
		{"insufficient funds", "insufficient funds on account", billing.CategoryInsufficientFunds},
		{"expired", "your card has expired", billing.CategoryExpiredCard},
		{"cvc", "invalid CVC provided", billing.CategoryIncorrectCVC},
		{"security code", "the security code is incorrect", billing.CategoryIncorrectCVC},
		{"network", "network error while contacting gateway", billing.CategoryNetworkError},
		{"connection", "connection reset by peer", billing.CategoryNetworkError},
		{"processing", "an error occurred while processing your card", billing.CategoryProcessingError},
		{"rate limit", "rate limit exceeded", billing.CategoryRateLimit},
		{"temporary", "service temporarily unavailable", billing.CategoryTemporaryFailure},
		{"unknown", "something strange happened", billing.CategoryUnknown},
		{"empty", "", billing.CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := billing.Classify(errors.New(tt.message))
			assert.Equal(t, tt.expected, got)
		})
	}
}

func Test_Classify_PriorityOrder(t *testing.T) {
	// A decline that mentions the network is still a decline: rules are
	// evaluated in table order and the first hit wins.
	err := errors.New("card declined after network timeout")
	assert.Equal(t, billing.CategoryCardDeclined, billing.Classify(err))

	// An expiry that mentions processing is still an expiry.
	err = errors.New("processing halted: card expired")
	assert.Equal(t, billing.CategoryExpiredCard, billing.Classify(err))
}

func Test_Classify_NilError(t *testing.T) {
	assert.Equal(t, billing.CategoryUnknown, billing.Classify(nil))
}

func Test_Classify_ProcessorError(t *testing.T) {
	// Classification reads the full error text, so a wrapped
	// ProcessorError classifies by its message.
	err := &billing.ProcessorError{Message: "Your card was declined.", Code: "card_declined"}
	assert.Equal(t, billing.CategoryCardDeclined, billing.Classify(err))
}

func Test_Category_Retryable(t *testing.T) {
	retryable := []billing.Category{
		billing.CategoryNetworkError,
		billing.CategoryProcessingError,
		billing.CategoryRateLimit,
		billing.CategoryTemporaryFailure,
	}
	for _, c := range retryable {
		assert.True(t, c.Retryable(), "%s should be retryable", c)
	}

	terminal := []billing.Category{
		billing.CategoryCardDeclined,
		billing.CategoryInsufficientFunds,
		billing.CategoryExpiredCard,
		billing.CategoryIncorrectCVC,
		billing.CategoryUnknown,
	}
	for _, c := range terminal {
		assert.False(t, c.Retryable(), "%s should require user action", c)
	}
}

func Test_Category_Info(t *testing.T) {
	info := billing.CategoryCardDeclined.Info()
	assert.Equal(t, "Card Declined", info.Title)
	assert.NotEmpty(t, info.Message)
	assert.Contains(t, info.Actions, billing.ActionChangeCard)
	assert.False(t, info.Retryable)

	// Unknown categories fall back to the unknown_error entry.
	fallback := billing.Category("no_such_category").Info()
	assert.Equal(t, billing.CategoryUnknown.Info(), fallback)
}
