package billing

import "strings"

// Category is the closed set of payment failure classes. Every raw
// processor error maps to exactly one category with fixed retry and
// display semantics.
type Category string

const (
	CategoryCardDeclined      Category = "card_declined"
	CategoryInsufficientFunds Category = "insufficient_funds"
	CategoryExpiredCard       Category = "expired_card"
	CategoryIncorrectCVC      Category = "incorrect_cvc"
	CategoryProcessingError   Category = "processing_error"
	CategoryNetworkError      Category = "network_error"
	CategoryRateLimit         Category = "rate_limit_error"
	CategoryTemporaryFailure  Category = "temporary_failure"
	CategoryUnknown           Category = "unknown_error"
)

// Action is a user-facing next step offered after a payment failure.
type Action string

const (
	ActionRetry      Action = "retry"
	ActionChangeCard Action = "change_card"
)

// CategoryInfo carries the fixed retry flag and user-facing copy for a
// category. The UI layer renders Title/Message/Actions verbatim.
type CategoryInfo struct {
	Retryable bool
	Title     string
	Message   string
	Actions   []Action
}

// classifyRule matches a raw error message by case-insensitive substring.
// Rules are evaluated in order; the first hit wins.
type classifyRule struct {
	substrings []string
	category   Category
}

// classifyRules is the priority-ordered classification table. Order
// matters: "card declined due to connection reset" is a decline, not a
// network error.
var classifyRules = []classifyRule{
	{[]string{"declined"}, CategoryCardDeclined},
	{[]string{"insufficient"}, CategoryInsufficientFunds},
	{[]string{"expired"}, CategoryExpiredCard},
	{[]string{"cvc", "security code"}, CategoryIncorrectCVC},
	{[]string{"network", "connection"}, CategoryNetworkError},
	{[]string{"processing"}, CategoryProcessingError},
	{[]string{"rate limit", "too many requests"}, CategoryRateLimit},
	{[]string{"temporarily unavailable", "try again later"}, CategoryTemporaryFailure},
}

var categoryInfo = map[Category]CategoryInfo{
	CategoryCardDeclined: {
		Retryable: false,
		Title:     "Card Declined",
		Message:   "Your card was declined. Please try a different payment method.",
		Actions:   []Action{ActionChangeCard},
	},
	CategoryInsufficientFunds: {
		Retryable: false,
		Title:     "Insufficient Funds",
		Message:   "Your card has insufficient funds. Please use a different card or top up your account.",
		Actions:   []Action{ActionChangeCard, ActionRetry},
	},
	CategoryExpiredCard: {
		Retryable: false,
		Title:     "Card Expired",
		Message:   "Your card has expired. Please update your card details.",
		Actions:   []Action{ActionChangeCard},
	},
	CategoryIncorrectCVC: {
		Retryable: false,
		Title:     "Incorrect Security Code",
		Message:   "The security code you entered is incorrect. Please check and try again.",
		Actions:   []Action{ActionRetry, ActionChangeCard},
	},
	CategoryProcessingError: {
		Retryable: true,
		Title:     "Processing Error",
		Message:   "We could not process your payment. This is usually temporary.",
		Actions:   []Action{ActionRetry},
	},
	CategoryNetworkError: {
		Retryable: true,
		Title:     "Connection Problem",
		Message:   "We could not reach the payment service. Check your connection and try again.",
		Actions:   []Action{ActionRetry},
	},
	CategoryRateLimit: {
		Retryable: true,
		Title:     "Too Many Attempts",
		Message:   "Too many payment attempts in a short time. Please wait a moment.",
		Actions:   []Action{ActionRetry},
	},
	CategoryTemporaryFailure: {
		Retryable: true,
		Title:     "Temporary Failure",
		Message:   "The payment service is temporarily unavailable. Please try again shortly.",
		Actions:   []Action{ActionRetry},
	},
	CategoryUnknown: {
		Retryable: false,
		Title:     "Payment Failed",
		Message:   "Something went wrong with your payment. Please try again or contact support.",
		Actions:   []Action{ActionRetry},
	},
}

// Classify maps a raw error to its category by case-insensitive substring
// match over the priority-ordered rule table. A nil error or an error with
// no matching rule classifies as unknown.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}

	msg := strings.ToLower(err.Error())
	for _, rule := range classifyRules {
		for _, sub := range rule.substrings {
			if strings.Contains(msg, sub) {
				return rule.category
			}
		}
	}
	return CategoryUnknown
}

// Info returns the fixed retry flag and display copy for a category.
// Unknown categories fall back to the unknown_error entry.
func (c Category) Info() CategoryInfo {
	if info, ok := categoryInfo[c]; ok {
		return info
	}
	return categoryInfo[CategoryUnknown]
}

// Retryable reports whether failures in this category may be retried
// automatically without user action.
func (c Category) Retryable() bool {
	return c.Info().Retryable
}

// IsRetryable classifies err and reports whether it may be auto-retried.
func IsRetryable(err error) bool {
	return Classify(err).Retryable()
}
