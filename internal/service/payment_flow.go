package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/billing"
	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/domain"
)

// FlowState is the coarse phase of an in-flight payment.
type FlowState string

const (
	FlowIdle           FlowState = "idle"
	FlowInitializing   FlowState = "initializing"
	FlowCreatingIntent FlowState = "creating_intent"
	FlowPaymentReady   FlowState = "payment_ready"
	FlowProcessing     FlowState = "processing"
	FlowRetrying       FlowState = "retrying"
	FlowComplete       FlowState = "complete"
)

// Percent maps a state to its reported progress. States outside the
// happy path report the last known milestone.
func (s FlowState) Percent() int {
	switch s {
	case FlowInitializing:
		return 10
	case FlowCreatingIntent:
		return 30
	case FlowPaymentReady:
		return 50
	case FlowProcessing, FlowRetrying:
		return 80
	case FlowComplete:
		return 100
	default:
		return 0
	}
}

// Progress is a single observer notification.
type Progress struct {
	Step       FlowState `json:"step"`
	Percent    int       `json:"percent"`
	RetryCount uint      `json:"retryCount"`
}

// Observer receives flow lifecycle callbacks. All methods are optional;
// implementations must not block.
type Observer interface {
	OnProgress(p Progress)
	OnSuccess(result PaymentResult)
	OnError(cerr *ClassifiedError)
}

// ClassifiedError is the terminal failure surface handed to callers and
// observers. It carries the category verdict alongside the cause.
type ClassifiedError struct {
	Category billing.Category `json:"category"`
	Title    string           `json:"title"`
	Message  string           `json:"message"`
	Actions  []billing.Action `json:"actions"`
	CanRetry bool             `json:"canRetry"`
	Err      error            `json:"-"`
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("payment failed (%s): %s", e.Category, e.Message)
}

func (e *ClassifiedError) Unwrap() error { return e.Err }

// NewClassifiedError builds the caller-facing error from a raw
// processor failure.
func NewClassifiedError(err error) *ClassifiedError {
	cat := billing.Classify(err)
	info := cat.Info()
	return &ClassifiedError{
		Category: cat,
		Title:    info.Title,
		Message:  info.Message,
		Actions:  info.Actions,
		CanRetry: info.Retryable,
		Err:      err,
	}
}

// PaymentOptions tunes a single InitiatePayment call.
type PaymentOptions struct {
	Observer         Observer
	PaymentMethodRef string
}

// PaymentResult describes a completed purchase.
type PaymentResult struct {
	Plan            domain.Plan `json:"plan"`
	AmountMinor     int64       `json:"amountMinor"`
	Currency        string      `json:"currency"`
	SubscriptionRef string      `json:"subscriptionRef"`
	CustomerRef     string      `json:"customerRef"`
	PaymentRef      string      `json:"paymentRef"`
	IntentRef       string      `json:"intentRef"`
	PeriodStart     time.Time   `json:"periodStart"`
	PeriodEnd       time.Time   `json:"periodEnd"`
	Attempts        uint        `json:"attempts"`
}

// PaymentFlowConfig bounds the automatic retry loop.
type PaymentFlowConfig struct {
	// MaxRetries is the number of automatic retries after the first
	// attempt, so the processor sees at most MaxRetries+1 attempts.
	MaxRetries uint
	// RetryBaseDelay seeds the exponential backoff (base, 2x, 4x, ...).
	RetryBaseDelay time.Duration
}

// DefaultPaymentFlowConfig returns the production retry policy.
func DefaultPaymentFlowConfig() PaymentFlowConfig {
	return PaymentFlowConfig{
		MaxRetries:     3,
		RetryBaseDelay: time.Second,
	}
}

// PaymentFlow drives a subscription purchase end to end: intent
// creation, confirmation, charge, and subscription activation. At most
// one payment may be in flight per flow instance.
type PaymentFlow interface {
	// InitiatePayment runs the full purchase for the given plan. It
	// returns ErrPaymentInProgress if another attempt is already
	// running, ErrAuthRequired if the context carries no account, and
	// a *ClassifiedError on terminal processor failure.
	InitiatePayment(ctx context.Context, plan domain.Plan, opts PaymentOptions) (*PaymentResult, error)

	// CancelPayment requests cooperative cancellation of the current
	// attempt. It is idempotent and reports true whether or not an
	// attempt was in flight.
	CancelPayment(ctx context.Context) bool

	// State reports the current flow phase.
	State() FlowState

	// Reset clears terminal state so a new attempt may begin.
	Reset()
}
