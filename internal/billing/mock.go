package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MockProvider is a mock payment processor for testing and local
// development. Simulates successful payment flows without any network
// calls; failures are scripted via the Func overrides or FailWith.
type MockProvider struct {
	// CreateSubscriptionIntentFunc allows customizing intent creation behavior
	CreateSubscriptionIntentFunc func(ctx context.Context, params CreateSubscriptionIntentParams) (*SubscriptionIntent, error)

	// ConfirmPaymentFunc allows customizing the confirmation step behavior
	ConfirmPaymentFunc func(ctx context.Context, params ConfirmPaymentParams) (*PaymentConfirmation, error)

	// ChargeFunc allows customizing charge execution behavior
	ChargeFunc func(ctx context.Context, params ChargeParams) (*ChargeResult, error)

	// CancelSubscriptionFunc allows customizing subscription cancellation behavior
	CancelSubscriptionFunc func(ctx context.Context, params CancelSubscriptionParams) error

	// Intents stores created intents for retrieval and assertions
	Intents map[string]*SubscriptionIntent

	// CancelledIntents records intent refs passed to CancelPaymentIntent
	CancelledIntents []string

	// CallLog tracks method calls for test assertions
	CallLog []string

	// scripted confirmation failures, consumed in order
	confirmFailures []error
}

// NewMockProvider creates a new mock payment processor.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Intents: make(map[string]*SubscriptionIntent),
		CallLog: []string{},
	}
}

// FailConfirmWith scripts the next confirmation calls to fail with the
// given errors, in order. Once the script is exhausted, confirmations
// succeed again.
func (m *MockProvider) FailConfirmWith(errs ...error) {
	m.confirmFailures = append(m.confirmFailures, errs...)
}

// CreateSubscriptionIntent creates a mock intent.
func (m *MockProvider) CreateSubscriptionIntent(ctx context.Context, params CreateSubscriptionIntentParams) (*SubscriptionIntent, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("CreateSubscriptionIntent(%s, %d)", params.Plan, params.AmountMinor))

	if m.CreateSubscriptionIntentFunc != nil {
		return m.CreateSubscriptionIntentFunc(ctx, params)
	}

	intent := &SubscriptionIntent{
		IntentRef:    "pi_" + uuid.New().String(),
		ClientSecret: "pi_" + uuid.New().String() + "_secret_" + uuid.New().String(),
		AmountMinor:  params.AmountMinor,
		Currency:     params.Currency,
		CreatedAt:    time.Now(),
	}

	m.Intents[intent.IntentRef] = intent
	return intent, nil
}

// ConfirmPayment confirms a mock intent, consuming any scripted failure.
func (m *MockProvider) ConfirmPayment(ctx context.Context, params ConfirmPaymentParams) (*PaymentConfirmation, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("ConfirmPayment(%s)", params.IntentRef))

	if m.ConfirmPaymentFunc != nil {
		return m.ConfirmPaymentFunc(ctx, params)
	}

	if len(m.confirmFailures) > 0 {
		err := m.confirmFailures[0]
		m.confirmFailures = m.confirmFailures[1:]
		return nil, err
	}

	if _, exists := m.Intents[params.IntentRef]; !exists {
		return nil, ErrIntentNotFound
	}

	return &PaymentConfirmation{Succeeded: true, Status: "succeeded"}, nil
}

// Charge executes a mock charge for a confirmed intent.
func (m *MockProvider) Charge(ctx context.Context, params ChargeParams) (*ChargeResult, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("Charge(%s, %s)", params.IntentRef, params.Plan))

	if m.ChargeFunc != nil {
		return m.ChargeFunc(ctx, params)
	}

	intent, exists := m.Intents[params.IntentRef]
	if !exists {
		return nil, ErrIntentNotFound
	}

	now := time.Now().UTC()
	periodEnd := now.AddDate(0, 1, 0)
	if params.Plan == "yearly" {
		periodEnd = now.AddDate(1, 0, 0)
	}

	return &ChargeResult{
		PaymentRef:         "py_" + uuid.New().String()[:8],
		SubscriptionRef:    "sub_" + uuid.New().String()[:8],
		CustomerRef:        "cus_" + uuid.New().String()[:8],
		AmountMinor:        intent.AmountMinor,
		Currency:           intent.Currency,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   periodEnd,
	}, nil
}

// CancelSubscription cancels a mock subscription.
func (m *MockProvider) CancelSubscription(ctx context.Context, params CancelSubscriptionParams) error {
	m.CallLog = append(m.CallLog, fmt.Sprintf("CancelSubscription(%s)", params.SubscriptionRef))

	if m.CancelSubscriptionFunc != nil {
		return m.CancelSubscriptionFunc(ctx, params)
	}
	return nil
}

// CancelPaymentIntent cancels a mock intent. Idempotent: canceling an
// unknown intent is not an error.
func (m *MockProvider) CancelPaymentIntent(ctx context.Context, intentRef string) error {
	m.CallLog = append(m.CallLog, fmt.Sprintf("CancelPaymentIntent(%s)", intentRef))

	m.CancelledIntents = append(m.CancelledIntents, intentRef)
	delete(m.Intents, intentRef)
	return nil
}

// VerifyWebhookSignature accepts any signature in the mock.
func (m *MockProvider) VerifyWebhookSignature(payload []byte, signature, secret string) error {
	m.CallLog = append(m.CallLog, "VerifyWebhookSignature")
	return nil
}

// Calls returns the number of logged calls whose name matches method.
func (m *MockProvider) Calls(method string) int {
	n := 0
	for _, c := range m.CallLog {
		if len(c) >= len(method) && c[:len(method)] == method {
			n++
		}
	}
	return n
}
