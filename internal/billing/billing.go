package billing

import (
	"context"
	"time"

	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/domain"
)

// Provider defines the interface for the external payment processor.
// Implementations can use Stripe, Paystack, Flutterwave, etc. The
// orchestrator treats every implementation as a black box whose failures
// carry a message classified by Classify.
type Provider interface {
	// CreateSubscriptionIntent creates a processor-side intent for a
	// subscription purchase. Returns the intent handle with the client
	// secret used by the payment sheet.
	CreateSubscriptionIntent(ctx context.Context, params CreateSubscriptionIntentParams) (*SubscriptionIntent, error)

	// ConfirmPayment drives the user-facing payment collection step for a
	// previously created intent.
	ConfirmPayment(ctx context.Context, params ConfirmPaymentParams) (*PaymentConfirmation, error)

	// Charge executes the charge behind a confirmed intent and returns
	// both the payment outcome and the resulting subscription record.
	Charge(ctx context.Context, params ChargeParams) (*ChargeResult, error)

	// CancelSubscription cancels an active processor-side subscription.
	CancelSubscription(ctx context.Context, params CancelSubscriptionParams) error

	// CancelPaymentIntent cancels an intent that has not been confirmed.
	// Used for abandoned or user-cancelled payment attempts; idempotent.
	CancelPaymentIntent(ctx context.Context, intentRef string) error

	// VerifyWebhookSignature authenticates an incoming processor webhook
	// payload against its signature header.
	VerifyWebhookSignature(payload []byte, signature, secret string) error
}

// CreateSubscriptionIntentParams contains parameters for creating an intent.
type CreateSubscriptionIntentParams struct {
	// Plan is the billing cadence being purchased.
	Plan domain.Plan

	// AccountID identifies the purchasing account.
	AccountID string

	// AccountEmail prefills the payment sheet.
	AccountEmail string

	// AmountMinor is the charge amount in smallest currency units.
	AmountMinor int64

	// Currency code (ISO 4217 lowercase), e.g. "ngn".
	Currency string

	// IsFirstTime marks a first-time-discounted purchase for processor
	// metadata and reporting.
	IsFirstTime bool

	// IdempotencyKey prevents duplicate intents for the same attempt.
	IdempotencyKey string
}

// SubscriptionIntent is a processor-side handle for a not-yet-completed charge.
type SubscriptionIntent struct {
	// IntentRef is the processor's intent identifier (e.g. pi_...).
	IntentRef string

	// ClientSecret is consumed by the payment sheet to collect the card.
	ClientSecret string

	AmountMinor int64
	Currency    string
	CreatedAt   time.Time
}

// ConfirmPaymentParams contains parameters for the confirmation step.
type ConfirmPaymentParams struct {
	IntentRef string

	// PaymentMethodRef is the collected payment method, when the caller
	// confirms server-side instead of via the client payment sheet.
	PaymentMethodRef string
}

// PaymentConfirmation is the outcome of the user-facing confirmation step.
type PaymentConfirmation struct {
	Succeeded bool
	// Status is the processor's intent status after confirmation.
	Status string
}

// ChargeParams contains parameters for executing the confirmed charge.
type ChargeParams struct {
	IntentRef        string
	Plan             domain.Plan
	AccountID        string
	PaymentMethodRef string
}

// ChargeResult combines the payment outcome with the subscription record
// the processor created for it.
type ChargeResult struct {
	// PaymentRef is the processor's charge/payment identifier.
	PaymentRef string

	// SubscriptionRef is the processor's subscription identifier.
	SubscriptionRef string

	// CustomerRef is the processor's customer identifier.
	CustomerRef string

	AmountMinor int64
	Currency    string

	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
}

// CancelSubscriptionParams contains parameters for canceling a subscription.
type CancelSubscriptionParams struct {
	SubscriptionRef    string
	CancellationReason string
}
