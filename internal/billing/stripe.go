package billing

import (
	"context"
	"errors"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/subscription"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/domain"
)

// StripeConfig holds configuration for the Stripe-backed processor.
type StripeConfig struct {
	APIKey         string
	MonthlyPriceID string // Stripe price ID for the monthly premium plan
	YearlyPriceID  string // Stripe price ID for the yearly premium plan
}

// IsTestMode reports whether the configured key is a test-mode key.
func (c StripeConfig) IsTestMode() bool {
	return len(c.APIKey) > 7 && c.APIKey[:7] == "sk_test"
}

// StripeProvider implements Provider using the Stripe Go SDK.
type StripeProvider struct {
	cfg StripeConfig
}

// NewStripeProvider creates a new Stripe payment processor.
func NewStripeProvider(cfg StripeConfig) (*StripeProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrInvalidAPIKey
	}
	stripe.Key = cfg.APIKey
	return &StripeProvider{cfg: cfg}, nil
}

// CreateSubscriptionIntent creates a Stripe payment intent for the first
// charge of a subscription purchase.
func (s *StripeProvider) CreateSubscriptionIntent(ctx context.Context, params CreateSubscriptionIntentParams) (*SubscriptionIntent, error) {
	piParams := &stripe.PaymentIntentParams{
		Amount:       stripe.Int64(params.AmountMinor),
		Currency:     stripe.String(params.Currency),
		ReceiptEmail: stripe.String(params.AccountEmail),
	}
	piParams.Context = ctx
	if params.IdempotencyKey != "" {
		piParams.IdempotencyKey = stripe.String(params.IdempotencyKey)
	}
	piParams.AddMetadata("account_id", params.AccountID)
	piParams.AddMetadata("plan", string(params.Plan))
	if params.IsFirstTime {
		piParams.AddMetadata("first_time_discount", "true")
	}

	pi, err := paymentintent.New(piParams)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeAmountTooSmall {
			return nil, ErrAmountTooSmall
		}
		return nil, wrapStripeErr(err)
	}

	return &SubscriptionIntent{
		IntentRef:    pi.ID,
		ClientSecret: pi.ClientSecret,
		AmountMinor:  pi.Amount,
		Currency:     string(pi.Currency),
		CreatedAt:    time.Unix(pi.Created, 0),
	}, nil
}

// ConfirmPayment confirms the payment intent server-side. In the mobile
// flow confirmation happens in the payment sheet; this path exists for the
// web checkout where the payment method ref is posted back.
func (s *StripeProvider) ConfirmPayment(ctx context.Context, params ConfirmPaymentParams) (*PaymentConfirmation, error) {
	confirmParams := &stripe.PaymentIntentConfirmParams{}
	confirmParams.Context = ctx
	if params.PaymentMethodRef != "" {
		confirmParams.PaymentMethod = stripe.String(params.PaymentMethodRef)
	}

	pi, err := paymentintent.Confirm(params.IntentRef, confirmParams)
	if err != nil {
		return nil, wrapStripeErr(err)
	}

	return &PaymentConfirmation{
		Succeeded: pi.Status == stripe.PaymentIntentStatusSucceeded,
		Status:    string(pi.Status),
	}, nil
}

// Charge creates the Stripe customer and recurring subscription behind a
// confirmed intent. Period bounds are derived from the plan cadence.
func (s *StripeProvider) Charge(ctx context.Context, params ChargeParams) (*ChargeResult, error) {
	custParams := &stripe.CustomerParams{}
	custParams.Context = ctx
	custParams.AddMetadata("account_id", params.AccountID)
	cust, err := customer.New(custParams)
	if err != nil {
		return nil, wrapStripeErr(err)
	}

	priceID := s.cfg.MonthlyPriceID
	if params.Plan == domain.PlanYearly {
		priceID = s.cfg.YearlyPriceID
	}

	subParams := &stripe.SubscriptionParams{
		Customer: stripe.String(cust.ID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(priceID)},
		},
	}
	subParams.Context = ctx
	if params.PaymentMethodRef != "" {
		subParams.DefaultPaymentMethod = stripe.String(params.PaymentMethodRef)
	}
	subParams.AddMetadata("account_id", params.AccountID)

	sub, err := subscription.New(subParams)
	if err != nil {
		return nil, wrapStripeErr(err)
	}

	now := time.Now().UTC()
	periodEnd := now.AddDate(0, 1, 0)
	if params.Plan == domain.PlanYearly {
		periodEnd = now.AddDate(1, 0, 0)
	}

	return &ChargeResult{
		PaymentRef:         params.IntentRef,
		SubscriptionRef:    sub.ID,
		CustomerRef:        cust.ID,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   periodEnd,
	}, nil
}

// CancelSubscription cancels a Stripe subscription immediately.
func (s *StripeProvider) CancelSubscription(ctx context.Context, params CancelSubscriptionParams) error {
	cancelParams := &stripe.SubscriptionCancelParams{}
	cancelParams.Context = ctx
	if _, err := subscription.Cancel(params.SubscriptionRef, cancelParams); err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing {
			return ErrSubscriptionNotFound
		}
		return wrapStripeErr(err)
	}
	return nil
}

// CancelPaymentIntent cancels an unconfirmed Stripe payment intent.
// Already-canceled intents are treated as success.
func (s *StripeProvider) CancelPaymentIntent(ctx context.Context, intentRef string) error {
	cancelParams := &stripe.PaymentIntentCancelParams{}
	cancelParams.Context = ctx
	if _, err := paymentintent.Cancel(intentRef, cancelParams); err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == 404 {
			return nil
		}
		return wrapStripeErr(err)
	}
	return nil
}

// VerifyWebhookSignature authenticates a Stripe webhook payload using
// the endpoint signing secret.
func (s *StripeProvider) VerifyWebhookSignature(payload []byte, signature, secret string) error {
	if _, err := webhook.ConstructEvent(payload, signature, secret); err != nil {
		return domain.Errorf(domain.EUNAUTHORIZED, "billing.webhook", "Invalid webhook signature")
	}
	return nil
}

// wrapStripeErr converts a Stripe SDK error into a ProcessorError whose
// message feeds classification.
func wrapStripeErr(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return &ProcessorError{
			Message:       stripeErr.Msg,
			Code:          string(stripeErr.Code),
			DeclineCode:   string(stripeErr.DeclineCode),
			OriginalError: err,
		}
	}
	return &ProcessorError{
		Message:       err.Error(),
		OriginalError: err,
	}
}
