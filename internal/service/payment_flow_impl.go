package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/uuid"

	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/billing"
	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/domain"
	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/telemetry"
)

// paymentAttempt tracks one in-flight purchase. The cancelled flag is
// the cooperative cancellation signal checked between processor calls.
type paymentAttempt struct {
	mu         sync.Mutex
	cancelled  bool
	retryCount uint
	intentRef  string
}

func (a *paymentAttempt) cancel() {
	a.mu.Lock()
	a.cancelled = true
	a.mu.Unlock()
}

func (a *paymentAttempt) isCancelled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancelled
}

func (a *paymentAttempt) setIntent(ref string) {
	a.mu.Lock()
	a.intentRef = ref
	a.mu.Unlock()
}

func (a *paymentAttempt) intent() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.intentRef
}

type paymentFlow struct {
	provider billing.Provider
	subs     SubscriptionStore
	cfg      PaymentFlowConfig
	log      *slog.Logger

	mu      sync.Mutex
	attempt *paymentAttempt
	state   FlowState
}

// NewPaymentFlow wires a provider and subscription store into a flow
// orchestrator. Zero config fields fall back to the defaults.
func NewPaymentFlow(provider billing.Provider, subs SubscriptionStore, cfg PaymentFlowConfig, log *slog.Logger) PaymentFlow {
	def := DefaultPaymentFlowConfig()
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = def.RetryBaseDelay
	}
	return &paymentFlow{
		provider: provider,
		subs:     subs,
		cfg:      cfg,
		log:      log.With(slog.String("component", "payment_flow")),
		state:    FlowIdle,
	}
}

func (f *paymentFlow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *paymentFlow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attempt == nil {
		f.state = FlowIdle
	}
}

// begin claims the single in-flight slot.
func (f *paymentFlow) begin() (*paymentAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attempt != nil {
		return nil, ErrPaymentInProgress
	}
	a := &paymentAttempt{}
	f.attempt = a
	f.state = FlowInitializing
	return a, nil
}

// finish releases the slot, but only if it is still held by the same
// attempt. A cancelled attempt has already been detached and must not
// touch state that a newer attempt may own.
func (f *paymentFlow) finish(a *paymentAttempt, terminal FlowState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attempt != a {
		return
	}
	f.attempt = nil
	f.state = terminal
}

func (f *paymentFlow) setState(a *paymentAttempt, s FlowState, obs Observer) {
	f.mu.Lock()
	if f.attempt == a {
		f.state = s
	}
	f.mu.Unlock()
	if obs != nil {
		a.mu.Lock()
		retries := a.retryCount
		a.mu.Unlock()
		obs.OnProgress(Progress{Step: s, Percent: s.Percent(), RetryCount: retries})
	}
}

func (f *paymentFlow) CancelPayment(ctx context.Context) bool {
	f.mu.Lock()
	a := f.attempt
	f.attempt = nil
	if a != nil {
		f.state = FlowIdle
	}
	f.mu.Unlock()

	if a == nil {
		return true
	}

	a.cancel()
	if ref := a.intent(); ref != "" {
		// Best effort; the flow goroutine treats the attempt as dead
		// regardless of whether the processor accepted the void.
		if err := f.provider.CancelPaymentIntent(ctx, ref); err != nil {
			f.log.Warn("cancel payment intent", slog.String("intent_ref", ref), slog.Any("error", err))
		}
	}
	f.log.Info("payment cancelled", slog.String("intent_ref", a.intent()))
	return true
}

func (f *paymentFlow) InitiatePayment(ctx context.Context, plan domain.Plan, opts PaymentOptions) (*PaymentResult, error) {
	account := domain.AccountFromContext(ctx)
	if account == nil {
		return nil, ErrAuthRequired
	}
	if !plan.IsValid() {
		return nil, ErrInvalidPlan
	}

	a, err := f.begin()
	if err != nil {
		return nil, err
	}

	telemetry.PaymentFlowsStarted.Inc()
	started := time.Now()
	log := f.log.With(
		slog.String("account_id", account.ID.String()),
		slog.String("plan", string(plan)),
	)
	log.Info("payment flow started")

	result, err := f.run(ctx, a, account, plan, opts, log)
	telemetry.PaymentDuration.Observe(time.Since(started).Seconds())

	switch {
	case err == nil:
		telemetry.PaymentSucceeded.Inc()
		telemetry.SubscriptionsActivated.Inc()
		f.finish(a, FlowComplete)
		if opts.Observer != nil {
			opts.Observer.OnSuccess(*result)
		}
		log.Info("payment flow succeeded",
			slog.String("subscription_ref", result.SubscriptionRef),
			slog.Uint64("attempts", uint64(result.Attempts)))
		return result, nil

	case errors.Is(err, ErrPaymentCancelled):
		f.finish(a, FlowIdle)
		log.Info("payment flow cancelled")
		return nil, err

	default:
		// Storage and pricing failures are not processor verdicts; they
		// pass through as coded domain errors.
		var derr *domain.Error
		if errors.As(err, &derr) {
			f.finish(a, FlowIdle)
			log.Error("payment flow failed", slog.Any("error", err))
			return nil, err
		}

		cerr := NewClassifiedError(err)
		telemetry.PaymentFailed.WithLabelValues(string(cerr.Category)).Inc()
		f.finish(a, FlowIdle)
		// Failure to record the error does not mask the payment error.
		if rerr := f.subs.RecordPaymentFailure(ctx, cerr.Category); rerr != nil {
			log.Warn("record payment failure", slog.Any("error", rerr))
		}
		if opts.Observer != nil {
			opts.Observer.OnError(cerr)
		}
		log.Error("payment flow failed",
			slog.String("category", string(cerr.Category)),
			slog.Bool("can_retry", cerr.CanRetry),
			slog.Any("error", err))
		return nil, cerr
	}
}

// run executes the purchase pipeline under the retry policy. It returns
// ErrPaymentCancelled as soon as cancellation is observed.
func (f *paymentFlow) run(ctx context.Context, a *paymentAttempt, account *domain.Account, plan domain.Plan, opts PaymentOptions, log *slog.Logger) (*PaymentResult, error) {
	f.setState(a, FlowInitializing, opts.Observer)

	pricing := f.subs.ApplicablePricing()
	amount := pricing.PriceFor(plan)
	firstTime := f.subs.IsEligibleForFirstTimeDiscount()
	if a.isCancelled() {
		return nil, ErrPaymentCancelled
	}

	var result *PaymentResult
	idempotencyKey := uuid.NewString()

	err := retry.Do(
		func() error {
			if a.isCancelled() {
				return ErrPaymentCancelled
			}
			telemetry.PaymentAttempts.Inc()

			f.setState(a, FlowCreatingIntent, opts.Observer)
			intent, err := f.provider.CreateSubscriptionIntent(ctx, billing.CreateSubscriptionIntentParams{
				Plan:           plan,
				AccountID:      account.ID.String(),
				AccountEmail:   account.Email,
				AmountMinor:    amount,
				Currency:       pricing.Currency,
				IsFirstTime:    firstTime,
				IdempotencyKey: idempotencyKey,
			})
			if err != nil {
				return err
			}
			a.setIntent(intent.IntentRef)
			f.setState(a, FlowPaymentReady, opts.Observer)

			if a.isCancelled() {
				return ErrPaymentCancelled
			}
			f.setState(a, FlowProcessing, opts.Observer)
			confirmation, err := f.provider.ConfirmPayment(ctx, billing.ConfirmPaymentParams{
				IntentRef:        intent.IntentRef,
				PaymentMethodRef: opts.PaymentMethodRef,
			})
			if err != nil {
				return err
			}
			if !confirmation.Succeeded {
				return &billing.ProcessorError{
					Message: "payment processing failed",
					Code:    confirmation.Status,
				}
			}

			charge, err := f.provider.Charge(ctx, billing.ChargeParams{
				IntentRef:        intent.IntentRef,
				Plan:             plan,
				AccountID:        account.ID.String(),
				PaymentMethodRef: opts.PaymentMethodRef,
			})
			if err != nil {
				return err
			}

			a.mu.Lock()
			attempts := a.retryCount + 1
			a.mu.Unlock()
			result = &PaymentResult{
				Plan:            plan,
				AmountMinor:     charge.AmountMinor,
				Currency:        charge.Currency,
				SubscriptionRef: charge.SubscriptionRef,
				CustomerRef:     charge.CustomerRef,
				PaymentRef:      charge.PaymentRef,
				IntentRef:       intent.IntentRef,
				PeriodStart:     charge.CurrentPeriodStart,
				PeriodEnd:       charge.CurrentPeriodEnd,
				Attempts:        attempts,
			}
			return nil
		},
		retry.Attempts(f.cfg.MaxRetries+1),
		retry.Delay(f.cfg.RetryBaseDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			if errors.Is(err, ErrPaymentCancelled) || a.isCancelled() {
				return false
			}
			return billing.IsRetryable(err)
		}),
		retry.OnRetry(func(n uint, err error) {
			// The callback also fires for the final failed attempt;
			// only attempts that will actually be retried count.
			if n >= f.cfg.MaxRetries {
				return
			}
			a.mu.Lock()
			a.retryCount = n + 1
			a.mu.Unlock()
			telemetry.PaymentRetries.Inc()
			f.setState(a, FlowRetrying, opts.Observer)
			log.Warn("retrying payment",
				slog.Uint64("attempt", uint64(n+1)),
				slog.Any("error", err))
		}),
	)
	if a.isCancelled() {
		return nil, ErrPaymentCancelled
	}
	if err != nil {
		return nil, err
	}

	// Activate only after the processor confirms the charge. A persist
	// failure here leaves the stored state untouched and surfaces as a
	// flow error so the caller can reconcile.
	if err := f.subs.SetSubscription(ctx, SubscriptionData{
		Status:           domain.StatusActive,
		Plan:             result.Plan,
		CurrentPeriodEnd: &result.PeriodEnd,
		CustomerRef:      result.CustomerRef,
		SubscriptionRef:  result.SubscriptionRef,
	}); err != nil {
		return nil, err
	}

	f.setState(a, FlowComplete, opts.Observer)
	return result, nil
}
