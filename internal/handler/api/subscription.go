package api

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/billing"
	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/domain"
	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/handler"
	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/middleware"
	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/service"
	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/telemetry"
)

// SubscriptionHandler serves the subscription state and purchase
// endpoints for the authenticated account.
type SubscriptionHandler struct {
	registry *service.Registry
	provider billing.Provider
	validate *validator.Validate
}

func NewSubscriptionHandler(registry *service.Registry, provider billing.Provider) *SubscriptionHandler {
	return &SubscriptionHandler{
		registry: registry,
		provider: provider,
		validate: validator.New(),
	}
}

// subscriptionResponse pairs the raw record with its presentation
// projection so clients render without re-deriving state.
type subscriptionResponse struct {
	Subscription domain.Subscription         `json:"subscription"`
	Summary      service.SubscriptionSummary `json:"summary"`
}

// GetSubscription returns the account's subscription state.
//
//	GET /api/v1/subscription
func (h *SubscriptionHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	subs, _, err := h.registry.For(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, http.StatusOK, subscriptionResponse{
		Subscription: subs.Current(),
		Summary:      subs.Summary(),
	})
}

// GetPricing returns the premium plan pricing, adjusted for first-time
// discount eligibility.
//
//	GET /api/v1/subscription/pricing
func (h *SubscriptionHandler) GetPricing(w http.ResponseWriter, r *http.Request) {
	subs, _, err := h.registry.For(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, http.StatusOK, subs.ApplicablePricing())
}

type checkoutRequest struct {
	Plan             string `json:"plan" validate:"required,oneof=monthly yearly"`
	PaymentMethodRef string `json:"payment_method_ref" validate:"omitempty,max=255"`
}

// checkoutFailure is the payload returned when the processor rejects
// the payment after classification.
type checkoutFailure struct {
	Category string   `json:"category"`
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Actions  []string `json:"actions"`
	CanRetry bool     `json:"can_retry"`
}

// Checkout runs the full purchase flow synchronously and reports the
// terminal outcome.
//
//	POST /api/v1/subscription/checkout
func (h *SubscriptionHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "checkout", "plan must be monthly or yearly"))
		return
	}

	_, flow, err := h.registry.For(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	result, err := flow.InitiatePayment(r.Context(), domain.Plan(req.Plan), service.PaymentOptions{
		PaymentMethodRef: req.PaymentMethodRef,
	})
	if err != nil {
		var cerr *service.ClassifiedError
		if errors.As(err, &cerr) {
			actions := make([]string, len(cerr.Actions))
			for i, a := range cerr.Actions {
				actions[i] = string(a)
			}
			handler.JSON(w, http.StatusPaymentRequired, map[string]any{
				"error": checkoutFailure{
					Category: string(cerr.Category),
					Title:    cerr.Title,
					Message:  cerr.Message,
					Actions:  actions,
					CanRetry: cerr.CanRetry,
				},
			})
			return
		}
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, http.StatusOK, result)
}

// CancelPayment requests cooperative cancellation of any in-flight
// payment attempt.
//
//	POST /api/v1/subscription/cancel-payment
func (h *SubscriptionHandler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	_, flow, err := h.registry.For(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	cancelled := flow.CancelPayment(r.Context())
	handler.JSON(w, http.StatusOK, map[string]bool{"cancelled": cancelled})
}

// CancelSubscription cancels the active subscription with the processor
// and moves the local record to canceled.
//
//	POST /api/v1/subscription/cancel
func (h *SubscriptionHandler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	log := middleware.GetLogger(r.Context())

	subs, _, err := h.registry.For(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	sub := subs.Current()
	if sub.SubscriptionRef == "" {
		handler.ErrorResponse(w, r, service.ErrSubscriptionNotFound)
		return
	}

	// A subscription the processor no longer knows about is already
	// cancelled remotely; the local record still moves to canceled.
	if err := h.provider.CancelSubscription(r.Context(), billing.CancelSubscriptionParams{
		SubscriptionRef: sub.SubscriptionRef,
	}); err != nil && !errors.Is(err, billing.ErrSubscriptionNotFound) {
		handler.ErrorResponse(w, r, domain.WrapError(err, domain.EPAYMENT, "subscription.cancel", "Failed to cancel subscription with payment processor"))
		return
	}

	if err := subs.UpdateSubscriptionStatus(r.Context(), domain.StatusCanceled, nil); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	telemetry.SubscriptionsCanceled.Inc()
	log.Info("subscription canceled", "subscription_ref", sub.SubscriptionRef)
	handler.JSON(w, http.StatusOK, subscriptionResponse{
		Subscription: subs.Current(),
		Summary:      subs.Summary(),
	})
}
