package webhook

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	stripe "github.com/stripe/stripe-go/v82"

	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/billing"
	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/domain"
	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/handler"
	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/middleware"
	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/service"
)

// StripeHandler applies processor lifecycle events to the subscription
// store. It is the second writer besides the payment flow: renewals,
// failed renewal charges, and processor-side cancellations all arrive
// here.
type StripeHandler struct {
	provider billing.Provider
	registry *service.Registry
	config   StripeWebhookConfig
}

// StripeWebhookConfig contains configuration for Stripe webhook handling
type StripeWebhookConfig struct {
	// WebhookSecret is the webhook signing secret from the Stripe dashboard
	WebhookSecret string
}

// NewStripeHandler creates a new Stripe webhook handler
func NewStripeHandler(provider billing.Provider, registry *service.Registry, config StripeWebhookConfig) *StripeHandler {
	return &StripeHandler{
		provider: provider,
		registry: registry,
		config:   config,
	}
}

// subscriptionEvent is the slice of the processor subscription object
// this service needs. Events are decoded into it rather than the full
// SDK type so API-version field moves don't break webhook handling.
type subscriptionEvent struct {
	ID       string                    `json:"id"`
	Status   stripe.SubscriptionStatus `json:"status"`
	Metadata map[string]string         `json:"metadata"`
	Items    struct {
		Data []struct {
			CurrentPeriodEnd int64 `json:"current_period_end"`
		} `json:"data"`
	} `json:"items"`
}

// invoiceEvent is the slice of the invoice object carrying the account
// reference stamped at intent creation.
type invoiceEvent struct {
	ID       string            `json:"id"`
	Metadata map[string]string `json:"metadata"`
}

// statusFromStripe maps processor subscription statuses onto the local
// lifecycle. Unmapped statuses are ignored.
func statusFromStripe(s stripe.SubscriptionStatus) (domain.Status, bool) {
	switch s {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return domain.StatusActive, true
	case stripe.SubscriptionStatusPastDue:
		return domain.StatusPastDue, true
	case stripe.SubscriptionStatusUnpaid:
		return domain.StatusUnpaid, true
	case stripe.SubscriptionStatusCanceled:
		return domain.StatusCanceled, true
	default:
		return "", false
	}
}

// HandleWebhook processes incoming Stripe webhook events.
//
//	POST /webhooks/stripe
func (h *StripeHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	log := middleware.GetLogger(r.Context())

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<16))
	if err != nil {
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "webhook.stripe", "Error reading request body"))
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "webhook.stripe", "Missing signature"))
		return
	}

	if err := h.provider.VerifyWebhookSignature(payload, signature, h.config.WebhookSecret); err != nil {
		handler.ErrorResponse(w, r, domain.Errorf(domain.EUNAUTHORIZED, "webhook.stripe", "Invalid signature"))
		return
	}

	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "webhook.stripe", "Invalid JSON"))
		return
	}

	log.Info("stripe event received", "type", event.Type, "event_id", event.ID)

	switch event.Type {
	case "customer.subscription.updated", "customer.subscription.deleted":
		err = h.handleSubscriptionEvent(r, event)
	case "invoice.payment_failed":
		err = h.handleInvoicePaymentFailed(r, event)
	default:
		// Acknowledge everything else so Stripe stops redelivering.
		log.Debug("ignoring stripe event", "type", event.Type)
	}

	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, http.StatusOK, map[string]string{"received": event.ID})
}

func (h *StripeHandler) handleSubscriptionEvent(r *http.Request, event stripe.Event) error {
	log := middleware.GetLogger(r.Context())

	var sub subscriptionEvent
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return domain.Errorf(domain.EINVALID, "webhook.stripe", "Malformed subscription payload")
	}

	accountID := sub.Metadata["account_id"]
	if accountID == "" {
		// Not one of ours; acknowledge so Stripe stops retrying.
		log.Warn("stripe subscription event without account metadata", "subscription_ref", sub.ID)
		return nil
	}

	subs, _, err := h.registry.ForAccount(r.Context(), accountID)
	if err != nil {
		return err
	}

	if current := subs.Current(); current.SubscriptionRef != "" && current.SubscriptionRef != sub.ID {
		log.Warn("stripe event for unknown subscription",
			"account_id", accountID, "subscription_ref", sub.ID)
		return nil
	}

	status := sub.Status
	if event.Type == "customer.subscription.deleted" {
		status = stripe.SubscriptionStatusCanceled
	}

	mapped, ok := statusFromStripe(status)
	if !ok {
		log.Info("ignoring stripe subscription status", "status", status)
		return nil
	}

	var periodEnd *time.Time
	if len(sub.Items.Data) > 0 && sub.Items.Data[0].CurrentPeriodEnd > 0 {
		t := time.Unix(sub.Items.Data[0].CurrentPeriodEnd, 0).UTC()
		periodEnd = &t
	}

	if err := subs.UpdateSubscriptionStatus(r.Context(), mapped, periodEnd); err != nil {
		// An out-of-order event hitting a terminal state is not a
		// failure worth redelivery.
		if domain.ErrorCode(err) == domain.ECONFLICT {
			log.Warn("dropping out-of-order stripe event", "status", mapped, "error", err)
			return nil
		}
		return err
	}
	return nil
}

func (h *StripeHandler) handleInvoicePaymentFailed(r *http.Request, event stripe.Event) error {
	log := middleware.GetLogger(r.Context())

	var inv invoiceEvent
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
		return domain.Errorf(domain.EINVALID, "webhook.stripe", "Malformed invoice payload")
	}

	accountID := inv.Metadata["account_id"]
	if accountID == "" {
		log.Warn("stripe invoice event without account metadata", "invoice_ref", inv.ID)
		return nil
	}

	subs, _, err := h.registry.ForAccount(r.Context(), accountID)
	if err != nil {
		return err
	}

	if err := subs.RecordPaymentFailure(r.Context(), billing.CategoryCardDeclined); err != nil {
		return err
	}

	// A failed renewal charge moves an active subscription to past_due.
	if subs.Current().Status == domain.StatusActive {
		if err := subs.UpdateSubscriptionStatus(r.Context(), domain.StatusPastDue, nil); err != nil {
			return err
		}
	}
	return nil
}
