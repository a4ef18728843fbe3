package routes

import (
	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/router"
)

// RegisterAPIRoutes registers the JSON API consumed by the mobile and
// web clients.
func RegisterAPIRoutes(r *router.Router, deps APIDeps) {
	// Pricing quotes are public; bookings are priced before sign-in.
	r.Get("/api/v1/pitches/quote", deps.QuoteHandler.GetQuote)

	// Subscription state and purchase endpoints require an account.
	authed := r.Group(deps.RequireAccount)
	authed.Get("/api/v1/subscription", deps.SubscriptionHandler.GetSubscription)
	authed.Get("/api/v1/subscription/pricing", deps.SubscriptionHandler.GetPricing)
	authed.Post("/api/v1/subscription/checkout", deps.SubscriptionHandler.Checkout, deps.CheckoutLimiter)
	authed.Post("/api/v1/subscription/cancel-payment", deps.SubscriptionHandler.CancelPayment)
	authed.Post("/api/v1/subscription/cancel", deps.SubscriptionHandler.CancelSubscription, deps.CheckoutLimiter)
}

// RegisterWebhookRoutes registers processor callback routes. These are
// authenticated by signature, not by account.
func RegisterWebhookRoutes(r *router.Router, deps WebhookDeps) {
	r.Post("/webhooks/stripe", deps.StripeHandler)
}

// RegisterOpsRoutes registers health and metrics endpoints.
func RegisterOpsRoutes(r *router.Router, deps OpsDeps) {
	r.Get("/health", deps.HealthHandler)
	r.Handle("GET", "/metrics", deps.MetricsHandler)
}
