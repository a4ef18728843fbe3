package routes

import (
	"net/http"

	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/handler/api"
	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/router"
)

// APIDeps contains dependencies for the JSON API routes
type APIDeps struct {
	QuoteHandler        *api.QuoteHandler
	SubscriptionHandler *api.SubscriptionHandler

	// RequireAccount guards endpoints that need an authenticated account
	RequireAccount router.Middleware

	// CheckoutLimiter rate-limits the payment endpoints
	CheckoutLimiter router.Middleware
}

// WebhookDeps contains dependencies for processor webhook routes
type WebhookDeps struct {
	StripeHandler http.HandlerFunc
}

// OpsDeps contains dependencies for operational endpoints
type OpsDeps struct {
	MetricsHandler http.Handler
	HealthHandler  http.HandlerFunc
}
