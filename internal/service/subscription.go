package service

import (
	"context"
	"time"

	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/billing"
	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/domain"
)

// SubscriptionStore is the single authoritative, persisted view of one
// account's subscription status and discount eligibility.
//
// All writes persist before publishing to memory, so a crash mid-update
// leaves the previous valid state intact. Query methods are side-effect
// free. A store instance is bound to one account; instances for different
// accounts share no mutable state.
type SubscriptionStore interface {
	// Initialize loads the persisted record. Records that are corrupt or
	// stale (active but past their period end) are discarded and replaced
	// with a clean inactive record before any caller sees them. The
	// write-once first purchase date survives staleness resets.
	Initialize(ctx context.Context) error

	// Current returns a copy of the subscription record.
	Current() domain.Subscription

	// SetSubscription atomically replaces status, plan, period end, and
	// external references. Sets the first purchase date only if it was
	// previously unset. On persistence failure, in-memory state is left
	// unchanged and an error is returned.
	SetSubscription(ctx context.Context, data SubscriptionData) error

	// ClearSubscription removes the persisted record and resets to the
	// default free/inactive state.
	ClearSubscription(ctx context.Context) error

	// UpdateSubscriptionStatus applies a partial status update (e.g. an
	// external lifecycle notification) and recomputes the derived tier.
	// Illegal transitions return ErrInvalidStatusTransition.
	UpdateSubscriptionStatus(ctx context.Context, status domain.Status, periodEnd *time.Time) error

	// RecordPaymentFailure marks the record with the classified category
	// of a terminal payment failure. Status is not touched.
	RecordPaymentFailure(ctx context.Context, category billing.Category) error

	// IsEligibleForFirstTimeDiscount reports whether the account has
	// never completed a purchase. Pure query.
	IsEligibleForFirstTimeDiscount() bool

	// ApplicablePricing returns the premium plan pricing with the monthly
	// price replaced by the discounted first-time price when eligible.
	// Must not mutate eligibility.
	ApplicablePricing() PricingPlan

	// IsExpiringSoon reports whether an active subscription ends within
	// the next seven days.
	IsExpiringSoon() bool

	// IsExpired reports whether the subscription has lapsed.
	IsExpired() bool

	// Summary returns the presentation projection of the record.
	Summary() SubscriptionSummary
}

// SubscriptionData contains the fields written by SetSubscription after a
// successful payment or an external sync.
type SubscriptionData struct {
	Status           domain.Status
	Plan             domain.Plan
	CurrentPeriodEnd *time.Time
	CustomerRef      string
	SubscriptionRef  string

	// PurchasedAt stamps the write-once first purchase date when this is
	// the account's first successful purchase. Zero means time.Now.
	PurchasedAt time.Time
}

// PricingPlan is the displayable premium plan pricing, possibly adjusted
// for first-time discount eligibility.
type PricingPlan struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	MonthlyPriceMinor int64  `json:"monthly_price_minor"`
	YearlyPriceMinor  int64  `json:"yearly_price_minor"`
	Currency          string `json:"currency"`

	// Discount display fields, zero when the account is not eligible.
	FirstTimeDiscountPercent int   `json:"first_time_discount_percent,omitempty"`
	DiscountAmountMinor      int64 `json:"discount_amount_minor,omitempty"`
}

// PriceFor returns the charge amount for a plan cadence.
func (p PricingPlan) PriceFor(plan domain.Plan) int64 {
	if plan == domain.PlanYearly {
		return p.YearlyPriceMinor
	}
	return p.MonthlyPriceMinor
}

// SubscriptionSummary is a derived, side-effect-free projection for
// presentation. Computing it never writes state.
type SubscriptionSummary struct {
	Status          domain.Status `json:"status"`
	Tier            domain.Tier   `json:"tier"`
	DisplayStatus   string        `json:"display_status"`
	Message         string        `json:"message"`
	ShowUpgrade     bool          `json:"show_upgrade"`
	IsExpired       bool          `json:"is_expired"`
	IsExpiringSoon  bool          `json:"is_expiring_soon"`
	NextBillingDate *time.Time    `json:"next_billing_date,omitempty"`
}

// Default premium plan pricing in minor currency units (kobo).
const (
	premiumMonthlyMinor int64 = 250000
	premiumYearlyMinor  int64 = 2500000

	// firstTimeDiscountPercent is the one-time discount on the monthly
	// price for accounts that have never purchased.
	firstTimeDiscountPercent = 20
)

// DefaultCurrency is the ISO 4217 code all plans are priced in.
const DefaultCurrency = "ngn"

// expiringSoonWindow is how far ahead of the period end a subscription
// counts as expiring soon.
const expiringSoonWindow = 7 * 24 * time.Hour

// basePricingPlan is the undiscounted premium plan.
var basePricingPlan = PricingPlan{
	ID:                "premium",
	Name:              "PitchLink Premium",
	MonthlyPriceMinor: premiumMonthlyMinor,
	YearlyPriceMinor:  premiumYearlyMinor,
	Currency:          DefaultCurrency,
}
