package domain

import "time"

// Status represents the lifecycle state of an account's subscription.
type Status string

const (
	StatusInactive Status = "inactive"
	StatusActive   Status = "active"
	StatusPastDue  Status = "past_due"
	StatusCanceled Status = "canceled"
	StatusUnpaid   Status = "unpaid"
)

// Tier represents the content access level derived from subscription status.
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// Plan identifies a billing cadence for the premium subscription.
type Plan string

const (
	PlanMonthly Plan = "monthly"
	PlanYearly  Plan = "yearly"
)

// IsValid reports whether p is a known plan.
func (p Plan) IsValid() bool {
	return p == PlanMonthly || p == PlanYearly
}

// Subscription is the single persisted subscription record for one account.
// Status is the source of truth; Tier is derived from it on every write.
type Subscription struct {
	Status           Status     `json:"status"`
	Tier             Tier       `json:"tier"`
	Plan             Plan       `json:"plan,omitempty"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`

	// FirstPurchaseDate is set at most once, on the account's first
	// successful purchase. It gates first-time discount eligibility
	// forever after; subsequent writes are no-ops.
	FirstPurchaseDate *time.Time `json:"first_purchase_date,omitempty"`

	// External processor references.
	CustomerRef     string `json:"customer_ref,omitempty"`
	SubscriptionRef string `json:"subscription_ref,omitempty"`

	// LastPaymentError holds the classified category of the most recent
	// terminal payment failure, cleared on the next successful payment.
	LastPaymentError string `json:"last_payment_error,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// IsActiveAt reports whether the subscription grants premium access at t.
func (s *Subscription) IsActiveAt(t time.Time) bool {
	if s.Status != StatusActive {
		return false
	}
	if s.CurrentPeriodEnd == nil {
		return false
	}
	return !t.After(*s.CurrentPeriodEnd)
}

// IsExpiredAt reports whether the subscription has lapsed at t.
// Without a period end, any non-active status counts as expired.
func (s *Subscription) IsExpiredAt(t time.Time) bool {
	if s.CurrentPeriodEnd == nil {
		return s.Status != StatusActive
	}
	return t.After(*s.CurrentPeriodEnd)
}

// DeriveTier computes the display tier from status and period end at t.
func (s *Subscription) DeriveTier(t time.Time) Tier {
	if s.IsActiveAt(t) {
		return TierPremium
	}
	return TierFree
}

// statusTransitions lists the permitted status moves. A status maps to the
// set of statuses it may move to via UpdateSubscriptionStatus. A full
// SetSubscription (new purchase) may re-activate from any state.
var statusTransitions = map[Status]map[Status]bool{
	StatusInactive: {StatusActive: true},
	StatusActive:   {StatusActive: true, StatusPastDue: true, StatusCanceled: true},
	StatusPastDue:  {StatusActive: true, StatusCanceled: true, StatusUnpaid: true},
	StatusCanceled: {},
	StatusUnpaid:   {},
}

// CanTransition reports whether a partial status update from one status to
// another is permitted. Terminal states (canceled, unpaid) only leave via a
// new purchase, never via a partial update.
func CanTransition(from, to Status) bool {
	allowed, ok := statusTransitions[from]
	if !ok {
		return false
	}
	return allowed[to]
}

// NewInactiveSubscription returns the default free/inactive record.
// firstPurchase carries over the write-once purchase date when a stale
// record is being replaced.
func NewInactiveSubscription(firstPurchase *time.Time) *Subscription {
	return &Subscription{
		Status:            StatusInactive,
		Tier:              TierFree,
		FirstPurchaseDate: firstPurchase,
		UpdatedAt:         time.Now().UTC(),
	}
}
