package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/billing"
	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/domain"
	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/storage"
)

// subscriptionStore implements SubscriptionStore on a RecordStore.
type subscriptionStore struct {
	accountID string
	records   storage.RecordStore
	log       *slog.Logger

	mu  sync.RWMutex
	sub *domain.Subscription
}

// NewSubscriptionStore creates a subscription store bound to one account.
// Call Initialize before reading; until then the store reports the default
// free/inactive state.
func NewSubscriptionStore(records storage.RecordStore, accountID string, log *slog.Logger) SubscriptionStore {
	return &subscriptionStore{
		accountID: accountID,
		records:   records,
		log:       log,
		sub:       domain.NewInactiveSubscription(nil),
	}
}

// storageKey is the fixed per-account key for the subscription record.
func (s *subscriptionStore) storageKey() string {
	return fmt.Sprintf("subscription:%s", s.accountID)
}

// Initialize loads persisted state with validation-on-load.
func (s *subscriptionStore) Initialize(ctx context.Context) error {
	raw, err := s.records.Get(ctx, s.storageKey())
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			s.publish(domain.NewInactiveSubscription(nil))
			return nil
		}
		return domain.WrapError(err, domain.EINTERNAL, "subscription.initialize", "failed to load subscription record")
	}

	var sub domain.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		// Corrupt record: replace rather than surface garbage state.
		s.log.Warn("discarding corrupt subscription record",
			slog.String("account_id", s.accountID),
			slog.Any("error", err))
		return s.replaceWithClean(ctx, nil)
	}

	if sub.Status == domain.StatusActive && sub.IsExpiredAt(time.Now().UTC()) {
		// Stale active record: a crash or long offline period left an
		// active status past its period end. Reset to inactive but keep
		// the write-once first purchase date.
		s.log.Info("expiring stale active subscription on load",
			slog.String("account_id", s.accountID))
		return s.replaceWithClean(ctx, sub.FirstPurchaseDate)
	}

	s.publish(&sub)
	return nil
}

// replaceWithClean persists and publishes a clean inactive record.
func (s *subscriptionStore) replaceWithClean(ctx context.Context, firstPurchase *time.Time) error {
	clean := domain.NewInactiveSubscription(firstPurchase)
	if err := s.persist(ctx, clean); err != nil {
		return err
	}
	s.publish(clean)
	return nil
}

// Current returns a copy of the subscription record.
func (s *subscriptionStore) Current() domain.Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.sub
}

// SetSubscription replaces the record, persist-then-publish.
func (s *subscriptionStore) SetSubscription(ctx context.Context, data SubscriptionData) error {
	s.mu.RLock()
	firstPurchase := s.sub.FirstPurchaseDate
	s.mu.RUnlock()

	now := time.Now().UTC()

	// First purchase date is write-once; subsequent writes are no-ops.
	if firstPurchase == nil {
		purchased := data.PurchasedAt
		if purchased.IsZero() {
			purchased = now
		}
		firstPurchase = &purchased
	}

	next := &domain.Subscription{
		Status:            data.Status,
		Plan:              data.Plan,
		CurrentPeriodEnd:  data.CurrentPeriodEnd,
		FirstPurchaseDate: firstPurchase,
		CustomerRef:       data.CustomerRef,
		SubscriptionRef:   data.SubscriptionRef,
		UpdatedAt:         now,
	}
	next.Tier = next.DeriveTier(now)

	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.publish(next)
	return nil
}

// ClearSubscription removes the record and resets to default state.
func (s *subscriptionStore) ClearSubscription(ctx context.Context) error {
	if err := s.records.Delete(ctx, s.storageKey()); err != nil {
		return domain.WrapError(err, domain.EINTERNAL, "subscription.clear", "failed to delete subscription record")
	}
	s.publish(domain.NewInactiveSubscription(nil))
	return nil
}

// UpdateSubscriptionStatus applies a partial status update.
func (s *subscriptionStore) UpdateSubscriptionStatus(ctx context.Context, status domain.Status, periodEnd *time.Time) error {
	s.mu.RLock()
	current := *s.sub
	s.mu.RUnlock()

	if !domain.CanTransition(current.Status, status) {
		return ErrInvalidStatusTransition
	}

	now := time.Now().UTC()
	next := current
	next.Status = status
	if periodEnd != nil {
		next.CurrentPeriodEnd = periodEnd
	}
	next.Tier = next.DeriveTier(now)
	next.UpdatedAt = now
	if status == domain.StatusActive {
		next.LastPaymentError = ""
	}

	if err := s.persist(ctx, &next); err != nil {
		return err
	}
	s.publish(&next)
	return nil
}

// RecordPaymentFailure marks the record with a classified failure category.
func (s *subscriptionStore) RecordPaymentFailure(ctx context.Context, category billing.Category) error {
	s.mu.RLock()
	next := *s.sub
	s.mu.RUnlock()

	next.LastPaymentError = string(category)
	next.UpdatedAt = time.Now().UTC()

	if err := s.persist(ctx, &next); err != nil {
		return err
	}
	s.publish(&next)
	return nil
}

// IsEligibleForFirstTimeDiscount reports first-purchase eligibility.
func (s *subscriptionStore) IsEligibleForFirstTimeDiscount() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sub.FirstPurchaseDate == nil
}

// ApplicablePricing returns plan pricing adjusted for eligibility.
func (s *subscriptionStore) ApplicablePricing() PricingPlan {
	plan := basePricingPlan
	if !s.IsEligibleForFirstTimeDiscount() {
		return plan
	}

	discount := plan.MonthlyPriceMinor * firstTimeDiscountPercent / 100
	plan.MonthlyPriceMinor -= discount
	plan.FirstTimeDiscountPercent = firstTimeDiscountPercent
	plan.DiscountAmountMinor = discount
	return plan
}

// IsExpiringSoon reports whether an active subscription ends within seven days.
func (s *subscriptionStore) IsExpiringSoon() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.sub.Status != domain.StatusActive || s.sub.CurrentPeriodEnd == nil {
		return false
	}

	until := time.Until(*s.sub.CurrentPeriodEnd)
	return until >= 0 && until <= expiringSoonWindow
}

// IsExpired reports whether the subscription has lapsed.
func (s *subscriptionStore) IsExpired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sub.IsExpiredAt(time.Now().UTC())
}

// Summary builds the presentation projection.
func (s *subscriptionStore) Summary() SubscriptionSummary {
	s.mu.RLock()
	sub := *s.sub
	s.mu.RUnlock()

	now := time.Now().UTC()
	expired := sub.IsExpiredAt(now)
	tier := sub.DeriveTier(now)

	summary := SubscriptionSummary{
		Status:         sub.Status,
		Tier:           tier,
		IsExpired:      expired,
		IsExpiringSoon: s.IsExpiringSoon(),
		ShowUpgrade:    tier != domain.TierPremium,
	}

	switch {
	case sub.Status == domain.StatusActive && !expired:
		summary.DisplayStatus = "Premium"
		summary.NextBillingDate = sub.CurrentPeriodEnd
		if summary.IsExpiringSoon {
			summary.Message = "Your premium subscription is expiring soon. Renew to keep access."
		} else {
			summary.Message = "Your premium subscription is active."
		}
	case sub.Status == domain.StatusActive && expired:
		summary.DisplayStatus = "Expired"
		summary.Message = "Your premium subscription has expired."
	case sub.Status == domain.StatusPastDue:
		summary.DisplayStatus = "Payment Issue"
		summary.Message = "We could not collect your last payment. Update your payment method."
	case sub.Status == domain.StatusCanceled:
		summary.DisplayStatus = "Canceled"
		summary.Message = "Your subscription has been canceled."
	case sub.Status == domain.StatusUnpaid:
		summary.DisplayStatus = "Payment Failed"
		summary.Message = "Your subscription lapsed after repeated failed charges."
	default:
		summary.DisplayStatus = "Free"
		summary.Message = "Upgrade to premium for training content and priority bookings."
	}

	return summary
}

// persist writes the record to storage. Must complete before publish.
func (s *subscriptionStore) persist(ctx context.Context, sub *domain.Subscription) error {
	raw, err := json.Marshal(sub)
	if err != nil {
		return domain.WrapError(err, domain.EINTERNAL, "subscription.persist", "failed to encode subscription record")
	}
	if err := s.records.Set(ctx, s.storageKey(), raw); err != nil {
		return domain.WrapError(err, domain.EINTERNAL, "subscription.persist", "failed to persist subscription record")
	}
	return nil
}

// publish makes a record visible to readers.
func (s *subscriptionStore) publish(sub *domain.Subscription) {
	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()
}
