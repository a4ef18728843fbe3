package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/billing"
	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/domain"
	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// flakyStore wraps a memory store and fails writes on demand.
type flakyStore struct {
	storage.RecordStore
	setErr error
	delErr error
}

func (f *flakyStore) Set(ctx context.Context, key string, value []byte) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.RecordStore.Set(ctx, key, value)
}

func (f *flakyStore) Delete(ctx context.Context, key string) error {
	if f.delErr != nil {
		return f.delErr
	}
	return f.RecordStore.Delete(ctx, key)
}

func newTestStore(t *testing.T) (SubscriptionStore, storage.RecordStore) {
	t.Helper()
	records := storage.NewMemoryStore()
	store := NewSubscriptionStore(records, "acct-1", testLogger())
	require.NoError(t, store.Initialize(context.Background()))
	return store, records
}

func seedRecord(t *testing.T, records storage.RecordStore, sub domain.Subscription) {
	t.Helper()
	raw, err := json.Marshal(sub)
	require.NoError(t, err)
	require.NoError(t, records.Set(context.Background(), "subscription:acct-1", raw))
}

func TestSubscriptionStore_InitializeDefaults(t *testing.T) {
	store, _ := newTestStore(t)

	sub := store.Current()
	assert.Equal(t, domain.StatusInactive, sub.Status)
	assert.Equal(t, domain.TierFree, sub.Tier)
	assert.Nil(t, sub.FirstPurchaseDate)
	assert.True(t, store.IsEligibleForFirstTimeDiscount())
}

func TestSubscriptionStore_InitializeCorruptRecord(t *testing.T) {
	ctx := context.Background()
	records := storage.NewMemoryStore()
	require.NoError(t, records.Set(ctx, "subscription:acct-1", []byte("not json{")))

	store := NewSubscriptionStore(records, "acct-1", testLogger())
	require.NoError(t, store.Initialize(ctx))

	// The corrupt record is replaced with a clean one, in storage too.
	assert.Equal(t, domain.StatusInactive, store.Current().Status)
	raw, err := records.Get(ctx, "subscription:acct-1")
	require.NoError(t, err)
	var persisted domain.Subscription
	require.NoError(t, json.Unmarshal(raw, &persisted))
	assert.Equal(t, domain.StatusInactive, persisted.Status)
}

func TestSubscriptionStore_InitializeStaleActive(t *testing.T) {
	ctx := context.Background()
	records := storage.NewMemoryStore()

	purchased := time.Now().UTC().AddDate(0, -2, 0)
	ended := time.Now().UTC().AddDate(0, -1, 0)
	seedRecord(t, records, domain.Subscription{
		Status:            domain.StatusActive,
		Tier:              domain.TierPremium,
		Plan:              domain.PlanMonthly,
		CurrentPeriodEnd:  &ended,
		FirstPurchaseDate: &purchased,
		SubscriptionRef:   "sub_stale",
	})

	store := NewSubscriptionStore(records, "acct-1", testLogger())
	require.NoError(t, store.Initialize(ctx))

	sub := store.Current()
	assert.Equal(t, domain.StatusInactive, sub.Status)
	assert.Equal(t, domain.TierFree, sub.Tier)
	assert.Empty(t, sub.SubscriptionRef)

	// The write-once purchase date survives the reset, so the discount
	// is not re-granted.
	require.NotNil(t, sub.FirstPurchaseDate)
	assert.True(t, sub.FirstPurchaseDate.Equal(purchased))
	assert.False(t, store.IsEligibleForFirstTimeDiscount())
}

func TestSubscriptionStore_InitializeValidActive(t *testing.T) {
	ctx := context.Background()
	records := storage.NewMemoryStore()

	ends := time.Now().UTC().AddDate(0, 1, 0)
	seedRecord(t, records, domain.Subscription{
		Status:           domain.StatusActive,
		Tier:             domain.TierPremium,
		Plan:             domain.PlanMonthly,
		CurrentPeriodEnd: &ends,
		SubscriptionRef:  "sub_live",
	})

	store := NewSubscriptionStore(records, "acct-1", testLogger())
	require.NoError(t, store.Initialize(ctx))

	sub := store.Current()
	assert.Equal(t, domain.StatusActive, sub.Status)
	assert.Equal(t, "sub_live", sub.SubscriptionRef)
}

func TestSubscriptionStore_SetSubscriptionWriteOnceFirstPurchase(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	ends := time.Now().UTC().AddDate(0, 1, 0)
	require.NoError(t, store.SetSubscription(ctx, SubscriptionData{
		Status:           domain.StatusActive,
		Plan:             domain.PlanMonthly,
		CurrentPeriodEnd: &ends,
		CustomerRef:      "cus_1",
		SubscriptionRef:  "sub_1",
	}))

	first := store.Current().FirstPurchaseDate
	require.NotNil(t, first)
	assert.False(t, store.IsEligibleForFirstTimeDiscount())

	// A later renewal must not move the first purchase date.
	later := time.Now().UTC().AddDate(0, 2, 0)
	require.NoError(t, store.SetSubscription(ctx, SubscriptionData{
		Status:           domain.StatusActive,
		Plan:             domain.PlanYearly,
		CurrentPeriodEnd: &later,
		CustomerRef:      "cus_1",
		SubscriptionRef:  "sub_2",
	}))

	second := store.Current().FirstPurchaseDate
	require.NotNil(t, second)
	assert.True(t, second.Equal(*first))
}

func TestSubscriptionStore_SetSubscriptionPersistFailure(t *testing.T) {
	ctx := context.Background()
	flaky := &flakyStore{RecordStore: storage.NewMemoryStore()}
	store := NewSubscriptionStore(flaky, "acct-1", testLogger())
	require.NoError(t, store.Initialize(ctx))

	flaky.setErr = errors.New("disk full")
	ends := time.Now().UTC().AddDate(0, 1, 0)
	err := store.SetSubscription(ctx, SubscriptionData{
		Status:           domain.StatusActive,
		Plan:             domain.PlanMonthly,
		CurrentPeriodEnd: &ends,
	})
	require.Error(t, err)
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))

	// In-memory state is untouched by the failed write.
	sub := store.Current()
	assert.Equal(t, domain.StatusInactive, sub.Status)
	assert.Nil(t, sub.FirstPurchaseDate)
	assert.True(t, store.IsEligibleForFirstTimeDiscount())
}

func TestSubscriptionStore_UpdateStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    domain.Status
		to      domain.Status
		wantErr bool
	}{
		{"inactive to active", domain.StatusInactive, domain.StatusActive, false},
		{"active to past due", domain.StatusActive, domain.StatusPastDue, false},
		{"active to canceled", domain.StatusActive, domain.StatusCanceled, false},
		{"past due to active", domain.StatusPastDue, domain.StatusActive, false},
		{"past due to unpaid", domain.StatusPastDue, domain.StatusUnpaid, false},
		{"inactive to past due", domain.StatusInactive, domain.StatusPastDue, true},
		{"canceled to active", domain.StatusCanceled, domain.StatusActive, true},
		{"unpaid to active", domain.StatusUnpaid, domain.StatusActive, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			records := storage.NewMemoryStore()
			ends := time.Now().UTC().AddDate(0, 1, 0)
			seedRecord(t, records, domain.Subscription{
				Status:           tt.from,
				CurrentPeriodEnd: &ends,
			})

			store := NewSubscriptionStore(records, "acct-1", testLogger())
			require.NoError(t, store.Initialize(ctx))

			err := store.UpdateSubscriptionStatus(ctx, tt.to, nil)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidStatusTransition)
				assert.Equal(t, tt.from, store.Current().Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, store.Current().Status)
		})
	}
}

func TestSubscriptionStore_UpdateStatusClearsPaymentError(t *testing.T) {
	ctx := context.Background()
	records := storage.NewMemoryStore()
	ends := time.Now().UTC().AddDate(0, 1, 0)
	seedRecord(t, records, domain.Subscription{
		Status:           domain.StatusPastDue,
		CurrentPeriodEnd: &ends,
		LastPaymentError: string(billing.CategoryCardDeclined),
	})

	store := NewSubscriptionStore(records, "acct-1", testLogger())
	require.NoError(t, store.Initialize(ctx))

	require.NoError(t, store.UpdateSubscriptionStatus(ctx, domain.StatusActive, nil))
	assert.Empty(t, store.Current().LastPaymentError)
}

func TestSubscriptionStore_RecordPaymentFailure(t *testing.T) {
	ctx := context.Background()
	store, records := newTestStore(t)

	require.NoError(t, store.RecordPaymentFailure(ctx, billing.CategoryInsufficientFunds))

	sub := store.Current()
	assert.Equal(t, string(billing.CategoryInsufficientFunds), sub.LastPaymentError)
	assert.Equal(t, domain.StatusInactive, sub.Status, "failure marking must not touch status")

	raw, err := records.Get(ctx, "subscription:acct-1")
	require.NoError(t, err)
	var persisted domain.Subscription
	require.NoError(t, json.Unmarshal(raw, &persisted))
	assert.Equal(t, string(billing.CategoryInsufficientFunds), persisted.LastPaymentError)
}

func TestSubscriptionStore_ClearSubscription(t *testing.T) {
	ctx := context.Background()
	store, records := newTestStore(t)

	ends := time.Now().UTC().AddDate(0, 1, 0)
	require.NoError(t, store.SetSubscription(ctx, SubscriptionData{
		Status:           domain.StatusActive,
		Plan:             domain.PlanMonthly,
		CurrentPeriodEnd: &ends,
	}))
	require.False(t, store.IsEligibleForFirstTimeDiscount())

	require.NoError(t, store.ClearSubscription(ctx))

	sub := store.Current()
	assert.Equal(t, domain.StatusInactive, sub.Status)
	assert.Nil(t, sub.FirstPurchaseDate)
	assert.True(t, store.IsEligibleForFirstTimeDiscount())

	_, err := records.Get(ctx, "subscription:acct-1")
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestSubscriptionStore_ApplicablePricing(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	// Eligible: monthly price discounted, yearly untouched.
	plan := store.ApplicablePricing()
	assert.Equal(t, int64(200000), plan.MonthlyPriceMinor)
	assert.Equal(t, int64(2500000), plan.YearlyPriceMinor)
	assert.Equal(t, 20, plan.FirstTimeDiscountPercent)
	assert.Equal(t, int64(50000), plan.DiscountAmountMinor)

	// Reading pricing must not consume eligibility.
	assert.True(t, store.IsEligibleForFirstTimeDiscount())

	ends := time.Now().UTC().AddDate(0, 1, 0)
	require.NoError(t, store.SetSubscription(ctx, SubscriptionData{
		Status:           domain.StatusActive,
		Plan:             domain.PlanMonthly,
		CurrentPeriodEnd: &ends,
	}))

	plan = store.ApplicablePricing()
	assert.Equal(t, int64(250000), plan.MonthlyPriceMinor)
	assert.Zero(t, plan.FirstTimeDiscountPercent)
	assert.Zero(t, plan.DiscountAmountMinor)
}

func TestSubscriptionStore_IsExpiringSoon(t *testing.T) {
	tests := []struct {
		name   string
		status domain.Status
		endsIn time.Duration
		want   bool
	}{
		{"active ends in 3 days", domain.StatusActive, 3 * 24 * time.Hour, true},
		{"active ends in 7 days", domain.StatusActive, 7*24*time.Hour - time.Minute, true},
		{"active ends in 30 days", domain.StatusActive, 30 * 24 * time.Hour, false},
		{"active already ended", domain.StatusActive, -time.Hour, false},
		{"canceled ends in 3 days", domain.StatusCanceled, 3 * 24 * time.Hour, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := storage.NewMemoryStore()
			ends := time.Now().UTC().Add(tt.endsIn)
			seedRecord(t, records, domain.Subscription{
				Status:           tt.status,
				CurrentPeriodEnd: &ends,
			})

			store := NewSubscriptionStore(records, "acct-1", testLogger())
			if tt.status == domain.StatusActive && tt.endsIn < 0 {
				// Stale active records are reset on load.
				require.NoError(t, store.Initialize(context.Background()))
				assert.False(t, store.IsExpiringSoon())
				return
			}
			require.NoError(t, store.Initialize(context.Background()))
			assert.Equal(t, tt.want, store.IsExpiringSoon())
		})
	}
}

func TestSubscriptionStore_Summary(t *testing.T) {
	ctx := context.Background()

	t.Run("free account", func(t *testing.T) {
		store, _ := newTestStore(t)
		sum := store.Summary()
		assert.Equal(t, "Free", sum.DisplayStatus)
		assert.Equal(t, domain.TierFree, sum.Tier)
		assert.True(t, sum.ShowUpgrade)
		assert.Nil(t, sum.NextBillingDate)
	})

	t.Run("active premium", func(t *testing.T) {
		store, _ := newTestStore(t)
		ends := time.Now().UTC().AddDate(0, 1, 0)
		require.NoError(t, store.SetSubscription(ctx, SubscriptionData{
			Status:           domain.StatusActive,
			Plan:             domain.PlanMonthly,
			CurrentPeriodEnd: &ends,
		}))

		sum := store.Summary()
		assert.Equal(t, "Premium", sum.DisplayStatus)
		assert.Equal(t, domain.TierPremium, sum.Tier)
		assert.False(t, sum.ShowUpgrade)
		require.NotNil(t, sum.NextBillingDate)
		assert.True(t, sum.NextBillingDate.Equal(ends))
	})

	t.Run("past due", func(t *testing.T) {
		records := storage.NewMemoryStore()
		ends := time.Now().UTC().AddDate(0, 1, 0)
		seedRecord(t, records, domain.Subscription{
			Status:           domain.StatusPastDue,
			CurrentPeriodEnd: &ends,
		})
		store := NewSubscriptionStore(records, "acct-1", testLogger())
		require.NoError(t, store.Initialize(ctx))

		sum := store.Summary()
		assert.Equal(t, "Payment Issue", sum.DisplayStatus)
		assert.True(t, sum.ShowUpgrade)
	})
}
