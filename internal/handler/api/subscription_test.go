package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/billing"
	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/domain"
	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/service"
	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/storage"
)

func newAPIFixture(t *testing.T) (*SubscriptionHandler, *billing.MockProvider) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	provider := billing.NewMockProvider()
	registry := service.NewRegistry(storage.NewMemoryStore(), provider, service.PaymentFlowConfig{
		MaxRetries:     3,
		RetryBaseDelay: time.Millisecond,
	}, log)
	return NewSubscriptionHandler(registry, provider), provider
}

func authedRequest(method, target string, body []byte) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	ctx := domain.NewContextWithAccount(context.Background(), &domain.Account{
		ID:    uuid.New(),
		Email: "kola@example.com",
	})
	return req.WithContext(ctx)
}

func TestGetSubscription_RequiresAccount(t *testing.T) {
	h, _ := newAPIFixture(t)

	rec := httptest.NewRecorder()
	h.GetSubscription(rec, httptest.NewRequest(http.MethodGet, "/api/v1/subscription", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetSubscription_DefaultsToFree(t *testing.T) {
	h, _ := newAPIFixture(t)

	rec := httptest.NewRecorder()
	h.GetSubscription(rec, authedRequest(http.MethodGet, "/api/v1/subscription", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Subscription domain.Subscription         `json:"subscription"`
		Summary      service.SubscriptionSummary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, domain.StatusInactive, body.Subscription.Status)
	assert.True(t, body.Summary.ShowUpgrade)
}

func TestGetPricing_FirstTimeDiscount(t *testing.T) {
	h, _ := newAPIFixture(t)

	rec := httptest.NewRecorder()
	h.GetPricing(rec, authedRequest(http.MethodGet, "/api/v1/subscription/pricing", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var plan service.PricingPlan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plan))
	assert.Equal(t, int64(200000), plan.MonthlyPriceMinor)
	assert.Equal(t, 20, plan.FirstTimeDiscountPercent)
}

func TestCheckout_Success(t *testing.T) {
	h, _ := newAPIFixture(t)

	body, _ := json.Marshal(map[string]string{"plan": "monthly"})
	req := authedRequest(http.MethodPost, "/api/v1/subscription/checkout", body)
	rec := httptest.NewRecorder()
	h.Checkout(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	var result service.PaymentResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, domain.PlanMonthly, result.Plan)
	assert.NotEmpty(t, result.SubscriptionRef)

	// The same account now reads back an active subscription.
	rec = httptest.NewRecorder()
	sreq := httptest.NewRequest(http.MethodGet, "/api/v1/subscription", nil).WithContext(req.Context())
	h.GetSubscription(rec, sreq)
	var sub struct {
		Subscription domain.Subscription `json:"subscription"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sub))
	assert.Equal(t, domain.StatusActive, sub.Subscription.Status)
}

func TestCheckout_InvalidPlan(t *testing.T) {
	h, provider := newAPIFixture(t)

	body, _ := json.Marshal(map[string]string{"plan": "weekly"})
	rec := httptest.NewRecorder()
	h.Checkout(rec, authedRequest(http.MethodPost, "/api/v1/subscription/checkout", body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, provider.Calls("CreateSubscriptionIntent"))
}

func TestCheckout_DeclinedCardReturnsClassifiedFailure(t *testing.T) {
	h, provider := newAPIFixture(t)
	provider.FailConfirmWith(&billing.ProcessorError{
		Message: "Your card was declined.",
		Code:    "card_declined",
	})

	body, _ := json.Marshal(map[string]string{"plan": "monthly"})
	rec := httptest.NewRecorder()
	h.Checkout(rec, authedRequest(http.MethodPost, "/api/v1/subscription/checkout", body))
	require.Equal(t, http.StatusPaymentRequired, rec.Code)

	var resp struct {
		Error struct {
			Category string `json:"category"`
			CanRetry bool   `json:"can_retry"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(billing.CategoryCardDeclined), resp.Error.Category)
	assert.False(t, resp.Error.CanRetry)
}

func TestCancelPayment_Idle(t *testing.T) {
	h, _ := newAPIFixture(t)

	rec := httptest.NewRecorder()
	h.CancelPayment(rec, authedRequest(http.MethodPost, "/api/v1/subscription/cancel-payment", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp["cancelled"])
}

func TestCancelSubscription_WithoutSubscription(t *testing.T) {
	h, _ := newAPIFixture(t)

	rec := httptest.NewRecorder()
	h.CancelSubscription(rec, authedRequest(http.MethodPost, "/api/v1/subscription/cancel", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelSubscription_Active(t *testing.T) {
	h, provider := newAPIFixture(t)

	body, _ := json.Marshal(map[string]string{"plan": "monthly"})
	req := authedRequest(http.MethodPost, "/api/v1/subscription/checkout", body)
	rec := httptest.NewRecorder()
	h.Checkout(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	creq := httptest.NewRequest(http.MethodPost, "/api/v1/subscription/cancel", nil).WithContext(req.Context())
	h.CancelSubscription(rec, creq)
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	assert.Equal(t, 1, provider.Calls("CancelSubscription"))

	var resp struct {
		Subscription domain.Subscription `json:"subscription"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.StatusCanceled, resp.Subscription.Status)
}

func TestCancelSubscription_GoneAtProcessorStillCancelsLocally(t *testing.T) {
	h, provider := newAPIFixture(t)

	body, _ := json.Marshal(map[string]string{"plan": "monthly"})
	req := authedRequest(http.MethodPost, "/api/v1/subscription/checkout", body)
	rec := httptest.NewRecorder()
	h.Checkout(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	provider.CancelSubscriptionFunc = func(ctx context.Context, params billing.CancelSubscriptionParams) error {
		return billing.ErrSubscriptionNotFound
	}

	rec = httptest.NewRecorder()
	creq := httptest.NewRequest(http.MethodPost, "/api/v1/subscription/cancel", nil).WithContext(req.Context())
	h.CancelSubscription(rec, creq)
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	var resp struct {
		Subscription domain.Subscription `json:"subscription"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.StatusCanceled, resp.Subscription.Status)
}

func TestGetQuote(t *testing.T) {
	h := NewQuoteHandler()

	rec := httptest.NewRecorder()
	h.GetQuote(rec, httptest.NewRequest(http.MethodGet, "/api/v1/pitches/quote?base=12500&hours=1&first=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var quote struct {
		Total int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))
	assert.Equal(t, int64(13750), quote.Total)
}

func TestGetQuote_BadInput(t *testing.T) {
	h := NewQuoteHandler()

	rec := httptest.NewRecorder()
	h.GetQuote(rec, httptest.NewRequest(http.MethodGet, "/api/v1/pitches/quote?base=abc&hours=1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
