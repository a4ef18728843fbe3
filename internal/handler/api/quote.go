package api

import (
	"net/http"
	"strconv"

	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/domain"
	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/handler"
	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/pricing"
)

// QuoteHandler prices pitch bookings.
type QuoteHandler struct{}

func NewQuoteHandler() *QuoteHandler {
	return &QuoteHandler{}
}

// GetQuote computes a booking price quote.
//
//	GET /api/v1/pitches/quote?base=12500&hours=2&first=true
//
// base is the pitch's hourly rate in minor units, hours the booking
// duration, first whether this is the account's first booking.
func (h *QuoteHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	base, err := strconv.ParseInt(q.Get("base"), 10, 64)
	if err != nil || base < 0 {
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "quote.get", "base must be a non-negative integer"))
		return
	}

	hours, err := strconv.Atoi(q.Get("hours"))
	if err != nil || hours < 1 {
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "quote.get", "hours must be a positive integer"))
		return
	}

	first := q.Get("first") == "true" || q.Get("first") == "1"

	quote := pricing.ComputeQuote(base, hours, first)
	handler.JSON(w, http.StatusOK, quote)
}
