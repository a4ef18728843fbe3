// Package pricing computes price quotes for pitch bookings.
//
// All amounts are in minor currency units (kobo). Quotes are pure values:
// recomputed on every call, never mutated, never persisted.
package pricing

import "math"

// ServiceFeeMinor is the flat booking fee applied to every quote,
// regardless of duration or discounts.
const ServiceFeeMinor int64 = 2500

// FirstBookingDiscountRate is the one-time discount applied to the
// subtotal of a customer's first booking.
const FirstBookingDiscountRate = 0.10

// durationMultipliers maps booking duration in hours to the rate
// multiplier. Longer bookings are cheaper per hour than the linear rate.
var durationMultipliers = map[int]float64{
	1: 1.0,
	2: 1.8,
	3: 2.5,
}

// Quote is the computed price breakdown for one booking evaluation.
// Invariant: Total = Subtotal - FirstBookingDiscount + ServiceFee, and
// Total >= 0 for all non-negative inputs.
type Quote struct {
	BasePricePerHour     int64 `json:"base_price_per_hour"`
	DurationHours        int   `json:"duration_hours"`
	Subtotal             int64 `json:"subtotal"`
	ServiceFee           int64 `json:"service_fee"`
	FirstBookingDiscount int64 `json:"first_booking_discount"`
	DurationDiscount     int64 `json:"duration_discount"`
	Total                int64 `json:"total"`
	IsFirstBooking       bool  `json:"is_first_booking"`
}

// Multiplier returns the duration multiplier for a booking of the given
// length. Durations outside the published table are priced at the
// single-hour equivalent rate (multiplier 1.0) rather than rejected.
func Multiplier(durationHours int) float64 {
	if m, ok := durationMultipliers[durationHours]; ok {
		return m
	}
	return 1.0
}

// ComputeQuote converts a base hourly rate, a duration, and a first-time
// customer flag into a priced quote. Pure and deterministic; a zero base
// price or zero duration still yields a well-formed quote whose total is
// the service fee.
func ComputeQuote(basePricePerHour int64, durationHours int, isFirstBooking bool) Quote {
	subtotal := roundMinor(float64(basePricePerHour) * Multiplier(durationHours))

	// Savings implied by the multiplier being below the linear rate.
	durationDiscount := basePricePerHour*int64(durationHours) - subtotal
	if durationDiscount < 0 {
		durationDiscount = 0
	}

	var firstBookingDiscount int64
	if isFirstBooking {
		firstBookingDiscount = roundMinor(float64(subtotal) * FirstBookingDiscountRate)
	}

	return Quote{
		BasePricePerHour:     basePricePerHour,
		DurationHours:        durationHours,
		Subtotal:             subtotal,
		ServiceFee:           ServiceFeeMinor,
		FirstBookingDiscount: firstBookingDiscount,
		DurationDiscount:     durationDiscount,
		Total:                subtotal - firstBookingDiscount + ServiceFeeMinor,
		IsFirstBooking:       isFirstBooking,
	}
}

func roundMinor(v float64) int64 {
	return int64(math.Round(v))
}
