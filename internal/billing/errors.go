package billing

import (
	"errors"
	"fmt"
)

var (
	// ErrIntentNotFound is returned when a payment intent does not exist.
	ErrIntentNotFound = errors.New("billing: payment intent not found")

	// ErrSubscriptionNotFound is returned when a processor subscription does not exist.
	ErrSubscriptionNotFound = errors.New("billing: subscription not found")

	// ErrInvalidAPIKey is returned when the processor API key is invalid or missing.
	ErrInvalidAPIKey = errors.New("billing: invalid or missing API key")

	// ErrAmountTooSmall is returned when the amount is below the processor's minimum.
	ErrAmountTooSmall = errors.New("billing: amount too small")
)

// ProcessorError wraps a payment processor failure with the raw message
// that drives classification. Message is the sole classification input.
type ProcessorError struct {
	Message       string // Human-readable message from the processor
	Code          string // Processor error code (e.g. "card_declined")
	DeclineCode   string // Card decline reason, if applicable
	OriginalError error  // Original error from the processor SDK
}

func (e *ProcessorError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("billing: %s (code: %s)", e.Message, e.Code)
	}
	return fmt.Sprintf("billing: %s", e.Message)
}

func (e *ProcessorError) Unwrap() error {
	return e.OriginalError
}
