package service

import (
	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/domain"
)

// Subscription store errors
var (
	ErrSubscriptionNotFound    = domain.Errorf(domain.ENOTFOUND, "", "Subscription not found")
	ErrInvalidStatusTransition = domain.Errorf(domain.ECONFLICT, "", "Invalid subscription status transition")
)

// Payment flow errors
var (
	ErrAuthRequired      = domain.Errorf(domain.EUNAUTHORIZED, "", "Sign in to purchase a subscription")
	ErrPaymentInProgress = domain.Errorf(domain.ECONFLICT, "", "A payment is already in progress")
	ErrPaymentCancelled  = domain.Errorf(domain.ECONFLICT, "", "Payment attempt was cancelled")
	ErrInvalidPlan       = domain.Errorf(domain.EINVALID, "", "Invalid subscription plan")
)
