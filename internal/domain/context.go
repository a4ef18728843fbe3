// Package domain provides core business types and context helpers for
// the PitchLink subscription backend.
//
// Context helpers centralize request-scoped data access so payment and
// subscription code never reaches into transport-layer types directly.
package domain

import (
	"context"

	"github.com/google/uuid"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey int

const (
	// accountContextKey stores account information in context.
	accountContextKey contextKey = iota

	// requestIDContextKey stores the request ID for tracing.
	requestIDContextKey
)

// Account represents the authenticated account stored in context.
// This is a minimal struct for context storage - the full account
// record lives behind the subscription store.
type Account struct {
	ID    uuid.UUID
	Email string
}

// NewContextWithAccount returns a new context with the account attached.
func NewContextWithAccount(ctx context.Context, account *Account) context.Context {
	return context.WithValue(ctx, accountContextKey, account)
}

// AccountFromContext retrieves the account from context.
// Returns nil if no account is present.
func AccountFromContext(ctx context.Context) *Account {
	account, _ := ctx.Value(accountContextKey).(*Account)
	return account
}

// NewContextWithRequestID returns a new context with the request ID attached.
func NewContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if not present.
func RequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDContextKey).(string)
	return requestID
}
