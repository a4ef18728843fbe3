package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/sadeeqahli/pitch-link-1-master-sub000/internal/domain"
)

// contextKey is an unexported key type for middleware context values.
type contextKey string

const (
	// AccountIDHeader carries the authenticated account ID, set by the
	// gateway in front of this service after it validates the session.
	AccountIDHeader = "X-Account-ID"

	// AccountEmailHeader carries the account email for receipts.
	AccountEmailHeader = "X-Account-Email"
)

// WithAccount extracts the gateway-authenticated account from request
// headers and adds it to the request context. This middleware is
// optional - it adds the account if present but doesn't require it.
func WithAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(AccountIDHeader)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		id, err := uuid.Parse(raw)
		if err != nil {
			// A malformed ID is treated the same as no account.
			next.ServeHTTP(w, r)
			return
		}

		account := &domain.Account{
			ID:    id,
			Email: r.Header.Get(AccountEmailHeader),
		}
		ctx := domain.NewContextWithAccount(r.Context(), account)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAccount ensures an account is present, returning 401 if not
func RequireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if domain.AccountFromContext(r.Context()) == nil {
			respondUnauthorized(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
